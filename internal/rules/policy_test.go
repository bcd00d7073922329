package rules_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/testutil"
)

// ─── privacy-link ──────────────────────────────────────────────────────

func TestPrivacyLink_NoFooter(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body><p>no footer</p></body></html>`)

	res := check(t, "privacy-link", doc)
	if res == nil || res.Issue != "No footer found (privacy policy likely missing)" {
		t.Fatalf("expected missing footer violation, got %+v", res)
	}
}

func TestPrivacyLink_FooterWithoutLink(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer><a href="/about">About</a></footer>
	</body></html>`)

	res := check(t, "privacy-link", doc)
	if res == nil || res.Issue != "Privacy policy link not found in footer" {
		t.Fatalf("expected missing link violation, got %+v", res)
	}
}

func TestPrivacyLink_VisibleLink(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer><a href="/privacy">Privacy Policy</a></footer>
	</body></html>`)

	if res := check(t, "privacy-link", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestPrivacyLink_InlineHidden(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer><a href="/privacy" style="display:none">Privacy Policy</a></footer>
	</body></html>`)

	res := check(t, "privacy-link", doc)
	if res == nil || res.Issue != "Privacy policy link is hidden" {
		t.Fatalf("expected hidden link violation, got %+v", res)
	}
}

func TestPrivacyLink_StylesheetHidden(t *testing.T) {
	t.Parallel()
	// The snapshot carries computed-style overrides for elements hidden by
	// external stylesheets.
	doc := testutil.Doc(t, `<html><body>
	  <footer><a id="plink" href="/privacy">Privacy Policy</a></footer>
	</body></html>`,
		testutil.WithStyle("#plink", docmodel.Style{Display: "none"}))

	res := check(t, "privacy-link", doc)
	if res == nil || res.Issue != "Privacy policy link is hidden" {
		t.Fatalf("expected hidden link violation, got %+v", res)
	}
}

func TestPrivacyLink_LastMatchingLinkWins(t *testing.T) {
	t.Parallel()
	// Two privacy links: the earlier one hidden, the later one visible. The
	// check inspects the last match only.
	doc := testutil.Doc(t, `<html><body>
	  <footer>
	    <a href="/privacy-old" style="display:none">Privacy</a>
	    <a href="/privacy">Privacy Policy</a>
	  </footer>
	</body></html>`)

	if res := check(t, "privacy-link", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

// ─── consent-storage ───────────────────────────────────────────────────

func freshConsent() string {
	return fmt.Sprintf(`{"accepted":true,"timestamp":%d}`, time.Now().UnixMilli())
}

func TestConsentStorage_NoEntries(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, "<html></html>")

	res := check(t, "consent-storage", doc)
	if res == nil || res.Issue != "No consent found in localStorage" {
		t.Fatalf("expected missing consent violation, got %+v", res)
	}
}

func TestConsentStorage_UnrelatedKeysIgnored(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("theme", "dark"))

	res := check(t, "consent-storage", doc)
	if res == nil || res.Issue != "No consent found in localStorage" {
		t.Fatalf("expected missing consent violation, got %+v", res)
	}
}

func TestConsentStorage_ValidRecentConsent(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("cookie_consent", freshConsent()))

	if res := check(t, "consent-storage", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestConsentStorage_GDPRKeyRecognized(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("gdprChoice", freshConsent()))

	if res := check(t, "consent-storage", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestConsentStorage_CorruptedJSON(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("cookie_consent", "{not json"))

	res := check(t, "consent-storage", doc)
	if res == nil || res.Issue != "Consent storage not accessible or corrupted" {
		t.Fatalf("expected corruption violation, got %+v", res)
	}
}

func TestConsentStorage_MissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
	}{
		{"no accepted", fmt.Sprintf(`{"timestamp":%d}`, time.Now().UnixMilli())},
		{"accepted false", fmt.Sprintf(`{"accepted":false,"timestamp":%d}`, time.Now().UnixMilli())},
		{"no timestamp", `{"accepted":true}`},
		{"empty timestamp", `{"accepted":true,"timestamp":""}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := testutil.Doc(t, "<html></html>",
				testutil.WithLocalEntry("cookie_consent", tc.value))

			res := check(t, "consent-storage", doc)
			if res == nil || res.Issue != "Consent not properly stored" {
				t.Fatalf("expected improper storage violation, got %+v", res)
			}
		})
	}
}

func TestConsentStorage_Expired(t *testing.T) {
	t.Parallel()
	old := time.Now().AddDate(-2, 0, 0).UnixMilli()
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("cookie_consent", fmt.Sprintf(`{"accepted":true,"timestamp":%d}`, old)))

	res := check(t, "consent-storage", doc)
	if res == nil || res.Issue != "Consent stored is expired (>1 year)" {
		t.Fatalf("expected expired consent violation, got %+v", res)
	}
}

func TestConsentStorage_UnreadableTimestampNotExpired(t *testing.T) {
	t.Parallel()
	// A timestamp that cannot be parsed is truthy but unreadable; the
	// freshness check never fires on it.
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("cookie_consent", `{"accepted":true,"timestamp":"sometime last year"}`))

	if res := check(t, "consent-storage", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestConsentStorage_TextualTimestamp(t *testing.T) {
	t.Parallel()
	recent := time.Now().AddDate(0, -1, 0).UTC().Format(time.RFC3339)
	doc := testutil.Doc(t, "<html></html>",
		testutil.WithLocalEntry("consentGiven", fmt.Sprintf(`{"accepted":"yes","timestamp":%q}`, recent)))

	if res := check(t, "consent-storage", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

// ─── dpo-contact ───────────────────────────────────────────────────────

func TestDPOContact_NoFooter(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body><p>no footer</p></body></html>`)

	res := check(t, "dpo-contact", doc)
	if res == nil || res.Issue != "Cannot check DPO contact (no footer)" {
		t.Fatalf("expected no-footer violation, got %+v", res)
	}
}

func TestDPOContact_DPOKeyword(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer>Contact our Data Protection Officer</footer>
	</body></html>`)

	if res := check(t, "dpo-contact", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestDPOContact_EmailAddress(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer>Questions? hello@example.com</footer>
	</body></html>`)

	if res := check(t, "dpo-contact", doc); res != nil {
		t.Errorf("an email address should satisfy the rule, got %q", res.Issue)
	}
}

func TestDPOContact_Missing(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <footer>Copyright 2026</footer>
	</body></html>`)

	res := check(t, "dpo-contact", doc)
	if res == nil || res.Issue != "No DPO contact information found" {
		t.Fatalf("expected missing DPO violation, got %+v", res)
	}
}

// ─── data-retention / legal-basis ──────────────────────────────────────

func TestDataRetention(t *testing.T) {
	t.Parallel()

	missing := testutil.Doc(t, `<html><body><p>nothing relevant</p></body></html>`)
	if check(t, "data-retention", missing) == nil {
		t.Error("expected violation when retention is never mentioned")
	}

	present := testutil.Doc(t, `<html><body><p>Our data retention period is 12 months.</p></body></html>`)
	if res := check(t, "data-retention", present); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

func TestLegalBasis(t *testing.T) {
	t.Parallel()

	missing := testutil.Doc(t, `<html><body><p>nothing relevant</p></body></html>`)
	if check(t, "legal-basis", missing) == nil {
		t.Error("expected violation when legal basis is never mentioned")
	}

	present := testutil.Doc(t, `<html><body><p>We process data on the basis of legitimate interest.</p></body></html>`)
	if res := check(t, "legal-basis", present); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}

// ─── double-opt-in ─────────────────────────────────────────────────────

func TestDoubleOptIn_NoEmailForm(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <form><input type="text" name="q"></form>
	</body></html>`)

	if res := check(t, "double-opt-in", doc); res != nil {
		t.Errorf("no email form means no finding, got %q", res.Issue)
	}
}

func TestDoubleOptIn_EmailFormWithoutConfirmation(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <form><input type="email" name="newsletter"></form>
	</body></html>`)

	res := check(t, "double-opt-in", doc)
	if res == nil || res.Issue != "Email form may lack double opt-in verification" {
		t.Fatalf("expected double opt-in violation, got %+v", res)
	}
}

func TestDoubleOptIn_ConfirmationMentioned(t *testing.T) {
	t.Parallel()
	doc := testutil.Doc(t, `<html><body>
	  <form><input type="email" name="newsletter"></form>
	  <p>We will send a confirmation email.</p>
	</body></html>`)

	if res := check(t, "double-opt-in", doc); res != nil {
		t.Errorf("unexpected violation: %q", res.Issue)
	}
}
