package rules

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/model"
)

// consentMaxAge is how long a stored consent decision stays valid.
const consentMaxAge = 365 * 24 * time.Hour

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func privacyLink() Rule {
	return Rule{
		ID:          "privacy-link",
		Description: "Privacy policy link missing or hard to find",
		Severity:    model.SeverityHigh,
		Check: func(doc docmodel.Document) (*Result, error) {
			footers := doc.QueryElements("footer")
			if len(footers) == 0 {
				return &Result{Issue: "No footer found (privacy policy likely missing)"}, nil
			}
			footer := footers[0]

			var privacy docmodel.Element
			for _, link := range footer.Find("a") {
				href := link.Attr("href")
				text := link.Text()
				if strings.Contains(text, "privacy") || strings.Contains(href, "privacy") {
					privacy = link
				}
			}

			if privacy == nil {
				return &Result{Issue: "Privacy policy link not found in footer"}, nil
			}

			if doc.ComputedStyle(privacy).Hidden() {
				return &Result{Issue: "Privacy policy link is hidden"}, nil
			}
			return nil, nil
		},
	}
}

func consentStorage() Rule {
	return Rule{
		ID:          "consent-storage",
		Description: "Cookie consent not stored/retrievable",
		Severity:    model.SeverityHigh,
		Check: func(doc docmodel.Document) (*Result, error) {
			entries := doc.LocalEntries()

			// Sorted keys keep the picked entry deterministic across scans.
			keys := make([]string, 0, len(entries))
			for k := range entries {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			consentKey := ""
			for _, k := range keys {
				lower := strings.ToLower(k)
				if strings.Contains(lower, "consent") || strings.Contains(lower, "cookie") || strings.Contains(lower, "gdpr") {
					consentKey = k
					break
				}
			}
			if consentKey == "" {
				return &Result{Issue: "No consent found in localStorage"}, nil
			}

			var consent struct {
				Timestamp json.RawMessage `json:"timestamp"`
				Accepted  json.RawMessage `json:"accepted"`
			}
			if err := json.Unmarshal([]byte(entries[consentKey]), &consent); err != nil {
				return &Result{Issue: "Consent storage not accessible or corrupted"}, nil
			}

			if !truthy(consent.Timestamp) || !truthy(consent.Accepted) {
				return &Result{Issue: "Consent not properly stored"}, nil
			}

			// An unparsable timestamp never counts as expired; the freshness
			// check only fires when the date is readable.
			if ts, ok := parseConsentTimestamp(consent.Timestamp); ok {
				if time.Since(ts) > consentMaxAge {
					return &Result{Issue: "Consent stored is expired (>1 year)"}, nil
				}
			}
			return nil, nil
		},
	}
}

// truthy mirrors loose JSON truthiness: absent, null, false, 0, and "" are
// all falsy.
func truthy(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	switch s {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

// parseConsentTimestamp accepts either Unix milliseconds (as a JSON number or
// numeric string) or a textual date.
func parseConsentTimestamp(raw json.RawMessage) (time.Time, bool) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "" {
		return time.Time{}, false
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z", "2006-01-02", time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func dpoContact() Rule {
	return Rule{
		ID:          "dpo-contact",
		Description: "No Data Protection Officer contact information",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			footers := doc.QueryElements("footer")
			if len(footers) == 0 {
				return &Result{Issue: "Cannot check DPO contact (no footer)"}, nil
			}

			footerText := footers[0].Text()
			hasDPO := strings.Contains(footerText, "dpo") ||
				strings.Contains(footerText, "data protection") ||
				strings.Contains(footerText, "protection officer") ||
				strings.Contains(footerText, "privacy officer")

			if !hasDPO && !emailRe.MatchString(footerText) {
				return &Result{
					Issue:      "No DPO contact information found",
					Suggestion: "Add Data Protection Officer email or contact form",
				}, nil
			}
			return nil, nil
		},
	}
}

func dataRetention() Rule {
	return Rule{
		ID:          "data-retention",
		Description: "No mention of data retention period",
		Severity:    model.SeverityLow,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			hasRetention := strings.Contains(bodyText, "retention") ||
				strings.Contains(bodyText, "how long") ||
				strings.Contains(bodyText, "keep data") ||
				strings.Contains(bodyText, "store data")

			if !hasRetention {
				return &Result{
					Issue:      "No mention of data retention period",
					Suggestion: "State how long you retain personal data and the criteria used",
				}, nil
			}
			return nil, nil
		},
	}
}

func legalBasis() Rule {
	return Rule{
		ID:          "legal-basis",
		Description: "No mention of legal basis for data processing",
		Severity:    model.SeverityMedium,
		Check: func(doc docmodel.Document) (*Result, error) {
			bodyText := doc.TextContent("")
			hasLegalBasis := strings.Contains(bodyText, "legal basis") ||
				strings.Contains(bodyText, "lawful basis") ||
				strings.Contains(bodyText, "consent as legal") ||
				strings.Contains(bodyText, "legitimate interest")

			if !hasLegalBasis {
				return &Result{
					Issue:      "No mention of legal basis for processing",
					Suggestion: "State legal basis for processing (consent, legitimate interest, contract, legal obligation)",
				}, nil
			}
			return nil, nil
		},
	}
}

func doubleOptIn() Rule {
	return Rule{
		ID:          "double-opt-in",
		Description: "No double opt-in for email subscriptions",
		Severity:    model.SeverityLow,
		Check: func(doc docmodel.Document) (*Result, error) {
			hasEmailForm := false
			for _, form := range doc.QueryElements("form") {
				if len(form.Find(`input[type="email"]`)) > 0 {
					hasEmailForm = true
					break
				}
			}
			if !hasEmailForm {
				return nil, nil
			}

			bodyText := doc.TextContent("")
			hasDoubleOptIn := strings.Contains(bodyText, "confirm") ||
				strings.Contains(bodyText, "verify email") ||
				strings.Contains(bodyText, "double opt")

			if !hasDoubleOptIn {
				return &Result{
					Issue:      "Email form may lack double opt-in verification",
					Suggestion: "Implement double opt-in for email marketing subscriptions",
				}, nil
			}
			return nil, nil
		},
	}
}
