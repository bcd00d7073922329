package engine_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/engine"
	"github.com/gdprscanner/gdprscan/internal/model"
	"github.com/gdprscanner/gdprscan/internal/rules"
	"github.com/gdprscanner/gdprscan/internal/testutil"
)

// compliantPage trips none of the default rules.
const compliantPage = `<html><body>
  <div class="cookie-banner">
    We use cookies. <button>Accept</button> <button>Reject</button>
    <button>Necessary only</button>
    <a href="/cookie-policy">Cookie Policy</a>
  </div>
  <p>Cookies fall into necessary, analytics, and marketing categories.
     Data retention period: 12 months. Legal basis: consent.
     You can access my data, export my data in a portable format,
     and your data is never transferred internationally without safeguards.</p>
  <footer>
    <a href="/privacy">Privacy Policy</a>
    <a href="/delete">Delete my data</a>
    <a href="/export">Export my data</a>
    dpo@example.com
  </footer>
</body></html>`

func newEngine(t *testing.T, catalog *rules.Catalog) *engine.Engine {
	t.Helper()
	e, err := engine.New(catalog, engine.Config{}, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func compliantDoc(t *testing.T) docmodel.Document {
	t.Helper()
	return testutil.Doc(t, compliantPage,
		testutil.WithLocalEntry("cookie_consent", `{"accepted":true,"timestamp":"2099-01-02"}`))
}

// ─── Score ─────────────────────────────────────────────────────────────

func TestScore_Weights(t *testing.T) {
	t.Parallel()

	findings := []model.Finding{
		{Severity: model.SeverityHigh},
		{Severity: model.SeverityHigh},
		{Severity: model.SeverityMedium},
	}
	if got := engine.Score(findings); got != 60 {
		t.Errorf("Score() = %d, want 60", got)
	}
}

func TestScore_NoFindings(t *testing.T) {
	t.Parallel()

	if got := engine.Score(nil); got != 100 {
		t.Errorf("Score(nil) = %d, want 100", got)
	}
}

func TestScore_FlooredAtZero(t *testing.T) {
	t.Parallel()

	findings := make([]model.Finding, 8)
	for i := range findings {
		findings[i] = model.Finding{Severity: model.SeverityHigh}
	}
	if got := engine.Score(findings); got != 0 {
		t.Errorf("Score() = %d, want 0", got)
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := []model.Finding{
		{Severity: model.SeverityLow},
		{Severity: model.SeverityHigh},
		{Severity: model.SeverityMedium},
	}
	b := []model.Finding{a[2], a[0], a[1]}
	if engine.Score(a) != engine.Score(b) {
		t.Error("score must not depend on finding order")
	}
}

// ─── Scan ──────────────────────────────────────────────────────────────

func TestScan_NilDocument(t *testing.T) {
	t.Parallel()
	e := newEngine(t, rules.Default())

	if _, err := e.Scan(context.Background(), nil); !errors.Is(err, engine.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestScan_CompliantPageScores100(t *testing.T) {
	t.Parallel()
	e := newEngine(t, rules.Default())

	res, err := e.Scan(context.Background(), compliantDoc(t))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Score != 100 {
		t.Errorf("score = %d, want 100 (findings: %+v)", res.Score, res.Findings)
	}
	if res.Findings == nil || len(res.Findings) != 0 {
		t.Errorf("expected empty (non-nil) findings, got %v", res.Findings)
	}
	if len(res.Suggestions) != 0 {
		t.Errorf("expected no suggestions, got %v", res.Suggestions)
	}
	if res.Stats.RulesChecked != rules.Default().Len() {
		t.Errorf("rulesChecked = %d, want %d", res.Stats.RulesChecked, rules.Default().Len())
	}
}

func TestScan_EmptyPage(t *testing.T) {
	t.Parallel()
	e := newEngine(t, rules.Default())
	doc := testutil.Doc(t, `<html><body></body></html>`,
		testutil.WithCookies("_ga=1; max-age=99999999"))

	res, err := e.Scan(context.Background(), doc)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Score >= 100 {
		t.Errorf("expected penalized score, got %d", res.Score)
	}
	if res.Stats.TotalCookies != 1 {
		t.Errorf("totalCookies = %d, want 1", res.Stats.TotalCookies)
	}

	// Findings come back in catalog registration order.
	order := map[string]int{}
	for i, r := range rules.Default().Rules() {
		order[r.ID] = i
	}
	for i := 1; i < len(res.Findings); i++ {
		if order[res.Findings[i-1].RuleID] > order[res.Findings[i].RuleID] {
			t.Errorf("findings out of catalog order: %s before %s",
				res.Findings[i-1].RuleID, res.Findings[i].RuleID)
		}
	}
}

func TestScan_Deterministic(t *testing.T) {
	t.Parallel()
	e := newEngine(t, rules.Default())
	doc := testutil.Doc(t, `<html><body><p>bare</p></body></html>`,
		testutil.WithCookies("_ga=1"))

	first, err := e.Scan(context.Background(), doc)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := e.Scan(context.Background(), doc)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if first.Score != second.Score {
		t.Errorf("scores differ: %d vs %d", first.Score, second.Score)
	}
	if !reflect.DeepEqual(first.Findings, second.Findings) {
		t.Error("findings differ across identical scans")
	}
	if !reflect.DeepEqual(first.Suggestions, second.Suggestions) {
		t.Error("suggestions differ across identical scans")
	}
}

func TestScan_Canceled(t *testing.T) {
	t.Parallel()
	e := newEngine(t, rules.Default())
	doc := testutil.Doc(t, `<html></html>`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Scan(ctx, doc); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// ─── failure isolation ─────────────────────────────────────────────────

func TestScan_PanickingRuleIsolated(t *testing.T) {
	t.Parallel()

	catalog, err := rules.NewCatalog([]rules.Rule{
		{
			ID:          "boom",
			Description: "Always panics",
			Severity:    model.SeverityHigh,
			Check: func(docmodel.Document) (*rules.Result, error) {
				panic("kaboom")
			},
		},
		{
			ID:          "fine",
			Description: "Always fires",
			Severity:    model.SeverityLow,
			Check: func(docmodel.Document) (*rules.Result, error) {
				return &rules.Result{Issue: "minor issue"}, nil
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	e := newEngine(t, catalog)
	res, err := e.Scan(context.Background(), testutil.Doc(t, "<html></html>"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(res.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d: %+v", len(res.Findings), res.Findings)
	}
	boom := res.Findings[0]
	if boom.RuleID != "boom" {
		t.Fatalf("expected panicking rule first, got %s", boom.RuleID)
	}
	if boom.Severity != model.SeverityHigh {
		t.Errorf("failure finding must keep the rule's severity, got %v", boom.Severity)
	}
	if boom.Description != "Always panics (feature not accessible for checking)" {
		t.Errorf("unexpected description: %q", boom.Description)
	}
	if res.Score != 100-15-5 {
		t.Errorf("score = %d, want 80", res.Score)
	}
}

func TestScan_ErroringRuleIsolated(t *testing.T) {
	t.Parallel()

	catalog, err := rules.NewCatalog([]rules.Rule{
		{
			ID:          "broken",
			Description: "Consent state readable",
			Severity:    model.SeverityMedium,
			Check: func(docmodel.Document) (*rules.Result, error) {
				return nil, errors.New("storage unavailable")
			},
		},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	e := newEngine(t, catalog)
	res, err := e.Scan(context.Background(), testutil.Doc(t, "<html></html>"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(res.Findings))
	}
	if res.Findings[0].Description != "Consent state readable (feature not accessible for checking)" {
		t.Errorf("unexpected description: %q", res.Findings[0].Description)
	}
	if res.Score != 90 {
		t.Errorf("score = %d, want 90", res.Score)
	}
}

// ─── suggestions ───────────────────────────────────────────────────────

func TestScan_DuplicateSuggestionsKept(t *testing.T) {
	t.Parallel()

	mk := func(id string) rules.Rule {
		return rules.Rule{
			ID:          id,
			Description: "d",
			Severity:    model.SeverityLow,
			Check: func(docmodel.Document) (*rules.Result, error) {
				return &rules.Result{Issue: "issue", Suggestion: "Add a privacy policy"}, nil
			},
		}
	}
	catalog, err := rules.NewCatalog([]rules.Rule{mk("a"), mk("b")})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	e := newEngine(t, catalog)
	res, err := e.Scan(context.Background(), testutil.Doc(t, "<html></html>"))
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	want := []string{"Add a privacy policy", "Add a privacy policy"}
	if !reflect.DeepEqual(res.Suggestions, want) {
		t.Errorf("suggestions = %v, want %v (duplicates kept)", res.Suggestions, want)
	}
}
