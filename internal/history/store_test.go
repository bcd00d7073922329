package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gdprscanner/gdprscan/internal/history"
	"github.com/gdprscanner/gdprscan/internal/model"
	"github.com/gdprscanner/gdprscan/internal/testutil"
)

func newTestStore(t *testing.T) *history.Store {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "test.db"), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(url string, score int) *model.ScanResult {
	return &model.ScanResult{
		URL:   url,
		Score: score,
		Findings: []model.Finding{
			{
				RuleID:      "cookie-consent",
				Description: "No cookie consent banner found",
				Severity:    model.SeverityHigh,
			},
			{
				RuleID:      "cookie-duration",
				Description: "Found 1 long-lived cookies",
				Severity:    model.SeverityMedium,
				Suggestion:  "Reduce cookie lifetime to 13 months maximum",
				Evidence:    []string{"_ga=1; max-age=99999999"},
			},
		},
		Suggestions: []string{"Reduce cookie lifetime to 13 months maximum"},
	}
}

// ─── Users ─────────────────────────────────────────────────────────────

func TestEnsureUser_CreatesOnce(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.EnsureUser(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if first.Tier != "free" {
		t.Errorf("new user tier = %q, want free", first.Tier)
	}

	second, err := store.EnsureUser(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("EnsureUser (repeat): %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same user id, got %d and %d", first.ID, second.ID)
	}
}

func TestEnsureUser_EmptyEmail(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	if _, err := store.EnsureUser(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty email")
	}
}

func TestSetTier(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.EnsureUser(ctx, "user@example.com"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if err := store.SetTier(ctx, "user@example.com", "pro"); err != nil {
		t.Fatalf("SetTier: %v", err)
	}

	u, err := store.EnsureUser(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if u.Tier != "pro" {
		t.Errorf("tier = %q, want pro", u.Tier)
	}
}

func TestSetTier_UnknownUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	err := store.SetTier(context.Background(), "nobody@example.com", "pro")
	if !errors.Is(err, history.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

// ─── Scans ─────────────────────────────────────────────────────────────

func TestSaveScan_RoundTrip(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.EnsureUser(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	id, err := store.SaveScan(ctx, user.ID, sampleResult("https://example.com", 75))
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	scan, err := store.GetScan(ctx, id, user.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if scan.URL != "https://example.com" || scan.Score != 75 {
		t.Errorf("unexpected scan: %+v", scan)
	}
	if len(scan.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(scan.Findings))
	}
	if scan.Findings[0].Severity != model.SeverityHigh {
		t.Errorf("severity lost in round trip: %v", scan.Findings[0].Severity)
	}
	if scan.Findings[1].Evidence[0] != "_ga=1; max-age=99999999" {
		t.Errorf("evidence lost in round trip: %v", scan.Findings[1].Evidence)
	}
	if len(scan.Suggestions) != 1 {
		t.Errorf("suggestions lost in round trip: %v", scan.Suggestions)
	}
}

func TestSaveScan_NilSlicesBecomeEmptyArrays(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	user, err := store.EnsureUser(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	id, err := store.SaveScan(ctx, user.ID, &model.ScanResult{URL: "https://example.com", Score: 100})
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	scan, err := store.GetScan(ctx, id, user.ID)
	if err != nil {
		t.Fatalf("GetScan: %v", err)
	}
	if scan.Findings == nil || len(scan.Findings) != 0 {
		t.Errorf("expected empty findings slice, got %v", scan.Findings)
	}
	if scan.Suggestions == nil || len(scan.Suggestions) != 0 {
		t.Errorf("expected empty suggestions slice, got %v", scan.Suggestions)
	}
}

func TestGetScan_WrongUser(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	owner, _ := store.EnsureUser(ctx, "owner@example.com")
	other, _ := store.EnsureUser(ctx, "other@example.com")

	id, err := store.SaveScan(ctx, owner.ID, sampleResult("https://example.com", 50))
	if err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	if _, err := store.GetScan(ctx, id, other.ID); !errors.Is(err, history.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound for foreign scan, got %v", err)
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	user, _ := store.EnsureUser(ctx, "user@example.com")

	var last int64
	for i := 0; i < 3; i++ {
		id, err := store.SaveScan(ctx, user.ID, sampleResult("https://example.com", 50+i))
		if err != nil {
			t.Fatalf("SaveScan %d: %v", i, err)
		}
		last = id
	}

	scans, err := store.History(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(scans) != 3 {
		t.Fatalf("expected 3 scans, got %d", len(scans))
	}
	// Same-second inserts order by id descending.
	if scans[0].ID != last {
		t.Errorf("expected newest scan first, got id %d (want %d)", scans[0].ID, last)
	}
}

func TestHistory_LimitApplied(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	user, _ := store.EnsureUser(ctx, "user@example.com")
	for i := 0; i < 5; i++ {
		if _, err := store.SaveScan(ctx, user.ID, sampleResult("https://example.com", i)); err != nil {
			t.Fatalf("SaveScan %d: %v", i, err)
		}
	}

	scans, err := store.History(ctx, user.ID, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(scans) != 2 {
		t.Errorf("expected 2 scans with limit, got %d", len(scans))
	}
}

func TestHistory_OtherUsersExcluded(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.EnsureUser(ctx, "a@example.com")
	b, _ := store.EnsureUser(ctx, "b@example.com")
	if _, err := store.SaveScan(ctx, a.ID, sampleResult("https://a.example.com", 10)); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}

	scans, err := store.History(ctx, b.ID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(scans) != 0 {
		t.Errorf("expected no scans for other user, got %d", len(scans))
	}
}

// ─── Webhooks ──────────────────────────────────────────────────────────

func TestCreateWebhook_AndLookup(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	hook, err := store.CreateWebhook(ctx, "https://hooks.example.com/scan", "")
	if err != nil {
		t.Fatalf("CreateWebhook: %v", err)
	}
	if hook.Secret == "" {
		t.Fatal("expected generated secret")
	}
	if hook.Events != "all" {
		t.Errorf("default events = %q, want all", hook.Events)
	}

	got, err := store.WebhookBySecret(ctx, hook.Secret)
	if err != nil {
		t.Fatalf("WebhookBySecret: %v", err)
	}
	if got.URL != "https://hooks.example.com/scan" {
		t.Errorf("unexpected webhook: %+v", got)
	}
}

func TestWebhookBySecret_Unknown(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.WebhookBySecret(context.Background(), "not-a-secret")
	if !errors.Is(err, history.ErrWebhookNotFound) {
		t.Fatalf("expected ErrWebhookNotFound, got %v", err)
	}
}
