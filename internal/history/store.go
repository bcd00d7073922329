// Package history persists scan results, users, and webhook registrations in
// SQLite. It stores findings and suggestions as JSON columns (wire name for
// findings is "violations") and serves the most recent N scans per user.
package history

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gdprscanner/gdprscan/internal/logging"
	"github.com/gdprscanner/gdprscan/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

// DefaultHistoryLimit caps a history listing when the caller passes no limit.
const DefaultHistoryLimit = 100

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrScanNotFound    = errors.New("scan not found")
	ErrWebhookNotFound = errors.New("webhook not found")
)

// User is an account scans are attached to.
type User struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Tier             string `json:"tier"`
	StripeCustomerID string `json:"stripeCustomerId,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

// StoredScan is one persisted scan row with its JSON columns deserialized.
type StoredScan struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"userId"`
	URL         string          `json:"url"`
	Score       int             `json:"score"`
	Findings    []model.Finding `json:"violations"`
	Suggestions []string        `json:"suggestions"`
	CreatedAt   int64           `json:"createdAt"`
}

// Webhook is a registered delivery/monitor hook guarded by a secret.
type Webhook struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Secret    string `json:"secret"`
	Events    string `json:"events"`
	Active    bool   `json:"active"`
	CreatedAt int64  `json:"createdAt"`
}

// Store wraps the SQLite handle.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// NewStore runs the embedded schema against db and returns the store.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("history: nil db")
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("history")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("history: read schema: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Open opens (or creates) the SQLite database at path and returns its store.
func Open(path string, logger logging.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database %s: %w", path, err)
	}
	store, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser returns the user for email, creating it on first sight.
func (s *Store) EnsureUser(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, errors.New("history: empty email")
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (email, created_at) VALUES (?, ?)`,
		email, time.Now().Unix(),
	); err != nil {
		return nil, fmt.Errorf("history: insert user: %w", err)
	}

	return s.userByEmail(ctx, email)
}

func (s *Store) userByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, tier, stripe_customer_id, created_at FROM users WHERE email = ? LIMIT 1`,
		email,
	)
	var u User
	var stripeID sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.Tier, &stripeID, &u.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("history: query user: %w", err)
	}
	u.StripeCustomerID = stripeID.String
	return &u, nil
}

// SetTier updates a user's tier by email.
func (s *Store) SetTier(ctx context.Context, email, tier string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET tier = ? WHERE email = ?`, tier, email)
	if err != nil {
		return fmt.Errorf("history: update tier: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("history: update tier: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SaveScan stores one scan result for a user and returns the new scan id.
// Findings and suggestions serialize to JSON; absent values become empty
// arrays so history reads never see null.
func (s *Store) SaveScan(ctx context.Context, userID int64, res *model.ScanResult) (int64, error) {
	if res == nil {
		return 0, errors.New("history: nil scan result")
	}

	findings := res.Findings
	if findings == nil {
		findings = []model.Finding{}
	}
	suggestions := res.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	violationsJSON, err := json.Marshal(findings)
	if err != nil {
		return 0, fmt.Errorf("history: marshal violations: %w", err)
	}
	suggestionsJSON, err := json.Marshal(suggestions)
	if err != nil {
		return 0, fmt.Errorf("history: marshal suggestions: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO scans (user_id, url, score, violations, suggestions, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		userID, res.URL, res.Score, string(violationsJSON), string(suggestionsJSON), time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert scan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: scan id: %w", err)
	}

	s.logger.Info("stored scan",
		logging.Field{Key: "scan_id", Value: id},
		logging.Field{Key: "user_id", Value: userID},
		logging.Field{Key: "url", Value: res.URL},
		logging.Field{Key: "score", Value: res.Score})

	return id, nil
}

// History returns up to limit scans for a user, most recent first.
// limit <= 0 falls back to DefaultHistoryLimit.
func (s *Store) History(ctx context.Context, userID int64, limit int) ([]StoredScan, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, url, score, violations, suggestions, created_at
         FROM scans
         WHERE user_id = ?
         ORDER BY created_at DESC, id DESC
         LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query scans: %w", err)
	}
	defer rows.Close()

	var out []StoredScan
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *scan)
	}
	return out, rows.Err()
}

// GetScan returns one scan owned by userID.
func (s *Store) GetScan(ctx context.Context, scanID, userID int64) (*StoredScan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, url, score, violations, suggestions, created_at
         FROM scans
         WHERE id = ? AND user_id = ?
         LIMIT 1`,
		scanID, userID,
	)
	scan, err := scanRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrScanNotFound
		}
		return nil, err
	}
	return scan, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(r rowScanner) (*StoredScan, error) {
	var sc StoredScan
	var userID sql.NullInt64
	var url, violations, suggestions sql.NullString
	if err := r.Scan(&sc.ID, &userID, &url, &sc.Score, &violations, &suggestions, &sc.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}
	sc.UserID = userID.Int64
	sc.URL = url.String

	sc.Findings = []model.Finding{}
	if violations.Valid && violations.String != "" {
		if err := json.Unmarshal([]byte(violations.String), &sc.Findings); err != nil {
			return nil, fmt.Errorf("history: decode violations for scan %d: %w", sc.ID, err)
		}
	}
	sc.Suggestions = []string{}
	if suggestions.Valid && suggestions.String != "" {
		if err := json.Unmarshal([]byte(suggestions.String), &sc.Suggestions); err != nil {
			return nil, fmt.Errorf("history: decode suggestions for scan %d: %w", sc.ID, err)
		}
	}
	return &sc, nil
}

// CreateWebhook registers a hook with a fresh random secret.
func (s *Store) CreateWebhook(ctx context.Context, url, events string) (*Webhook, error) {
	if events == "" {
		events = "all"
	}
	secret := uuid.New().String()
	now := time.Now().Unix()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (url, secret, events, active, created_at) VALUES (?, ?, ?, 1, ?)`,
		url, secret, events, now,
	)
	if err != nil {
		return nil, fmt.Errorf("history: insert webhook: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("history: webhook id: %w", err)
	}

	return &Webhook{ID: id, URL: url, Secret: secret, Events: events, Active: true, CreatedAt: now}, nil
}

// WebhookBySecret returns the active webhook matching secret.
func (s *Store) WebhookBySecret(ctx context.Context, secret string) (*Webhook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, secret, events, active, created_at
         FROM webhooks
         WHERE secret = ? AND active = 1
         LIMIT 1`,
		secret,
	)
	var w Webhook
	var active int
	if err := row.Scan(&w.ID, &w.URL, &w.Secret, &w.Events, &active, &w.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("history: query webhook: %w", err)
	}
	w.Active = active != 0
	return &w, nil
}
