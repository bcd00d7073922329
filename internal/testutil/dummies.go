// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/logging"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// ─── Documents ─────────────────────────────────────────────────────────

// SnapshotOption mutates a snapshot under construction.
type SnapshotOption func(*docmodel.Snapshot)

// WithCookies sets the raw cookie strings on the snapshot.
func WithCookies(cookies ...string) SnapshotOption {
	return func(s *docmodel.Snapshot) { s.Cookies = cookies }
}

// WithLocalEntry adds one localStorage entry.
func WithLocalEntry(key, value string) SnapshotOption {
	return func(s *docmodel.Snapshot) {
		if s.LocalEntries == nil {
			s.LocalEntries = map[string]string{}
		}
		s.LocalEntries[key] = value
	}
}

// WithStyle records a computed-style override for elements matching selector.
func WithStyle(selector string, style docmodel.Style) SnapshotOption {
	return func(s *docmodel.Snapshot) {
		if s.Styles == nil {
			s.Styles = map[string]docmodel.Style{}
		}
		s.Styles[selector] = style
	}
}

// WithURL sets the page URL (default https://example.com).
func WithURL(url string) SnapshotOption {
	return func(s *docmodel.Snapshot) { s.URL = url }
}

// Doc builds a document view over the given HTML for rule and engine tests.
func Doc(t *testing.T, html string, opts ...SnapshotOption) docmodel.Document {
	t.Helper()

	snap := &docmodel.Snapshot{
		URL:  "https://example.com",
		HTML: html,
	}
	for _, opt := range opts {
		opt(snap)
	}

	doc, err := docmodel.NewDocument(snap)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc
}

// ─── Capturer ──────────────────────────────────────────────────────────

// DummyCapturer implements capture.Capturer with a preset snapshot.
type DummyCapturer struct {
	Snapshot *docmodel.Snapshot
	Err      error

	mu       sync.Mutex
	Captured []string
}

func (d *DummyCapturer) Capture(_ context.Context, url string) (*docmodel.Snapshot, error) {
	d.mu.Lock()
	d.Captured = append(d.Captured, url)
	d.mu.Unlock()

	if d.Err != nil {
		return nil, d.Err
	}
	if d.Snapshot != nil {
		return d.Snapshot, nil
	}
	return &docmodel.Snapshot{URL: url, HTML: "<html><body></body></html>"}, nil
}

func (d *DummyCapturer) Close() error { return nil }
