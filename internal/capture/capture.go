// Package capture produces docmodel Snapshots from live URLs. Two backends
// exist: a plain net/http fetch for static markup, and a chromedp-driven
// browser capture that sees the rendered DOM, document.cookie, localStorage,
// and computed styles.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/logging"
)

// Backend names accepted by New.
const (
	BackendNetHTTP  = "nethttp"
	BackendChromeDP = "chromedp"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "gdprscan/1.0 (+https://gdprscanner.ai)"
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Capturer takes one point-in-time snapshot of a page's client-observable
// state.
type Capturer interface {
	// Capture fetches url and returns its snapshot.
	Capture(ctx context.Context, url string) (*docmodel.Snapshot, error)

	// Close releases any resources held by the capturer.
	Close() error
}

// Config selects and tunes a capture backend.
type Config struct {
	// Backend is one of BackendNetHTTP or BackendChromeDP.
	// Empty selects BackendNetHTTP.
	Backend string `yaml:"backend"`

	// Timeout bounds one capture, navigation included.
	Timeout time.Duration `yaml:"timeout"`

	// UserAgent is sent with plain HTTP captures.
	UserAgent string `yaml:"user_agent"`

	// MaxBodySize truncates oversized responses in the nethttp backend.
	MaxBodySize int64 `yaml:"max_body_size"`
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNetHTTP
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
}

// New returns the capturer for cfg.Backend.
func New(cfg Config, logger logging.Logger) (Capturer, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.NewStdoutLogger("capture")
	}

	switch cfg.Backend {
	case BackendNetHTTP:
		return NewNetHTTPCapturer(cfg, logger), nil
	case BackendChromeDP:
		return NewChromeDPCapturer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("capture: unknown backend %q", cfg.Backend)
	}
}
