package capture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/logging"
)

// NetHTTPCapturer fetches a page with plain net/http. It sees only the
// served markup and Set-Cookie headers: no script execution, so no
// localStorage and no stylesheet-resolved styles. Suitable for static sites
// and for tests.
type NetHTTPCapturer struct {
	cfg    Config
	client *http.Client
	logger logging.Logger
}

// NewNetHTTPCapturer creates the plain-HTTP backend.
func NewNetHTTPCapturer(cfg Config, logger logging.Logger) *NetHTTPCapturer {
	return &NetHTTPCapturer{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Capture performs one GET and converts the response into a snapshot.
// Set-Cookie header values are carried through verbatim so cookie rules see
// the original attribute strings.
func (c *NetHTTPCapturer) Capture(ctx context.Context, url string) (*docmodel.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("capture: build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capture: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	// Decode the body to UTF-8 based on the declared charset before parsing.
	reader, err := charset.NewReader(io.LimitReader(resp.Body, c.cfg.MaxBodySize), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("capture: charset decode %s: %w", url, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("capture: read body of %s: %w", url, err)
	}

	snap := &docmodel.Snapshot{
		URL:          url,
		HTML:         string(body),
		Cookies:      resp.Header.Values("Set-Cookie"),
		LocalEntries: map[string]string{},
		CapturedAt:   time.Now().UTC(),
	}

	c.logger.Debug("captured page",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "status", Value: resp.StatusCode},
		logging.Field{Key: "cookies", Value: len(snap.Cookies)})

	return snap, nil
}

// Close is a no-op for the plain-HTTP backend.
func (c *NetHTTPCapturer) Close() error { return nil }
