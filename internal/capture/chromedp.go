package capture

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/logging"
)

// localEntriesJS dumps the page's localStorage into a string map.
const localEntriesJS = `(() => {
	const out = {};
	for (let i = 0; i < localStorage.length; i++) {
		const k = localStorage.key(i);
		out[k] = localStorage.getItem(k);
	}
	return out;
})()`

// hiddenStylesJS collects computed display/visibility for elements the rules
// care about (anchors and consent UI) that a stylesheet hides. Only hidden
// elements are recorded; the markup speaks for everything else.
const hiddenStylesJS = `(() => {
	const out = {};
	const selFor = (el) => {
		if (el.id) return el.tagName.toLowerCase() + '#' + CSS.escape(el.id);
		const href = el.getAttribute('href');
		if (href) return el.tagName.toLowerCase() + '[href="' + href.replace(/"/g, '\\"') + '"]';
		return null;
	};
	const candidates = document.querySelectorAll(
		'a, [class*="cookie"], [id*="cookie"], [class*="consent"], [id*="consent"]');
	candidates.forEach((el) => {
		const cs = window.getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden') {
			const sel = selFor(el);
			if (sel && !(sel in out)) {
				out[sel] = { display: cs.display, visibility: cs.visibility };
			}
		}
	});
	return out;
})()`

// ChromeDPCapturer drives a headless browser over the Chrome DevTools
// Protocol. It sees the page the way a visitor does: rendered DOM, cookies
// set by scripts, localStorage, and stylesheet-resolved visibility.
type ChromeDPCapturer struct {
	cfg    Config
	logger logging.Logger
}

// NewChromeDPCapturer creates the browser-driven backend. Each Capture call
// runs in a fresh browser context so page state never leaks between scans.
func NewChromeDPCapturer(cfg Config, logger logging.Logger) *ChromeDPCapturer {
	return &ChromeDPCapturer{cfg: cfg, logger: logger}
}

// Capture navigates to url, waits for the body, and reads markup, cookies,
// localStorage, and hidden-element styles in one pass.
func (c *ChromeDPCapturer) Capture(ctx context.Context, url string) (*docmodel.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()

	var (
		html    string
		entries map[string]string
		styles  map[string]docmodel.Style
		cookies []*network.Cookie
	)

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(localEntriesJS, &entries),
		chromedp.Evaluate(hiddenStylesJS, &styles),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("capture: browser capture of %s: %w", url, err)
	}

	raw := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		raw = append(raw, rawCookieString(ck))
	}

	snap := &docmodel.Snapshot{
		URL:          url,
		HTML:         html,
		Cookies:      raw,
		LocalEntries: entries,
		Styles:       styles,
		CapturedAt:   time.Now().UTC(),
	}

	c.logger.Debug("captured rendered page",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "cookies", Value: len(raw)},
		logging.Field{Key: "local_entries", Value: len(entries)})

	return snap, nil
}

// Close is a no-op; browser contexts are per-capture.
func (c *ChromeDPCapturer) Close() error { return nil }

// rawCookieString rebuilds a cookie attribute string from CDP cookie data so
// the duration rules can inspect its lifetime. CDP reports an absolute
// expiry, which maps to the expires attribute.
func rawCookieString(ck *network.Cookie) string {
	var b strings.Builder
	b.WriteString(ck.Name)
	b.WriteString("=")
	b.WriteString(ck.Value)
	if ck.Expires > 0 {
		b.WriteString("; expires=")
		b.WriteString(time.Unix(int64(ck.Expires), 0).UTC().Format(http.TimeFormat))
	}
	return b.String()
}
