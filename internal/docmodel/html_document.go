package docmodel

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLDocument implements Document over a parsed Snapshot using goquery.
type HTMLDocument struct {
	snap    *Snapshot
	doc     *goquery.Document
	cookies []string
}

// NewDocument parses a snapshot's markup and returns the Document view over
// it. The snapshot is not copied; it must not be mutated afterwards.
func NewDocument(snap *Snapshot) (*HTMLDocument, error) {
	if snap == nil {
		return nil, fmt.Errorf("docmodel: nil snapshot")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err != nil {
		return nil, fmt.Errorf("docmodel: parse snapshot html: %w", err)
	}

	// Keep only non-empty trimmed cookie strings so Cookies() doubles as the
	// per-scan cookie counter.
	cookies := make([]string, 0, len(snap.Cookies))
	for _, c := range snap.Cookies {
		if t := strings.TrimSpace(c); t != "" {
			cookies = append(cookies, t)
		}
	}

	return &HTMLDocument{snap: snap, doc: doc, cookies: cookies}, nil
}

// TextContent returns the normalized, case-folded text of the matching
// elements, or of the whole body when selector is empty.
func (d *HTMLDocument) TextContent(selector string) string {
	if selector == "" {
		selector = "body"
	}
	return normalizeText(d.doc.Find(selector).Text())
}

// QueryElements returns the elements matching a CSS selector in document order.
func (d *HTMLDocument) QueryElements(selector string) []Element {
	var out []Element
	d.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &htmlElement{sel: sel})
	})
	return out
}

// Cookies returns the page's raw cookie strings.
func (d *HTMLDocument) Cookies() []string {
	return d.cookies
}

// LocalEntries returns the persisted client storage entries. Callers must
// treat the map as read-only.
func (d *HTMLDocument) LocalEntries() map[string]string {
	if d.snap.LocalEntries == nil {
		return map[string]string{}
	}
	return d.snap.LocalEntries
}

// ComputedStyle resolves an element's visibility-relevant style. Captured
// style overrides from the snapshot win over what the markup implies, so a
// link hidden by an external stylesheet is still reported hidden.
func (d *HTMLDocument) ComputedStyle(el Element) Style {
	he, ok := el.(*htmlElement)
	if !ok {
		return Style{}
	}

	for selector, style := range d.snap.Styles {
		if he.sel.Is(selector) {
			return style
		}
	}

	return styleFromMarkup(he.sel)
}

// URL returns the captured page address.
func (d *HTMLDocument) URL() string {
	return d.snap.URL
}

// htmlElement wraps a single-node goquery selection.
type htmlElement struct {
	sel *goquery.Selection
}

func (e *htmlElement) Text() string {
	return normalizeText(e.sel.Text())
}

func (e *htmlElement) Attr(name string) string {
	v, _ := e.sel.Attr(name)
	return strings.TrimSpace(v)
}

func (e *htmlElement) Find(selector string) []Element {
	var out []Element
	e.sel.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &htmlElement{sel: sel})
	})
	return out
}

// styleFromMarkup derives display/visibility from inline markup: the style
// attribute and the hidden attribute.
func styleFromMarkup(sel *goquery.Selection) Style {
	st := Style{}

	if _, hidden := sel.Attr("hidden"); hidden {
		st.Display = "none"
		return st
	}

	inline, ok := sel.Attr("style")
	if !ok {
		return st
	}
	for _, decl := range strings.Split(inline, ";") {
		parts := strings.SplitN(decl, ":", 2)
		if len(parts) != 2 {
			continue
		}
		prop := strings.ToLower(strings.TrimSpace(parts[0]))
		val := strings.ToLower(strings.TrimSpace(parts[1]))
		switch prop {
		case "display":
			st.Display = val
		case "visibility":
			st.Visibility = val
		}
	}
	return st
}

// normalizeText lowercases and collapses all whitespace runs to single spaces
// so phrase matching works across element boundaries and formatting.
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
