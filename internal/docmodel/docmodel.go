// Package docmodel defines the read-only view of a rendered page that rules
// are evaluated against, plus the goquery-backed implementation built from a
// captured Snapshot.
package docmodel

// Style holds the visibility-relevant computed style of an element.
type Style struct {
	Display    string `json:"display"`
	Visibility string `json:"visibility"`
}

// Hidden reports whether the style hides the element.
func (s Style) Hidden() bool {
	return s.Display == "none" || s.Visibility == "hidden"
}

// Element is one matched node of a Document query.
type Element interface {
	// Text returns the normalized, case-folded text content of the element.
	Text() string

	// Attr returns the trimmed value of an attribute, or "" when absent.
	Attr(name string) string

	// Find returns the descendants matching a CSS selector, in document order.
	Find(selector string) []Element
}

// Document is the read-only page view consumed by every rule. It is captured
// once per scan and never refreshed mid-scan; rules must not mutate it.
type Document interface {
	// TextContent returns the normalized, case-folded text of the elements
	// matching selector, or of the whole body when selector is empty.
	TextContent(selector string) string

	// QueryElements returns the elements matching a CSS selector, in
	// document order. The result may be empty.
	QueryElements(selector string) []Element

	// Cookies returns the raw cookie strings visible on the page, with
	// attributes (name=value; max-age=...; expires=...) where captured.
	Cookies() []string

	// LocalEntries returns the persisted client storage key/value pairs.
	LocalEntries() map[string]string

	// ComputedStyle returns the visibility-relevant style of an element.
	ComputedStyle(el Element) Style

	// URL returns the address of the captured page.
	URL() string
}
