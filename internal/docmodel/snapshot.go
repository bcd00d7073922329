package docmodel

import "time"

// Snapshot is the raw client-observable state of a page captured at a single
// point in time. Capture backends produce it; NewDocument turns it into the
// Document view rules run against.
type Snapshot struct {
	// URL is the address the page was captured from.
	URL string `json:"url"`

	// HTML is the serialized markup at capture time (post-render when the
	// capture backend runs a browser).
	HTML string `json:"html"`

	// Cookies holds raw cookie strings with attributes, one per cookie.
	Cookies []string `json:"cookies,omitempty"`

	// LocalEntries holds the page's persisted client storage.
	LocalEntries map[string]string `json:"local_entries,omitempty"`

	// Styles maps a CSS selector to the computed style captured for elements
	// matching it. Backends only record entries for elements whose computed
	// style differs from what the markup alone implies (e.g. a link hidden
	// by an external stylesheet).
	Styles map[string]Style `json:"styles,omitempty"`

	// CapturedAt is when the snapshot was taken.
	CapturedAt time.Time `json:"captured_at"`
}
