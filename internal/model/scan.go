package model

// Finding is the output of one rule's evaluation against one page snapshot.
// At most one Finding is produced per rule per scan.
type Finding struct {
	// RuleID identifies the rule that produced this finding.
	RuleID string `json:"id"`

	// Description is the concrete issue observed (not the rule's generic
	// description), e.g. "Found 2 long-lived cookies".
	Description string `json:"description"`

	// Severity is the rule's severity; it determines the score deduction.
	Severity Severity `json:"severity"`

	// Suggestion is an optional remediation hint shown to the user.
	Suggestion string `json:"suggestion,omitempty"`

	// Evidence optionally carries the raw values that triggered the finding
	// (e.g. matching cookie strings).
	Evidence []string `json:"evidence,omitempty"`
}

// Stats carries scan-level counters independent of how many findings resulted.
type Stats struct {
	// TotalCookies is the number of cookies visible on the scanned page.
	TotalCookies int `json:"totalCookies"`

	// RulesChecked is the catalog size at scan time.
	RulesChecked int `json:"rulesChecked"`
}

// ScanResult is the terminal artifact of one scan. It is immutable once
// constructed; callers may serialize it but must not mutate it.
type ScanResult struct {
	// URL is the address of the scanned page.
	URL string `json:"url"`

	// TimestampMillis is the scan time in Unix milliseconds.
	TimestampMillis int64 `json:"timestamp"`

	// Score is the compliance score in [0,100].
	Score int `json:"score"`

	// Findings lists every violation in catalog order.
	Findings []Finding `json:"violations"`

	// Suggestions lists the non-empty suggestion of each finding, in finding
	// order. Identical text from two rules appears twice; nothing is deduped.
	Suggestions []string `json:"suggestions"`

	// Stats carries cookie and rule counters for this scan.
	Stats Stats `json:"stats"`
}
