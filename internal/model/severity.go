package model

import (
	"encoding/json"
	"fmt"
)

// Severity represents the weight class of a compliance finding.
//
// Design decision: iota-based constants keep comparisons cheap; the JSON
// representation stays the lowercase string form because stored scans and the
// extension payload both use "low"/"medium"/"high" on the wire.
type Severity int

const (
	// SeverityLow indicates minor gaps, typically missing informational
	// wording (data portability, retention periods).
	SeverityLow Severity = iota

	// SeverityMedium indicates issues that need attention, such as tracking
	// cookies without consent or missing DPO contact details.
	SeverityMedium

	// SeverityHigh indicates serious violations: cookie walls, missing
	// consent UI, hidden or absent privacy policies.
	SeverityHigh
)

// Weight returns the score deduction for one finding of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityHigh:
		return 15
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// String returns the lowercase wire form of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ParseSeverity converts the wire form back into a Severity.
func ParseSeverity(v string) (Severity, error) {
	switch v {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", v)
}

// MarshalJSON encodes the severity as its lowercase string form.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the lowercase string form.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSeverity(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
