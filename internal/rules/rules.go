// Package rules holds the fixed catalog of GDPR compliance checks. Each rule
// pairs an identifier, description, and severity with a pure predicate over a
// docmodel.Document. Adding a rule means appending it to Default(); the
// engine, scoring, and report assembly need no change.
package rules

import (
	"errors"
	"fmt"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/model"
)

var ErrDuplicateRuleID = errors.New("duplicate rule id in catalog")

// Result is what a predicate returns when the page violates the rule.
// A nil Result means the page is compliant for this rule.
type Result struct {
	// Issue is the concrete problem observed.
	Issue string

	// Suggestion is an optional remediation hint.
	Suggestion string

	// Evidence optionally carries the raw values that triggered the rule.
	Evidence []string
}

// Rule is an immutable compliance check. Predicates must not mutate the
// document and must not depend on mutable package state; no rule may depend
// on another rule's outcome.
type Rule struct {
	// ID is the unique identifier of the rule, stable across releases.
	ID string

	// Description is the human-readable summary of what the rule checks.
	Description string

	// Severity determines the score deduction when the rule fires.
	Severity model.Severity

	// Check evaluates one immutable page view. It returns (nil, nil) for a
	// compliant page, a Result for a violation, or an error when the checked
	// feature could not be inspected.
	Check func(doc docmodel.Document) (*Result, error)
}

// Catalog is the fixed, ordered registry of rules. It is built once at
// process start; no registration happens during a scan.
type Catalog struct {
	rules []Rule
}

// NewCatalog validates rule id uniqueness and returns the catalog.
func NewCatalog(rules []Rule) (*Catalog, error) {
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRuleID, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return &Catalog{rules: rules}, nil
}

// Rules returns the catalog's rules in registration order. Callers must not
// modify the returned slice.
func (c *Catalog) Rules() []Rule {
	return c.rules
}

// Len returns the number of registered rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Default returns the full catalog in its fixed registration order.
func Default() *Catalog {
	c, err := NewCatalog([]Rule{
		cookieConsent(),
		cookieWall(),
		cookieDuration(),
		thirdPartyCookies(),
		privacyLink(),
		consentStorage(),
		dataSubjectRights(),
		rightToAccess(),
		rightToPortability(),
		internationalTransfer(),
		cookieCategories(),
		dpoContact(),
		dataRetention(),
		legalBasis(),
		doubleOptIn(),
		cookiePolicyLink(),
	})
	if err != nil {
		// Ids are compile-time constants; a duplicate is a programming error.
		panic(err)
	}
	return c
}
