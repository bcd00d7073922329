// Package engine runs the rule catalog against one page snapshot and reduces
// the findings to a scored ScanResult.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdprscanner/gdprscan/internal/docmodel"
	"github.com/gdprscanner/gdprscan/internal/logging"
	"github.com/gdprscanner/gdprscan/internal/model"
	"github.com/gdprscanner/gdprscan/internal/rules"
)

var ErrNoDocument = errors.New("engine: no document to scan")

// Config tunes engine behavior.
type Config struct {
	// PerRuleBudget is the soft time budget for one predicate. Rules stay
	// synchronous; an overrun is logged, not interrupted. Zero disables the
	// check.
	PerRuleBudget time.Duration
}

// Engine executes every catalog rule against one immutable document view.
// It is safe for reuse across scans; each Scan call is self-contained.
type Engine struct {
	catalog *rules.Catalog
	cfg     Config
	logger  logging.Logger
}

// New creates an Engine over a catalog. A nil logger falls back to stdout.
func New(catalog *rules.Catalog, cfg Config, logger logging.Logger) (*Engine, error) {
	if catalog == nil {
		return nil, errors.New("engine: nil catalog")
	}
	if logger == nil {
		logger = logging.NewStdoutLogger("engine")
	}
	return &Engine{catalog: catalog, cfg: cfg, logger: logger}, nil
}

// Scan evaluates every rule in registration order against doc and returns
// the assembled ScanResult. Findings preserve catalog order, not severity
// order. A rule failure never aborts the scan; it becomes a Finding at that
// rule's severity. Cancellation via ctx is checked between rules.
func (e *Engine) Scan(ctx context.Context, doc docmodel.Document) (*model.ScanResult, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}

	started := time.Now()
	var findings []model.Finding

	for _, rule := range e.catalog.Rules() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("engine: scan aborted: %w", err)
		}

		if f := e.runRule(rule, doc); f != nil {
			findings = append(findings, *f)
		}
	}

	result := assemble(doc.URL(), time.Now().UnixMilli(), findings, Stats(doc, e.catalog))

	e.logger.Info("scan complete",
		logging.Field{Key: "url", Value: result.URL},
		logging.Field{Key: "score", Value: result.Score},
		logging.Field{Key: "findings", Value: len(result.Findings)},
		logging.Field{Key: "elapsed_ms", Value: time.Since(started).Milliseconds()})

	return result, nil
}

// runRule invokes one predicate with uniform failure isolation: an error
// return or a panic is converted into a Finding that reports the checked
// feature as inaccessible, at the rule's own severity.
func (e *Engine) runRule(rule rules.Rule, doc docmodel.Document) (finding *model.Finding) {
	ruleStart := time.Now()
	defer func() {
		if e.cfg.PerRuleBudget > 0 {
			if elapsed := time.Since(ruleStart); elapsed > e.cfg.PerRuleBudget {
				e.logger.Warn("rule exceeded time budget",
					logging.Field{Key: "rule", Value: rule.ID},
					logging.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()})
			}
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("rule panicked",
				logging.Field{Key: "rule", Value: rule.ID},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)})
			finding = inaccessibleFinding(rule)
		}
	}()

	res, err := rule.Check(doc)
	if err != nil {
		e.logger.Warn("rule check failed",
			logging.Field{Key: "rule", Value: rule.ID},
			logging.Field{Key: "error", Value: err.Error()})
		return inaccessibleFinding(rule)
	}
	if res == nil {
		return nil
	}

	return &model.Finding{
		RuleID:      rule.ID,
		Description: res.Issue,
		Severity:    rule.Severity,
		Suggestion:  res.Suggestion,
		Evidence:    res.Evidence,
	}
}

// inaccessibleFinding reports a check whose feature could not be inspected.
func inaccessibleFinding(rule rules.Rule) *model.Finding {
	return &model.Finding{
		RuleID:      rule.ID,
		Description: fmt.Sprintf("%s (feature not accessible for checking)", rule.Description),
		Severity:    rule.Severity,
	}
}

// Stats derives the scan counters from the document and catalog.
func Stats(doc docmodel.Document, catalog *rules.Catalog) model.Stats {
	return model.Stats{
		TotalCookies: len(doc.Cookies()),
		RulesChecked: catalog.Len(),
	}
}
