package engine

import "github.com/gdprscanner/gdprscan/internal/model"

// assemble packages findings into the final ScanResult. Suggestions are
// collected by walking findings in order and appending every non-empty
// suggestion; duplicates are kept on purpose so repeated advice stays
// visible per rule.
func assemble(url string, timestampMillis int64, findings []model.Finding, stats model.Stats) *model.ScanResult {
	if findings == nil {
		findings = []model.Finding{}
	}

	suggestions := make([]string, 0, len(findings))
	for _, f := range findings {
		if f.Suggestion != "" {
			suggestions = append(suggestions, f.Suggestion)
		}
	}

	return &model.ScanResult{
		URL:             url,
		TimestampMillis: timestampMillis,
		Score:           Score(findings),
		Findings:        findings,
		Suggestions:     suggestions,
		Stats:           stats,
	}
}
