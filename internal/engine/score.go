package engine

import "github.com/gdprscanner/gdprscan/internal/model"

// Score reduces findings to a compliance score: 100 minus the severity
// weight of each finding (high 15, medium 10, low 5), floored at 0. The
// reduction is commutative and associative, so finding order never matters.
func Score(findings []model.Finding) int {
	score := 100
	for _, f := range findings {
		score -= f.Severity.Weight()
	}
	if score < 0 {
		score = 0
	}
	return score
}
