package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/gdprscanner/gdprscan/internal/history"
)

// Compare renders two stored scans as text reports and returns a line-based
// diff between them: removed lines prefixed with "-", added lines with "+",
// unchanged lines with two spaces. Useful for seeing what changed between
// two scans of the same page.
func Compare(older, newer *history.StoredScan) string {
	dmp := diffmatchpatch.New()

	a, b, lines := dmp.DiffLinesToChars(Render(older), Render(newer))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.Split(strings.TrimRight(d.Text, "\n"), "\n") {
			out.WriteString(prefix)
			out.WriteString(line)
			out.WriteString("\n")
		}
	}
	return out.String()
}
