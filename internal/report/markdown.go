package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/gdprscanner/gdprscan/internal/history"
	"github.com/gdprscanner/gdprscan/internal/model"
)

// MarkdownWriter renders a stored scan as GitHub-flavored Markdown, for
// exports meant to be shared or filed as documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the Markdown report.
func (w *MarkdownWriter) Write(scan *history.StoredScan) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("GDPR Compliance Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + scan.URL + "`"},
			{"Score", strconv.Itoa(scan.Score) + "/100"},
			{"Scanned", time.Unix(scan.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05 MST")},
			{"Violations", strconv.Itoa(len(scan.Findings))},
		},
	})
	md.PlainText("")

	w.writeAlert(md, scan)
	w.writeViolations(md, scan)
	w.writeRecommendations(md, scan)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by [GDPR Scanner](https://gdprscanner.ai)*")

	return len(md.String()), md.Build()
}

// writeAlert picks the alert level from the worst violation present.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, scan *history.StoredScan) {
	var highs, mediums int
	for _, f := range scan.Findings {
		switch f.Severity {
		case model.SeverityHigh:
			highs++
		case model.SeverityMedium:
			mediums++
		}
	}

	switch {
	case highs > 0:
		md.Warningf("%d high severity violation(s) found. These should be addressed first.", highs)
	case mediums > 0:
		md.Importantf("%d medium severity violation(s) found.", mediums)
	case len(scan.Findings) > 0:
		md.Note("Only low severity violations found.")
	default:
		md.Tip("No violations detected. The page looks compliant.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeViolations(md *markdown.Markdown, scan *history.StoredScan) {
	md.H2("Violations")
	md.PlainText("")

	if len(scan.Findings) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(scan.Findings))
	for i, f := range scan.Findings {
		rows[i] = []string{f.RuleID, f.Severity.String(), f.Description}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Severity", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRecommendations(md *markdown.Markdown, scan *history.StoredScan) {
	md.H2("Recommendations")
	md.PlainText("")

	if len(scan.Suggestions) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	md.BulletList(scan.Suggestions...)
	md.PlainText("")
}
