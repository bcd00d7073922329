package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gdprscanner/gdprscan/internal/history"
)

// TextWriter renders the classic plain-text report: header, one
// "- [severity] description" line per violation, then the recommendation
// list. This is the format the export endpoint has always returned.
type TextWriter struct {
	baseWriter
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the plain-text report.
func (w *TextWriter) Write(scan *history.StoredScan) (int, error) {
	return io.WriteString(w.output, Render(scan))
}

// Render returns the plain-text report as a string.
func Render(scan *history.StoredScan) string {
	var b strings.Builder

	b.WriteString("GDPR Compliance Report\n")
	b.WriteString("======================\n")
	fmt.Fprintf(&b, "URL: %s\n", scan.URL)
	fmt.Fprintf(&b, "Score: %d/100\n", scan.Score)
	fmt.Fprintf(&b, "Scanned: %s\n", time.Unix(scan.CreatedAt, 0).UTC().Format("2006-01-02 15:04:05 MST"))

	b.WriteString("\nVIOLATIONS:\n")
	for _, f := range scan.Findings {
		fmt.Fprintf(&b, "- [%s] %s\n", f.Severity, f.Description)
	}

	b.WriteString("\nRECOMMENDATIONS:\n")
	for _, s := range scan.Suggestions {
		fmt.Fprintf(&b, "- %s\n", s)
	}

	b.WriteString("\nGenerated by GDPR Scanner\nhttps://gdprscanner.ai\n")
	return b.String()
}
