package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gdprscanner/gdprscan/internal/history"
)

// JSONWriter renders a stored scan as indented JSON, for machine consumers
// and debugging.
type JSONWriter struct {
	baseWriter
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the JSON report.
func (w *JSONWriter) Write(scan *history.StoredScan) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(scan); err != nil {
		return 0, err
	}
	n, err := w.output.Write(buf.Bytes())
	return n, err
}
