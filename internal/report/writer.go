// Package report renders stored scans into human-readable formats. It is
// pure formatting: no engine logic, no persistence.
package report

import (
	"io"

	"github.com/gdprscanner/gdprscan/internal/history"
)

// Writer renders one stored scan to a configured destination.
//
// Design decision: the interface writes scans, not raw bytes, so a
// MultiWriter can fan a report out to terminal and file with the same API.
type Writer interface {
	// Write outputs the report. Returns the number of bytes written and any
	// error encountered.
	Write(scan *history.StoredScan) (int, error)
}

// MultiWriter writes one scan to several Writers, stopping on first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers. Returns the total
// bytes written across all writers.
func (m *MultiWriter) Write(scan *history.StoredScan) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(scan)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
