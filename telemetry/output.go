package telemetry

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// TraceWriter appends PerfStatsCSV records to a single CSV trace file:
// header written once, subsequent rows appended headerless.
type TraceWriter struct {
	file          *os.File
	headerWritten bool
}

// NewTraceWriter opens path for the trace CSV. Returns (nil, nil) if
// path is empty (tracing disabled); a nil TraceWriter's methods are
// no-ops.
func NewTraceWriter(path string) (*TraceWriter, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating trace csv: %w", err)
	}
	return &TraceWriter{file: f}, nil
}

// Write appends a single row to the trace file.
func (w *TraceWriter) Write(rec PerfStatsCSV) error {
	if w == nil {
		return nil
	}
	records := []PerfStatsCSV{rec}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.file); err != nil {
			return fmt.Errorf("writing trace row: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.file); err != nil {
		return fmt.Errorf("writing trace row: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (w *TraceWriter) Close() error {
	if w == nil {
		return nil
	}
	return w.file.Close()
}
