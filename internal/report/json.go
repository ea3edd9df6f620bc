package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/linkcrawl/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because it is sufficient for a flat report and keeps the
// output byte-for-byte predictable across Go versions.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the document written by JSONWriter: the report plus derived
// totals, with hits as a sorted list instead of a map.
type JSONReport struct {
	Seed       string        `json:"seed"`
	Depth      int           `json:"depth"`
	StartedAt  string        `json:"started_at"`
	FinishedAt string        `json:"finished_at"`
	DurationMS int64         `json:"duration_ms"`
	UniqueURLs int           `json:"unique_urls"`
	TotalHits  int           `json:"total_hits"`
	Stats      model.Stats   `json:"stats"`
	Hits       []model.Entry `json:"hits"`
}

// NewJSONReport converts a report into its JSON document form.
func NewJSONReport(report *model.Report) *JSONReport {
	return &JSONReport{
		Seed:       report.Seed,
		Depth:      report.Depth,
		StartedAt:  formatTime(report.StartedAt),
		FinishedAt: formatTime(report.FinishedAt),
		DurationMS: report.Duration().Milliseconds(),
		UniqueURLs: report.UniqueURLs(),
		TotalHits:  report.TotalHits(),
		Stats:      report.Stats,
		Hits:       report.Entries(),
	}
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(_ context.Context, report *model.Report) error {
	var (
		data []byte
		err  error
	)
	doc := NewJSONReport(report)
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	// Trailing newline for better terminal output
	data = append(data, '\n')
	_, err = w.output.Write(data)
	return err
}

// formatTime formats t as RFC 3339, or returns "" for the zero time.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
