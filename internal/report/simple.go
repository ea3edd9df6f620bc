package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/linkcrawl/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultTopURLs is the number of URLs SimpleWriter and MarkdownWriter list.
const DefaultTopURLs = 20

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// limit is the number of URLs listed. Zero or less lists all URLs.
	limit int

	// printer formats numbers with thousands separators.
	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithLimit sets how many URLs are listed. Zero or less lists all of them.
func WithLimit(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.limit = n
	}
}

// WithLanguage sets the language used for number formatting.
func WithLanguage(tag language.Tag) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.printer = message.NewPrinter(tag)
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		limit:      DefaultTopURLs,
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(_ context.Context, report *model.Report) error {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeURLs(&sb, report)
	w.writeFooter(&sb)

	_, err := io.WriteString(w.output, sb.String())
	return err
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         LINKCRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed URL:   %s\n", report.Seed)
	fmt.Fprintf(sb, "Max Depth:  %d\n", report.Depth)
	if !report.StartedAt.IsZero() {
		fmt.Fprintf(sb, "Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "Duration:   %s\n", report.Duration().Round(time.Millisecond))
	sb.WriteString("\n")
}

// writeSummary writes the counters of the run.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(w.printer.Sprintf("  Unique URLs:     %d\n", report.UniqueURLs()))
	sb.WriteString(w.printer.Sprintf("  Total Hits:      %d\n", report.TotalHits()))
	sb.WriteString(w.printer.Sprintf("  Tasks:           %d\n", report.Stats.Tasks))
	sb.WriteString(w.printer.Sprintf("  Pages Expanded:  %d\n", report.Stats.Expanded))
	sb.WriteString(w.printer.Sprintf("  Failed Fetches:  %d\n", report.Stats.Failed))
	sb.WriteString("\n")
}

// writeURLs writes the most encountered URLs.
func (w *SimpleWriter) writeURLs(sb *strings.Builder, report *model.Report) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	if w.limit > 0 && report.UniqueURLs() > w.limit {
		fmt.Fprintf(sb, "TOP %d URLS\n", w.limit)
	} else {
		sb.WriteString("URLS\n")
	}
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	entries := report.Top(w.limit)
	if len(entries) == 0 {
		sb.WriteString("  No URLs recorded\n\n")
		return
	}

	sb.WriteString(fmt.Sprintf("  %8s  %s\n", "HITS", "URL"))
	for _, e := range entries {
		sb.WriteString(w.printer.Sprintf("  %8d  %s\n", e.Count, e.URL))
	}
	if rest := report.UniqueURLs() - len(entries); rest > 0 {
		sb.WriteString(w.printer.Sprintf("  ... and %d more\n", rest))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by linkcrawl\n")
	sb.WriteString("https://github.com/nao1215/linkcrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
