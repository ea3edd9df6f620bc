package report

import (
	"context"
	"io"
	"strconv"

	"github.com/nao1215/linkcrawl/internal/model"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// chartSlices is the number of URLs shown in the pie chart.
const chartSlices = 10

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, which gives us tables, alerts and mermaid charts without
// hand-escaping.
type MarkdownWriter struct {
	baseWriter

	// limit is the number of URLs listed. Zero or less lists all URLs.
	limit int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMarkdownLimit sets how many URLs are listed. Zero or less lists all.
func WithMarkdownLimit(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.limit = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		limit:      DefaultTopURLs,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(_ context.Context, report *model.Report) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeURLs(md, report)
	w.writeFooter(md)

	return md.Build()
}

// writeHeader writes the report header with crawl information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("linkcrawl Report")
	md.PlainText("")

	started := "-"
	if !report.StartedAt.IsZero() {
		started = report.StartedAt.Format("2006-01-02 15:04:05 MST")
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed URL", "`" + report.Seed + "`"},
			{"Max Depth", strconv.Itoa(report.Depth)},
			{"Started", started},
			{"Duration", report.Duration().String()},
		},
	})
	md.PlainText("")
}

// writeSummary writes the counters of the run and an alert about failures.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.Report) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Unique URLs", strconv.Itoa(report.UniqueURLs())},
			{"Total Hits", strconv.Itoa(report.TotalHits())},
			{"Tasks", strconv.FormatInt(report.Stats.Tasks, 10)},
			{"Pages Expanded", strconv.FormatInt(report.Stats.Expanded, 10)},
			{"Failed Fetches", strconv.FormatInt(report.Stats.Failed, 10)},
		},
	})
	md.PlainText("")

	switch {
	case report.Stats.Expanded > 0 && report.Stats.Failed == report.Stats.Expanded:
		md.Cautionf("Every fetch failed (%d). Check the seed URL and network settings.", report.Stats.Failed)
	case report.Stats.Failed > 0:
		md.Warningf("%d of %d fetches failed; their links are missing from this report.",
			report.Stats.Failed, report.Stats.Expanded)
	case report.UniqueURLs() <= 1:
		md.Note("No links were discovered from the seed URL.")
	default:
		md.Tip("All fetches succeeded.")
	}
	md.PlainText("")
}

// writeURLs writes the URL table and the hit distribution chart.
func (w *MarkdownWriter) writeURLs(md *markdown.Markdown, report *model.Report) {
	md.H2("URLs")
	md.PlainText("")

	entries := report.Top(w.limit)
	if len(entries) == 0 {
		md.PlainText("No URLs recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(e.Count), e.URL}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Hits", "URL"},
		Rows:   rows,
	})
	md.PlainText("")

	if rest := report.UniqueURLs() - len(entries); rest > 0 {
		md.PlainTextf("%d more URLs are listed in the result file.", rest)
		md.PlainText("")
	}

	w.writePieChart(md, report)
}

// writePieChart writes a mermaid pie chart of the most encountered URLs.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.Report) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Hit Distribution"),
		piechart.WithShowData(true),
	)
	for _, e := range report.Top(chartSlices) {
		chart.LabelAndIntValue(e.URL, uint64(e.Count)) //nolint:gosec // hit counts are always positive
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [linkcrawl](https://github.com/nao1215/linkcrawl)*")
}
