// Package report writes finished crawl reports.
//
// Every output implements the Sink interface:
//   - FileSink: the result file, one "<count>\t<url>" line per URL
//   - SimpleWriter: human-readable text output for terminal display
//   - JSONWriter: structured JSON output for tool integration
//   - MarkdownWriter: Markdown output with tables and a mermaid chart
//
// Design decision: We separate report writing from the report data
// structure (which is in the model package) so new output formats can be
// added without touching the crawler. MultiSink composes sinks so a single
// crawl can write the result file, print to the terminal and record history.
package report
