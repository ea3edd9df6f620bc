package report

import (
	"context"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/nao1215/linkcrawl/internal/model"
)

// Sink receives the report of a finished crawl.
// Write is called once per crawl run.
type Sink interface {
	Write(ctx context.Context, report *model.Report) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, report *model.Report) error

// Write calls f(ctx, report).
func (f SinkFunc) Write(ctx context.Context, report *model.Report) error {
	return f(ctx, report)
}

// MultiSink writes a report to several sinks.
//
// Design decision: Unlike io.MultiWriter, MultiSink does not stop at the
// first failure. A broken terminal pipe must not prevent the result file or
// the history database from being written, so every sink is tried and the
// failures are returned together.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a Sink that writes to all provided sinks in order.
// Nil sinks are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{sinks: make([]Sink, 0, len(sinks))}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Write writes the report to every sink and returns all failures as a
// *multierror.Error, or nil when every sink succeeded.
func (m *MultiSink) Write(ctx context.Context, report *model.Report) error {
	var result *multierror.Error
	for _, s := range m.sinks {
		if err := s.Write(ctx, report); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Len returns the number of sinks.
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// baseWriter provides common functionality for writers that render a report
// to an io.Writer.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
