package crawler

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nao1215/linkcrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Sink receives the finalized report of a crawl run.
// report.Sink and database.CrawlDB satisfy it.
type Sink interface {
	Write(ctx context.Context, r *model.Report) error
}

// Engine runs depth-bounded concurrent crawls.
//
// Every discovered URL becomes a task running in its own goroutine. A task
// registers its URL, and if it is the first to do so and has depth left,
// extracts the page's links and starts one child task per distinct link with
// depth-1, then waits for those children. A per-run TaskCounter tracks tasks
// that have entered but not exited; the task whose exit brings it to zero
// builds the report and hands it to the sink, exactly once per run.
//
// Design decision: A child is entered on the counter by its parent before
// the child goroutine starts. The counter therefore cannot reach zero while
// any parent still has children to spawn, which is what makes the zero
// crossing a reliable completion signal.
type Engine struct {
	extractor LinkExtractor
	sink      Sink
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for crawl progress and absorbed failures.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine that discovers links with extractor and
// delivers each finished run to sink.
func NewEngine(extractor LinkExtractor, sink Sink, opts ...EngineOption) *Engine {
	e := &Engine{
		extractor: extractor,
		sink:      sink,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// run is the state of a single crawl. Nothing is shared between runs.
type run struct {
	seed     string
	depth    int
	started  time.Time
	registry *Registry
	counter  *TaskCounter

	tasks    atomic.Int64
	expanded atomic.Int64
	failed   atomic.Int64

	// done is closed by the finalizing task after err is set.
	done chan struct{}
	err  error
}

// Crawl crawls from seed down to depth levels of links and blocks until the
// report has been written. A negative depth is treated as 0.
//
// ctx is passed to the extractor only. Once it is cancelled fetches fail
// fast, the failures are absorbed, and the task tree drains normally, so a
// report of what was found so far is still written. The returned error is
// ErrEmptySeed or the error of the sink.
func (e *Engine) Crawl(ctx context.Context, seed string, depth int) error {
	if strings.TrimSpace(seed) == "" {
		return ErrEmptySeed
	}
	if depth < 0 {
		depth = 0
	}

	r := &run{
		seed:     seed,
		depth:    depth,
		started:  e.now(),
		registry: NewRegistry(),
		counter:  &TaskCounter{},
		done:     make(chan struct{}),
	}

	e.logger.Info("start crawling", "url", seed, "depth", depth)

	e.enter(r)
	e.crawl(ctx, r, seed, depth)

	<-r.done
	return r.err
}

// enter registers a new task on the run's counter. It must be called before
// the task starts running.
func (e *Engine) enter(r *run) {
	r.counter.Increment()
	r.tasks.Add(1)
}

// crawl is the body of one task. The caller has already entered it.
func (e *Engine) crawl(ctx context.Context, r *run, pageURL string, depth int) {
	defer e.exit(ctx, r)

	if !r.registry.RegisterOrBump(pageURL) {
		e.logger.Debug("already seen", "url", pageURL)
		return
	}
	if depth <= 0 {
		return
	}

	links := e.expand(ctx, r, pageURL, depth)

	var g errgroup.Group
	for _, link := range links {
		e.enter(r)
		g.Go(func() error {
			e.crawl(ctx, r, link, depth-1)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // tasks never return errors
}

// expand extracts the links of pageURL and removes duplicates, so each link
// on a page counts as one encounter. Extraction failures are logged and
// treated as a page without links.
func (e *Engine) expand(ctx context.Context, r *run, pageURL string, depth int) []string {
	r.expanded.Add(1)

	links, err := e.extractor.ExtractLinks(ctx, pageURL)
	if err != nil {
		r.failed.Add(1)
		e.logger.Warn("failed to extract links", "url", pageURL, "error", err)
		return nil
	}

	seen := make(map[string]struct{}, len(links))
	unique := make([]string, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		unique = append(unique, link)
	}

	e.logger.Debug("extracted links", "url", pageURL, "depth", depth, "links", len(unique))
	return unique
}

// exit removes a task from the counter. The task whose decrement produces
// zero finalizes the run.
func (e *Engine) exit(ctx context.Context, r *run) {
	if r.counter.Decrement() != 0 {
		return
	}
	e.finalize(ctx, r)
}

// finalize builds the report from the registry and writes it to the sink.
// The sink gets a context that is not cancelled with ctx, so an interrupted
// crawl still persists its partial result.
func (e *Engine) finalize(ctx context.Context, r *run) {
	defer close(r.done)

	report := model.NewReport(r.seed, r.depth)
	report.StartedAt = r.started
	report.FinishedAt = e.now()
	report.Hits = r.registry.Snapshot()
	report.Stats = model.Stats{
		Tasks:    r.tasks.Load(),
		Expanded: r.expanded.Load(),
		Failed:   r.failed.Load(),
	}

	e.logger.Info("finished crawling",
		"url", r.seed,
		"unique_urls", report.UniqueURLs(),
		"failed", report.Stats.Failed,
		"elapsed", report.Duration().String(),
	)

	if e.sink == nil {
		return
	}
	r.err = e.sink.Write(context.WithoutCancel(ctx), report)
}
