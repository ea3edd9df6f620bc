// Package crawler implements a concurrent, depth-bounded link crawler.
//
// # Architecture
//
// The Engine starts one goroutine per discovered URL. Two per-run structures
// coordinate the goroutines:
//
//   - Registry: maps each URL to its hit count and decides, atomically, which
//     single task gets to expand a URL
//   - TaskCounter: counts tasks that have started but not finished; the task
//     whose exit brings it to zero writes the report
//
// Links are discovered through the LinkExtractor interface. HTTPExtractor is
// the production implementation: it fetches a page with an *http.Client from
// NewHTTPClient (optionally through a SOCKS5 proxy) and parses it with Parser.
//
// # Limits
//
// Fan-out is unbounded: a page with many links starts as many goroutines.
// The crawler does not read robots.txt and does not rate limit.
//
// # Usage
//
//	client, err := crawler.NewHTTPClient(30*time.Second, "")
//	if err != nil {
//		return err
//	}
//	engine := crawler.NewEngine(crawler.NewHTTPExtractor(client), sink)
//	err = engine.Crawl(ctx, "https://example.com", 2)
package crawler
