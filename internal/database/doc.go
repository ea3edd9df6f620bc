// Package database provides SQLite-based storage for crawl history.
//
// This package implements the CrawlDB, which stores:
//   - One run record per finished crawl (seed, depth, timings, counters)
//   - The hit count of every URL encountered during that run
//
// CrawlDB implements the report sink interface, so the CLI records a run by
// adding the database to the sinks a crawl writes to.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
