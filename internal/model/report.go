package model

import (
	"sort"
	"time"
)

// Report is the result of one crawl run. It is built exactly once, by the
// task that observes the crawl becoming quiescent, and handed to the sinks.
type Report struct {
	// Seed is the URL the crawl started from.
	Seed string `json:"seed"`

	// Depth is the maximum recursion depth the crawl was started with.
	Depth int `json:"depth"`

	// StartedAt is when the crawl started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last task of the crawl exited.
	FinishedAt time.Time `json:"finished_at"`

	// Hits maps every encountered URL to its hit count.
	Hits map[string]int `json:"hits"`

	// Stats holds counters collected while crawling.
	Stats Stats `json:"stats"`
}

// Stats describes how a crawl run went.
type Stats struct {
	// Tasks is the number of crawl tasks started, including duplicates
	// that exited immediately after bumping a hit count.
	Tasks int64 `json:"tasks"`

	// Expanded is the number of URLs whose links were extracted.
	Expanded int64 `json:"expanded"`

	// Failed is the number of extractions that failed and were treated as
	// pages without links.
	Failed int64 `json:"failed"`
}

// Entry is one url/count row of a report.
type Entry struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// NewReport creates an empty report for the given seed and depth.
func NewReport(seed string, depth int) *Report {
	return &Report{
		Seed:  seed,
		Depth: depth,
		Hits:  make(map[string]int),
	}
}

// Entries returns the hits sorted by count (descending) and then by URL
// (ascending), so output built from a report is deterministic.
func (r *Report) Entries() []Entry {
	entries := make([]Entry, 0, len(r.Hits))
	for url, count := range r.Hits {
		entries = append(entries, Entry{URL: url, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].URL < entries[j].URL
	})
	return entries
}

// Top returns at most n entries in the order of Entries.
// A non-positive n returns all entries.
func (r *Report) Top(n int) []Entry {
	entries := r.Entries()
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// UniqueURLs returns the number of distinct URLs encountered.
func (r *Report) UniqueURLs() int {
	return len(r.Hits)
}

// TotalHits returns the sum of all hit counts.
func (r *Report) TotalHits() int {
	total := 0
	for _, count := range r.Hits {
		total += count
	}
	return total
}

// Duration returns how long the crawl took.
// Zero is returned when either timestamp is missing.
func (r *Report) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
