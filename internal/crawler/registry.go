package crawler

import (
	"sync"

	"github.com/nao1215/linkcrawl/internal/model"
)

// Registry records every URL encountered during one crawl run together with
// its hit count. It is safe for concurrent use.
//
// Design decision: A single mutex guards the map. The only hot operation is
// RegisterOrBump, whose check and insert must be one critical section, and
// the lock is never held while fetching pages or waiting on children.
type Registry struct {
	mu      sync.Mutex
	records map[string]*model.VisitRecord
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*model.VisitRecord),
	}
}

// RegisterOrBump records an encounter of url. It returns true when this call
// created the record (first encounter) and false when an existing record's
// hit count was incremented. For every URL exactly one caller observes true.
func (r *Registry) RegisterOrBump(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[url]; ok {
		rec.Bump()
		return false
	}
	r.records[url] = model.NewVisitRecord(url)
	return true
}

// HitCount returns the hit count of url and whether it has been registered.
func (r *Registry) HitCount(url string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[url]
	if !ok {
		return 0, false
	}
	return rec.HitCount, true
}

// Len returns the number of distinct URLs registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns a copy of the url -> hit count mapping.
func (r *Registry) Snapshot() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	hits := make(map[string]int, len(r.records))
	for url, rec := range r.records {
		hits[url] = rec.HitCount
	}
	return hits
}
