package model

// VisitRecord tracks how many times a URL was encountered during a crawl.
// A record is created on the first encounter with HitCount 1 and is only
// ever incremented afterwards. Records are never deleted during a run.
type VisitRecord struct {
	// URL is the URL exactly as it was discovered.
	URL string `json:"url"`

	// HitCount is the number of times the URL was encountered. Always >= 1.
	HitCount int `json:"hit_count"`
}

// NewVisitRecord returns the record for a first encounter of url.
func NewVisitRecord(url string) *VisitRecord {
	return &VisitRecord{
		URL:      url,
		HitCount: 1,
	}
}

// Bump records one more encounter and returns the new hit count.
func (v *VisitRecord) Bump() int {
	v.HitCount++
	return v.HitCount
}
