// Package model defines the data structures shared by the crawler, the
// report writers and the history database.
//
//   - VisitRecord: one URL and the number of times it was encountered
//   - Report: the finalized result of one crawl run
//   - Entry: a single url/count row of a Report
//   - Stats: counters describing how a run went
//
// Design decision: The types live in their own package so that the crawler,
// report and database packages can share them without importing each other.
package model
