package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/model"
	"github.com/spf13/cobra"
)

// NewCompareCmd creates the compare command.
// This command compares two stored runs of the same seed URL.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url>",
		Short: "Compare the hit counts of two runs of a seed URL",
		Long: `Compare shows how the link structure of a site changed between two crawls
of the same seed URL stored in the history database:
- URLs that are new in the latest run
- URLs that are no longer reached
- URLs whose hit count changed

By default the latest run is compared with the run before it.

Examples:
  # Compare the latest two runs
  linkcrawl compare https://example.com

  # Compare the latest run with a specific earlier run
  linkcrawl compare --with-run-id 1a2b3c4d https://example.com

  # Output the comparison as JSON
  linkcrawl compare --json https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with this run instead of the previous one (see 'linkcrawl history')")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistoryDB(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := compareLatest(cmd.Context(), db, args[0], withRunID)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	writeComparisonText(cmd.OutOrStdout(), result)
	return nil
}

// compareLatest compares the latest run of seed with the run before it, or
// with the run identified by withRunID when it is set.
func compareLatest(ctx context.Context, db *database.CrawlDB, seed, withRunID string) (*ComparisonResult, error) {
	runs, err := db.RunsForSeed(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no run history found for %s", seed)
	}

	currentID := runs[0].ID
	var previousID string
	switch {
	case withRunID != "":
		previousID, err = db.ResolveRunID(ctx, withRunID)
		if err != nil {
			return nil, err
		}
		if previousID == currentID {
			return nil, errors.New("cannot compare the latest run with itself")
		}
	case len(runs) < 2:
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	default:
		previousID = runs[1].ID
	}

	previous, err := db.LoadReport(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if previous.Seed != seed {
		return nil, fmt.Errorf("run %s belongs to %s, not %s", shortID(previousID), previous.Seed, seed)
	}
	current, err := db.LoadReport(ctx, currentID)
	if err != nil {
		return nil, err
	}

	result := compareReports(previous, current)
	result.PreviousRun.ID = previousID
	result.CurrentRun.ID = currentID
	return result, nil
}

// ComparisonResult holds the result of comparing two runs.
type ComparisonResult struct {
	// Seed is the seed URL both runs started from.
	Seed string `json:"seed"`

	PreviousRun RunMetadata `json:"previous_run"`
	CurrentRun  RunMetadata `json:"current_run"`

	// NewURLs are reached in the current run but not in the previous one.
	NewURLs []model.Entry `json:"new_urls,omitempty"`

	// RemovedURLs were reached in the previous run but not in the current one.
	RemovedURLs []model.Entry `json:"removed_urls,omitempty"`

	// ChangedURLs are reached in both runs with different hit counts.
	ChangedURLs []HitChange `json:"changed_urls,omitempty"`

	// UnchangedCount is the number of URLs with the same hit count in both runs.
	UnchangedCount int `json:"unchanged_count"`
}

// RunMetadata describes one side of a comparison.
type RunMetadata struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Depth      int       `json:"depth"`
	UniqueURLs int       `json:"unique_urls"`
	TotalHits  int       `json:"total_hits"`
}

// HitChange is a URL whose hit count differs between two runs.
type HitChange struct {
	URL      string `json:"url"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
	Delta    int    `json:"delta"`
}

// compareReports compares the hit counts of two reports.
// Entries keep the report ordering (count descending, then URL); changes are
// ordered by the size of the change.
func compareReports(previous, current *model.Report) *ComparisonResult {
	result := &ComparisonResult{
		Seed:        current.Seed,
		PreviousRun: runMetadata(previous),
		CurrentRun:  runMetadata(current),
	}

	for _, e := range current.Entries() {
		before, ok := previous.Hits[e.URL]
		switch {
		case !ok:
			result.NewURLs = append(result.NewURLs, e)
		case before != e.Count:
			result.ChangedURLs = append(result.ChangedURLs, HitChange{
				URL:      e.URL,
				Previous: before,
				Current:  e.Count,
				Delta:    e.Count - before,
			})
		default:
			result.UnchangedCount++
		}
	}

	for _, e := range previous.Entries() {
		if _, ok := current.Hits[e.URL]; !ok {
			result.RemovedURLs = append(result.RemovedURLs, e)
		}
	}

	slices.SortStableFunc(result.ChangedURLs, func(a, b HitChange) int {
		if c := cmp.Compare(abs(b.Delta), abs(a.Delta)); c != 0 {
			return c
		}
		return cmp.Compare(a.URL, b.URL)
	})

	return result
}

func runMetadata(r *model.Report) RunMetadata {
	return RunMetadata{
		StartedAt:  r.StartedAt,
		Depth:      r.Depth,
		UniqueURLs: r.UniqueURLs(),
		TotalHits:  r.TotalHits(),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// writeComparisonText writes the comparison result in human-readable form.
func writeComparisonText(w io.Writer, result *ComparisonResult) {
	fmt.Fprintf(w, "Run Comparison: %s\n", result.Seed)
	fmt.Fprintf(w, "\nPrevious run: %s  %s  (%d URLs, %d hits)\n",
		shortID(result.PreviousRun.ID),
		result.PreviousRun.StartedAt.Local().Format(timeLayout),
		result.PreviousRun.UniqueURLs,
		result.PreviousRun.TotalHits)
	fmt.Fprintf(w, "Current run:  %s  %s  (%d URLs, %d hits)\n",
		shortID(result.CurrentRun.ID),
		result.CurrentRun.StartedAt.Local().Format(timeLayout),
		result.CurrentRun.UniqueURLs,
		result.CurrentRun.TotalHits)

	if len(result.NewURLs) > 0 {
		fmt.Fprintf(w, "\nNew URLs (%d):\n", len(result.NewURLs))
		for _, e := range result.NewURLs {
			fmt.Fprintf(w, "  [+] %6d  %s\n", e.Count, e.URL)
		}
	}

	if len(result.RemovedURLs) > 0 {
		fmt.Fprintf(w, "\nRemoved URLs (%d):\n", len(result.RemovedURLs))
		for _, e := range result.RemovedURLs {
			fmt.Fprintf(w, "  [-] %6d  %s\n", e.Count, e.URL)
		}
	}

	if len(result.ChangedURLs) > 0 {
		fmt.Fprintf(w, "\nChanged hit counts (%d):\n", len(result.ChangedURLs))
		for _, c := range result.ChangedURLs {
			fmt.Fprintf(w, "  [~] %6d -> %-6d (%+d)  %s\n", c.Previous, c.Current, c.Delta, c.URL)
		}
	}

	fmt.Fprintf(w, "\nUnchanged: %d URLs\n", result.UnchangedCount)
}
