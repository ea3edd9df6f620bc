package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/report"
	"github.com/spf13/cobra"
)

const (
	// defaultHistoryLimit is the number of runs listed by default.
	defaultHistoryLimit = 20

	// shortIDLength is the run ID prefix length shown in listings.
	shortIDLength = 8

	// timeLayout is used for timestamps in listings.
	timeLayout = "2006-01-02 15:04:05"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous crawl runs",
		Long: `History lists the crawl runs stored in the history database, newest first.

With a run ID, it prints the hit counts of that run in the result file format
("<count>\t<url>" per line). A run ID may be abbreviated to any prefix that
identifies a single run.

Examples:
  # List the 20 most recent runs
  linkcrawl history

  # List every run of one seed URL
  linkcrawl history --seed https://example.com --limit 0

  # Print the hit counts of a run
  linkcrawl history 1a2b3c4d

  # Delete a run
  linkcrawl history --delete 1a2b3c4d`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().StringP("seed", "s", "",
		"Only list runs of this seed URL")
	cmd.Flags().Bool("delete", false,
		"Delete the given run instead of printing it")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	seed, err := cmd.Flags().GetString("seed")
	if err != nil {
		return err
	}
	deleteRun, err := cmd.Flags().GetBool("delete")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	if deleteRun && len(args) == 0 {
		return errors.New("--delete requires a run ID")
	}

	out := cmd.OutOrStdout()
	db, err := openHistoryDB(cmd)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		fmt.Fprintln(out, "No crawl history found.")
		fmt.Fprintln(out, "\nUse 'linkcrawl crawl <url>' to crawl a site.")
		return nil
	}
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if len(args) == 0 {
		return listRuns(ctx, out, db, seed, limit)
	}

	id, err := db.ResolveRunID(ctx, args[0])
	if err != nil {
		return err
	}
	if deleteRun {
		if err := db.DeleteRun(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted run %s\n", id)
		return nil
	}

	entries, err := db.GetHits(ctx, id)
	if err != nil {
		return err
	}
	return report.WriteTSV(out, entries)
}

// openHistoryDB opens the existing history database in the directory given
// by --db-dir, or in the XDG data directory.
func openHistoryDB(cmd *cobra.Command) (*database.CrawlDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// listRuns prints one line per stored run.
func listRuns(ctx context.Context, out io.Writer, db *database.CrawlDB, seed string, limit int) error {
	var (
		runs []database.Run
		err  error
	)
	if seed != "" {
		runs, err = db.RunsForSeed(ctx, seed)
		if err == nil && limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}
	} else {
		runs, err = db.ListRuns(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl history found.")
		fmt.Fprintln(out, "\nUse 'linkcrawl crawl <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Crawl history (%d runs):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %5s  %6s  %6s  %6s  %s\n",
		"ID", "Started", "Depth", "URLs", "Hits", "Failed", "Seed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 78))
	for _, run := range runs {
		fmt.Fprintf(out, "  %-8s  %-19s  %5d  %6d  %6d  %6d  %s\n",
			shortID(run.ID),
			run.StartedAt.Local().Format(timeLayout),
			run.Depth,
			run.UniqueURLs,
			run.TotalHits,
			run.Stats.Failed,
			run.Seed,
		)
	}

	fmt.Fprintln(out, "\nUse 'linkcrawl history <id>' to print the hit counts of a run.")
	fmt.Fprintln(out, "Use 'linkcrawl compare <url>' to compare the latest two runs of a seed.")
	return nil
}

// shortID returns the prefix of id shown in listings.
func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}
