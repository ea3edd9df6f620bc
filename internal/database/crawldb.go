package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/linkcrawl/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "linkcrawl.db"

// CrawlDB provides SQLite-based storage for finished crawl runs.
//
// Design decision: We keep every run of every seed in one database file
// rather than one file per seed. This keeps `history` a single query and
// makes backup a single file copy.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// newID generates run IDs.
	newID func() string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// Otherwise ErrDatabaseNotFound is returned when the file does not exist.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// Foreign keys are a per-connection setting, so they go in the DSN.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
		newID:  uuid.NewString,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per finished crawl
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed TEXT NOT NULL,
		depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		unique_urls INTEGER NOT NULL,
		total_hits INTEGER NOT NULL,
		tasks INTEGER NOT NULL,
		expanded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Hit counts of every URL seen during a run
	CREATE TABLE IF NOT EXISTS hits (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (run_id, url)
	);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is the stored summary of one finished crawl.
type Run struct {
	ID         string
	Seed       string
	Depth      int
	StartedAt  time.Time
	FinishedAt time.Time
	UniqueURLs int
	TotalHits  int
	Stats      model.Stats
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Write stores the report as a new run. It makes CrawlDB usable as a sink.
func (cdb *CrawlDB) Write(ctx context.Context, report *model.Report) error {
	_, err := cdb.SaveReport(ctx, report)
	return err
}

// SaveReport stores the report as a new run and returns the run ID.
// The run and its hits are written in one transaction.
func (cdb *CrawlDB) SaveReport(ctx context.Context, report *model.Report) (id string, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id = cdb.newID()
	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, seed, depth, started_at, finished_at, unique_urls, total_hits, tasks, expanded, failed)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		report.Seed,
		report.Depth,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.UniqueURLs(),
		report.TotalHits(),
		report.Stats.Tasks,
		report.Stats.Expanded,
		report.Stats.Failed,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hits (run_id, url, count) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare hit insert: %w", err)
	}
	defer stmt.Close()

	for url, count := range report.Hits {
		if _, err = stmt.ExecContext(ctx, id, url, count); err != nil {
			return "", fmt.Errorf("failed to save hit for %s: %w", url, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

const runColumns = `id, seed, depth, started_at, finished_at, unique_urls, total_hits, tasks, expanded, failed`

// ListRuns returns the most recent runs, newest first.
// A non-positive limit returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return cdb.queryRuns(ctx, query, args...)
}

// RunsForSeed returns every run started from seed, newest first.
func (cdb *CrawlDB) RunsForSeed(ctx context.Context, seed string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE seed = ? ORDER BY started_at DESC, rowid DESC`
	return cdb.queryRuns(ctx, query, seed)
}

// queryRuns runs a query selecting runColumns and scans the result.
func (cdb *CrawlDB) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun scans one row of runColumns.
func scanRun(row rowScanner) (*Run, error) {
	var (
		run      Run
		started  string
		finished string
	)
	err := row.Scan(
		&run.ID,
		&run.Seed,
		&run.Depth,
		&started,
		&finished,
		&run.UniqueURLs,
		&run.TotalHits,
		&run.Stats.Tasks,
		&run.Stats.Expanded,
		&run.Stats.Failed,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(started)
	run.FinishedAt = parseTimestamp(finished)
	return &run, nil
}

// ResolveRunID expands an ID prefix (as printed by `history`) to a full run
// ID. It returns ErrRunNotFound or ErrAmbiguousRunID when the prefix does
// not identify exactly one run.
func (cdb *CrawlDB) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}
	rows, err := cdb.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run ID: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// GetRun retrieves a run by its full ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*Run, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetHits returns the hit counts of a run sorted by count (descending) and
// then by URL.
func (cdb *CrawlDB) GetHits(ctx context.Context, runID string) ([]model.Entry, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, count FROM hits
	WHERE run_id = ?
	ORDER BY count DESC, url ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get hits: %w", err)
	}
	defer rows.Close()

	entries := make([]model.Entry, 0)
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.URL, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadReport rebuilds the report of a stored run.
func (cdb *CrawlDB) LoadReport(ctx context.Context, runID string) (*model.Report, error) {
	run, err := cdb.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	entries, err := cdb.GetHits(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := model.NewReport(run.Seed, run.Depth)
	report.StartedAt = run.StartedAt
	report.FinishedAt = run.FinishedAt
	report.Stats = run.Stats
	for _, e := range entries {
		report.Hits[e.URL] = e.Count
	}
	return report, nil
}

// DeleteRun removes a run and its hits.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, runID string) error {
	res, err := cdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// formatTimestamp formats t for storage. Timestamps are stored as UTC text
// so that lexical order is chronological order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
