package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/linkcrawl/internal/model"
)

// DefaultResultFile is the file FileSink writes to when no path is given.
const DefaultResultFile = "result.txt"

// FileSink writes the hit counts to a file, one "<count>\t<url>" line per
// URL. The file is truncated on every write, so it always holds exactly the
// result of the latest crawl.
type FileSink struct {
	path string
}

// NewFileSink creates a FileSink for path. An empty path means
// DefaultResultFile in the current directory.
func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultResultFile
	}
	return &FileSink{path: path}
}

// Path returns the file the sink writes to.
func (s *FileSink) Path() string {
	return s.path
}

// Write replaces the file content with the report's hit counts.
// Parent directories are created as needed.
func (s *FileSink) Write(_ context.Context, report *model.Report) (err error) {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create result directory: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open result file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close result file: %w", cerr)
		}
	}()

	if err := WriteTSV(f, report.Entries()); err != nil {
		return fmt.Errorf("failed to write result file: %w", err)
	}
	return nil
}

// WriteTSV writes entries as "<count>\t<url>" lines.
func WriteTSV(w io.Writer, entries []model.Entry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", e.Count, e.URL); err != nil {
			return err
		}
	}
	return bw.Flush()
}
