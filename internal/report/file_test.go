package report

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/nao1215/linkcrawl/internal/model"
)

func TestFileSink(t *testing.T) {
	t.Parallel()

	t.Run("writes one line per URL", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "result.txt")
		if err := NewFileSink(path).Write(context.Background(), createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		expected := "2\thttps://c.example\n1\thttps://a.example\n1\thttps://b.example\n"
		if string(data) != expected {
			t.Errorf("got %q, expected %q", string(data), expected)
		}
	})

	t.Run("truncates previous content", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "result.txt")
		sink := NewFileSink(path)
		if err := sink.Write(context.Background(), createLargeReport(50)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		small := model.NewReport("https://a.example", 0)
		small.Hits["https://a.example"] = 1
		if err := sink.Write(context.Background(), small); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		if string(data) != "1\thttps://a.example\n" {
			t.Errorf("expected only the second run, got %q", string(data))
		}
	})

	t.Run("creates parent directories with private permissions", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "dir", "out.tsv")
		if err := NewFileSink(path).Write(context.Background(), createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("result file missing: %v", err)
		}
		if runtime.GOOS != "windows" && info.Mode().Perm() != 0o600 {
			t.Errorf("got permissions %v, expected 0600", info.Mode().Perm())
		}
	})

	t.Run("empty report writes empty file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "result.txt")
		if err := NewFileSink(path).Write(context.Background(), model.NewReport("https://a.example", 0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("result file missing: %v", err)
		}
		if info.Size() != 0 {
			t.Errorf("got %d bytes, expected empty file", info.Size())
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		blocker := filepath.Join(dir, "file")
		if err := os.WriteFile(blocker, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		err := NewFileSink(filepath.Join(blocker, "result.txt")).Write(context.Background(), createTestReport())
		if err == nil {
			t.Error("expected error when parent is a file")
		}
	})
}

func TestNewFileSinkDefaultPath(t *testing.T) {
	t.Parallel()

	if got := NewFileSink("").Path(); got != DefaultResultFile {
		t.Errorf("got %q, expected %q", got, DefaultResultFile)
	}
}

func TestWriteTSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	entries := []model.Entry{{URL: "https://a.example", Count: 3}, {URL: "https://b.example/?q=1", Count: 1}}
	if err := WriteTSV(&buf, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "3\thttps://a.example" || lines[1] != "1\thttps://b.example/?q=1" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
