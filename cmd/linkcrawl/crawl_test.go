package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/report"
)

// newTestSite starts a server with the link graph / -> {/a, /b}, /a -> {/b}.
// /private only links to /secret when the X-Token header is "let-me-in".
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/a">A</a><a href="/b">B</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><a href="/b">B</a></body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Header.Get("X-Token") == "let-me-in" {
			fmt.Fprint(w, `<html><body><a href="/secret">secret</a></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>locked</body></html>`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// writeConfig writes a config file into a temporary directory and returns its path.
// Tests pass it with --config so that no user config file is picked up.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".linkcrawl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// executeCrawl runs "linkcrawl crawl" with args and returns stdout and stderr.
func executeCrawl(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"crawl"}, args...))
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl [url] [depth]" {
			t.Errorf("expected use 'crawl [url] [depth]', got %q", cmd.Use)
		}
	})

	t.Run("accepts at most two arguments", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, []string{"a", "b", "c"}); err == nil {
			t.Error("expected error for three arguments")
		}
		if err := cmd.Args(cmd, nil); err != nil {
			t.Errorf("expected no arguments to be accepted, got %v", err)
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "depth", shorthand: "d", defValue: "1"},
		{name: "output", shorthand: "o", defValue: "result.txt"},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "json", shorthand: "j", defValue: "false"},
		{name: "markdown", shorthand: "m", defValue: "false"},
		{name: "timeout", shorthand: "t", defValue: "30s"},
		{name: "header", shorthand: "H", defValue: "[]"},
		{name: "user-agent", defValue: config.DefaultUserAgent},
		{name: "max-body-size", defValue: "5242880"},
		{name: "proxy", defValue: ""},
		{name: "db-dir", defValue: ""},
		{name: "no-history", defValue: "false"},
	}
	for _, f := range flags {
		t.Run("has "+f.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("expected %s flag", f.name)
			}
			if flag.Shorthand != f.shorthand {
				t.Errorf("expected shorthand %q, got %q", f.shorthand, flag.Shorthand)
			}
			if flag.DefValue != f.defValue {
				t.Errorf("expected default %q, got %q", f.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("positional arguments set seed and depth", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "depth: 5\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com", "3"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SeedURL != "https://example.com" {
			t.Errorf("expected seed https://example.com, got %q", cfg.SeedURL)
		}
		if cfg.Depth != 3 {
			t.Errorf("expected depth 3, got %d", cfg.Depth)
		}
	})

	t.Run("file overrides defaults and flags override file", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `url: https://file.example
depth: 4
timeout: 10s
output: from-file.txt
proxy: 127.0.0.1:1080
`)
		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", path, "--depth", "2", "--output", "from-flag.txt"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, nil, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.SeedURL != "https://file.example" {
			t.Errorf("expected seed from file, got %q", cfg.SeedURL)
		}
		if cfg.Depth != 2 {
			t.Errorf("expected depth from flag, got %d", cfg.Depth)
		}
		if cfg.OutputFile != "from-flag.txt" {
			t.Errorf("expected output from flag, got %q", cfg.OutputFile)
		}
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected timeout from file, got %v", cfg.Timeout)
		}
		if cfg.ProxyAddress != "127.0.0.1:1080" {
			t.Errorf("expected proxy from file, got %q", cfg.ProxyAddress)
		}
	})

	t.Run("unset flags do not override the file", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "depth: 0\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Depth != 0 {
			t.Errorf("expected depth 0 from file, got %d", cfg.Depth)
		}
	})

	t.Run("invalid depth argument falls back with a warning", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "depth: 2\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com", "deep"}, logger)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Depth != 2 {
			t.Errorf("expected fallback depth 2, got %d", cfg.Depth)
		}
		if !strings.Contains(logs.String(), "ignoring invalid depth argument") {
			t.Errorf("expected a warning, got %q", logs.String())
		}
	})

	t.Run("negative depth argument falls back to the default", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "url: https://example.com\n")}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com", "-1"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Depth != config.DefaultDepth {
			t.Errorf("expected default depth %d, got %d", config.DefaultDepth, cfg.Depth)
		}
	})

	t.Run("invalid depth from any source falls back with a warning", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name     string
			file     string
			flags    []string
			args     []string
			expected int
			warning  string
		}{
			{
				name:     "negative depth flag",
				file:     "{}\n",
				flags:    []string{"--depth=-1"},
				expected: config.DefaultDepth,
				warning:  "ignoring invalid --depth flag",
			},
			{
				name:     "non-integer depth flag keeps file depth",
				file:     "depth: 3\n",
				flags:    []string{"--depth", "deep"},
				expected: 3,
				warning:  "ignoring invalid --depth flag",
			},
			{
				name:     "file depth 0 with invalid argument",
				file:     "depth: 0\n",
				args:     []string{"abc"},
				expected: config.DefaultDepth,
				warning:  "ignoring invalid depth argument",
			},
			{
				name:     "non-integer file depth",
				file:     "depth: abc\n",
				expected: config.DefaultDepth,
				warning:  "ignoring invalid depth in config file",
			},
			{
				name:     "negative file depth",
				file:     "depth: -2\n",
				expected: config.DefaultDepth,
				warning:  "ignoring invalid depth in config file",
			},
			{
				name:     "invalid file depth overridden by argument",
				file:     "depth: -2\n",
				args:     []string{"4"},
				expected: 4,
				warning:  "ignoring invalid depth in config file",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				var logs bytes.Buffer
				logger := slog.New(slog.NewTextHandler(&logs, nil))

				cmd := NewCrawlCmd()
				flags := append([]string{"--config", writeConfig(t, tt.file)}, tt.flags...)
				if err := cmd.ParseFlags(flags); err != nil {
					t.Fatal(err)
				}
				cfg, err := buildConfig(cmd, append([]string{"https://example.com"}, tt.args...), logger)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if cfg.Depth != tt.expected {
					t.Errorf("expected depth %d, got %d", tt.expected, cfg.Depth)
				}
				if err := cfg.Validate(); err != nil {
					t.Errorf("expected a valid config, got %v", err)
				}
				if !strings.Contains(logs.String(), tt.warning) {
					t.Errorf("expected warning %q, got %q", tt.warning, logs.String())
				}
			})
		}
	})

	t.Run("header flags are parsed", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{
			"--config", writeConfig(t, "headers:\n  X-From-File: file\n"),
			"-H", "x-api-key: abc",
			"-H", "X-From-File: flag",
		}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Headers["X-Api-Key"] != "abc" {
			t.Errorf("expected canonical header key, got %v", cfg.Headers)
		}
		if cfg.Headers["X-From-File"] != "flag" {
			t.Errorf("expected flag to override file header, got %v", cfg.Headers)
		}
	})

	t.Run("malformed header flag is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "{}\n"), "-H", "no-colon"}); err != nil {
			t.Fatal(err)
		}
		_, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger())
		if !errors.Is(err, config.ErrInvalidHeader) {
			t.Errorf("expected ErrInvalidHeader, got %v", err)
		}
	})

	t.Run("no-history disables the database", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "{}\n"), "--no-history"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		missing := filepath.Join(t.TempDir(), "missing.yaml")
		if err := cmd.ParseFlags([]string{"--config", missing}); err != nil {
			t.Fatal(err)
		}
		_, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger())
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid config file is an error", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		if err := cmd.ParseFlags([]string{"--config", writeConfig(t, "invalid: yaml: content: [")}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"https://example.com"}, discardLogger()); err == nil {
			t.Error("expected error for invalid config file")
		}
	})
}

func TestRunCrawlCmd(t *testing.T) {
	t.Parallel()

	t.Run("writes result file, report and history", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		dir := t.TempDir()
		resultPath := filepath.Join(dir, "out", "result.txt")
		dbDir := filepath.Join(dir, "db")

		stdout, _, err := executeCrawl(t,
			"--config", writeConfig(t, "{}\n"),
			"--output", resultPath,
			"--db-dir", dbDir,
			server.URL+"/", "2",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(resultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		want := fmt.Sprintf("2\t%[1]s/b\n1\t%[1]s/\n1\t%[1]s/a\n", server.URL)
		if string(content) != want {
			t.Errorf("unexpected result file:\n%s\nwant:\n%s", content, want)
		}

		if !strings.Contains(stdout, "LINKCRAWL REPORT") {
			t.Errorf("expected simple report on stdout, got %q", stdout)
		}

		db, err := database.Open(dbDir, database.DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(t.Context(), 0)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].UniqueURLs != 3 || runs[0].TotalHits != 4 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("json report", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		stdout, _, err := executeCrawl(t,
			"--config", writeConfig(t, "{}\n"),
			"--output", filepath.Join(t.TempDir(), "result.txt"),
			"--no-history",
			"--json",
			server.URL+"/", "1",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("stdout is not JSON: %v\n%s", err, stdout)
		}
		if got.Seed != server.URL+"/" || got.Depth != 1 || got.UniqueURLs != 3 {
			t.Errorf("unexpected report %+v", got)
		}
	})

	t.Run("markdown report", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		stdout, _, err := executeCrawl(t,
			"--config", writeConfig(t, "{}\n"),
			"--output", filepath.Join(t.TempDir(), "result.txt"),
			"--no-history",
			"--markdown",
			server.URL+"/", "0",
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "# linkcrawl Report") {
			t.Errorf("expected markdown report, got %q", stdout)
		}
	})

	t.Run("seed and depth from config file", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		resultPath := filepath.Join(t.TempDir(), "result.txt")
		cfgPath := writeConfig(t, fmt.Sprintf("url: %s/a\ndepth: 1\noutput: %s\n", server.URL, resultPath))

		if _, _, err := executeCrawl(t, "--config", cfgPath, "--no-history"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(resultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		want := fmt.Sprintf("1\t%[1]s/a\n1\t%[1]s/b\n", server.URL)
		if string(content) != want {
			t.Errorf("unexpected result file:\n%s\nwant:\n%s", content, want)
		}
	})

	t.Run("host headers from config file are sent", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		resultPath := filepath.Join(t.TempDir(), "result.txt")
		cfgPath := writeConfig(t, `sites:
  127.0.0.1:
    headers:
      X-Token: let-me-in
`)

		if _, _, err := executeCrawl(t, "--config", cfgPath, "--no-history",
			"--output", resultPath, server.URL+"/private", "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(resultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		if !strings.Contains(string(content), server.URL+"/secret") {
			t.Errorf("expected the header-protected link, got:\n%s", content)
		}
	})

	t.Run("result file is truncated on each run", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		resultPath := filepath.Join(t.TempDir(), "result.txt")
		cfgPath := writeConfig(t, "{}\n")

		for _, depth := range []string{"2", "0"} {
			if _, _, err := executeCrawl(t, "--config", cfgPath, "--no-history",
				"--output", resultPath, server.URL+"/", depth); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		content, err := os.ReadFile(resultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		if want := "1\t" + server.URL + "/\n"; string(content) != want {
			t.Errorf("expected only the second run's result, got:\n%s", content)
		}
	})

	t.Run("missing seed URL", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCrawl(t, "--config", writeConfig(t, "depth: 1\n"), "--no-history")
		if !errors.Is(err, config.ErrNoSeedURL) {
			t.Errorf("expected ErrNoSeedURL, got %v", err)
		}
	})

	t.Run("conflicting report formats", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCrawl(t, "--config", writeConfig(t, "{}\n"), "--no-history",
			"--json", "--markdown", "https://example.com")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCrawl(t, "--config", writeConfig(t, "{}\n"), "--no-history",
			"--proxy", "not-a-proxy", "https://example.com")
		if !errors.Is(err, config.ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("unreachable seed still writes a result", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		resultPath := filepath.Join(t.TempDir(), "result.txt")
		_, stderr, err := executeCrawl(t, "--config", writeConfig(t, "{}\n"), "--no-history",
			"--output", resultPath, server.URL+"/", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(resultPath)
		if err != nil {
			t.Fatalf("failed to read result file: %v", err)
		}
		if want := "1\t" + server.URL + "/\n"; string(content) != want {
			t.Errorf("expected the seed only, got:\n%s", content)
		}
		if !strings.Contains(stderr, "failed to extract links") {
			t.Errorf("expected a warning on stderr, got %q", stderr)
		}
	})
}

func TestRunCrawlInterrupted(t *testing.T) {
	t.Parallel()

	server := newTestSite(t)
	cfg := config.NewConfig()
	cfg.SeedURL = server.URL + "/"
	cfg.Depth = 2
	cfg.OutputFile = filepath.Join(t.TempDir(), "result.txt")
	cfg.SaveToDB = false

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	err := runCrawl(ctx, cfg, &bytes.Buffer{}, discardLogger())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// The seed is registered before any fetch, so the partial result has it.
	content, readErr := os.ReadFile(cfg.OutputFile)
	if readErr != nil {
		t.Fatalf("expected a partial result file: %v", readErr)
	}
	if !strings.Contains(string(content), server.URL+"/") {
		t.Errorf("expected the seed in the partial result, got %q", content)
	}
}
