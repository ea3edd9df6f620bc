package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/nao1215/linkcrawl/internal/config"
	"github.com/nao1215/linkcrawl/internal/crawler"
	"github.com/nao1215/linkcrawl/internal/database"
	"github.com/nao1215/linkcrawl/internal/log"
	"github.com/nao1215/linkcrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url] [depth]",
		Short: "Crawl a site and count how often each URL is reached",
		Long: `Crawl fetches the seed URL, follows every http(s) link on it, and repeats
for each linked page until the maximum depth is reached.

Each URL is fetched at most once per run, but every time a page links to it
its hit count goes up. When the crawl finishes, the counts are written to the
result file (one "<count>\t<url>" line per URL), a summary is printed, and
the run is stored in the history database.

The seed URL and depth can come from the configuration file, flags or the
positional arguments, in increasing order of precedence. An invalid or
negative depth from any of them is ignored with a warning, and the depth
configured so far is used instead (1 when that depth is 0).

Examples:
  # Crawl a site down to depth 2
  linkcrawl crawl https://example.com 2

  # Same, using flags
  linkcrawl crawl https://example.com --depth 2 --output out/result.txt

  # Print the report as JSON
  linkcrawl crawl --json https://example.com

  # Send an extra header and crawl through a SOCKS5 proxy
  linkcrawl crawl -H "Authorization: Bearer token" --proxy 127.0.0.1:1080 https://example.com

  # Use the seed URL and depth from a configuration file
  linkcrawl crawl -c myconfig.yaml`,
		Args: cobra.MaximumNArgs(2),
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().StringP("depth", "d", strconv.Itoa(config.DefaultDepth),
		"Maximum link depth (0 records the seed only)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with each request")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes read per page")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy at host:port")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header as "Key: Value" (repeatable)`)

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .linkcrawl in current or home directory)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Result file path (creates directories if needed)")
	cmd.Flags().BoolP("json", "j", false,
		"Print the report as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Print the report as Markdown (mutually exclusive with --json)")

	// History flags
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	logger := log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)

	cfg, err := buildConfig(cmd, args, logger)
	if err != nil {
		return err
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig creates a Config from defaults, the configuration file, the
// flags that were set explicitly and the positional arguments, in that order.
func buildConfig(cmd *cobra.Command, args []string, logger *slog.Logger) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}
	if err := loadConfigFile(cfg, logger); err != nil {
		return nil, err
	}

	// Only flags the user set override the file; flag defaults do not.
	if flags.Changed("depth") {
		raw, err := flags.GetString("depth")
		if err != nil {
			return nil, err
		}
		cfg.Depth = resolveDepth(raw, cfg.Depth, "ignoring invalid --depth flag", logger)
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-body-size") {
		if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.OutputFile, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}

	headers, err := flags.GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, h := range headers {
		key, value, err := config.ParseHeader(h)
		if err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
		cfg.Headers[key] = value
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	// Positional arguments have the highest precedence.
	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	if len(args) > 1 {
		cfg.Depth = resolveDepth(args[1], cfg.Depth, "ignoring invalid depth argument", logger)
	}

	return cfg, nil
}

// resolveDepth parses raw, or warns with msg and returns the fallback for
// the depth configured so far.
func resolveDepth(raw string, configured int, msg string, logger *slog.Logger) int {
	depth, err := config.ResolveDepth(raw, configured)
	if err != nil {
		logger.Warn(msg, "depth", raw, "fallback", depth, "error", err)
	}
	return depth
}

// loadConfigFile applies the configuration file to cfg.
// A missing file is only an error when the user named it with --config.
// An invalid depth in the file is replaced by the default with a warning.
func loadConfigFile(cfg *config.Config, logger *slog.Logger) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath == "" {
		if explicitConfigPath {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	if err := cfg.ApplyFile(file); err != nil {
		logger.Warn("ignoring invalid depth in config file",
			"path", configPath,
			"fallback", cfg.Depth,
			"error", err,
		)
	}
	return nil
}

// runCrawl crawls cfg.SeedURL and writes the report to the result file,
// to out, and to the history database.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	client, err := crawler.NewHTTPClient(cfg.Timeout, cfg.ProxyAddress)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	extractor := crawler.NewHTTPExtractor(client,
		crawler.WithUserAgent(cfg.UserAgent),
		crawler.WithMaxBodySize(cfg.MaxBodySize),
		crawler.WithHeaders(cfg.Headers),
		crawler.WithHostHeaders(cfg.HostHeaders()),
	)

	fileSink := report.NewFileSink(cfg.OutputFile)
	sinks := []report.Sink{fileSink, newReportWriter(cfg, out)}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
		sinks = append(sinks, db)
	}

	logger.Info("starting crawl",
		"url", cfg.SeedURL,
		"depth", cfg.Depth,
		"proxy", cfg.ProxyAddress != "",
		"save_to_db", cfg.SaveToDB,
	)

	engine := crawler.NewEngine(extractor, report.NewMultiSink(sinks...), crawler.WithLogger(logger))
	if err := engine.Crawl(ctx, cfg.SeedURL, cfg.Depth); err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}

	// An interrupted crawl still writes what it found.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted, partial result written to %s: %w", fileSink.Path(), err)
	}

	logger.Info("result file written", "path", fileSink.Path())
	return nil
}

// newReportWriter returns the writer for the report printed to out.
func newReportWriter(cfg *config.Config, out io.Writer) report.Sink {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		return report.NewSimpleWriter(out)
	}
}
