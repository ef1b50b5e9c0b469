package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/siteatlas/internal/config"
	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/internal/output"
	"github.com/jmylchreest/siteatlas/pkg/siteatlas"
)

// progressRecord is one line of --progress output.
type progressRecord struct {
	siteatlas.PageVisit
	Error string `json:"error,omitempty"`
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [url...]",
	Short: "Map every page reachable from the seed URLs",
	Long: `Crawl walks a site depth-first from one or more seed URLs, following
anchors and script-driven buttons on allowed domains, and reports every URL
it found.

Examples:
  # Map a site, two levels below the seed
  siteatlas crawl https://example.com --max-depth 2

  # Several seeds sharing one map, stop after 100 pages
  siteatlas crawl -u https://example.com -u https://blog.example.com --max-pages 100

  # Stream one JSON line per visited page to stderr
  siteatlas crawl https://example.com --progress -q`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	flags := crawlCmd.Flags()
	def := config.Default()

	// URL inputs
	flags.StringSliceP("url", "u", nil, "seed URL(s) (can be repeated; positional URLs also work)")

	// Crawling settings
	flags.IntP("max-depth", "d", def.MaxDepth, "max link depth (0=seeds only, -1=unlimited)")
	flags.Int("max-pages", 0, "max pages to visit (0=unlimited)")
	flags.Duration("deadline", 0, "bound on the whole crawl (0=none)")
	flags.Bool("fail-fast", false, "stop at the first page that fails to load")
	flags.Bool("progress", false, "write a JSON line per visited page to stderr")

	bindFlags(flags, map[string]string{
		"max_depth": "max-depth",
		"max_pages": "max-pages",
		"deadline":  "deadline",
		"fail_fast": "fail-fast",
	})
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Debug("crawl command starting")

	seeds, _ := cmd.Flags().GetStringSlice("url")
	seeds = append(seeds, args...)
	if len(seeds) == 0 {
		return cmd.Help()
	}
	if err := checkSeeds(seeds); err != nil {
		logError("%v", err)
		return err
	}
	logger.Debug("seeds to crawl", "count", len(seeds), "urls", seeds)

	var extra []siteatlas.Option
	if progress, _ := cmd.Flags().GetBool("progress"); progress {
		pw := output.NewJSONLWriter(os.Stderr)
		extra = append(extra, siteatlas.WithObserver(func(v siteatlas.PageVisit) {
			rec := progressRecord{PageVisit: v}
			if v.Err != nil {
				rec.Error = v.Err.Error()
			}
			if err := pw.Write(rec); err != nil {
				logger.Warn("failed to write progress", "error", err)
			}
		}))
	}

	a, err := openAtlas(ctx, cfg, extra...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = a.Close() }()

	logger.Info("starting crawl",
		"seeds", len(seeds),
		"browser", a.Browser(),
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages)

	started := time.Now()
	m, crawlErr := a.Crawl(ctx, seeds...)
	if crawlErr != nil {
		// The partial map is still worth writing.
		logger.Error("crawl stopped early", "error", crawlErr)
	}

	st := a.Stats()
	report := output.NewReport(seeds, reportDomains(cfg, seeds), m)
	report.Finish(a.Browser(), started, st.Pages, st.Failed)
	if err := writeReport(cfg, report); err != nil {
		return err
	}

	logInfo("Mapped %s allowed and %s ignored URLs from %s pages in %s",
		humanize.Comma(int64(m.AllowedLen())),
		humanize.Comma(int64(m.IgnoredLen())),
		humanize.Comma(int64(st.Pages)),
		report.Stats.Duration)
	if st.Failed > 0 && !viper.GetBool("fail_fast") {
		logInfo("%s pages failed to load and were skipped", humanize.Comma(int64(st.Failed)))
	}

	return crawlErr
}
