package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/internal/output"
)

var linksCmd = &cobra.Command{
	Use:   "links <url>",
	Short: "List the links of a single page",
	Long: `Links renders one page and reports the URLs it links to, including
the targets of script-driven buttons. Nothing is followed.

Examples:
  siteatlas links https://example.com
  siteatlas links https://example.com --interactive=false --format text`,
	Args: cobra.ExactArgs(1),
	RunE: runLinks,
}

func init() {
	rootCmd.AddCommand(linksCmd)
}

func runLinks(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	url := args[0]
	if err := checkSeeds(args); err != nil {
		logError("%v", err)
		return err
	}

	a, err := openAtlas(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = a.Close() }()

	started := time.Now()
	m, err := a.Links(ctx, url)
	if err != nil {
		logger.Error("failed to map page", "url", url, "error", err)
		return err
	}

	st := a.Stats()
	report := output.NewReport(args, reportDomains(cfg, args), m)
	report.Finish(a.Browser(), started, st.Pages, st.Failed)
	return writeReport(cfg, report)
}
