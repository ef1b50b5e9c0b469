// Package commands implements the CLI commands for siteatlas.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/siteatlas/internal/config"
	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/internal/output"
	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/siteatlas"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
	"github.com/jmylchreest/siteatlas/pkg/urlnorm"
)

var rootCmd = &cobra.Command{
	Use:   "siteatlas",
	Short: "Map the URL topology of a website",
	Long: `Siteatlas walks a website in a real browser and reports every URL it
can reach, split into URLs on allowed domains and URLs it ignored.

Links come from anchors and from buttons whose scripts navigate. The
domains of the seed URLs are always allowed.

Examples:
  # Map a site
  siteatlas crawl https://example.com

  # Also follow links to the docs subdomain, three levels deep
  siteatlas crawl https://example.com --allow docs.example.com --max-depth 3

  # List the links of one page without a browser
  siteatlas links https://example.com --browser static --format text`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()

	// Global flags
	pf.String("config", "", "config file (default $HOME/.siteatlas.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.BoolP("quiet", "q", false, "suppress progress output")
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides --debug and --quiet)")
	pf.Bool("log-json", false, "write logs as JSON")

	// Browser settings
	def := config.Default()
	pf.StringP("browser", "b", def.Browser, "browser backend: chrome, rod, static")
	pf.Bool("headless", def.Headless, "run the browser without a window")
	pf.String("chrome-path", "", "Chrome/Chromium binary (default: auto-detect)")
	pf.String("user-agent", def.UserAgent, "user agent to send")
	pf.Bool("stealth", false, "enable anti-bot detection evasion (chrome backend)")
	pf.String("max-page-size", "", "largest page to read, e.g. 5MB (static backend, 0=unlimited)")

	// Timing
	pf.Duration("timeout", def.Timeout, "bound on each navigation")
	pf.Duration("wait", def.Wait, "time to let a page settle after loading")
	pf.Duration("settle", def.Settle, "time to let a page react to a button press")

	// Discovery
	pf.StringSliceP("allow", "a", nil, "extra allowed domain (host[:port], can be repeated)")
	pf.Bool("interactive", def.Interactive, "press buttons to find script-driven links")

	// Output settings
	pf.StringP("output", "o", "", "output file (default: stdout)")
	pf.StringP("format", "f", def.Format, "output format: json, jsonl, yaml, text")

	bindFlags(pf, map[string]string{
		"config":          "config",
		"debug":           "debug",
		"quiet":           "quiet",
		"log_level":       "log-level",
		"log_json":        "log-json",
		"browser":         "browser",
		"headless":        "headless",
		"chrome_path":     "chrome-path",
		"user_agent":      "user-agent",
		"stealth":         "stealth",
		"max_page_size":   "max-page-size",
		"timeout":         "timeout",
		"wait":            "wait",
		"settle":          "settle",
		"allowed_domains": "allow",
		"interactive":     "interactive",
		"output":          "output",
		"format":          "format",
	})
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".siteatlas")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("SITEATLAS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())

	// Read config file (a missing one is fine)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && viper.GetString("config") != "" {
			logError("failed to read config file: %v", err)
		}
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// bindFlags binds viper keys to flag names.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

// setup initializes logging and resolves the configuration.
func setup() (config.Config, error) {
	if err := logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		Level: viper.GetString("log_level"),
		JSON:  viper.GetBool("log_json"),
	}); err != nil {
		logError("%v", err)
	}

	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return config.Config{}, err
	}
	logger.Debug("configuration resolved", "config", cfg)
	return cfg, nil
}

// openAtlas starts a browser session configured from cfg.
func openAtlas(ctx context.Context, cfg config.Config, extra ...siteatlas.Option) (*siteatlas.Atlas, error) {
	cc := cfg.CrawlerConfig()
	opts := []siteatlas.Option{
		siteatlas.WithMode(browser.Mode(cfg.Browser)),
		siteatlas.WithBrowserConfig(cfg.BrowserConfig()),
		siteatlas.WithAllowedDomains(cfg.AllowedDomains...),
		siteatlas.WithMaxDepth(cc.MaxDepth),
		siteatlas.WithMaxPages(cc.MaxPages),
		siteatlas.WithCrawlDeadline(cc.Deadline),
		siteatlas.WithWait(cc.Wait),
		siteatlas.WithSettle(cc.Settle),
		siteatlas.WithInteractive(cc.Interactive),
		siteatlas.WithFailFast(cc.FailFast),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, siteatlas.WithTimeout(cfg.Timeout))
	}
	opts = append(opts, extra...)

	a, err := siteatlas.New(ctx, opts...)
	if err != nil {
		if errors.Is(err, browser.ErrNoBrowser) {
			logError("%v (install Chrome/Chromium, pass --chrome-path, or use --browser static)", err)
		}
		return nil, err
	}
	return a, nil
}

// checkSeeds rejects URLs that cannot be navigated to.
func checkSeeds(seeds []string) error {
	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("invalid URL %q: must be absolute, e.g. https://%s", s, s)
		}
	}
	return nil
}

// reportDomains is the allow-list a crawl of seeds ends up using.
func reportDomains(cfg config.Config, seeds []string) sitemap.Domains {
	d := sitemap.NewDomains(cfg.AllowedDomains...)
	for _, s := range seeds {
		d.Add(urlnorm.Domain(s))
	}
	return d
}

// writeReport writes r to the configured destination.
func writeReport(cfg config.Config, r output.Report) error {
	var out io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", cfg.Output, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}
	w, err := output.NewWriter(out, format)
	if err != nil {
		logger.Error("failed to create output writer", "format", cfg.Format, "error", err)
		return err
	}
	if err := output.WriteReport(w, r); err != nil {
		logger.Error("failed to write output", "error", err)
		return err
	}
	return w.Close()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
