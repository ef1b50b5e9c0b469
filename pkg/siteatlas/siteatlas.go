package siteatlas

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/jmylchreest/siteatlas/internal/crawler"
	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
)

// Re-exported crawler types and errors.
var (
	// ErrNoSeeds is returned by Crawl when no seed URL is given.
	ErrNoSeeds = crawler.ErrNoSeeds
)

// PageVisit describes one visited page.
type PageVisit = crawler.PageVisit

// Version returns the module version of the siteatlas library, "(devel)"
// when built from source.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.Main.Version
	}
	return "(unknown)"
}

// Stats counts the pages of the most recent Crawl or Links call.
type Stats struct {
	Pages  int // navigations attempted
	Failed int // navigations that failed
}

// Atlas maps websites through one browser session. Calls are serialized:
// the session renders one page at a time.
type Atlas struct {
	mu      sync.Mutex
	browser browser.Browser
	owned   bool
	config  Config
	stats   Stats
}

// New creates an Atlas, launching a browser unless WithBrowser was given.
// ctx bounds the launch only.
func New(ctx context.Context, opts ...Option) (*Atlas, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Atlas{config: cfg}
	if cfg.session != nil {
		a.browser = cfg.session
		return a, nil
	}

	b, err := browser.New(ctx, cfg.Mode, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	logger.Debug("browser session opened", "browser", b.Type())

	a.browser = b
	a.owned = true
	return a, nil
}

// Crawl maps every page reachable from seeds within the configured bounds.
// The seeds' hosts are always allowed. On error the map built so far is
// returned with it.
func (a *Atlas) Crawl(ctx context.Context, seeds ...string) (sitemap.SiteMap, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := crawler.New(a.browser, a.crawlConfig())
	return c.Crawl(ctx, seeds, a.domains())
}

// Links maps a single page: its anchors and, when interactive discovery is
// on, its button targets. Nothing is followed.
func (a *Atlas) Links(ctx context.Context, url string) (sitemap.SiteMap, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats = Stats{Pages: 1}
	c := crawler.New(a.browser, a.config.Crawl)
	m, err := c.Page(ctx, url, a.domains())
	if err != nil {
		a.stats.Failed = 1
	}
	return m, err
}

// Stats returns the page counts of the most recent call.
func (a *Atlas) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Browser returns the backend name.
func (a *Atlas) Browser() string {
	return a.browser.Type()
}

// Close releases the browser session if Atlas launched it.
func (a *Atlas) Close() error {
	if a.owned && a.browser != nil {
		return a.browser.Close()
	}
	return nil
}

// crawlConfig wraps the configured observer to keep Stats. Called with mu
// held.
func (a *Atlas) crawlConfig() crawler.Config {
	a.stats = Stats{}
	cfg := a.config.Crawl
	next := cfg.Observer
	cfg.Observer = func(v PageVisit) {
		a.stats.Pages++
		if v.Err != nil {
			a.stats.Failed++
		}
		if next != nil {
			next(v)
		}
	}
	return cfg
}

func (a *Atlas) domains() sitemap.Domains {
	return sitemap.NewDomains(a.config.AllowedDomains...)
}
