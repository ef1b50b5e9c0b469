package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
	"github.com/jmylchreest/siteatlas/pkg/urlnorm"
)

var (
	// ErrNoSeeds is returned when Crawl is called without seed URLs.
	ErrNoSeeds = errors.New("no seed URLs")

	// ErrPageLimit stops the walk once MaxPages pages were visited. Crawl
	// treats it as a normal end and never returns it.
	ErrPageLimit = errors.New("page limit reached")
)

// PageVisit describes one visited page. It is passed to Config.Observer.
type PageVisit struct {
	URL         string        `json:"url"`
	Depth       int           `json:"depth"`
	Allowed     int           `json:"allowed"`     // allowed URLs found on the page
	Ignored     int           `json:"ignored"`     // ignored URLs found on the page
	Interactive int           `json:"interactive"` // allowed URLs found through buttons
	New         int           `json:"new"`         // allowed URLs not seen before
	Pending     int           `json:"pending"`     // pages waiting after this one
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// Config holds crawler configuration.
type Config struct {
	// Depth bound. Seeds are depth 0 and always visited; a page at depth d
	// is only visited when d < MaxDepth. Negative means unlimited.
	MaxDepth int

	// Limits
	MaxPages          int           // Max pages to navigate to (0 = unlimited)
	NavigationTimeout time.Duration // Bound on each navigation (0 = none)
	Deadline          time.Duration // Bound on the whole crawl (0 = none)

	// Rendering
	Wait   time.Duration // Settle time after each navigation
	Settle time.Duration // Settle time after each button press

	// Interactive enables button discovery on every page.
	Interactive bool

	// FailFast aborts the crawl on the first navigation failure instead of
	// skipping the page.
	FailFast bool

	// Observer, when set, is called after every page visit.
	Observer func(PageVisit)
}

// DefaultConfig returns sensible crawler defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:          10,
		NavigationTimeout: 30 * time.Second,
		Wait:              100 * time.Millisecond,
		Settle:            250 * time.Millisecond,
		Interactive:       true,
	}
}

// Crawler walks a site through a single browser session. It is not safe for
// concurrent use: the session renders one page at a time.
type Crawler struct {
	browser browser.Browser
	config  Config
}

// New creates a new Crawler.
func New(b browser.Browser, cfg Config) *Crawler {
	return &Crawler{
		browser: b,
		config:  cfg,
	}
}

// Crawl maps every page reachable from seeds. The host of each seed is added
// to a private copy of allowed just before that seed is walked; the caller's
// set is never modified.
//
// Seeds are walked one after another, depth-first, sharing one accumulated
// map so no page is visited twice. A page that fails to load is logged and
// skipped unless FailFast is set, in which case the map built so far is
// returned with the error. The same applies when ctx is cancelled or the
// deadline passes.
func (c *Crawler) Crawl(ctx context.Context, seeds []string, allowed sitemap.Domains) (sitemap.SiteMap, error) {
	if len(seeds) == 0 {
		return sitemap.SiteMap{}, ErrNoSeeds
	}

	if c.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Deadline)
		defer cancel()
	}

	domains := allowed.Clone()

	logger.Debug("crawler starting",
		"seeds", len(seeds),
		"max_depth", c.config.MaxDepth,
		"max_pages", c.config.MaxPages,
		"domains", domains.List(),
		"browser", c.browser.Type())

	w := &walk{
		crawler: c,
		domains: domains,
		acc:     sitemap.NewBuilder(),
		visited: make(map[string]struct{}),
	}

	start := time.Now()
	var err error
	for _, seed := range seeds {
		// The allow-list grows seed by seed: a URL ignored while walking an
		// earlier seed stays ignored there even if a later seed allows it.
		if w.domains.Add(urlnorm.Domain(seed)) {
			logger.Debug("allow-listing seed domain", "domain", urlnorm.Domain(seed))
		}
		logger.Info("seed", "url", seed)
		if err = w.run(ctx, seed); err != nil {
			break
		}
	}
	if errors.Is(err, ErrPageLimit) {
		logger.Info("page limit reached", "max_pages", c.config.MaxPages)
		err = nil
	}

	result := w.acc.SiteMap()
	logger.Info("crawl complete",
		"pages", len(w.visited),
		"allowed", result.AllowedLen(),
		"ignored", result.IgnoredLen(),
		"duration", time.Since(start).Round(time.Millisecond))

	return result, err
}

// Page maps a single page without following anything: the anchors on url
// plus, when Interactive is set, its button targets. The host of url is
// allow-listed as for a crawl seed.
func (c *Crawler) Page(ctx context.Context, url string, allowed sitemap.Domains) (sitemap.SiteMap, error) {
	domains := allowed.Clone()
	domains.Add(urlnorm.Domain(url))
	m, _, err := c.visit(ctx, url, domains)
	return m, err
}

// walk is the state shared by every page of one Crawl call.
type walk struct {
	crawler *Crawler
	domains sitemap.Domains
	acc     *sitemap.Builder
	visited map[string]struct{}
}

// run walks the pages reachable from seed.
func (w *walk) run(ctx context.Context, seed string) error {
	if _, ok := w.visited[seed]; ok {
		logger.Debug("seed already visited", "url", seed)
		return nil
	}

	cfg := w.crawler.config
	pending := newFrontier()
	pending.Push(seed, 0)

	for {
		url, depth, ok := pending.Pop()
		if !ok {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if cfg.MaxPages > 0 && len(w.visited) >= cfg.MaxPages {
			return ErrPageLimit
		}

		logger.Info("visiting", "url", url, "depth", depth)
		w.visited[url] = struct{}{}

		start := time.Now()
		found, interactive, err := w.crawler.visit(ctx, url, w.domains)
		visit := PageVisit{
			URL:         url,
			Depth:       depth,
			Allowed:     found.AllowedLen(),
			Ignored:     found.IgnoredLen(),
			Interactive: interactive,
			Duration:    time.Since(start),
			Err:         err,
		}

		if err != nil {
			visit.Pending = pending.Len()
			w.crawler.observe(visit)
			if cfg.FailFast || ctx.Err() != nil {
				return err
			}
			logger.Warn("skipping page", "url", url, "error", err)
			continue
		}

		// A page that loaded is allowed whatever its links say.
		w.acc.AddAllowed(url)
		unseen := w.acc.Unseen(found)
		w.acc.Merge(found)

		logger.Debug("page mapped",
			"url", url,
			"new_allowed", unseen.AllowedLen(),
			"new_ignored", unseen.IgnoredLen())

		if cfg.MaxDepth < 0 || depth+1 < cfg.MaxDepth {
			pending.PushChildren(unseen.Allowed(), depth+1)
		}

		visit.New = unseen.AllowedLen()
		visit.Pending = pending.Len()
		w.crawler.observe(visit)
	}
}

// visit renders url and returns the combined map of its anchors and button
// targets, together with the number of button targets.
func (c *Crawler) visit(ctx context.Context, url string, domains sitemap.Domains) (sitemap.SiteMap, int, error) {
	if err := c.navigate(ctx, url); err != nil {
		return sitemap.SiteMap{}, 0, err
	}
	if err := sleep(ctx, c.config.Wait); err != nil {
		return sitemap.SiteMap{}, 0, err
	}

	html, err := c.browser.HTML(ctx)
	if err != nil {
		return sitemap.SiteMap{}, 0, fmt.Errorf("failed to read %s: %w", url, err)
	}

	// Links resolve against the requested URL, not the final location.
	found := Extract(html, url, domains)
	if !c.config.Interactive {
		return found, 0, nil
	}

	buttons, err := Discover(ctx, c.browser, domains, c.config.Settle)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return found.Combine(buttons), buttons.AllowedLen(), ctxErr
		}
		logger.Info("interactive discovery incomplete", "url", url, "error", err)
	}
	return found.Combine(buttons), buttons.AllowedLen(), nil
}

func (c *Crawler) navigate(ctx context.Context, url string) error {
	if c.config.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.NavigationTimeout)
		defer cancel()
	}
	return c.browser.Navigate(ctx, url)
}

func (c *Crawler) observe(v PageVisit) {
	if c.config.Observer != nil {
		c.config.Observer(v)
	}
}
