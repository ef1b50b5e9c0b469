// Package siteatlas provides the public API for mapping the URL topology of
// a website.
package siteatlas

import (
	"time"

	"github.com/jmylchreest/siteatlas/internal/crawler"
	"github.com/jmylchreest/siteatlas/pkg/browser"
)

// Config holds all siteatlas configuration.
type Config struct {
	// Browser settings
	Mode    browser.Mode
	Browser browser.Config

	// Domains allowed besides the seeds' own.
	AllowedDomains []string

	// Crawling settings
	Crawl crawler.Config

	// session, when set, is used instead of launching a browser.
	session browser.Browser
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:    browser.ModeChrome,
		Browser: browser.DefaultConfig(),
		Crawl:   crawler.DefaultConfig(),
	}
}

// Option configures an Atlas.
type Option func(*Config)

// WithMode selects the browser backend (chrome, rod, static).
func WithMode(mode browser.Mode) Option {
	return func(c *Config) {
		c.Mode = mode
	}
}

// WithBrowser uses an existing session instead of launching one. The
// session is not closed by Atlas.Close.
func WithBrowser(b browser.Browser) Option {
	return func(c *Config) {
		c.session = b
	}
}

// WithBrowserConfig replaces the backend settings.
func WithBrowserConfig(bc browser.Config) Option {
	return func(c *Config) {
		c.Browser = bc
	}
}

// WithUserAgent sets the browser user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.Browser.UserAgent = ua
	}
}

// WithAllowedDomains adds netlocs whose URLs count as allowed.
func WithAllowedDomains(domains ...string) Option {
	return func(c *Config) {
		c.AllowedDomains = append(c.AllowedDomains, domains...)
	}
}

// WithMaxDepth sets the maximum link depth. Seeds are depth 0 and always
// visited; negative means unlimited.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		c.Crawl.MaxDepth = depth
	}
}

// WithMaxPages caps the number of navigations per crawl.
func WithMaxPages(n int) Option {
	return func(c *Config) {
		c.Crawl.MaxPages = n
	}
}

// WithWait sets the settle time after each navigation.
func WithWait(d time.Duration) Option {
	return func(c *Config) {
		c.Crawl.Wait = d
	}
}

// WithSettle sets the settle time after each button press.
func WithSettle(d time.Duration) Option {
	return func(c *Config) {
		c.Crawl.Settle = d
	}
}

// WithTimeout bounds each navigation.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Crawl.NavigationTimeout = d
		c.Browser.Timeout = d
	}
}

// WithCrawlDeadline bounds a whole crawl.
func WithCrawlDeadline(d time.Duration) Option {
	return func(c *Config) {
		c.Crawl.Deadline = d
	}
}

// WithInteractive toggles button discovery.
func WithInteractive(enabled bool) Option {
	return func(c *Config) {
		c.Crawl.Interactive = enabled
	}
}

// WithFailFast aborts a crawl on the first page that fails to load.
func WithFailFast(enabled bool) Option {
	return func(c *Config) {
		c.Crawl.FailFast = enabled
	}
}

// WithObserver is called after every visited page.
func WithObserver(fn func(PageVisit)) Option {
	return func(c *Config) {
		c.Crawl.Observer = fn
	}
}
