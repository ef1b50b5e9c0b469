// Package browser defines the rendering capability a site walk drives and
// ships the backends that implement it.
//
// A Browser is one session that renders one page at a time. It is not
// reentrant: callers must never issue a navigation while another call on the
// same session is in flight.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Browser is a single rendering session.
type Browser interface {
	// Navigate loads url and returns once the document has loaded.
	Navigate(ctx context.Context, url string) error

	// Location returns the URL of the currently rendered document.
	Location(ctx context.Context) (string, error)

	// HTML returns the current serialized page markup.
	HTML(ctx context.Context) (string, error)

	// Elements returns handles for every element with the given tag name,
	// in document order. A page without matches yields an empty slice.
	Elements(ctx context.Context, tag string) ([]Element, error)

	// Close tears the session down.
	Close() error

	// Type identifies the backend ("chrome", "rod", "static", ...).
	Type() string
}

// Element is a handle to a live DOM element.
type Element interface {
	// Eval calls the JavaScript function declaration fn with this bound to
	// the element. When res is non-nil the JSON-serializable return value is
	// decoded into it.
	Eval(ctx context.Context, fn string, res any) error
}

// Element scripts understood by every backend.
const (
	ScriptOuterHTML      = `function() { return this.outerHTML; }`
	ScriptScrollIntoView = `function() { this.scrollIntoView(); }`

	// ScriptMouseDown dispatches a synthetic mousedown rather than a native
	// click so handlers bound to mousedown fire without focus or hit-testing.
	ScriptMouseDown = `function() {
	const ev = document.createEvent('MouseEvents');
	ev.initMouseEvent('mousedown', true, true, window, 0, 0, 0, 0, 0,
		false, false, false, false, 0, null);
	this.dispatchEvent(ev);
}`
)

var (
	// ErrNavigation wraps every failure to load a URL.
	ErrNavigation = errors.New("navigation failed")

	// ErrNoBrowser is returned when no browser binary can be located.
	ErrNoBrowser = errors.New("no Chrome/Chromium binary found")

	// ErrElementDetached is returned when an element handle no longer
	// refers to a node in the current document.
	ErrElementDetached = errors.New("element is no longer attached")

	// ErrUnsupported is returned by backends that cannot run scripts.
	ErrUnsupported = errors.New("operation not supported by this browser")
)

// Mode selects a backend.
type Mode string

const (
	ModeChrome Mode = "chrome" // chromedp, the default
	ModeRod    Mode = "rod"
	ModeStatic Mode = "static" // colly, no script execution
)

// Config holds backend configuration. Fields a backend does not use are
// ignored.
type Config struct {
	UserAgent    string
	ChromePath   string // explicit browser binary; looked up when empty
	Headless     bool
	Stealth      bool // chrome only: inject anti-detection patches
	WindowWidth  int
	WindowHeight int
	Timeout      time.Duration // static only: per-request timeout
	MaxBodySize  int           // static only: response size cap in bytes, 0 = colly default
}

// Chrome user agent for better compatibility
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:    defaultUserAgent,
		Headless:     true,
		WindowWidth:  1920,
		WindowHeight: 1080,
		Timeout:      30 * time.Second,
	}
}

// New opens a session for the given mode.
func New(ctx context.Context, mode Mode, cfg Config) (Browser, error) {
	switch mode {
	case ModeChrome, "":
		return NewChrome(ctx, cfg)
	case ModeRod:
		return NewRod(ctx, cfg)
	case ModeStatic:
		return NewStatic(cfg), nil
	default:
		return nil, fmt.Errorf("unknown browser mode: %s (use chrome, rod, or static)", mode)
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.UserAgent == "" {
		c.UserAgent = def.UserAgent
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = def.WindowWidth
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = def.WindowHeight
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
}
