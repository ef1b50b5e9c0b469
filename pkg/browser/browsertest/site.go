// Package browsertest provides an in-memory browser.Browser for tests.
//
// A Site holds a fixed set of pages keyed by URL. Each page has markup and an
// optional list of buttons whose synthetic mousedown moves the session to a
// target URL, the way a script-driven navigation handler would.
package browsertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jmylchreest/siteatlas/pkg/browser"
)

// Button is a clickable element on a page.
type Button struct {
	// Markup is the element's serialized outer HTML. Buttons with identical
	// markup are indistinguishable to fingerprinting.
	Markup string

	// Target is where a mousedown navigates. Empty means the handler does
	// not navigate.
	Target string

	// Inject lists buttons added to the page once this button is pressed.
	Inject []Button

	// Fail makes every interaction with the button fail as if it were
	// detached.
	Fail bool

	// FailPress lets the button be read but makes scrolling it into view
	// fail, so it can never be pressed.
	FailPress bool

	// LoseLocation makes the Location call following a mousedown fail once,
	// after the handler has navigated to Target.
	LoseLocation bool
}

// Page is a renderable document.
type Page struct {
	HTML    string
	Buttons []Button
}

// Site is a scripted browser session. It is safe for concurrent inspection,
// but like any browser.Browser it renders one page at a time.
type Site struct {
	mu          sync.Mutex
	pages       map[string]Page
	dom         map[string][]Button
	failures    map[string]error
	location    string
	navigations []string
	attempts    []string
	presses     []string
	locationErr error
	closed      bool
}

var _ browser.Browser = (*Site)(nil)

// NewSite returns an empty site.
func NewSite() *Site {
	return &Site{
		pages:    make(map[string]Page),
		dom:      make(map[string][]Button),
		failures: make(map[string]error),
	}
}

// Add registers a page. It returns the site for chaining.
func (s *Site) Add(url string, p Page) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[url] = p
	s.dom[url] = slices.Clone(p.Buttons)
	return s
}

// FailNavigation makes every navigation to url fail with err.
func (s *Site) FailNavigation(url string, err error) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[url] = err
	return s
}

// Navigations returns every URL passed to Navigate, in call order.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.navigations)
}

// Attempts returns the markup of every button a press was started on, in
// order, whether or not the press succeeded.
func (s *Site) Attempts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.attempts)
}

// Presses returns the markup of every button that received a mousedown.
func (s *Site) Presses() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.presses)
}

// Closed reports whether Close was called.
func (s *Site) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Navigate implements browser.Browser.
func (s *Site) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s: %v", browser.ErrNavigation, url, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.navigations = append(s.navigations, url)
	if err, ok := s.failures[url]; ok {
		return fmt.Errorf("%w: %s: %v", browser.ErrNavigation, url, err)
	}
	if _, ok := s.pages[url]; !ok {
		return fmt.Errorf("%w: %s: not found", browser.ErrNavigation, url)
	}
	s.location = url
	return nil
}

// Location implements browser.Browser.
func (s *Site) Location(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.locationErr; err != nil {
		s.locationErr = nil
		return "", err
	}
	return s.location, nil
}

// HTML implements browser.Browser.
func (s *Site) HTML(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages[s.location].HTML, nil
}

// Elements implements browser.Browser. Only "button" is populated.
func (s *Site) Elements(_ context.Context, tag string) ([]browser.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag != "button" {
		return []browser.Element{}, nil
	}
	buttons := s.dom[s.location]
	elements := make([]browser.Element, 0, len(buttons))
	for i := range buttons {
		elements = append(elements, &element{site: s, page: s.location, index: i})
	}
	return elements, nil
}

// Close implements browser.Browser.
func (s *Site) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Type implements browser.Browser.
func (s *Site) Type() string {
	return "fake"
}

type element struct {
	site  *Site
	page  string
	index int
}

func (e *element) Eval(ctx context.Context, fn string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s := e.site
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.location != e.page || e.index >= len(s.dom[e.page]) {
		return browser.ErrElementDetached
	}
	b := s.dom[e.page][e.index]
	if b.Fail {
		return fmt.Errorf("%w: %s", browser.ErrElementDetached, b.Markup)
	}

	switch fn {
	case browser.ScriptOuterHTML:
		return assign(res, b.Markup)
	case browser.ScriptScrollIntoView:
		s.attempts = append(s.attempts, b.Markup)
		if b.FailPress {
			return fmt.Errorf("%w: %s is not interactable", browser.ErrElementDetached, b.Markup)
		}
		return nil
	case browser.ScriptMouseDown:
		s.presses = append(s.presses, b.Markup)
		s.dom[e.page] = append(s.dom[e.page], b.Inject...)
		if b.Target != "" {
			s.location = b.Target
		}
		if b.LoseLocation {
			s.locationErr = errors.New("target closed while reading location")
		}
		return nil
	default:
		return errors.Join(browser.ErrUnsupported, fmt.Errorf("script %q", fn))
	}
}

// assign copies v into res the way a JSON-returning backend would.
func assign(res, v any) error {
	if res == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}
