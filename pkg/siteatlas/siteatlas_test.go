package siteatlas

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/browser/browsertest"
)

// newSite builds a small site spanning example.com and docs.example.com.
// The docs page links to a page that does not exist.
func newSite() *browsertest.Site {
	return browsertest.NewSite().
		Add("https://example.com/", browsertest.Page{
			HTML: `<a href="/a">A</a> <a href="https://other.org/x">X</a>`,
		}).
		Add("https://example.com/a", browsertest.Page{
			HTML: `<a href="/">Home</a> <a href="https://docs.example.com/d">Docs</a>`,
		}).
		Add("https://docs.example.com/d", browsertest.Page{
			HTML: `<a href="/e">Missing</a>`,
		})
}

func newAtlas(t *testing.T, site *browsertest.Site, opts ...Option) *Atlas {
	t.Helper()
	opts = append([]Option{WithBrowser(site), WithWait(0), WithSettle(0)}, opts...)
	a, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// --- Crawl Tests ---

func TestCrawl_SeedDomainOnly(t *testing.T) {
	a := newAtlas(t, newSite())

	m, err := a.Crawl(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if got, want := m.Allowed(), []string{"https://example.com/", "https://example.com/a"}; !slices.Equal(got, want) {
		t.Errorf("allowed = %v, want %v", got, want)
	}
	if got, want := m.Ignored(), []string{"https://docs.example.com/d", "https://other.org/x"}; !slices.Equal(got, want) {
		t.Errorf("ignored = %v, want %v", got, want)
	}
	if st := a.Stats(); st.Pages != 2 || st.Failed != 0 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCrawl_AllowedDomains(t *testing.T) {
	var visited []string
	a := newAtlas(t, newSite(),
		WithAllowedDomains("docs.example.com"),
		WithObserver(func(v PageVisit) { visited = append(visited, v.URL) }),
	)

	m, err := a.Crawl(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if m.AllowedLen() != 4 || m.IgnoredLen() != 1 {
		t.Errorf("allowed = %v, ignored = %v", m.Allowed(), m.Ignored())
	}
	wantVisited := []string{
		"https://example.com/",
		"https://example.com/a",
		"https://docs.example.com/d",
		"https://docs.example.com/e",
	}
	if !slices.Equal(visited, wantVisited) {
		t.Errorf("observer saw %v, want %v", visited, wantVisited)
	}
	if st := a.Stats(); st.Pages != 4 || st.Failed != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestCrawl_FailFast(t *testing.T) {
	a := newAtlas(t, newSite(), WithAllowedDomains("docs.example.com"), WithFailFast(true))

	m, err := a.Crawl(context.Background(), "https://example.com/")
	if !errors.Is(err, browser.ErrNavigation) {
		t.Fatalf("Crawl() error = %v, want ErrNavigation", err)
	}
	if !m.HasAllowed("https://example.com/a") {
		t.Errorf("partial map should be returned, got %v", m.Allowed())
	}
}

func TestCrawl_MaxDepth(t *testing.T) {
	a := newAtlas(t, newSite(), WithAllowedDomains("docs.example.com"), WithMaxDepth(0))

	m, err := a.Crawl(context.Background(), "https://example.com/")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if st := a.Stats(); st.Pages != 1 {
		t.Errorf("only the seed should be visited, got %+v", st)
	}
	if !m.HasAllowed("https://example.com/a") {
		t.Errorf("links on the seed should still be mapped, got %v", m.Allowed())
	}
}

func TestCrawl_NoSeeds(t *testing.T) {
	a := newAtlas(t, newSite())

	if _, err := a.Crawl(context.Background()); !errors.Is(err, ErrNoSeeds) {
		t.Errorf("Crawl() error = %v, want ErrNoSeeds", err)
	}
}

// --- Links Tests ---

func TestLinks(t *testing.T) {
	site := newSite()
	a := newAtlas(t, site)

	m, err := a.Links(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("Links() error = %v", err)
	}

	if got := m.Allowed(); !slices.Equal(got, []string{"https://example.com/"}) {
		t.Errorf("allowed = %v", got)
	}
	if got := m.Ignored(); !slices.Equal(got, []string{"https://docs.example.com/d"}) {
		t.Errorf("ignored = %v", got)
	}
	if got := site.Navigations(); len(got) != 1 {
		t.Errorf("Links should navigate once, got %v", got)
	}
}

func TestLinks_Failure(t *testing.T) {
	a := newAtlas(t, newSite())

	if _, err := a.Links(context.Background(), "https://example.com/missing"); err == nil {
		t.Fatal("expected error for unknown page")
	}
	if st := a.Stats(); st.Pages != 1 || st.Failed != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

// --- Lifecycle Tests ---

func TestClose_LeavesInjectedBrowserOpen(t *testing.T) {
	site := newSite()
	a, err := New(context.Background(), WithBrowser(site))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if site.Closed() {
		t.Error("an injected browser must not be closed")
	}
	if a.Browser() != "fake" {
		t.Errorf("Browser() = %q", a.Browser())
	}
}

func TestNew_StaticMode(t *testing.T) {
	a, err := New(context.Background(), WithMode(browser.ModeStatic))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = a.Close() }()

	if a.Browser() != "static" {
		t.Errorf("Browser() = %q, want static", a.Browser())
	}
}

func TestNew_UnknownMode(t *testing.T) {
	if _, err := New(context.Background(), WithMode("netscape")); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestOptions(t *testing.T) {
	cfg := DefaultConfig()
	for _, opt := range []Option{
		WithMaxDepth(-1),
		WithMaxPages(50),
		WithTimeout(0),
		WithCrawlDeadline(0),
		WithInteractive(false),
		WithUserAgent("atlas-test"),
		WithAllowedDomains("a.com"),
		WithAllowedDomains("b.com"),
	} {
		opt(&cfg)
	}

	if cfg.Crawl.MaxDepth != -1 || cfg.Crawl.MaxPages != 50 || cfg.Crawl.Interactive {
		t.Errorf("crawl config = %+v", cfg.Crawl)
	}
	if cfg.Browser.UserAgent != "atlas-test" {
		t.Errorf("UserAgent = %q", cfg.Browser.UserAgent)
	}
	if !slices.Equal(cfg.AllowedDomains, []string{"a.com", "b.com"}) {
		t.Errorf("AllowedDomains = %v", cfg.AllowedDomains)
	}
}
