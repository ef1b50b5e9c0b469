package crawler

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/jmylchreest/siteatlas/pkg/browser"
	"github.com/jmylchreest/siteatlas/pkg/browser/browsertest"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
)

// newSampleSite loads the sample website into a fake browser. The About page
// gets a scripted button leading to the founder profile.
func newSampleSite(t *testing.T) *browsertest.Site {
	t.Helper()
	site := browsertest.NewSite()
	for _, page := range []string{"index.html", "contact.html", "founder_profile.html"} {
		site.Add(sampleSite(t, page), browsertest.Page{
			HTML: readTestdata(t, "sample_basic_website/"+page),
		})
	}
	site.Add(sampleSite(t, "about.html"), browsertest.Page{
		HTML: readTestdata(t, "sample_basic_website/about.html"),
		Buttons: []browsertest.Button{{
			Markup: `<button id="founder">Meet the founder</button>`,
			Target: sampleSite(t, "founder_profile.html"),
		}},
	})
	return site
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Wait = 0
	cfg.Settle = 0
	return cfg
}

// --- Crawl Tests ---

func TestCrawl_SampleSite(t *testing.T) {
	site := newSampleSite(t)

	m, err := New(site, testConfig()).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	want := []string{
		sampleSite(t, "about.html"),
		sampleSite(t, "contact.html"),
		sampleSite(t, "founder_profile.html"),
		sampleSite(t, "index.html"),
	}
	if got := m.Allowed(); !slices.Equal(got, want) {
		t.Errorf("allowed =\n%v\nwant\n%v", got, want)
	}
	if got := m.Ignored(); !slices.Equal(got, []string{"https://www.google.com/search"}) {
		t.Errorf("ignored = %v", got)
	}
}

func TestCrawl_DepthFirstOrder(t *testing.T) {
	site := newSampleSite(t)

	_, err := New(site, testConfig()).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	// The About subtree (including the return after the button press) is
	// finished before Contact is visited.
	want := []string{
		sampleSite(t, "index.html"),
		sampleSite(t, "about.html"),
		sampleSite(t, "about.html"),
		sampleSite(t, "founder_profile.html"),
		sampleSite(t, "contact.html"),
	}
	if got := site.Navigations(); !slices.Equal(got, want) {
		t.Errorf("navigations =\n%v\nwant\n%v", got, want)
	}
}

func TestCrawl_MaxDepth(t *testing.T) {
	tests := []struct {
		name       string
		maxDepth   int
		visited    int
		hasFounder bool
	}{
		{"zero visits seed only", 0, 1, false},
		{"one visits seed only", 1, 1, false},
		{"two visits direct links", 2, 3, true},
		{"unlimited", -1, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newSampleSite(t)
			cfg := testConfig()
			cfg.MaxDepth = tt.maxDepth
			cfg.Interactive = tt.hasFounder

			var visits []PageVisit
			cfg.Observer = func(v PageVisit) { visits = append(visits, v) }

			m, err := New(site, cfg).Crawl(context.Background(),
				[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
			if err != nil {
				t.Fatalf("Crawl() error = %v", err)
			}

			if len(visits) != tt.visited {
				t.Errorf("visited %d pages, want %d", len(visits), tt.visited)
			}
			// Links found on the seed are always reported.
			for _, page := range []string{"index.html", "about.html", "contact.html"} {
				if !m.HasAllowed(sampleSite(t, page)) {
					t.Errorf("expected %s to be allowed", page)
				}
			}
			if got := m.HasAllowed(sampleSite(t, "founder_profile.html")); got != tt.hasFounder {
				t.Errorf("founder allowed = %v, want %v", got, tt.hasFounder)
			}
		})
	}
}

func TestCrawl_DoesNotMutateCallerDomains(t *testing.T) {
	site := browsertest.NewSite().Add("http://a.test/", browsertest.Page{})
	domains := sitemap.NewDomains("other.test")

	_, err := New(site, testConfig()).Crawl(context.Background(), []string{"http://a.test/"}, domains)
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if domains.Contains("a.test") || domains.Len() != 1 {
		t.Errorf("caller domains mutated: %v", domains.List())
	}
}

func TestCrawl_MultipleSeeds(t *testing.T) {
	site := browsertest.NewSite().
		Add("http://a.test/", browsertest.Page{HTML: `<a href="http://b.test/x">x</a><a href="http://c.test/">c</a>`}).
		Add("http://b.test/", browsertest.Page{HTML: `<a href="/x">x</a>`}).
		Add("http://b.test/x", browsertest.Page{})

	m, err := New(site, testConfig()).Crawl(context.Background(),
		[]string{"http://a.test/", "http://b.test/"}, sitemap.Domains{})
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	// b.test is only allowed once its own seed is walked, so the link found
	// from a.test is ignored there and allowed when reached from b.test.
	want := []string{"http://a.test/", "http://b.test/", "http://b.test/x"}
	if got := m.Allowed(); !slices.Equal(got, want) {
		t.Errorf("allowed = %v, want %v", got, want)
	}
	if got := m.Ignored(); !slices.Equal(got, []string{"http://b.test/x", "http://c.test/"}) {
		t.Errorf("ignored = %v", got)
	}
	if got := site.Navigations(); !slices.Equal(got, want) {
		t.Errorf("navigations = %v, want %v", got, want)
	}
}

func TestCrawl_NavigationFailureSkipped(t *testing.T) {
	site := newSampleSite(t)
	site.FailNavigation(sampleSite(t, "about.html"), errors.New("connection reset"))

	var failed []string
	cfg := testConfig()
	cfg.Observer = func(v PageVisit) {
		if v.Err != nil {
			failed = append(failed, v.URL)
		}
	}

	m, err := New(site, cfg).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	if !slices.Equal(failed, []string{sampleSite(t, "about.html")}) {
		t.Errorf("failed pages = %v", failed)
	}
	if !m.HasAllowed(sampleSite(t, "contact.html")) {
		t.Error("siblings of a failed page should still be visited")
	}
	if m.HasAllowed(sampleSite(t, "founder_profile.html")) {
		t.Error("pages only reachable from a failed page cannot be found")
	}
}

func TestCrawl_FailFast(t *testing.T) {
	site := newSampleSite(t)
	site.FailNavigation(sampleSite(t, "about.html"), errors.New("connection reset"))

	cfg := testConfig()
	cfg.FailFast = true

	m, err := New(site, cfg).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if !errors.Is(err, browser.ErrNavigation) {
		t.Fatalf("Crawl() error = %v, want ErrNavigation", err)
	}
	if !m.HasAllowed(sampleSite(t, "index.html")) {
		t.Error("partial map should be returned with the error")
	}
	if slices.Contains(site.Navigations(), sampleSite(t, "contact.html")) {
		t.Error("crawl should stop at the first failure")
	}
}

func TestCrawl_MaxPages(t *testing.T) {
	site := newSampleSite(t)
	cfg := testConfig()
	cfg.MaxPages = 2

	var visits int
	cfg.Observer = func(PageVisit) { visits++ }

	m, err := New(site, cfg).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if visits != 2 {
		t.Errorf("visited %d pages, want 2", visits)
	}
	// About was visited, so its button target is known but not visited.
	if !m.HasAllowed(sampleSite(t, "founder_profile.html")) {
		t.Errorf("allowed = %v", m.Allowed())
	}
}

func TestCrawl_NoSeeds(t *testing.T) {
	_, err := New(browsertest.NewSite(), testConfig()).Crawl(context.Background(), nil, sitemap.Domains{})
	if !errors.Is(err, ErrNoSeeds) {
		t.Errorf("Crawl() error = %v, want ErrNoSeeds", err)
	}
}

func TestCrawl_Cancelled(t *testing.T) {
	site := newSampleSite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := New(site, testConfig()).Crawl(ctx, []string{sampleSite(t, "index.html")}, sitemap.Domains{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Crawl() error = %v, want context.Canceled", err)
	}
	if !m.IsEmpty() {
		t.Errorf("expected empty map, got %v", m.Allowed())
	}
}

func TestCrawl_Deadline(t *testing.T) {
	site := newSampleSite(t)
	cfg := testConfig()
	cfg.Wait = 50 * time.Millisecond
	cfg.Deadline = 10 * time.Millisecond

	_, err := New(site, cfg).Crawl(context.Background(), []string{sampleSite(t, "index.html")}, sitemap.Domains{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Crawl() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestCrawl_StaticBackend(t *testing.T) {
	b := browser.NewStatic(browser.DefaultConfig())
	defer b.Close()

	m, err := New(b, testConfig()).Crawl(context.Background(),
		[]string{sampleSite(t, "index.html")}, sitemap.NewDomains(""))
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}

	// Without script execution the founder page stays hidden.
	want := []string{
		sampleSite(t, "about.html"),
		sampleSite(t, "contact.html"),
		sampleSite(t, "index.html"),
	}
	if got := m.Allowed(); !slices.Equal(got, want) {
		t.Errorf("allowed =\n%v\nwant\n%v", got, want)
	}
	if !m.HasIgnored("https://www.google.com/search") {
		t.Errorf("ignored = %v", m.Ignored())
	}
}

// --- Page Tests ---

func TestPage_SinglePage(t *testing.T) {
	site := newSampleSite(t)

	m, err := New(site, testConfig()).Page(context.Background(), sampleSite(t, "about.html"), sitemap.Domains{})
	if err != nil {
		t.Fatalf("Page() error = %v", err)
	}

	want := []string{
		sampleSite(t, "contact.html"),
		sampleSite(t, "founder_profile.html"),
		sampleSite(t, "index.html"),
	}
	if got := m.Allowed(); !slices.Equal(got, want) {
		t.Errorf("allowed = %v, want %v", got, want)
	}
	if slices.Contains(site.Navigations(), sampleSite(t, "contact.html")) {
		t.Error("Page should not follow links")
	}
}
