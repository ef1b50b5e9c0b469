package crawler

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jmylchreest/siteatlas/internal/logger"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
	"github.com/jmylchreest/siteatlas/pkg/urlnorm"
)

// DefaultLinkSelector matches every anchor that carries an href.
const DefaultLinkSelector = "a[href]"

// LinkSelector extracts link targets from HTML content.
type LinkSelector struct {
	CSSSelector string // CSS selector for elements whose href is collected
}

// NewLinkSelector creates a link selector. An empty selector means
// DefaultLinkSelector.
func NewLinkSelector(cssSelector string) *LinkSelector {
	if cssSelector == "" {
		cssSelector = DefaultLinkSelector
	}
	return &LinkSelector{CSSSelector: cssSelector}
}

// ExtractLinks returns the absolute, fragment-free targets of every matching
// element, deduplicated and sorted. Self links are kept.
func (ls *LinkSelector) ExtractLinks(html string, baseURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	doc.Find(ls.CSSSelector).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}
		if abs := urlnorm.Resolve(baseURL, href); abs != "" {
			seen[abs] = struct{}{}
		}
	})

	links := make([]string, 0, len(seen))
	for link := range seen {
		links = append(links, link)
	}
	slices.Sort(links)
	return links, nil
}

// Extract builds the site map of a single page's anchors: every resolved
// href is allowed when its exact host[:port] is in domains, ignored
// otherwise.
func Extract(html string, baseURL string, domains sitemap.Domains) sitemap.SiteMap {
	links, err := NewLinkSelector("").ExtractLinks(html, baseURL)
	if err != nil {
		logger.Debug("link extraction failed", "url", baseURL, "error", err)
		return sitemap.SiteMap{}
	}

	m := sitemap.Partition(links, domains)
	logger.Debug("links extracted",
		"url", baseURL,
		"allowed", m.AllowedLen(),
		"ignored", m.IgnoredLen())
	return m
}
