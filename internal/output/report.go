package output

import (
	"time"

	"github.com/jmylchreest/siteatlas/internal/version"
	"github.com/jmylchreest/siteatlas/pkg/sitemap"
)

// Report is the serialized result of a crawl or a single-page scan.
type Report struct {
	Seeds          []string `json:"seeds" yaml:"seeds"`
	AllowedDomains []string `json:"allowed_domains" yaml:"allowed_domains"`
	AllowedURLs    []string `json:"allowed_urls" yaml:"allowed_urls"`
	IgnoredURLs    []string `json:"ignored_urls" yaml:"ignored_urls"`
	IgnoredDomains []string `json:"ignored_domains" yaml:"ignored_domains"`
	Stats          Stats    `json:"stats" yaml:"stats"`
}

// Stats summarizes how a report was produced.
type Stats struct {
	Allowed   int       `json:"allowed" yaml:"allowed"`
	Ignored   int       `json:"ignored" yaml:"ignored"`
	Pages     int       `json:"pages" yaml:"pages"`   // pages navigated to
	Failed    int       `json:"failed" yaml:"failed"` // pages that failed to load
	Browser   string    `json:"browser" yaml:"browser"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Duration  string    `json:"duration" yaml:"duration"`
	Generator string    `json:"generator" yaml:"generator"`
}

// Entry is one classified URL, the record type of the jsonl format.
type Entry struct {
	URL    string `json:"url" yaml:"url"`
	Status string `json:"status" yaml:"status"` // "allowed" or "ignored"
}

// Entry statuses.
const (
	StatusAllowed = "allowed"
	StatusIgnored = "ignored"
)

// NewReport builds a report from a site map. Stats counts are filled in;
// the remaining Stats fields are left for the caller.
func NewReport(seeds []string, domains sitemap.Domains, m sitemap.SiteMap) Report {
	r := Report{
		Seeds:          orEmpty(seeds),
		AllowedDomains: orEmpty(domains.List()),
		AllowedURLs:    orEmpty(m.Allowed()),
		IgnoredURLs:    orEmpty(m.Ignored()),
		IgnoredDomains: orEmpty(m.IgnoredDomains()),
	}
	r.Stats.Allowed = len(r.AllowedURLs)
	r.Stats.Ignored = len(r.IgnoredURLs)
	r.Stats.Generator = "siteatlas " + version.String()
	return r
}

// Finish records the timing of the run that produced the report.
func (r *Report) Finish(browser string, started time.Time, pages, failed int) {
	r.Stats.Browser = browser
	r.Stats.StartedAt = started.UTC()
	r.Stats.Duration = time.Since(started).Round(time.Millisecond).String()
	r.Stats.Pages = pages
	r.Stats.Failed = failed
}

// Entries lists every URL with its classification, allowed first.
func (r Report) Entries() []Entry {
	entries := make([]Entry, 0, len(r.AllowedURLs)+len(r.IgnoredURLs))
	for _, u := range r.AllowedURLs {
		entries = append(entries, Entry{URL: u, Status: StatusAllowed})
	}
	for _, u := range r.IgnoredURLs {
		entries = append(entries, Entry{URL: u, Status: StatusIgnored})
	}
	return entries
}

// WriteReport writes r in the shape that suits w: one record per URL for
// JSONL, the whole report otherwise. The writer is flushed.
func WriteReport(w Writer, r Report) error {
	if _, ok := w.(*JSONLWriter); ok {
		entries := r.Entries()
		items := make([]any, len(entries))
		for i, e := range entries {
			items[i] = e
		}
		if err := w.WriteAll(items); err != nil {
			return err
		}
		return w.Flush()
	}

	if err := w.Write(r); err != nil {
		return err
	}
	return w.Flush()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
