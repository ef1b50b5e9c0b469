// Package sitemap holds the value type produced by site mapping: a pair of
// URL sets, the pages in scope (allowed) and the references seen but excluded
// because their domain is not allow-listed (ignored).
//
// A SiteMap is immutable. Combine, Diff and WithAllowed return new values and
// never modify their receiver or argument, so maps can be shared freely.
package sitemap

import (
	"slices"

	"github.com/jmylchreest/siteatlas/pkg/urlnorm"
)

type urlSet map[string]struct{}

func (s urlSet) clone() urlSet {
	out := make(urlSet, len(s))
	for u := range s {
		out[u] = struct{}{}
	}
	return out
}

func (s urlSet) sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// SiteMap is a pair of URL sets. The zero value is the empty map.
type SiteMap struct {
	allowed urlSet
	ignored urlSet
}

// New builds a SiteMap from the given URLs. Duplicates collapse.
func New(allowed, ignored []string) SiteMap {
	m := SiteMap{
		allowed: make(urlSet, len(allowed)),
		ignored: make(urlSet, len(ignored)),
	}
	for _, u := range allowed {
		m.allowed[u] = struct{}{}
	}
	for _, u := range ignored {
		m.ignored[u] = struct{}{}
	}
	return m
}

// Partition classifies urls against the allow-list: a URL is allowed iff its
// exact network location is a member of domains, otherwise it is ignored.
// Empty strings are skipped.
func Partition(urls []string, domains Domains) SiteMap {
	m := SiteMap{allowed: urlSet{}, ignored: urlSet{}}
	for _, u := range urls {
		if u == "" {
			continue
		}
		if domains.Contains(urlnorm.Domain(u)) {
			m.allowed[u] = struct{}{}
		} else {
			m.ignored[u] = struct{}{}
		}
	}
	return m
}

// Combine returns the pairwise union of m and other.
func (m SiteMap) Combine(other SiteMap) SiteMap {
	out := SiteMap{allowed: m.allowed.clone(), ignored: m.ignored.clone()}
	for u := range other.allowed {
		out.allowed[u] = struct{}{}
	}
	for u := range other.ignored {
		out.ignored[u] = struct{}{}
	}
	return out
}

// Diff returns (m.allowed - other.allowed, m.ignored - other.ignored).
// The two sets are compared independently.
func (m SiteMap) Diff(other SiteMap) SiteMap {
	out := SiteMap{allowed: urlSet{}, ignored: urlSet{}}
	for u := range m.allowed {
		if _, ok := other.allowed[u]; !ok {
			out.allowed[u] = struct{}{}
		}
	}
	for u := range m.ignored {
		if _, ok := other.ignored[u]; !ok {
			out.ignored[u] = struct{}{}
		}
	}
	return out
}

// WithAllowed returns a copy of m with urls added to the allowed set.
func (m SiteMap) WithAllowed(urls ...string) SiteMap {
	out := SiteMap{allowed: m.allowed.clone(), ignored: m.ignored.clone()}
	for _, u := range urls {
		out.allowed[u] = struct{}{}
	}
	return out
}

// WithoutIgnored returns a copy of m with an empty ignored set.
func (m SiteMap) WithoutIgnored() SiteMap {
	return SiteMap{allowed: m.allowed.clone(), ignored: urlSet{}}
}

// Allowed returns the allowed URLs in lexical order.
func (m SiteMap) Allowed() []string {
	return m.allowed.sorted()
}

// Ignored returns the ignored URLs in lexical order.
func (m SiteMap) Ignored() []string {
	return m.ignored.sorted()
}

// HasAllowed reports whether u is in the allowed set.
func (m SiteMap) HasAllowed(u string) bool {
	_, ok := m.allowed[u]
	return ok
}

// HasIgnored reports whether u is in the ignored set.
func (m SiteMap) HasIgnored(u string) bool {
	_, ok := m.ignored[u]
	return ok
}

// AllowedLen returns the number of allowed URLs.
func (m SiteMap) AllowedLen() int { return len(m.allowed) }

// IgnoredLen returns the number of ignored URLs.
func (m SiteMap) IgnoredLen() int { return len(m.ignored) }

// IsEmpty reports whether both sets are empty.
func (m SiteMap) IsEmpty() bool {
	return len(m.allowed) == 0 && len(m.ignored) == 0
}

// Equal reports whether m and other hold the same URLs in both sets.
func (m SiteMap) Equal(other SiteMap) bool {
	return sameSet(m.allowed, other.allowed) && sameSet(m.ignored, other.ignored)
}

// IgnoredDomains returns the registrable domains of the ignored URLs, sorted.
// URLs without a host (file, mailto, ...) do not contribute.
func (m SiteMap) IgnoredDomains() []string {
	domains := urlSet{}
	for u := range m.ignored {
		if d := urlnorm.RegistrableDomain(u); d != "" {
			domains[d] = struct{}{}
		}
	}
	return domains.sorted()
}

func sameSet(a, b urlSet) bool {
	if len(a) != len(b) {
		return false
	}
	for u := range a {
		if _, ok := b[u]; !ok {
			return false
		}
	}
	return true
}
