package sitemap

import "slices"

// Domains is the allow-list: a set of exact network locations (host[:port]).
// Membership is exact, "www.example.com" and "example.com" are distinct
// entries, and the empty string stands for host-less URLs such as file://.
//
// A Domains value only grows. It is not safe for concurrent use.
type Domains struct {
	set map[string]struct{}
}

// NewDomains returns an allow-list holding the given domains.
func NewDomains(domains ...string) Domains {
	d := Domains{set: make(map[string]struct{}, len(domains))}
	for _, domain := range domains {
		d.set[domain] = struct{}{}
	}
	return d
}

// Contains reports whether domain is allow-listed.
func (d Domains) Contains(domain string) bool {
	_, ok := d.set[domain]
	return ok
}

// Add allow-lists domain and reports whether it was new.
func (d *Domains) Add(domain string) bool {
	if d.set == nil {
		d.set = make(map[string]struct{})
	}
	if _, ok := d.set[domain]; ok {
		return false
	}
	d.set[domain] = struct{}{}
	return true
}

// Clone returns an independent copy.
func (d Domains) Clone() Domains {
	out := Domains{set: make(map[string]struct{}, len(d.set))}
	for domain := range d.set {
		out.set[domain] = struct{}{}
	}
	return out
}

// Len returns the number of allow-listed domains.
func (d Domains) Len() int { return len(d.set) }

// List returns the allow-listed domains in lexical order.
func (d Domains) List() []string {
	out := make([]string, 0, len(d.set))
	for domain := range d.set {
		out = append(out, domain)
	}
	slices.Sort(out)
	return out
}
