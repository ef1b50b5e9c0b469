package sitemap

// Builder accumulates a SiteMap in place. It is the copy-on-write counterpart
// of Combine for a single owner, such as one running crawl: observable results
// match repeated Combine calls without copying the whole map per page.
//
// A Builder must not be shared between goroutines.
type Builder struct {
	m SiteMap
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{m: SiteMap{allowed: urlSet{}, ignored: urlSet{}}}
}

// Merge adds every URL of m.
func (b *Builder) Merge(m SiteMap) {
	for u := range m.allowed {
		b.m.allowed[u] = struct{}{}
	}
	for u := range m.ignored {
		b.m.ignored[u] = struct{}{}
	}
}

// AddAllowed adds urls to the allowed set.
func (b *Builder) AddAllowed(urls ...string) {
	for _, u := range urls {
		b.m.allowed[u] = struct{}{}
	}
}

// Unseen returns m.Diff(accumulated) without copying the accumulated map.
func (b *Builder) Unseen(m SiteMap) SiteMap {
	return m.Diff(b.m)
}

// SiteMap returns an independent snapshot of the accumulated map.
func (b *Builder) SiteMap() SiteMap {
	return SiteMap{allowed: b.m.allowed.clone(), ignored: b.m.ignored.clone()}
}
