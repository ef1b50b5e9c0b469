// Package urlnorm converts URLs into the canonical forms used for site mapping.
//
// Every function is total: malformed input never panics or returns an error,
// it degrades to empty or partial fields. Callers must not assume the result
// was validated.
package urlnorm

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const schemeFile = "file"

// Domain returns the network location (host[:port]) of rawURL.
// File URLs and unparseable input yield "".
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// SchemeAndDomain returns "{scheme}://{host[:port]}".
func SchemeAndDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// SchemeAndDomainAndPath returns "{scheme}://{host[:port]}{path}".
//
// For file URLs the final path segment is dropped when it looks like a file
// name (contains a dot), together with any trailing slash, so a file URL
// reduces to its containing directory.
func SchemeAndDomainAndPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	p := u.EscapedPath()
	if u.Scheme == schemeFile {
		if i := strings.LastIndex(p, "/"); i >= 0 && strings.Contains(p[i+1:], ".") {
			p = p[:i]
		}
		p = strings.TrimRight(p, "/")
	}

	return u.Scheme + "://" + u.Host + p
}

// RegistrableDomain returns the public-suffix aware registrable domain of
// rawURL, e.g. "www.foo.co.uk" becomes "foo.co.uk".
//
// Hosts without a registrable part (IP addresses, bare suffixes, "localhost")
// are returned as-is. It is meant for reporting only and never for allow-list
// matching.
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// Resolve resolves ref against base using standard URL reference resolution
// and strips any fragment from the result.
//
// The result keeps the spelling of both inputs: characters are neither
// escaped nor unescaped, so a relative "b c.html" resolves to ".../b c.html"
// just as the absolute reference would be kept. Absolute references are
// returned unchanged apart from the fragment, so Resolve(u, u) ==
// StripFragment(u). A reference that cannot be parsed yields "".
func Resolve(base, ref string) string {
	ref = StripFragment(strings.TrimSpace(ref))
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if r.IsAbs() {
		return ref
	}

	b, err := url.Parse(base)
	if err != nil {
		// Nothing to resolve against; keep what the reference says.
		return ref
	}

	base = StripFragment(base)
	prefix, basePath, baseQuery, ok := splitHierarchical(base)
	if !ok {
		resolved := b.ResolveReference(r)
		resolved.Fragment = ""
		resolved.RawFragment = ""
		return resolved.String()
	}

	if strings.HasPrefix(ref, "//") {
		prefix, refPath, refQuery, _ := splitHierarchical(b.Scheme + ":" + ref)
		return prefix + removeDotSegments(refPath) + refQuery
	}

	refPath, refQuery := ref, ""
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		refPath, refQuery = ref[:i], ref[i:]
	}

	switch {
	case refPath == "" && refQuery == "":
		return prefix + basePath + baseQuery
	case refPath == "":
		return prefix + basePath + refQuery
	case strings.HasPrefix(refPath, "/"):
		return prefix + removeDotSegments(refPath) + refQuery
	}

	dir := "/"
	if i := strings.LastIndexByte(basePath, '/'); i >= 0 {
		dir = basePath[:i+1]
	}
	return prefix + removeDotSegments(dir+refPath) + refQuery
}

// splitHierarchical splits a "scheme://authority/path?query" URL into
// "scheme://authority", path and "?query". ok is false for URLs without an
// authority, such as "mailto:" or relative ones.
func splitHierarchical(rawURL string) (prefix, path, query string, ok bool) {
	i := strings.Index(rawURL, "://")
	if i <= 0 || strings.ContainsAny(rawURL[:i], "/?#") {
		return "", "", "", false
	}

	rest := rawURL[i+3:]
	j := strings.IndexAny(rest, "/?")
	if j < 0 {
		return rawURL, "", "", true
	}
	prefix, tail := rawURL[:i+3+j], rest[j:]
	if k := strings.IndexByte(tail, '?'); k >= 0 {
		return prefix, tail[:k], tail[k:], true
	}
	return prefix, tail, "", true
}

// removeDotSegments drops "." and ".." segments from an absolute path.
func removeDotSegments(p string) string {
	if p == "" {
		return ""
	}
	segs := strings.Split(p, "/")
	out := make([]string, 0, len(segs))
	for i, seg := range segs {
		last := i == len(segs)-1
		switch seg {
		case ".":
		case "..":
			if len(out) > 1 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, seg)
			continue
		}
		if last {
			out = append(out, "")
		}
	}
	return strings.Join(out, "/")
}

// StripFragment removes the "#fragment" suffix of rawURL, if any.
func StripFragment(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
