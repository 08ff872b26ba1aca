package graph

import (
	"regexp"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Matcher filters names with single-wildcard patterns: '*' matches any run
// of characters, everything else is literal. Matching is case-insensitive
// and anchored on both ends. Compiled patterns are cached.
type Matcher struct {
	cache *lru.Cache[string, *regexp.Regexp]
}

// NewMatcher returns a matcher caching up to size compiled patterns.
func NewMatcher(size int) *Matcher {
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *regexp.Regexp](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &Matcher{cache: cache}
}

// Compile returns the regular expression equivalent of pattern.
func (m *Matcher) Compile(pattern string) *regexp.Regexp {
	if re, ok := m.cache.Get(pattern); ok {
		return re
	}
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re := regexp.MustCompile(`(?is)^(?:` + strings.Join(parts, ".*") + `)$`)
	m.cache.Add(pattern, re)
	return re
}

// MatchString reports whether name matches pattern.
func (m *Matcher) MatchString(pattern, name string) bool {
	return m.Compile(pattern).MatchString(name)
}

// Match returns the candidates matching pattern, in their original order.
// Empty candidates never match.
func (m *Matcher) Match(pattern string, candidates []string) []string {
	re := m.Compile(pattern)
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c != "" && re.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

var defaultMatcher = NewMatcher(512)

// Match filters candidates with the shared matcher.
func Match(pattern string, candidates []string) []string {
	return defaultMatcher.Match(pattern, candidates)
}

// MatchString matches one name with the shared matcher.
func MatchString(pattern, name string) bool {
	return defaultMatcher.MatchString(pattern, name)
}
