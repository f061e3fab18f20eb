package intent

import (
	"fmt"
	"regexp"
)

// Matcher holds the compiled, case-insensitive form of every catalog
// pattern. Patterns are compiled once at construction and read-only after
// that, so a Matcher is safe for concurrent use.
type Matcher struct {
	order    []string
	compiled map[string][]*regexp.Regexp
}

// NewMatcher compiles all patterns in the catalog. A pattern that fails to
// compile is a configuration error and aborts construction.
func NewMatcher(catalog *Catalog) (*Matcher, error) {
	m := &Matcher{
		order:    catalog.Names(),
		compiled: make(map[string][]*regexp.Regexp, catalog.Len()),
	}
	for _, name := range m.order {
		def, _ := catalog.Lookup(name)
		patterns := make([]*regexp.Regexp, 0, len(def.Patterns))
		for _, p := range def.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("intent %q: compile pattern %q: %w", name, p, err)
			}
			patterns = append(patterns, re)
		}
		m.compiled[name] = patterns
	}
	return m, nil
}

// Match returns the name of the first intent, in declaration order, with at
// least one pattern matching anywhere in text. Patterns within an intent are
// OR'd. When nothing matches, the reserved fallback name is returned.
func (m *Matcher) Match(text string) string {
	for _, name := range m.order {
		for _, re := range m.compiled[name] {
			if re.MatchString(text) {
				return name
			}
		}
	}
	return Fallback
}
