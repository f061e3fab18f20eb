// Package entity extracts simple typed values (entities) from free text.
// Extraction runs independently of intent matching: every registered rule
// inspects the raw input and contributes at most one key.
package entity

import (
	"regexp"
	"strings"
)

// Rule recognizes one kind of entity in raw text. Extract reports the value
// and whether anything was found; a miss must not produce an empty-string
// entry.
type Rule interface {
	Key() string
	Extract(text string) (string, bool)
}

// Extractor runs an ordered set of rules over input text. New entity kinds
// are added by registering rules, without touching intent matching.
type Extractor struct {
	rules []Rule
}

// NewExtractor returns an extractor with the built-in name rule.
func NewExtractor() *Extractor {
	return &Extractor{rules: []Rule{NewNameRule()}}
}

// Register appends a rule. A later rule cannot overwrite a key an earlier
// rule already produced.
func (e *Extractor) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Extract runs every rule against text and collects the found entities.
// Keys with no match are absent from the result, never empty strings.
func (e *Extractor) Extract(text string) map[string]string {
	entities := make(map[string]string)
	for _, rule := range e.rules {
		if _, taken := entities[rule.Key()]; taken {
			continue
		}
		if value, ok := rule.Extract(text); ok {
			entities[rule.Key()] = value
		}
	}
	return entities
}

// PatternRule extracts a single capture group using an ordered list of
// case-insensitive patterns; the first pattern that matches wins.
type PatternRule struct {
	key       string
	patterns  []*regexp.Regexp
	normalize func(string) string
}

// NewPatternRule compiles the given patterns case-insensitively. Each
// pattern must have one capture group. normalize may be nil.
func NewPatternRule(key string, patterns []string, normalize func(string) string) (*PatternRule, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return &PatternRule{key: key, patterns: compiled, normalize: normalize}, nil
}

func (r *PatternRule) Key() string { return r.key }

func (r *PatternRule) Extract(text string) (string, bool) {
	for _, re := range r.patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		if r.normalize != nil {
			value = r.normalize(value)
		}
		return value, true
	}
	return "", false
}

// NewNameRule detects a personal name in phrases like "I'm Alice" or
// "my name is bob". The captured name is title-cased regardless of how the
// user typed it.
func NewNameRule() *PatternRule {
	rule, err := NewPatternRule("name", []string{
		`\b(?:i am|i'm|im)\s+([a-zA-Z]+)\b`,
		`\bmy\s+name\s+is\s+([a-zA-Z]+)\b`,
	}, TitleCase)
	if err != nil {
		// Built-in patterns are constants; a compile failure is a programming error.
		panic(err)
	}
	return rule
}

// TitleCase uppercases the first letter and lowercases the rest, so
// "alice", "ALICE" and "Alice" all normalize to "Alice".
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
