package intent

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog([]Definition{
		{Name: "greeting", Patterns: []string{`\b(hello|hi|hey)\b`}},
		{Name: "goodbye", Patterns: []string{`\b(bye|goodbye)\b`, `\bsee you\b`}},
		{Name: "weather", Patterns: []string{`\bweather\b`}},
		{Name: "time", Patterns: []string{`\btime\b`}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return catalog
}

func TestMatcher_Match(t *testing.T) {
	m, err := NewMatcher(testCatalog(t))
	if err != nil {
		t.Fatalf("NewMatcher error: %v", err)
	}

	tests := []struct {
		text string
		want string
	}{
		{"hello", "greeting"},
		{"HELLO there", "greeting"},       // case-insensitive
		{"well hello friend", "greeting"}, // substring, not full match
		{"goodbye", "goodbye"},
		{"see you tomorrow", "goodbye"}, // patterns within an intent are OR'd
		{"what's the weather", "weather"},
		{"what time is it?", "time"},
		{"asdfasdf", Fallback},
		{"", Fallback},
		{"   ", Fallback},
	}

	for _, tt := range tests {
		if got := m.Match(tt.text); got != tt.want {
			t.Errorf("Match(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestMatcher_FirstMatchWins(t *testing.T) {
	// Both intents match "hello time"; the earlier-declared one must win,
	// even though the later pattern is more specific.
	catalog, err := NewCatalog([]Definition{
		{Name: "first", Patterns: []string{`hello`}},
		{Name: "second", Patterns: []string{`hello time`}},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMatcher(catalog)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Match("hello time"); got != "first" {
		t.Errorf("Match = %q, want first", got)
	}
}

func TestMatcher_DeclarationOrderNotAlphabetical(t *testing.T) {
	catalog, err := NewCatalog([]Definition{
		{Name: "zulu", Patterns: []string{`ping`}},
		{Name: "alpha", Patterns: []string{`ping`}},
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMatcher(catalog)
	if err != nil {
		t.Fatal(err)
	}

	if got := m.Match("ping"); got != "zulu" {
		t.Errorf("Match = %q, want zulu (declaration order must be preserved)", got)
	}
}

func TestNewMatcher_BadPattern(t *testing.T) {
	catalog, err := NewCatalog([]Definition{
		{Name: "broken", Patterns: []string{`($`}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewMatcher(catalog); err == nil {
		t.Error("expected error for invalid pattern")
	}
}
