package engine

import (
	"math/rand"
	"regexp"
	"testing"
	"time"

	"github.com/wispbot/wisp/internal/intent"
)

const testDefault = "I'm not sure I understand."

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "greeting", Patterns: []string{`\b(hello|hi|hey)\b`}, Responses: []string{"Hello, {name}!"}},
		{Name: "goodbye", Patterns: []string{`\b(bye|goodbye)\b`}, Responses: []string{"Bye!"}},
		{Name: "name_intro", Patterns: []string{`\b(?:i am|i'm|im)\s+[a-z]+\b`, `\bmy\s+name\s+is\b`}, Responses: []string{"Nice to meet you, {name}!"}},
		{Name: "weather", Patterns: []string{`\bweather\b`}, Responses: []string{"No idea, sorry."}},
		{Name: "time", Patterns: []string{`\btime\b`}, Responses: []string{"It's {time} right now."}},
		{Name: "silent", Patterns: []string{`\bsilent\b`}},
		{Name: "fallback", Responses: []string{"Sorry?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := New(catalog, testDefault, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func TestPredictIntent_Scenarios(t *testing.T) {
	eng := testEngine(t)

	tests := []struct {
		text     string
		intent   string
		wantName string
	}{
		{"hello", "greeting", ""},
		{"goodbye", "goodbye", ""},
		{"my name is Alice", "name_intro", "Alice"},
		{"what's the weather", "weather", ""},
		{"what time is it?", "time", ""},
		{"asdfasdf", "fallback", ""},
	}

	for _, tt := range tests {
		name, entities := eng.PredictIntent(tt.text)
		if name != tt.intent {
			t.Errorf("PredictIntent(%q) intent = %q, want %q", tt.text, name, tt.intent)
		}
		if got := entities["name"]; got != tt.wantName {
			t.Errorf("PredictIntent(%q) name entity = %q, want %q", tt.text, got, tt.wantName)
		}
		if tt.wantName == "" {
			if _, ok := entities["name"]; ok {
				t.Errorf("PredictIntent(%q) should not produce a name key", tt.text)
			}
		}
	}
}

func TestPredictIntent_TrimsInput(t *testing.T) {
	eng := testEngine(t)
	name, _ := eng.PredictIntent("   hello   ")
	if name != "greeting" {
		t.Errorf("intent = %q, want greeting", name)
	}
}

func TestRenderResponse_UnknownIntent(t *testing.T) {
	eng := testEngine(t)
	if got := eng.RenderResponse("no_such_intent", nil); got != testDefault {
		t.Errorf("RenderResponse = %q, want default %q", got, testDefault)
	}
}

func TestRenderResponse_IntentWithoutResponses(t *testing.T) {
	eng := testEngine(t)
	if got := eng.RenderResponse("silent", nil); got != testDefault {
		t.Errorf("RenderResponse = %q, want default %q", got, testDefault)
	}
}

func TestRenderResponse_MissingPlaceholderIsEmpty(t *testing.T) {
	eng := testEngine(t)
	if got := eng.RenderResponse("greeting", nil); got != "Hello, !" {
		t.Errorf("RenderResponse = %q, want %q", got, "Hello, !")
	}
}

func TestRenderResponse_UsesEntities(t *testing.T) {
	eng := testEngine(t)
	got := eng.RenderResponse("name_intro", map[string]string{"name": "Alice"})
	if got != "Nice to meet you, Alice!" {
		t.Errorf("RenderResponse = %q", got)
	}
}

func TestRenderResponse_TimeInjection(t *testing.T) {
	tests := []struct {
		clock time.Time
		want  string
	}{
		{time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC), "It's 2:05 PM right now."},
		{time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC), "It's 9:05 AM right now."},
		{time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC), "It's 12:30 AM right now."},
	}

	for _, tt := range tests {
		eng := testEngine(t, WithClock(func() time.Time { return tt.clock }))
		if got := eng.RenderResponse("time", nil); got != tt.want {
			t.Errorf("RenderResponse(time) = %q, want %q", got, tt.want)
		}
	}
}

func TestRenderResponse_TimeFormat(t *testing.T) {
	eng := testEngine(t)
	got := eng.RenderResponse("time", nil)

	re := regexp.MustCompile(`^It's \d{1,2}:\d{2} (AM|PM) right now\.$`)
	if !re.MatchString(got) {
		t.Errorf("RenderResponse(time) = %q, want H:MM AM/PM with no leading zero", got)
	}
	if regexp.MustCompile(`\b0\d:`).MatchString(got) {
		t.Errorf("RenderResponse(time) = %q, hour must not have a leading zero", got)
	}
}

func TestRenderResponse_TimeDoesNotClobberOtherEntities(t *testing.T) {
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "time", Patterns: []string{`time`}, Responses: []string{"{name}, it's {time}."}},
	})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := New(catalog, testDefault, WithClock(func() time.Time {
		return time.Date(2024, 3, 1, 14, 5, 0, 0, time.UTC)
	}))
	if err != nil {
		t.Fatal(err)
	}

	in := map[string]string{"name": "Alice", "time": "stale"}
	got := eng.RenderResponse("time", in)
	if got != "Alice, it's 2:05 PM." {
		t.Errorf("RenderResponse = %q", got)
	}
	// The caller's map must not be mutated by dynamic injection.
	if in["time"] != "stale" {
		t.Error("caller entity map was mutated")
	}
}

func TestRenderResponse_PicksFromConfiguredSet(t *testing.T) {
	catalog, err := intent.NewCatalog([]intent.Definition{
		{Name: "greeting", Patterns: []string{`hello`}, Responses: []string{"a", "b", "c"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	eng, err := New(catalog, testDefault, WithRand(rand.New(rand.NewSource(7))))
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := eng.RenderResponse("greeting", nil)
		if got != "a" && got != "b" && got != "c" {
			t.Fatalf("RenderResponse = %q, not in configured set", got)
		}
		seen[got] = true
	}
	if len(seen) < 2 {
		t.Error("expected random selection to cover more than one template")
	}
}

func TestRespond_SingleShot(t *testing.T) {
	eng := testEngine(t)
	if got := eng.Respond("i'm alice"); got != "Nice to meet you, Alice!" {
		t.Errorf("Respond = %q", got)
	}
	if got := eng.Respond("asdfasdf"); got != "Sorry?" {
		t.Errorf("Respond(fallback) = %q, want configured fallback response", got)
	}
}
