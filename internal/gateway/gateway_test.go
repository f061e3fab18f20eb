package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wispbot/wisp/internal/bus"
	"github.com/wispbot/wisp/internal/config"
	"github.com/wispbot/wisp/internal/engine"
	"github.com/wispbot/wisp/internal/intent"
	"github.com/wispbot/wisp/internal/session"
)

const testIntentsYML = `
default_response: "Sorry, I didn't get that."
intents:
  - name: greeting
    patterns: ['\b(hello|hi|hey)\b']
    responses: ["Hello, {name}!"]
  - name: name_intro
    patterns: ['\b(?:i am|i''m|im)\s+[a-z]+\b', '\bmy\s+name\s+is\b']
    responses: ["Nice to meet you, {name}!"]
  - name: fallback
    responses: ["Sorry, I didn't get that."]
`

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	catalog, defaultResp, err := intent.Parse([]byte(testIntentsYML))
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(catalog, defaultResp)
	if err != nil {
		t.Fatal(err)
	}
	return eng
}

func testGateway(t *testing.T) *Gateway {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Channels.Web.Enabled = false

	g, err := NewWithOptions(cfg, Options{Engine: testEngine(t)})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return g
}

func TestNew_MissingIntentsFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := config.DefaultConfig()
	cfg.Bot.IntentsPath = filepath.Join(t.TempDir(), "nope.yml")

	if _, err := New(cfg); err == nil {
		t.Error("expected error when intents file is missing")
	}
}

func TestNew_LoadsIntentsFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	intentsPath := filepath.Join(t.TempDir(), "intents.yml")
	if err := os.WriteFile(intentsPath, []byte(testIntentsYML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Bot.IntentsPath = intentsPath
	cfg.Channels.Web.Enabled = false

	g, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.engine == nil {
		t.Fatal("engine not built")
	}
}

func TestGateway_Respond(t *testing.T) {
	g := testGateway(t)

	msg := bus.InboundMessage{Channel: "test", ChatID: "1", Content: "my name is alice"}
	reply := g.respond(&msg)
	if reply != "Nice to meet you, Alice!" {
		t.Errorf("reply = %q", reply)
	}
}

func TestGateway_Respond_RemembersNameAcrossTurns(t *testing.T) {
	g := testGateway(t)

	first := bus.InboundMessage{Channel: "test", ChatID: "1", Content: "i'm alice"}
	if reply := g.respond(&first); reply != "Nice to meet you, Alice!" {
		t.Fatalf("first reply = %q", reply)
	}

	// Second turn has no name in the text; memory must fill the gap.
	second := bus.InboundMessage{Channel: "test", ChatID: "1", Content: "hello"}
	if reply := g.respond(&second); reply != "Hello, Alice!" {
		t.Errorf("second reply = %q", reply)
	}
}

func TestGateway_Respond_FreshEntityOverridesMemory(t *testing.T) {
	g := testGateway(t)

	g.respond(&bus.InboundMessage{Channel: "test", ChatID: "1", Content: "i'm alice"})
	reply := g.respond(&bus.InboundMessage{Channel: "test", ChatID: "1", Content: "actually i'm bob"})
	if reply != "Nice to meet you, Bob!" {
		t.Errorf("reply = %q", reply)
	}
	if got := g.sessions.Get("test:1")["name"]; got != "Bob" {
		t.Errorf("remembered name = %q, want Bob", got)
	}
}

func TestGateway_Respond_SessionsAreIsolated(t *testing.T) {
	g := testGateway(t)

	g.respond(&bus.InboundMessage{Channel: "test", ChatID: "1", Content: "i'm alice"})
	reply := g.respond(&bus.InboundMessage{Channel: "test", ChatID: "2", Content: "hello"})
	if reply != "Hello, !" {
		t.Errorf("reply = %q, other session must not see alice", reply)
	}
}

func TestGateway_Respond_Fallback(t *testing.T) {
	g := testGateway(t)

	reply := g.respond(&bus.InboundMessage{Channel: "test", ChatID: "1", Content: "asdfasdf"})
	if reply != "Sorry, I didn't get that." {
		t.Errorf("reply = %q", reply)
	}
}

func TestGateway_ProcessLoop_EchoesRequestID(t *testing.T) {
	g := testGateway(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.processLoop(ctx)

	g.bus.Inbound <- bus.InboundMessage{
		Channel:  "test",
		ChatID:   "1",
		Content:  "hello",
		Metadata: map[string]any{"request_id": "req-123"},
	}

	select {
	case out := <-g.bus.Outbound:
		if out.ReplyTo != "req-123" {
			t.Errorf("ReplyTo = %q, want req-123", out.ReplyTo)
		}
		if out.Channel != "test" || out.ChatID != "1" {
			t.Errorf("outbound = %+v", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no outbound message")
	}
}

func TestRequestID(t *testing.T) {
	if got := requestID(&bus.InboundMessage{}); got != "" {
		t.Errorf("requestID with no metadata = %q, want empty", got)
	}
	msg := &bus.InboundMessage{Metadata: map[string]any{"request_id": "abc"}}
	if got := requestID(msg); got != "abc" {
		t.Errorf("requestID = %q, want abc", got)
	}
	bad := &bus.InboundMessage{Metadata: map[string]any{"request_id": 7}}
	if got := requestID(bad); got != "" {
		t.Errorf("requestID with non-string = %q, want empty", got)
	}
}

func TestMergePrecedence(t *testing.T) {
	merged := session.Merge(map[string]string{"name": "Old"}, map[string]string{"name": "New"})
	if merged["name"] != "New" {
		t.Errorf("merge precedence broken: %v", merged)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is a long message", 10, "this is a ..."},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := truncate(tt.input, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}
