package bus

import (
	"context"
	"testing"
	"time"
)

func TestSessionKey(t *testing.T) {
	msg := InboundMessage{Channel: "telegram", ChatID: "42"}
	if got := msg.SessionKey(); got != "telegram:42" {
		t.Errorf("SessionKey = %q, want telegram:42", got)
	}
}

func TestDispatchOutbound_RoutesByChannel(t *testing.T) {
	b := NewMessageBus(10)

	got := make(chan OutboundMessage, 1)
	b.SubscribeOutbound("web", func(msg OutboundMessage) {
		got <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	b.Outbound <- OutboundMessage{Channel: "web", ChatID: "1", Content: "hi"}

	select {
	case msg := <-got:
		if msg.Content != "hi" || msg.ChatID != "1" {
			t.Errorf("delivered message = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not dispatched")
	}
}

func TestDispatchOutbound_DropsUnknownChannel(t *testing.T) {
	b := NewMessageBus(10)

	delivered := make(chan OutboundMessage, 2)
	b.SubscribeOutbound("web", func(msg OutboundMessage) {
		delivered <- msg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.DispatchOutbound(ctx)

	// No subscriber: must be dropped without blocking the dispatcher.
	b.Outbound <- OutboundMessage{Channel: "nope", Content: "lost"}
	b.Outbound <- OutboundMessage{Channel: "web", Content: "kept"}

	select {
	case msg := <-delivered:
		if msg.Content != "kept" {
			t.Errorf("delivered = %q, want kept", msg.Content)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatcher stalled on unknown channel")
	}
}

func TestDispatchOutbound_StopsOnCancel(t *testing.T) {
	b := NewMessageBus(1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.DispatchOutbound(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("DispatchOutbound did not stop on context cancel")
	}
}
