package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPublishConsumeInbound(t *testing.T) {
	tests := []struct {
		name string
		ev   InboundEvent
	}{
		{
			name: "free text",
			ev:   InboundEvent{Channel: "telegram", SenderID: "u1", ChatID: "c1", Kind: KindText, Text: "hello"},
		},
		{
			name: "command",
			ev:   InboundEvent{Channel: "telegram", SenderID: "u1", ChatID: "c1", Kind: KindCommand, Command: "cast", Args: "gm"},
		},
		{
			name: "callback with metadata",
			ev:   InboundEvent{Channel: "telegram", SenderID: "u2", ChatID: "c2", Kind: KindCallback, Token: "like:1:ab", Metadata: map[string]string{"k": "v"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			b.PublishInbound(tc.ev)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			got, err := b.ConsumeInbound(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Channel != tc.ev.Channel || got.Kind != tc.ev.Kind || got.Text != tc.ev.Text || got.Token != tc.ev.Token {
				t.Errorf("got %+v, want %+v", got, tc.ev)
			}
		})
	}
}

func TestInboundOrderPreserved(t *testing.T) {
	b := NewMessageBus(10)
	for _, text := range []string{"first", "second", "third"} {
		b.PublishInbound(InboundEvent{Channel: "telegram", ChatID: "c1", Kind: KindText, Text: text})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, want := range []string{"first", "second", "third"} {
		got, err := b.ConsumeInbound(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Text != want {
			t.Errorf("got %q, want %q", got.Text, want)
		}
	}
}

func TestOutboundDispatch(t *testing.T) {
	tests := []struct {
		name    string
		subChan string
		pubChan string
		wantHit bool
	}{
		{"matching channel", "telegram", "telegram", true},
		{"non-matching channel", "system", "telegram", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewMessageBus(10)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var mu sync.Mutex
			var received []OutboundMessage

			b.Subscribe(tc.subChan, func(msg OutboundMessage) {
				mu.Lock()
				received = append(received, msg)
				mu.Unlock()
			})

			go b.DispatchOutbound(ctx)

			b.PublishOutbound(OutboundMessage{Channel: tc.pubChan, ChatID: "c1", Text: "hi"})

			// wait briefly for dispatch
			time.Sleep(50 * time.Millisecond)

			mu.Lock()
			got := len(received) > 0
			mu.Unlock()

			if got != tc.wantHit {
				t.Errorf("received=%v, wantHit=%v", got, tc.wantHit)
			}
		})
	}
}

func TestConsumeInboundCancellation(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	_, err := b.ConsumeInbound(ctx)
	if err == nil {
		t.Fatal("expected error on cancelled context, got nil")
	}
}

func TestSubscribeAll(t *testing.T) {
	b := NewMessageBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var received []OutboundMessage

	// empty string = subscribe to all channels
	b.Subscribe("", func(msg OutboundMessage) {
		mu.Lock()
		received = append(received, msg)
		mu.Unlock()
	})

	go b.DispatchOutbound(ctx)

	channels := []string{"telegram", "system", "other"}
	for _, ch := range channels {
		b.PublishOutbound(OutboundMessage{Channel: ch, Text: "msg"})
	}

	// wait for dispatch
	deadline := time.After(time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n >= len(channels) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("timeout: got %d messages, want %d", n, len(channels))
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != len(channels) {
		t.Errorf("got %d messages, want %d", len(received), len(channels))
	}
}

func TestConversationKey(t *testing.T) {
	tests := []struct {
		name    string
		ev      InboundEvent
		wantKey string
	}{
		{
			name:    "telegram chat",
			ev:      InboundEvent{Channel: "telegram", ChatID: "123"},
			wantKey: "telegram:123",
		},
		{
			name:    "empty channel and chatID",
			ev:      InboundEvent{},
			wantKey: ":",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.ev.ConversationKey()
			if got != tc.wantKey {
				t.Errorf("ConversationKey() = %q, want %q", got, tc.wantKey)
			}
		})
	}
}
