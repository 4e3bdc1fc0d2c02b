package channels

import (
	"testing"

	"github.com/coopco/castbot/internal/bus"
)

func TestRegistryHasTelegram(t *testing.T) {
	if _, ok := GetFactory("telegram"); !ok {
		t.Fatal("telegram factory not registered")
	}
	names := RegisteredNames()
	found := false
	for _, n := range names {
		if n == "telegram" {
			found = true
		}
	}
	if !found {
		t.Errorf("telegram missing from registered names %v", names)
	}
}

func TestIsAllowed(t *testing.T) {
	open := &TelegramChannel{allowedUsers: map[string]bool{}}
	if !open.IsAllowed("anyone") {
		t.Error("empty allow-list must admit everyone")
	}

	restricted := &TelegramChannel{allowedUsers: map[string]bool{"42": true}}
	if !restricted.IsAllowed("42") {
		t.Error("allowed user rejected")
	}
	if restricted.IsAllowed("99") {
		t.Error("unlisted user admitted")
	}
}

func TestToInlineKeyboard(t *testing.T) {
	rows := [][]bus.Button{
		{{Label: "like", Token: "like:1:aa"}, {Label: "recast", Token: "recast:1:aa"}},
		{{Label: "thread", Token: "thread:1:aa"}},
	}
	kb := toInlineKeyboard(rows)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(kb.InlineKeyboard))
	}
	if len(kb.InlineKeyboard[0]) != 2 || len(kb.InlineKeyboard[1]) != 1 {
		t.Fatalf("unexpected row shapes: %+v", kb.InlineKeyboard)
	}
	first := kb.InlineKeyboard[0][0]
	if first.Text != "like" || first.CallbackData == nil || *first.CallbackData != "like:1:aa" {
		t.Errorf("unexpected first button: %+v", first)
	}
}

func TestAddChannelUnknownName(t *testing.T) {
	m := NewManager(bus.NewMessageBus(1))
	if err := m.AddChannel("nonexistent", nil); err == nil {
		t.Fatal("expected error for unregistered channel name")
	}
}
