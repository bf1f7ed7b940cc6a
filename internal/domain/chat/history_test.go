package chat

import (
	"encoding/json"
	"testing"
)

func TestDecodeHistory_DropsMalformed(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"role":"user","content":"hi"}`),
		json.RawMessage(`{"role":"bot","content":"beep"}`),
		json.RawMessage(`{"role":"assistant","content":42}`),
		json.RawMessage(`"just a string"`),
		json.RawMessage(`{"role":"assistant","content":"hello"}`),
		json.RawMessage(`{"content":"no role"}`),
	}

	turns := DecodeHistory(raw)
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d: %+v", len(turns), turns)
	}
	if turns[0].Role != RoleUser || turns[0].Content != "hi" {
		t.Errorf("unexpected first turn %+v", turns[0])
	}
	if turns[1].Role != RoleAssistant || turns[1].Content != "hello" {
		t.Errorf("unexpected second turn %+v", turns[1])
	}
}

func TestDecodeHistory_Empty(t *testing.T) {
	if got := DecodeHistory(nil); len(got) != 0 {
		t.Errorf("expected no turns, got %d", len(got))
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant} {
		if !r.Valid() {
			t.Errorf("expected %q to be valid", r)
		}
	}
	if Role("bot").Valid() {
		t.Error("bot must not be valid")
	}
}
