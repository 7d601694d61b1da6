package chat

import (
	"errors"
	"reflect"
	"testing"
)

func TestReduceContentConcatenation(t *testing.T) {
	fragments := []DeltaFragment{
		{MessageID: "m1", Role: RoleAssistant, Content: "Hel"},
		{MessageID: "m1", Content: "lo, "},
		{MessageID: "m1", Content: ""},
		{MessageID: "m1", Content: "world"},
	}

	msg, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if msg.Content != "Hello, world" {
		t.Errorf("content = %q, want %q", msg.Content, "Hello, world")
	}
	if msg.Role != RoleAssistant {
		t.Errorf("role = %q, want %q", msg.Role, RoleAssistant)
	}
	if msg.ToolCalls != nil {
		t.Errorf("tool calls = %v, want none", msg.ToolCalls)
	}
}

func TestReduceToolCallArguments(t *testing.T) {
	fragments := []DeltaFragment{
		{Role: RoleAssistant, ToolCalls: []ToolCallDelta{
			{ID: "call_1", Type: "function", Name: "lookup", Arguments: `{"a":`},
		}},
		{ToolCalls: []ToolCallDelta{
			{ID: "call_1", Arguments: `1}`},
		}},
	}

	msg, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(msg.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(msg.ToolCalls))
	}
	call := msg.ToolCalls[0]
	if call.Function.Arguments != `{"a":1}` {
		t.Errorf("arguments = %q, want %q", call.Function.Arguments, `{"a":1}`)
	}
	if call.Function.Name != "lookup" {
		t.Errorf("name = %q, want %q", call.Function.Name, "lookup")
	}
	if call.Type != "function" {
		t.Errorf("type = %q, want %q", call.Type, "function")
	}
}

func TestReduceLaterEmptyNameDoesNotBlank(t *testing.T) {
	fragments := []DeltaFragment{
		{Role: RoleAssistant, ToolCalls: []ToolCallDelta{
			{ID: "call_1", Type: "function", Name: "search", Arguments: "{"},
		}},
		{ToolCalls: []ToolCallDelta{
			{ID: "call_1", Name: "", Arguments: "}"},
		}},
	}

	msg, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if msg.ToolCalls[0].Function.Name != "search" {
		t.Errorf("name = %q, want preserved %q", msg.ToolCalls[0].Function.Name, "search")
	}
}

func TestReduceToolCallOrderIsFirstSeen(t *testing.T) {
	fragments := []DeltaFragment{
		{Role: RoleAssistant, ToolCalls: []ToolCallDelta{
			{ID: "call_a", Type: "function", Name: "first"},
			{ID: "call_b", Type: "function", Name: "second"},
		}},
		{ToolCalls: []ToolCallDelta{
			{ID: "call_b", Arguments: "{}"},
			{ID: "call_a", Arguments: "{}"},
		}},
	}

	msg, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if len(msg.ToolCalls) != 2 {
		t.Fatalf("tool calls = %d, want 2", len(msg.ToolCalls))
	}
	if msg.ToolCalls[0].ID != "call_a" || msg.ToolCalls[1].ID != "call_b" {
		t.Errorf("order = [%s, %s], want [call_a, call_b]", msg.ToolCalls[0].ID, msg.ToolCalls[1].ID)
	}
}

func TestReduceToolCallID(t *testing.T) {
	fragments := []DeltaFragment{
		{Role: RoleTool, Content: "result"},
		{ToolCallID: "call_9"},
	}

	msg, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if msg.ToolCallID != "call_9" {
		t.Errorf("tool_call_id = %q, want %q", msg.ToolCallID, "call_9")
	}
}

func TestReduceIsPure(t *testing.T) {
	fragments := []DeltaFragment{
		{Role: RoleAssistant, Content: "a", ToolCalls: []ToolCallDelta{
			{ID: "c1", Type: "function", Name: "f", Arguments: `{"x"`},
		}},
		{Content: "b", ToolCalls: []ToolCallDelta{
			{ID: "c1", Arguments: `:2}`},
		}},
	}

	first, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	second, err := Reduce(fragments)
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ:\nfirst  = %+v\nsecond = %+v", first, second)
	}
}

func TestReduceEmptyInput(t *testing.T) {
	_, err := Reduce(nil)
	if !errors.Is(err, ErrNoFragments) {
		t.Fatalf("err = %v, want ErrNoFragments", err)
	}
}
