package chat

import (
	"context"
	"reflect"
	"testing"
)

func TestResponsesEventSequence(t *testing.T) {
	q := &fakeQuerier{stream: &fakeStream{
		failAt: -1,
		fragments: []string{
			`{"type":"response.output_item.done","item":{"type":"message","content":[{"type":"output_text","text":"Hi"}]}}`,
			`{"type":"response.output_item.done","item":{"type":"function_call","call_id":"c1","name":"f","arguments":"{}"}}`,
			`{"type":"response.output_item.done","item":{"type":"function_call_output","call_id":"c1","output":"ok"}}`,
		},
	}}
	r := &recordRenderer{}

	resp, err := newTestExchange(q, r).Run(context.Background(), TaskResponses, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []Message{
		{Role: RoleAssistant, Content: "Hi"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{
			ID: "c1", Type: "function",
			Function: ToolCallFunction{Name: "f", Arguments: "{}"},
		}}},
		{Role: RoleTool, Content: "ok", ToolCallID: "c1"},
	}
	if !reflect.DeepEqual(resp.Messages, want) {
		t.Errorf("messages = %+v\nwant %+v", resp.Messages, want)
	}

	// Every contributing event redraws the entire accumulated list.
	if len(r.replaceAll) != 3 {
		t.Fatalf("redraws = %d, want 3", len(r.replaceAll))
	}
	if len(r.replaceAll[0]) != 1 || len(r.replaceAll[2]) != 3 {
		t.Errorf("redraw sizes = [%d %d %d], want growing full list",
			len(r.replaceAll[0]), len(r.replaceAll[1]), len(r.replaceAll[2]))
	}
}

func TestResponsesIgnoresUnrecognizedShapes(t *testing.T) {
	q := &fakeQuerier{stream: &fakeStream{
		failAt: -1,
		fragments: []string{
			`{"no_type_discriminant":true}`,
			`{"type":"response.output_item.done","item":{"type":"reasoning","summary":"..."}}`,
			`{"type":"response.output_item.done","item":{"type":"message","content":[{"type":"refusal","text":"no"},{"type":"output_text","text":"Yes"}]}}`,
			`{"type":"response.completed","serving_metadata":{"request_id":"req-9"}}`,
		},
	}}
	r := &recordRenderer{}

	resp, err := newTestExchange(q, r).Run(context.Background(), TaskResponses, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []Message{{Role: RoleAssistant, Content: "Yes"}}
	if !reflect.DeepEqual(resp.Messages, want) {
		t.Errorf("messages = %+v, want only the output_text part", resp.Messages)
	}
	if resp.RequestID != "req-9" {
		t.Errorf("request id = %q, want %q", resp.RequestID, "req-9")
	}
}

func TestResponsesMultipleTextParts(t *testing.T) {
	q := &fakeQuerier{stream: &fakeStream{
		failAt: -1,
		fragments: []string{
			`{"type":"response.output_item.done","item":{"type":"message","content":[{"type":"output_text","text":"one"},{"type":"output_text","text":"two"}]}}`,
		},
	}}
	r := &recordRenderer{}

	resp, err := newTestExchange(q, r).Run(context.Background(), TaskResponses, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].Content != "one" || resp.Messages[1].Content != "two" {
		t.Errorf("messages = %+v, want one message per text part", resp.Messages)
	}
}
