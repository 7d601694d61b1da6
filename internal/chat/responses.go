package chat

import (
	"context"
	"encoding/json"
	"fmt"
)

// responsesEvent is the "responses" streaming wire shape: a heterogeneous
// event that may carry one complete output item. Items are never split across
// events, so there is no per-item accumulation for this format.
type responsesEvent struct {
	Type     string           `json:"type"`
	Item     *ResponsesItem   `json:"item"`
	Metadata *ServingMetadata `json:"serving_metadata"`
}

// ResponsesItem is one output item of a responses-format endpoint. The Type
// discriminant selects which of the remaining fields are meaningful.
type ResponsesItem struct {
	Type      string             `json:"type"`
	Content   []ResponsesContent `json:"content,omitempty"`
	CallID    string             `json:"call_id,omitempty"`
	Name      string             `json:"name,omitempty"`
	Arguments string             `json:"arguments,omitempty"`
	Output    string             `json:"output,omitempty"`
}

// ResponsesContent is a content part nested in a message item. Only
// output_text parts contribute visible text.
type ResponsesContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Messages translates the item into the common message shape. Unrecognized
// item types translate to nothing.
func (it ResponsesItem) Messages() []Message {
	switch it.Type {
	case "message":
		var msgs []Message
		for _, part := range it.Content {
			if part.Type == "output_text" && part.Text != "" {
				msgs = append(msgs, Message{Role: RoleAssistant, Content: part.Text})
			}
		}
		return msgs
	case "function_call":
		return []Message{{
			Role: RoleAssistant,
			ToolCalls: []ToolCall{{
				ID:   it.CallID,
				Type: "function",
				Function: ToolCallFunction{
					Name:      it.Name,
					Arguments: it.Arguments,
				},
			}},
		}}
	case "function_call_output":
		return []Message{{
			Role:       RoleTool,
			Content:    it.Output,
			ToolCallID: it.CallID,
		}}
	default:
		return nil
	}
}

// streamResponses consumes the responses event format: each event's item is
// complete as received and appends directly to a flat output list, and every
// event triggers a full redraw of the accumulated list.
func (e *Exchange) streamResponses(ctx context.Context, input []Message) (AssistantResponse, error) {
	stream, err := e.client.QueryStream(ctx, input, e.traces)
	if err != nil {
		return AssistantResponse{}, err
	}

	var all []Message
	var requestID string

	err = drain(stream, func(raw json.RawMessage) error {
		var event responsesEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return fmt.Errorf("malformed responses event: %w", err)
		}
		if event.Metadata != nil && event.Metadata.RequestID != "" {
			requestID = event.Metadata.RequestID
		}
		// Events without the discriminant or without an item contribute
		// nothing but still trigger a redraw below.
		if event.Type != "" && event.Item != nil {
			all = append(all, event.Item.Messages()...)
		}
		if len(all) > 0 {
			e.renderer.ReplaceAll(all)
		}
		return nil
	})
	if err != nil {
		return AssistantResponse{}, err
	}

	return AssistantResponse{Messages: all, RequestID: requestID}, nil
}
