package chat

import (
	"context"
	"encoding/json"
	"fmt"
)

// agentChunk is the stateful chat-agent streaming wire shape: a delta keyed
// by the id of the logical message it belongs to. Several logical messages
// may interleave within one stream.
type agentChunk struct {
	Delta    agentDelta       `json:"delta"`
	Metadata *ServingMetadata `json:"serving_metadata"`
}

type agentDelta struct {
	ID         string          `json:"id"`
	Role       string          `json:"role"`
	Content    string          `json:"content"`
	ToolCalls  []agentToolCall `json:"tool_calls"`
	ToolCallID string          `json:"tool_call_id"`
}

type agentToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

func (d agentDelta) fragment() DeltaFragment {
	frag := DeltaFragment{
		MessageID:  d.ID,
		Role:       d.Role,
		Content:    d.Content,
		ToolCallID: d.ToolCallID,
	}
	for _, tc := range d.ToolCalls {
		frag.ToolCalls = append(frag.ToolCalls, ToolCallDelta{
			ID:        tc.ID,
			Type:      tc.Type,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return frag
}

// messageBuffer accumulates the fragments seen so far for one message id,
// together with the render area allocated when the id was first seen.
type messageBuffer struct {
	fragments []DeltaFragment
	area      Area
}

// streamChatAgent consumes the chat-agent delta format. Each fragment is
// appended to its message's buffer and the buffer is re-reduced to render the
// current partial message in that message's own area. Areas are allocated in
// first-seen order and never reordered, even when fragments for different ids
// interleave.
func (e *Exchange) streamChatAgent(ctx context.Context, input []Message) (AssistantResponse, error) {
	stream, err := e.client.QueryStream(ctx, input, e.traces)
	if err != nil {
		return AssistantResponse{}, err
	}

	buffers := map[string]*messageBuffer{}
	var order []string
	var requestID string

	err = drain(stream, func(raw json.RawMessage) error {
		var chunk agentChunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return fmt.Errorf("malformed agent chunk: %w", err)
		}
		if chunk.Metadata != nil && chunk.Metadata.RequestID != "" {
			requestID = chunk.Metadata.RequestID
		}
		if chunk.Delta.ID == "" {
			// Fragment without a message id carries nothing to accumulate.
			return nil
		}

		buf, ok := buffers[chunk.Delta.ID]
		if !ok {
			buf = &messageBuffer{area: e.renderer.Area()}
			buffers[chunk.Delta.ID] = buf
			order = append(order, chunk.Delta.ID)
		}
		buf.fragments = append(buf.fragments, chunk.Delta.fragment())

		partial, err := Reduce(buf.fragments)
		if err != nil {
			return err
		}
		buf.area.Render(partial)
		return nil
	})
	if err != nil {
		return AssistantResponse{}, err
	}

	messages := make([]Message, 0, len(order))
	for _, id := range order {
		msg, err := Reduce(buffers[id].fragments)
		if err != nil {
			return AssistantResponse{}, err
		}
		messages = append(messages, msg)
	}

	return AssistantResponse{Messages: messages, RequestID: requestID}, nil
}
