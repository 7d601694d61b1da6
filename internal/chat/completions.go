package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// completionChunk is the chat-completions streaming wire shape: at most one
// OpenAI-style delta under choices[0], plus the optional provider envelope.
type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Metadata *ServingMetadata `json:"serving_metadata"`
}

// streamCompletions consumes the plain chat-completions format: a single
// implicit assistant message whose text accumulates across chunks. Every
// nonempty delta triggers a full-buffer re-render of the accumulated text.
func (e *Exchange) streamCompletions(ctx context.Context, input []Message) (AssistantResponse, error) {
	stream, err := e.client.QueryStream(ctx, input, e.traces)
	if err != nil {
		return AssistantResponse{}, err
	}

	area := e.renderer.Area()
	var content strings.Builder
	var requestID string

	err = drain(stream, func(raw json.RawMessage) error {
		var chunk completionChunk
		if err := json.Unmarshal(raw, &chunk); err != nil {
			return fmt.Errorf("malformed completion chunk: %w", err)
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content.WriteString(chunk.Choices[0].Delta.Content)
			area.Render(Message{Role: RoleAssistant, Content: content.String()})
		}
		if chunk.Metadata != nil && chunk.Metadata.RequestID != "" {
			requestID = chunk.Metadata.RequestID
		}
		return nil
	})
	if err != nil {
		return AssistantResponse{}, err
	}

	return AssistantResponse{
		Messages:  []Message{{Role: RoleAssistant, Content: content.String()}},
		RequestID: requestID,
	}, nil
}
