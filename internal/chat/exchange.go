package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Endpoint task types that select a streaming wire format. Any other value
// falls through to the plain chat-completions format.
const (
	TaskResponses = "agent/v1/responses"
	TaskChatAgent = "agent/v2/chat"
)

// FragmentStream is a lazy pull-based sequence of raw protocol fragments.
// Fragments are produced one at a time and consumed synchronously.
type FragmentStream interface {
	Next() bool
	Current() json.RawMessage
	Err() error
	Close() error
}

// Querier is the endpoint client contract the exchange drives. Streaming
// yields raw fragments; the synchronous form returns the final message list
// and request id directly.
type Querier interface {
	QueryStream(ctx context.Context, messages []Message, returnTraces bool) (FragmentStream, error)
	Query(ctx context.Context, messages []Message, returnTraces bool) ([]Message, string, error)
}

const (
	thinkingText = "Thinking..."
	retryText    = "Ran into an error. Retrying without streaming..."
)

// Exchange runs one chat turn: it selects the wire-format adapter for the
// endpoint's task type, streams and renders the response incrementally, and
// falls back once to a synchronous query when streaming fails.
type Exchange struct {
	client   Querier
	renderer Renderer
	logger   *slog.Logger
	traces   bool
}

func NewExchange(client Querier, renderer Renderer, logger *slog.Logger, returnTraces bool) *Exchange {
	return &Exchange{
		client:   client,
		renderer: renderer,
		logger:   logger,
		traces:   returnTraces,
	}
}

// Run dispatches to the adapter for taskType and returns the finalized
// response. Streaming failures are recovered locally via the one-shot
// synchronous fallback; only a fallback failure is returned as an error.
func (e *Exchange) Run(ctx context.Context, taskType string, input []Message) (AssistantResponse, error) {
	e.renderer.Thinking(thinkingText)

	var resp AssistantResponse
	var err error
	switch taskType {
	case TaskResponses:
		resp, err = e.streamResponses(ctx, input)
	case TaskChatAgent:
		resp, err = e.streamChatAgent(ctx, input)
	default:
		resp, err = e.streamCompletions(ctx, input)
	}
	if err == nil {
		return resp, nil
	}

	// Partial accumulation is abandoned wholesale; the fallback is
	// authoritative.
	e.logger.Warn("streaming failed, retrying without streaming",
		"task_type", taskType, "error", err)
	e.renderer.Thinking(retryText)
	return e.fallback(ctx, input)
}

func (e *Exchange) fallback(ctx context.Context, input []Message) (AssistantResponse, error) {
	messages, requestID, err := e.client.Query(ctx, input, e.traces)
	if err != nil {
		return AssistantResponse{}, fmt.Errorf("non-streaming fallback failed: %w", err)
	}
	e.renderer.ReplaceAll(messages)
	return AssistantResponse{Messages: messages, RequestID: requestID}, nil
}

// drain consumes a fragment stream to completion, handing each raw fragment
// to consume. It reports the transport error, if any; per-fragment shape
// problems are the consumer's concern.
func drain(stream FragmentStream, consume func(raw json.RawMessage) error) error {
	defer stream.Close()
	for stream.Next() {
		if err := consume(stream.Current()); err != nil {
			return err
		}
	}
	return stream.Err()
}
