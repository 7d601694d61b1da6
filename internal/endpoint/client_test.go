package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"StreamChat/internal/chat"

	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(srv.URL, "my-endpoint", logger,
		tracenoop.NewTracerProvider().Tracer("test"),
		noop.NewMeterProvider().Meter("test"))
	return client, srv
}

func TestQueryStreamParsesSSE(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/serving-endpoints/my-endpoint/invocations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req invocationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if !req.Stream {
			t.Error("stream flag not set")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "event: delta\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		fmt.Fprint(w, "data: {\"never\":\"seen\"}\n\n")
	}))

	stream, err := client.QueryStream(context.Background(), []chat.Message{{Role: "user", Content: "hi"}}, true)
	if err != nil {
		t.Fatalf("query stream: %v", err)
	}
	defer stream.Close()

	var fragments []string
	for stream.Next() {
		fragments = append(fragments, string(stream.Current()))
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream err: %v", err)
	}
	want := []string{
		`{"choices":[{"delta":{"content":"a"}}]}`,
		`{"choices":[{"delta":{"content":"b"}}]}`,
	}
	if !reflect.DeepEqual(fragments, want) {
		t.Errorf("fragments = %v, want %v", fragments, want)
	}
}

func TestQueryStreamErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such endpoint", http.StatusNotFound)
	}))

	if _, err := client.QueryStream(context.Background(), nil, false); err == nil {
		t.Fatal("want error for non-200 response")
	}
}

func TestQueryNormalizesShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   []chat.Message
		wantID string
	}{
		{
			name: "chat agent messages",
			body: `{"messages":[{"role":"assistant","content":"hi"}],"serving_metadata":{"request_id":"r1"}}`,
			want: []chat.Message{{Role: "assistant", Content: "hi"}},
			wantID: "r1",
		},
		{
			name: "chat completions choices",
			body: `{"choices":[{"message":{"role":"assistant","content":"one"}},{"message":{"role":"assistant","content":"two"}}]}`,
			want: []chat.Message{
				{Role: "assistant", Content: "one"},
				{Role: "assistant", Content: "two"},
			},
		},
		{
			name: "responses output items",
			body: `{"output":[{"type":"message","content":[{"type":"output_text","text":"hi"}]},{"type":"function_call_output","call_id":"c1","output":"ok"}]}`,
			want: []chat.Message{
				{Role: "assistant", Content: "hi"},
				{Role: "tool", Content: "ok", ToolCallID: "c1"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tt.body)
			}))

			msgs, requestID, err := client.Query(context.Background(), nil, false)
			if err != nil {
				t.Fatalf("query: %v", err)
			}
			if !reflect.DeepEqual(msgs, tt.want) {
				t.Errorf("messages = %+v, want %+v", msgs, tt.want)
			}
			if requestID != tt.wantID {
				t.Errorf("request id = %q, want %q", requestID, tt.wantID)
			}
		})
	}
}

func TestQueryUnrecognizedShape(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"predictions":[1,2,3]}`)
	}))

	if _, _, err := client.Query(context.Background(), nil, false); err == nil {
		t.Fatal("want error for unrecognized response shape")
	}
}

func TestTaskTypeAndFeedback(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/serving-endpoints/my-endpoint" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"name":"my-endpoint","task":"agent/v2/chat"}`)
	}))

	taskType, err := client.TaskType(context.Background())
	if err != nil {
		t.Fatalf("task type: %v", err)
	}
	if taskType != chat.TaskChatAgent {
		t.Errorf("task type = %q, want %q", taskType, chat.TaskChatAgent)
	}
	if !client.SupportsFeedback(context.Background()) {
		t.Error("agent endpoint should support feedback")
	}
}

func TestSupportsFeedbackNonAgent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"my-endpoint","task":"llm/v1/chat"}`)
	}))

	if client.SupportsFeedback(context.Background()) {
		t.Error("completions endpoint should not support feedback")
	}
}
