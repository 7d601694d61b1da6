package chat

// Message roles as they appear on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single turn in the conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a structured function invocation embedded in an assistant message.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the function name and its raw JSON argument string.
// Arguments may arrive over several fragments and only parse as JSON once the
// stream for that call is complete.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// DeltaFragment is one incremental unit received from the streaming transport,
// normalized out of the wire shape by the consuming adapter. It is ephemeral:
// created per chunk, folded into an accumulator, never persisted.
type DeltaFragment struct {
	MessageID  string
	Role       string
	Content    string
	ToolCalls  []ToolCallDelta
	ToolCallID string
}

// ToolCallDelta is a partial update to one tool call within a fragment.
type ToolCallDelta struct {
	ID        string
	Type      string
	Name      string
	Arguments string
}

// AssistantResponse is the finalized unit produced by one chat exchange.
// It is appended to the conversation and handed to persistence; immutable
// after that.
type AssistantResponse struct {
	Messages  []Message `json:"messages"`
	RequestID string    `json:"request_id,omitempty"`
}

// Text joins the visible content of the response messages, skipping empty
// ones. Used for persistence and telemetry.
func (r AssistantResponse) Text() string {
	var out string
	for _, msg := range r.Messages {
		if msg.Content == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += msg.Content
	}
	return out
}

// ServingMetadata is the provider envelope that may ride along on any
// streamed fragment or synchronous response body.
type ServingMetadata struct {
	RequestID string `json:"request_id"`
}
