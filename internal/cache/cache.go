package cache

import (
	"crypto/sha256"
	"fmt"
	"time"

	"StreamChat/internal/chat"
)

// CachedResponse represents a cached endpoint response.
type CachedResponse struct {
	Response  chat.AssistantResponse
	Timestamp time.Time
}

// Key derives a cache key from the input message sequence.
func Key(messages []chat.Message) string {
	h := sha256.New()
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(msg.Content))
		h.Write([]byte{0})
		h.Write([]byte(msg.ToolCallID))
		for _, call := range msg.ToolCalls {
			h.Write([]byte(call.ID))
			h.Write([]byte(call.Function.Name))
			h.Write([]byte(call.Function.Arguments))
		}
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
