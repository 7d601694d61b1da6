package chat

import (
	"errors"
	"strings"
)

// ErrNoFragments is returned when Reduce is handed an empty fragment sequence.
// Callers must only invoke the reducer once at least one fragment has arrived
// for a message id.
var ErrNoFragments = errors.New("chat: reduce called with no fragments")

// Reduce folds an ordered sequence of delta fragments belonging to one logical
// message into a single Message. The first fragment acts as the structural
// template (role, tool_call_id); content fragments are concatenated in arrival
// order, and tool-call deltas are accumulated per call id, preserving the
// order in which each id was first seen.
func Reduce(fragments []DeltaFragment) (Message, error) {
	if len(fragments) == 0 {
		return Message{}, ErrNoFragments
	}

	msg := Message{Role: fragments[0].Role}

	var content strings.Builder
	calls := map[string]*ToolCall{}
	var callOrder []string

	for _, frag := range fragments {
		content.WriteString(frag.Content)

		for _, delta := range frag.ToolCalls {
			if delta.ID == "" {
				continue
			}
			existing, ok := calls[delta.ID]
			if !ok {
				calls[delta.ID] = &ToolCall{
					ID:   delta.ID,
					Type: delta.Type,
					Function: ToolCallFunction{
						Name:      delta.Name,
						Arguments: delta.Arguments,
					},
				}
				callOrder = append(callOrder, delta.ID)
				continue
			}
			// Arguments stream as ordered concatenation. The name usually
			// arrives once; a later empty name must not blank an established
			// one.
			existing.Function.Arguments += delta.Arguments
			if delta.Name != "" {
				existing.Function.Name = delta.Name
			}
		}

		// Tool-result fragments carry the call id they answer; last writer
		// wins, though only one such fragment is expected per message.
		if frag.ToolCallID != "" {
			msg.ToolCallID = frag.ToolCallID
		}
	}

	msg.Content = content.String()
	if len(callOrder) > 0 {
		msg.ToolCalls = make([]ToolCall, 0, len(callOrder))
		for _, id := range callOrder {
			msg.ToolCalls = append(msg.ToolCalls, *calls[id])
		}
	}
	return msg, nil
}
