package chat

import "errors"

// ErrReadOnly is returned when a mutation is attempted while the conversation
// is showing a historical entry.
var ErrReadOnly = errors.New("chat: conversation is read-only while viewing history")

// Entry is one element of the conversation log: either a user turn or an
// assistant response.
type Entry struct {
	User     *UserMessage
	Response *AssistantResponse
}

// UserMessage is a prompt submitted by the user.
type UserMessage struct {
	Content string `json:"content"`
}

// Conversation is the append-only in-memory log of turns for the active
// session. Loading a historical conversation replaces the log wholesale and
// freezes it until Reset.
type Conversation struct {
	entries  []Entry
	readOnly bool
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// AppendUser adds a user turn.
func (c *Conversation) AppendUser(content string) error {
	if c.readOnly {
		return ErrReadOnly
	}
	c.entries = append(c.entries, Entry{User: &UserMessage{Content: content}})
	return nil
}

// AppendResponse adds a finalized assistant response.
func (c *Conversation) AppendResponse(resp AssistantResponse) error {
	if c.readOnly {
		return ErrReadOnly
	}
	c.entries = append(c.entries, Entry{Response: &resp})
	return nil
}

// InputMessages flattens the log into the wire message sequence sent to the
// serving endpoint.
func (c *Conversation) InputMessages() []Message {
	var msgs []Message
	for _, e := range c.entries {
		switch {
		case e.User != nil:
			msgs = append(msgs, Message{Role: RoleUser, Content: e.User.Content})
		case e.Response != nil:
			msgs = append(msgs, e.Response.Messages...)
		}
	}
	return msgs
}

// Entries returns the log for rendering.
func (c *Conversation) Entries() []Entry {
	return c.entries
}

// LoadHistorical replaces the log with a stored exchange and marks the
// conversation read-only.
func (c *Conversation) LoadHistorical(userText string, resp AssistantResponse) {
	c.entries = []Entry{
		{User: &UserMessage{Content: userText}},
		{Response: &resp},
	}
	c.readOnly = true
}

// ReadOnly reports whether the conversation is a frozen historical view.
func (c *Conversation) ReadOnly() bool {
	return c.readOnly
}

// Reset clears the log and leaves any historical view.
func (c *Conversation) Reset() {
	c.entries = nil
	c.readOnly = false
}
