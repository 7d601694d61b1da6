package chat

// Renderer draws the assistant side of the conversation as it arrives. The web
// implementation pushes operations to the browser; tests use a recording fake.
type Renderer interface {
	// Thinking draws (or replaces) the placeholder indicator for the turn.
	Thinking(text string)
	// Area allocates a new scoped render target. Areas appear in allocation
	// order and stay in place; re-rendering an area replaces its content.
	Area() Area
	// ReplaceAll redraws the whole response region with the given messages,
	// discarding any placeholder or areas drawn so far this turn.
	ReplaceAll(messages []Message)
	// Clear removes everything drawn for the current turn.
	Clear()
}

// Area is a render target for one logical message, updated in place.
type Area interface {
	Render(msg Message)
}
