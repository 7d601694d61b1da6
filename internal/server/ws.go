package server

import (
	"log/slog"
	"net/http"
	"sync"

	"StreamChat/internal/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// renderOp is one drawing instruction pushed to the browser.
type renderOp struct {
	Op       string         `json:"op"` // thinking | message | replace_all | clear | error
	Slot     string         `json:"slot,omitempty"`
	Text     string         `json:"text,omitempty"`
	Message  *chat.Message  `json:"message,omitempty"`
	Messages []chat.Message `json:"messages,omitempty"`
}

// hub fans render operations out to every connected browser.
type hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub(logger *slog.Logger) *hub {
	return &hub{logger: logger, conns: map[*websocket.Conn]bool{}}
}

var upgrader = websocket.Upgrader{
	// The UI and the websocket share an origin; nothing else connects.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	h.logger.Info("render channel connected", "remote", r.RemoteAddr)

	// Reads only detect disconnect; the browser never sends data.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		conn.Close()
	}()
}

func (h *hub) broadcast(op renderOp) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(op); err != nil {
			h.logger.Warn("failed to push render op", "error", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

// renderer returns a per-turn renderer writing through the hub.
func (h *hub) renderer() *wsRenderer {
	return &wsRenderer{hub: h}
}

// wsRenderer implements chat.Renderer over the websocket render channel.
// Areas are identified by slot ids; the browser keeps slots in creation order
// and replaces a slot's content on every message op.
type wsRenderer struct {
	hub *hub
}

func (r *wsRenderer) Thinking(text string) {
	r.hub.broadcast(renderOp{Op: "thinking", Text: text})
}

func (r *wsRenderer) Area() chat.Area {
	return &wsArea{hub: r.hub, slot: uuid.NewString()}
}

func (r *wsRenderer) ReplaceAll(messages []chat.Message) {
	r.hub.broadcast(renderOp{Op: "replace_all", Messages: messages})
}

func (r *wsRenderer) Clear() {
	r.hub.broadcast(renderOp{Op: "clear"})
}

// Error draws a visible chat error; used only when the fallback itself fails.
func (r *wsRenderer) Error(text string) {
	r.hub.broadcast(renderOp{Op: "error", Text: text})
}

type wsArea struct {
	hub  *hub
	slot string
}

func (a *wsArea) Render(msg chat.Message) {
	a.hub.broadcast(renderOp{Op: "message", Slot: a.slot, Message: &msg})
}
