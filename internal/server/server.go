package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"StreamChat/internal/cache"
	"StreamChat/internal/chat"
	"StreamChat/internal/config"
	"StreamChat/internal/history"
	"StreamChat/internal/telemetry"
)

// ErrBusy is returned when a chat turn is submitted while another is running.
var ErrBusy = errors.New("server: a chat turn is already in progress")

// EndpointClient is the serving-endpoint surface the server depends on.
type EndpointClient interface {
	chat.Querier
	Name() string
	TaskType(ctx context.Context) (string, error)
	SupportsFeedback(ctx context.Context) bool
}

// Server is the web front-end: it owns the active conversation, drives the
// chat exchange for each submission, and exposes the history sidebar API.
// One conversation per process; submissions are serialized.
type Server struct {
	cfg       config.Config
	client    EndpointClient
	store     *history.Store // nil when persistence is unavailable
	bus       *telemetry.Bus
	logger    *slog.Logger
	hub       *hub
	respCache sync.Map

	feedbackSupported bool

	mu      sync.Mutex
	conv    *chat.Conversation
	viewing *history.Entry
	busy    bool
}

func New(cfg config.Config, client EndpointClient, store *history.Store, bus *telemetry.Bus, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		client: client,
		store:  store,
		bus:    bus,
		logger: logger,
		hub:    newHub(logger),
		conv:   chat.NewConversation(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.feedbackSupported = client.SupportsFeedback(ctx)
	return s
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ws", s.hub.handleWS)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryEntry)
	mux.HandleFunc("POST /api/new", s.handleNew)
	mux.HandleFunc("POST /api/feedback", s.handleFeedback)
	return mux
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response chat.AssistantResponse `json:"response"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		httpError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, ErrBusy.Error())
		return
	}
	if s.conv.ReadOnly() {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, chat.ErrReadOnly.Error())
		return
	}
	s.busy = true
	s.conv.AppendUser(req.Prompt)
	input := s.conv.InputMessages()
	s.mu.Unlock()

	resp, err := s.runTurn(r.Context(), req.Prompt, input)

	s.mu.Lock()
	s.busy = false
	if err == nil {
		s.conv.AppendResponse(resp)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("chat turn failed", "error", err)
		s.hub.renderer().Error(err.Error())
		httpError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{Response: resp})
}

// runTurn performs one full exchange: cache check, task-type classification,
// dispatch, then fire-and-forget persistence and telemetry.
func (s *Server) runTurn(ctx context.Context, prompt string, input []chat.Message) (chat.AssistantResponse, error) {
	key := cache.Key(input)
	if val, ok := s.respCache.Load(key); ok {
		cached := val.(cache.CachedResponse)
		s.logger.Info("cache hit", "key", key[:16])
		s.hub.renderer().ReplaceAll(cached.Response.Messages)
		return cached.Response, nil
	}

	// Classification failures are not fatal: an empty task type falls
	// through to the chat-completions adapter.
	taskType, err := s.client.TaskType(ctx)
	if err != nil {
		s.logger.Warn("failed to classify endpoint task type", "error", err)
	}

	start := time.Now()
	exchange := chat.NewExchange(s.client, s.hub.renderer(), s.logger, s.feedbackSupported)
	resp, err := exchange.Run(ctx, taskType, input)
	if err != nil {
		return chat.AssistantResponse{}, err
	}
	elapsed := time.Since(start)

	s.respCache.Store(key, cache.CachedResponse{Response: resp, Timestamp: time.Now()})

	// Persistence and telemetry never block or fail the chat turn.
	if s.store != nil {
		go func() {
			if err := s.store.Save(prompt, resp); err != nil {
				s.logger.Error("failed to save chat interaction", "error", err)
			}
		}()
	}
	go s.bus.Record(prompt, resp.Text(), elapsed)

	return resp, nil
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	entries, err := s.store.Recent(s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Error("failed to retrieve chat history", "error", err)
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleHistoryEntry loads a stored exchange for viewing. The live
// conversation is replaced wholesale and frozen until a new chat starts.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		httpError(w, http.StatusNotFound, "persistence is not available")
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid history id")
		return
	}
	entry, err := s.store.Get(id)
	if errors.Is(err, history.ErrNotFound) {
		httpError(w, http.StatusNotFound, "no such conversation")
		return
	}
	if err != nil {
		s.logger.Error("failed to load history entry", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, ErrBusy.Error())
		return
	}
	s.conv.LoadHistorical(entry.UserMessage, chat.AssistantResponse{
		Messages:  []chat.Message{{Role: chat.RoleAssistant, Content: entry.AssistantResponse}},
		RequestID: entry.RequestID,
	})
	s.viewing = &entry
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		httpError(w, http.StatusConflict, ErrBusy.Error())
		return
	}
	s.conv.Reset()
	s.viewing = nil
	s.mu.Unlock()

	s.hub.renderer().Clear()
	w.WriteHeader(http.StatusNoContent)
}

type feedbackRequest struct {
	ID     int64 `json:"id"`
	Rating int   `json:"rating"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid feedback payload")
		return
	}
	if req.Rating < -1 || req.Rating > 1 {
		httpError(w, http.StatusBadRequest, "rating must be -1, 0, or 1")
		return
	}
	if s.store == nil {
		httpError(w, http.StatusNotFound, "persistence is not available")
		return
	}
	if err := s.store.Rate(req.ID, req.Rating); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			httpError(w, http.StatusNotFound, "no such conversation")
			return
		}
		s.logger.Error("failed to store feedback", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to store feedback")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
