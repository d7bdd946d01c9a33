package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/nugget/todo-agent/internal/llm"
	"github.com/nugget/todo-agent/internal/sanitize"
	"github.com/nugget/todo-agent/internal/store"
	"github.com/nugget/todo-agent/internal/tools"
)

// ChatRequest is the chat endpoint's request body.
type ChatRequest struct {
	Message        string `json:"message" validate:"required,min=1"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the chat endpoint's response body.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

// handleChat runs one conversation turn: validate, resolve the
// conversation, run the agent loop, persist both sides of the
// exchange.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	if ok, msg := s.limiter.Allow(userID); !ok {
		s.metrics.RecordRateLimitHit()
		w.Header().Set("Retry-After", "60")
		s.errorResponse(w, http.StatusTooManyRequests, msg)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Message is required")
		return
	}

	message := sanitize.ChatMessage(s.logger, req.Message)
	if message == "" {
		s.errorResponse(w, http.StatusBadRequest, "Message is required")
		return
	}

	user, err := s.store.GetUser(userID)
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("user lookup failed", "error", err, "user_id", userID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	conv, status, err := s.resolveConversation(user.ID, req.ConversationID)
	if err != nil {
		s.errorResponse(w, status, err.Error())
		return
	}

	history, err := s.store.History(conv.ID, s.maxHistory)
	if err != nil {
		s.logger.Error("history load failed", "error", err, "conversation_id", conv.ID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := s.store.AppendMessage(conv.ID, user.ID, "user", message); err != nil {
		s.logger.Error("failed to store user message", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.metrics.RecordMessageStored()

	registry := tools.NewRegistry(s.store, user.ID, s.logger, s.metrics)
	reply, err := s.runner.Run(r.Context(), message, toLLMMessages(history), registry)
	if err != nil {
		s.logger.Error("agent run failed", "error", err, "user_id", userID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if _, err := s.store.AppendMessage(conv.ID, user.ID, "assistant", reply); err != nil {
		s.logger.Error("failed to store assistant message", "error", err)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	s.metrics.RecordMessageStored()

	// Keep the conversation bounded. Best effort: a failed prune is not
	// worth failing the request over.
	if pruned, err := s.store.PruneMessages(conv.ID, s.maxHistory); err != nil {
		s.logger.Warn("message prune failed", "error", err, "conversation_id", conv.ID)
	} else if pruned > 0 {
		s.logger.Debug("pruned old messages", "conversation_id", conv.ID, "pruned", pruned)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ChatResponse{Response: reply, ConversationID: conv.ID}, s.logger)
}

// resolveConversation loads the requested conversation or creates a
// fresh one. Returns the HTTP status to use when err is non-nil.
func (s *Server) resolveConversation(userID, convID string) (*store.Conversation, int, error) {
	if convID == "" {
		conv, err := s.store.CreateConversation(userID)
		if err != nil {
			s.logger.Error("conversation create failed", "error", err, "user_id", userID)
			return nil, http.StatusInternalServerError, errors.New("Internal server error")
		}
		s.metrics.RecordConversationCreated()
		return conv, 0, nil
	}

	if _, err := uuid.Parse(convID); err != nil {
		return nil, http.StatusBadRequest, errors.New("Invalid conversation_id format")
	}

	conv, err := s.store.GetConversation(convID)
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			return nil, http.StatusNotFound, err
		}
		s.logger.Error("conversation lookup failed", "error", err, "conversation_id", convID)
		return nil, http.StatusInternalServerError, errors.New("Internal server error")
	}
	if conv.UserID != userID {
		s.logger.Warn("conversation access denied", "conversation_id", convID, "user_id", userID, "owner_id", conv.UserID)
		return nil, http.StatusForbidden, errors.New("Conversation belongs to another user")
	}
	return conv, 0, nil
}

func toLLMMessages(history []store.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, len(history))
	for i, m := range history {
		msgs[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return msgs
}

// conversationSummary is the list-endpoint item shape.
type conversationSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleConversationList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}

	convs, err := s.store.ListConversations(userID)
	if err != nil {
		s.logger.Error("conversation list failed", "error", err, "user_id", userID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	summaries := make([]conversationSummary, len(convs))
	for i, c := range convs {
		summaries[i] = conversationSummary{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"conversations": summaries,
		"count":         len(summaries),
	}, s.logger)
}

// messageView is the detail-endpoint message shape.
type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleConversationGet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if _, err := uuid.Parse(userID); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid user_id format")
		return
	}
	convID := r.PathValue("conversation_id")
	if _, err := uuid.Parse(convID); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid conversation_id format")
		return
	}

	conv, err := s.store.GetConversation(convID)
	if err != nil {
		var nf *store.NotFoundError
		if errors.As(err, &nf) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("conversation lookup failed", "error", err, "conversation_id", convID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if conv.UserID != userID {
		s.errorResponse(w, http.StatusForbidden, "Conversation belongs to another user")
		return
	}

	history, err := s.store.History(convID, 50)
	if err != nil {
		s.logger.Error("history load failed", "error", err, "conversation_id", convID)
		s.errorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	msgs := make([]messageView, len(history))
	for i, m := range history {
		msgs[i] = messageView{ID: m.ID, Role: m.Role, Content: m.Content, CreatedAt: m.CreatedAt}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"id":         conv.ID,
		"created_at": conv.CreatedAt,
		"updated_at": conv.UpdatedAt,
		"messages":   msgs,
	}, s.logger)
}
