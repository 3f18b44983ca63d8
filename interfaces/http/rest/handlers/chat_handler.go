package handlers

import (
	"net/http"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	"neuronote/application/queries"
	querybus "neuronote/application/queries/bus"
	"neuronote/domain/core/entities"
	"neuronote/interfaces/http/rest/middleware"
	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ChatHandler handles chat sessions and retrieval-augmented turns
type ChatHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	maxBody    int64
	logger     *zap.Logger
}

func NewChatHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	maxBody int64,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		maxBody:    maxBody,
		logger:     logger,
	}
}

type createSessionRequest struct {
	Title string `json:"title"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

// SessionResponse wraps a single session
type SessionResponse struct {
	Success bool                `json:"success"`
	Session queries.SessionView `json:"session"`
}

// ReplyResponse is the outcome of one chat turn
type ReplyResponse struct {
	Success          bool                 `json:"success"`
	Reply            string               `json:"reply"`
	RelevantMemories []queries.MemoryView `json:"relevantMemories"`
}

// MessagesResponse lists the messages of a session
type MessagesResponse struct {
	Success  bool                  `json:"success"`
	Messages []queries.MessageView `json:"messages"`
}

// MessageResponse wraps one edited message
type MessageResponse struct {
	Success bool                `json:"success"`
	Message queries.MessageView `json:"message"`
}

// SessionsResponse lists the caller's sessions
type SessionsResponse struct {
	Success  bool                  `json:"success"`
	Sessions []queries.SessionView `json:"sessions"`
}

// CreateSession handles POST /chats/session
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req createSessionRequest
	if err := decodeBody(w, r, &req, h.maxBody, true); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	session, err := as[*entities.ChatSession](h.commandBus.Execute(r.Context(), commands.CreateSessionCommand{
		UserID: userID,
		Title:  req.Title,
	}))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, SessionResponse{Success: true, Session: queries.NewSessionView(session, nil)})
}

// SendMessage handles POST /chats/{sessionId}
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req sendMessageRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.SendChatMessageCommand{
		UserID:    userID,
		SessionID: chi.URLParam(r, "sessionId"),
		Message:   req.Message,
	}
	reply, err := as[*commands.ChatReply](h.commandBus.Execute(r.Context(), cmd))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, ReplyResponse{
		Success:          true,
		Reply:            reply.Reply,
		RelevantMemories: queries.NewMemoryViews(reply.RelevantMemories),
	})
}

// ListMessages handles GET /chats/{sessionId}/messages
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.ListMessagesQuery{UserID: userID, SessionID: chi.URLParam(r, "sessionId")}
	messages, err := as[[]queries.MessageView](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if messages == nil {
		messages = []queries.MessageView{}
	}

	common.RespondJSON(w, http.StatusOK, MessagesResponse{Success: true, Messages: messages})
}

// EditMessage handles PATCH /chats/message/{messageId}
func (h *ChatHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req editMessageRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.EditChatMessageCommand{
		UserID:    userID,
		MessageID: chi.URLParam(r, "messageId"),
		Content:   req.Content,
	}
	message, err := as[*entities.ChatMessage](h.commandBus.Execute(r.Context(), cmd))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: queries.NewMessageView(message)})
}

// DeleteSession handles DELETE /chats/{sessionId}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.DeleteSessionCommand{UserID: userID, SessionID: chi.URLParam(r, "sessionId")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondSuccess(w, "Session and its messages deleted")
}

// ListSessions handles GET /chats/all/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	sessions, err := as[[]queries.SessionView](h.queryBus.Ask(r.Context(), queries.ListSessionsQuery{UserID: userID}))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []queries.SessionView{}
	}

	common.RespondJSON(w, http.StatusOK, SessionsResponse{Success: true, Sessions: sessions})
}
