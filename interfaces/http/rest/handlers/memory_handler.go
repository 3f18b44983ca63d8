package handlers

import (
	"net/http"
	"strconv"

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

// MemoryHandler handles memory CRUD requests
type MemoryHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	maxBody    int64
	logger     *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	maxBody int64,
	logger *zap.Logger,
) *MemoryHandler {
	return &MemoryHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		maxBody:    maxBody,
		logger:     logger,
	}
}

// MemoryRequest is the body of create, replace and patch. Every field is a
// pointer so a patch can tell omitted from empty.
type MemoryRequest struct {
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	URL        *string   `json:"url"`
	IsFavorite *bool     `json:"isFavorite"`
}

// CreateMemory handles POST /memories
func (h *MemoryHandler) CreateMemory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req MemoryRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.CreateMemoryCommand{UserID: userID, URL: req.URL}
	if req.Title != nil {
		cmd.Title = *req.Title
	}
	if req.Content != nil {
		cmd.Content = *req.Content
	}
	if req.Tags != nil {
		cmd.Tags = *req.Tags
	}
	if req.IsFavorite != nil {
		cmd.IsFavorite = *req.IsFavorite
	}

	memory, err := as[*entities.Memory](h.commandBus.Execute(r.Context(), cmd))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, queries.NewMemoryView(memory))
}

// ListMemories handles GET /memories
func (h *MemoryHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.ListMemoriesQuery{UserID: userID, Page: common.ExtractPageParams(r, 0)}
	views, err := as[[]queries.MemoryView](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, views)
}

// ListRecentMemories handles GET /memories/recent
func (h *MemoryHandler) ListRecentMemories(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.ListRecentMemoriesQuery{UserID: userID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("limit must be a positive integer"))
			return
		}
		query.Limit = min(limit, common.MaxPageLimit)
	}

	views, err := as[[]queries.MemoryView](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, views)
}

// GetMemory handles GET /memories/{id}
func (h *MemoryHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.GetMemoryQuery{UserID: userID, MemoryID: chi.URLParam(r, "id")}
	view, err := as[*queries.MemoryView](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, view)
}

// ReplaceMemory handles PUT /memories/{id}
func (h *MemoryHandler) ReplaceMemory(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

// PatchMemory handles PATCH /memories/{id}
func (h *MemoryHandler) PatchMemory(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

func (h *MemoryHandler) update(w http.ResponseWriter, r *http.Request, replace bool) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req MemoryRequest
	if err := decodeBody(w, r, &req, h.maxBody, false); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.UpdateMemoryCommand{
		UserID:     userID,
		MemoryID:   chi.URLParam(r, "id"),
		Replace:    replace,
		Title:      req.Title,
		Content:    req.Content,
		Tags:       req.Tags,
		URL:        req.URL,
		IsFavorite: req.IsFavorite,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondSuccess(w, "")
}

// DeleteMemory handles DELETE /memories/{id}
func (h *MemoryHandler) DeleteMemory(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	cmd := commands.DeleteMemoryCommand{UserID: userID, MemoryID: chi.URLParam(r, "id")}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Debug("Memory deleted", zap.String("memoryID", cmd.MemoryID), zap.String("userID", userID))
	common.RespondSuccess(w, "")
}
