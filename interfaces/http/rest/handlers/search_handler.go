package handlers

import (
	"net/http"

	"neuronote/application/queries"
	querybus "neuronote/application/queries/bus"
	"neuronote/interfaces/http/rest/middleware"
	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// defaultSearchLimit applies when the caller sends no limit.
const defaultSearchLimit = 10

// SearchHandler serves keyword search and the tag endpoints
type SearchHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

func NewSearchHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		queryBus: queryBus,
		errors:   errorHandler,
		logger:   logger,
	}
}

// SearchResponse is a page of keyword matches
type SearchResponse struct {
	Success bool                 `json:"success"`
	Data    []queries.MemoryView `json:"data"`
	Meta    common.PageMeta      `json:"meta"`
}

// Search handles GET /search and GET /dashboard/search. An empty q matches
// every memory.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.SearchMemoriesQuery{
		UserID: userID,
		Query:  r.URL.Query().Get("q"),
		Page:   common.ExtractPageParams(r, defaultSearchLimit),
	}
	result, err := as[*queries.SearchMemoriesResult](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, SearchResponse{Success: true, Data: result.Data, Meta: result.Meta})
}

// ListTags handles GET /tags/me/all
func (h *SearchHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	result, err := as[*queries.ListTagsResult](h.queryBus.Ask(r.Context(), queries.ListTagsQuery{UserID: userID}))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// SearchByTags handles GET /tags/search?q=a,b
func (h *SearchHandler) SearchByTags(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.SearchByTagsQuery{UserID: userID, Raw: r.URL.Query().Get("q")}
	result, err := as[*queries.SearchByTagsResult](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
