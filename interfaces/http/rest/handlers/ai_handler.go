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

// AIHandler answers one-shot questions from the caller's memories
type AIHandler struct {
	queryBus *querybus.QueryBus
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

func NewAIHandler(queryBus *querybus.QueryBus, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *AIHandler {
	return &AIHandler{queryBus: queryBus, errors: errorHandler, logger: logger}
}

// AskResponse flattens the answer next to the success flag
type AskResponse struct {
	Success bool `json:"success"`
	*queries.AskResult
}

// Ask handles GET /ai/ai/chat?q=&limit=&offset=. Without a limit the
// configured query page size applies.
func (h *AIHandler) Ask(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	query := queries.AskQuery{
		UserID: userID,
		Query:  r.URL.Query().Get("q"),
		Page:   common.ExtractPageParams(r, 0),
	}
	result, err := as[*queries.AskResult](h.queryBus.Ask(r.Context(), query))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, AskResponse{Success: true, AskResult: result})
}
