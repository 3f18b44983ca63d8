package queries

import (
	"strings"

	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"
)

// ListSessionsQuery lists a user's chat sessions newest first
type ListSessionsQuery struct {
	UserID string
}

func (q ListSessionsQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return nil
}

// ListMessagesQuery lists the messages of one session oldest first
type ListMessagesQuery struct {
	UserID    string
	SessionID string
}

func (q ListMessagesQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	if q.SessionID == "" {
		return pkgerrors.NewValidationError("session ID is required")
	}
	return nil
}

// GetProfileQuery loads the caller's profile
type GetProfileQuery struct {
	UserID string
}

func (q GetProfileQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return nil
}

// AskQuery is a one-shot question answered from the caller's memories.
// Nothing is persisted.
type AskQuery struct {
	UserID string
	Query  string
	Page   common.PageParams
}

func (q AskQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	if strings.TrimSpace(q.Query) == "" {
		return pkgerrors.NewValidationError("Query 'q' is required.")
	}
	return validatePage(q.Page)
}

// AskResult is the answer plus the page of memories it drew on
type AskResult struct {
	Query   string          `json:"query"`
	Summary string          `json:"summary"`
	Results []MemoryView    `json:"results"`
	Meta    common.PageMeta `json:"meta"`
}
