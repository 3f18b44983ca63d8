package queries

import (
	"fmt"

	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"
)

var errUserRequired = pkgerrors.NewValidationError("user ID is required")

// GetMemoryQuery represents a query to get a single memory
type GetMemoryQuery struct {
	UserID   string
	MemoryID string
}

// Validate validates the GetMemoryQuery
func (q GetMemoryQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	if q.MemoryID == "" {
		return pkgerrors.NewValidationError("memory ID is required")
	}
	return nil
}

// ListMemoriesQuery lists a user's memories newest first
type ListMemoriesQuery struct {
	UserID string
	Page   common.PageParams
}

func (q ListMemoriesQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return validatePage(q.Page)
}

// ListRecentMemoriesQuery returns the newest few memories
type ListRecentMemoriesQuery struct {
	UserID string
	Limit  int
}

func (q ListRecentMemoriesQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	if q.Limit < 0 {
		return pkgerrors.NewValidationError("limit must not be negative")
	}
	return nil
}

// SearchMemoriesQuery is the keyword search over title, content and tags
type SearchMemoriesQuery struct {
	UserID string
	Query  string
	Page   common.PageParams
}

func (q SearchMemoriesQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return validatePage(q.Page)
}

// SearchMemoriesResult is a page of keyword matches
type SearchMemoriesResult struct {
	Data []MemoryView    `json:"data"`
	Meta common.PageMeta `json:"meta"`
}

// ListTagsQuery returns the distinct tags of a user
type ListTagsQuery struct {
	UserID string
}

func (q ListTagsQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return nil
}

// CacheKey scopes cached tag lists to their owner.
func (q ListTagsQuery) CacheKey() string {
	return fmt.Sprintf("tags:%s", q.UserID)
}

// ListTagsResult is the tag inventory of a user
type ListTagsResult struct {
	Tags  []string `json:"tags"`
	Count int      `json:"count"`
}

// SearchByTagsQuery matches memories carrying any of the comma separated tags
type SearchByTagsQuery struct {
	UserID string
	Raw    string
}

func (q SearchByTagsQuery) Validate() error {
	if q.UserID == "" {
		return errUserRequired
	}
	return nil
}

// SearchByTagsResult lists tag matches
type SearchByTagsResult struct {
	Tags    []string     `json:"tags"`
	Count   int          `json:"count"`
	Results []MemoryView `json:"results"`
}

func validatePage(p common.PageParams) error {
	if p.Limit < 0 || p.Offset < 0 {
		return pkgerrors.NewValidationError("limit and offset must not be negative")
	}
	return nil
}
