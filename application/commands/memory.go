package commands

import (
	"neuronote/domain/core/entities"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/utils"
)

// validate runs struct tags and reports failures as validation errors.
func validate(cmd interface{}) error {
	if err := utils.ValidateStruct(cmd); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// CreateMemoryCommand stores a new memory and indexes it
type CreateMemoryCommand struct {
	UserID     string   `json:"userId" validate:"required"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
	URL        *string  `json:"url"`
	IsFavorite bool     `json:"isFavorite"`
}

func (c CreateMemoryCommand) Validate() error {
	return validate(c)
}

// Input converts the command into entity input.
func (c CreateMemoryCommand) Input() entities.MemoryInput {
	return entities.MemoryInput{
		Title:      c.Title,
		Content:    c.Content,
		Tags:       c.Tags,
		URL:        c.URL,
		IsFavorite: c.IsFavorite,
	}
}

// UpdateMemoryCommand changes a memory. Replace overwrites every field and
// requires title and content; otherwise only non-nil fields change.
type UpdateMemoryCommand struct {
	UserID     string    `json:"userId" validate:"required"`
	MemoryID   string    `json:"memoryId" validate:"required"`
	Replace    bool      `json:"-"`
	Title      *string   `json:"title"`
	Content    *string   `json:"content"`
	Tags       *[]string `json:"tags"`
	URL        *string   `json:"url"`
	IsFavorite *bool     `json:"isFavorite"`
}

func (c UpdateMemoryCommand) Validate() error {
	if err := validate(c); err != nil {
		return err
	}
	if c.Replace && (c.Title == nil || c.Content == nil) {
		return pkgerrors.NewValidationError("title and content are required")
	}
	return nil
}

// Input is the full replacement input; missing optional fields take defaults.
func (c UpdateMemoryCommand) Input() entities.MemoryInput {
	in := entities.MemoryInput{URL: c.URL}
	if c.Title != nil {
		in.Title = *c.Title
	}
	if c.Content != nil {
		in.Content = *c.Content
	}
	if c.Tags != nil {
		in.Tags = *c.Tags
	}
	if c.IsFavorite != nil {
		in.IsFavorite = *c.IsFavorite
	}
	return in
}

// Patch is the partial update carried by the command.
func (c UpdateMemoryCommand) Patch() entities.MemoryPatch {
	return entities.MemoryPatch{
		Title:      c.Title,
		Content:    c.Content,
		Tags:       c.Tags,
		URL:        c.URL,
		IsFavorite: c.IsFavorite,
	}
}

// DeleteMemoryCommand removes a memory and its vector record
type DeleteMemoryCommand struct {
	UserID   string `json:"userId" validate:"required"`
	MemoryID string `json:"memoryId" validate:"required"`
}

func (c DeleteMemoryCommand) Validate() error {
	return validate(c)
}

// RepairMemoryIndexCommand reconciles one memory's vector record with its row
type RepairMemoryIndexCommand struct {
	UserID   string `json:"userId" validate:"required"`
	MemoryID string `json:"memoryId" validate:"required"`
}

func (c RepairMemoryIndexCommand) Validate() error {
	return validate(c)
}

// ReindexCommand re-upserts every memory of UserID, or of every owner when
// All is set.
type ReindexCommand struct {
	UserID      string
	All         bool
	Parallelism int
}

func (c ReindexCommand) Validate() error {
	if !c.All && c.UserID == "" {
		return pkgerrors.NewValidationError("user ID is required")
	}
	if c.All && c.UserID != "" {
		return pkgerrors.NewValidationError("user ID and all are mutually exclusive")
	}
	return nil
}

// ReindexResult summarises a sweep.
type ReindexResult struct {
	Users   int `json:"users"`
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}
