package entities

import (
	"slices"
	"time"

	"neuronote/domain/core/validators"
	"neuronote/domain/core/valueobjects"
	"neuronote/domain/events"
	pkgerrors "neuronote/pkg/errors"
)

var memoryValidator = validators.NewMemoryValidator(nil)

// Memory is a user-owned note. Its id is also the key of its vector record.
type Memory struct {
	id         string
	userID     string
	title      string
	content    string
	tags       []string
	url        *string
	isFavorite bool
	createdAt  time.Time
	updatedAt  time.Time

	events []events.DomainEvent
}

// MemoryInput carries every field of a full write.
type MemoryInput struct {
	Title      string
	Content    string
	Tags       []string
	URL        *string
	IsFavorite bool
}

// MemoryPatch carries only the fields a partial write changes.
type MemoryPatch struct {
	Title      *string
	Content    *string
	Tags       *[]string
	URL        *string
	IsFavorite *bool
}

// IsEmpty reports a patch that changes nothing.
func (p MemoryPatch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Tags == nil && p.URL == nil && p.IsFavorite == nil
}

// NewMemory creates a memory owned by userID.
func NewMemory(id, userID string, in MemoryInput, now time.Time) (*Memory, error) {
	if userID == "" {
		return nil, pkgerrors.NewValidationError("userID cannot be empty")
	}
	if id == "" {
		id = valueobjects.NewID()
	}

	tags := valueobjects.NormalizeTags(in.Tags)
	if err := validateInput(in.Title, in.Content, tags, in.URL); err != nil {
		return nil, err
	}

	m := &Memory{
		id:         id,
		userID:     userID,
		title:      in.Title,
		content:    in.Content,
		tags:       tags,
		url:        in.URL,
		isFavorite: in.IsFavorite,
		createdAt:  now,
		updatedAt:  now,
	}
	m.addEvent(events.NewMemoryCreated(id, userID, tags, now))
	return m, nil
}

// ReconstructMemory rebuilds a memory from storage without validation.
func ReconstructMemory(id, userID, title, content string, tags []string, url *string, isFavorite bool, createdAt, updatedAt time.Time) *Memory {
	if tags == nil {
		tags = []string{}
	}
	return &Memory{
		id:         id,
		userID:     userID,
		title:      title,
		content:    content,
		tags:       tags,
		url:        url,
		isFavorite: isFavorite,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// Replace overwrites every field. Omitted optional fields reset to defaults.
func (m *Memory) Replace(in MemoryInput, now time.Time) error {
	tags := valueobjects.NormalizeTags(in.Tags)
	if err := validateInput(in.Title, in.Content, tags, in.URL); err != nil {
		return err
	}

	contentChanged := m.content != in.Content || m.title != in.Title
	m.title = in.Title
	m.content = in.Content
	m.tags = tags
	m.url = in.URL
	m.isFavorite = in.IsFavorite
	m.touch(now, contentChanged)
	return nil
}

// Patch changes only the provided fields.
func (m *Memory) Patch(p MemoryPatch, now time.Time) error {
	title, content, tags, url := m.title, m.content, m.tags, m.url
	if p.Title != nil {
		title = *p.Title
	}
	if p.Content != nil {
		content = *p.Content
	}
	if p.Tags != nil {
		tags = valueobjects.NormalizeTags(*p.Tags)
	}
	if p.URL != nil {
		url = p.URL
	}
	if err := validateInput(title, content, tags, url); err != nil {
		return err
	}

	contentChanged := m.content != content || m.title != title
	m.title, m.content, m.tags, m.url = title, content, tags, url
	if p.IsFavorite != nil {
		m.isFavorite = *p.IsFavorite
	}
	m.touch(now, contentChanged)
	return nil
}

func (m *Memory) touch(now time.Time, contentChanged bool) {
	m.updatedAt = now
	m.addEvent(events.NewMemoryUpdated(m.id, m.userID, contentChanged, now))
}

func validateInput(title, content string, tags []string, url *string) error {
	if err := memoryValidator.ValidateTitle(title); err != nil {
		return err
	}
	if err := memoryValidator.ValidateContent(content); err != nil {
		return err
	}
	if err := memoryValidator.ValidateTags(tags); err != nil {
		return err
	}
	return memoryValidator.ValidateURL(url)
}

func (m *Memory) ID() string           { return m.id }
func (m *Memory) UserID() string       { return m.userID }
func (m *Memory) Title() string        { return m.title }
func (m *Memory) Content() string      { return m.content }
func (m *Memory) Tags() []string       { return slices.Clone(m.tags) }
func (m *Memory) URL() *string         { return m.url }
func (m *Memory) IsFavorite() bool     { return m.isFavorite }
func (m *Memory) CreatedAt() time.Time { return m.createdAt }
func (m *Memory) UpdatedAt() time.Time { return m.updatedAt }

// DisplayTitle is the title used in prompt context lines.
func (m *Memory) DisplayTitle() string {
	if m.title == "" {
		return "Untitled"
	}
	return m.title
}

// IsOwnedBy reports whether userID owns the memory.
func (m *Memory) IsOwnedBy(userID string) bool {
	return m.userID == userID
}

func (m *Memory) addEvent(e events.DomainEvent) {
	m.events = append(m.events, e)
}

// GetUncommittedEvents returns events raised since the last commit.
func (m *Memory) GetUncommittedEvents() []events.DomainEvent {
	return m.events
}

// MarkEventsAsCommitted clears pending events.
func (m *Memory) MarkEventsAsCommitted() {
	m.events = nil
}
