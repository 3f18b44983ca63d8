package queries

import (
	"time"

	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
)

// MemoryView is the wire shape of a memory
type MemoryView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	URL        *string   `json:"url"`
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewMemoryView maps a memory entity to its view
func NewMemoryView(m *entities.Memory) MemoryView {
	return MemoryView{
		ID:         m.ID(),
		UserID:     m.UserID(),
		Title:      m.Title(),
		Content:    m.Content(),
		Tags:       m.Tags(),
		URL:        m.URL(),
		IsFavorite: m.IsFavorite(),
		CreatedAt:  m.CreatedAt(),
		UpdatedAt:  m.UpdatedAt(),
	}
}

// NewMemoryViews maps a slice, never returning nil
func NewMemoryViews(ms []*entities.Memory) []MemoryView {
	views := make([]MemoryView, 0, len(ms))
	for _, m := range ms {
		views = append(views, NewMemoryView(m))
	}
	return views
}

// MessageView is the wire shape of a chat message
type MessageView struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	Role      valueobjects.Role `json:"role"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"createdAt"`
}

func NewMessageView(m *entities.ChatMessage) MessageView {
	return MessageView{
		ID:        m.ID,
		SessionID: m.SessionID,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func NewMessageViews(ms []*entities.ChatMessage) []MessageView {
	views := make([]MessageView, 0, len(ms))
	for _, m := range ms {
		views = append(views, NewMessageView(m))
	}
	return views
}

// SessionView is a chat session with at most its latest message
type SessionView struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Title     string        `json:"title"`
	CreatedAt time.Time     `json:"createdAt"`
	Messages  []MessageView `json:"messages"`
}

func NewSessionView(s *entities.ChatSession, latest *entities.ChatMessage) SessionView {
	v := SessionView{
		ID:        s.ID,
		UserID:    s.UserID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		Messages:  []MessageView{},
	}
	if latest != nil {
		v.Messages = append(v.Messages, NewMessageView(latest))
	}
	return v
}

// ProfileView is the caller's profile with their memory count
type ProfileView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	Image         string    `json:"image"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	MemoriesCount int       `json:"memoriesCount"`
}

func NewProfileView(u *entities.User, memoriesCount int) ProfileView {
	return ProfileView{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
		MemoriesCount: memoriesCount,
	}
}
