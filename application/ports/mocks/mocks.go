// Package mocks holds testify mocks of the application ports.
package mocks

import (
	"context"
	"io"
	"time"

	"neuronote/application/ports"
	"neuronote/domain/config"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	"neuronote/domain/events"

	"github.com/stretchr/testify/mock"
)

// MockMemoryRepository is a mock implementation of ports.MemoryRepository
type MockMemoryRepository struct {
	mock.Mock
}

func (m *MockMemoryRepository) Create(ctx context.Context, memory *entities.Memory) error {
	return m.Called(ctx, memory).Error(0)
}

func (m *MockMemoryRepository) Save(ctx context.Context, memory *entities.Memory) error {
	return m.Called(ctx, memory).Error(0)
}

func (m *MockMemoryRepository) FindByID(ctx context.Context, userID, id string) (*entities.Memory, error) {
	args := m.Called(ctx, userID, id)
	mem, _ := args.Get(0).(*entities.Memory)
	return mem, args.Error(1)
}

func (m *MockMemoryRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*entities.Memory, error) {
	args := m.Called(ctx, userID, ids)
	mems, _ := args.Get(0).([]*entities.Memory)
	return mems, args.Error(1)
}

func (m *MockMemoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entities.Memory, error) {
	args := m.Called(ctx, userID, limit, offset)
	mems, _ := args.Get(0).([]*entities.Memory)
	return mems, args.Error(1)
}

func (m *MockMemoryRepository) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockMemoryRepository) Search(ctx context.Context, criteria ports.SearchCriteria) ([]*entities.Memory, error) {
	args := m.Called(ctx, criteria)
	mems, _ := args.Get(0).([]*entities.Memory)
	return mems, args.Error(1)
}

func (m *MockMemoryRepository) FindByTags(ctx context.Context, userID string, tags []string) ([]*entities.Memory, error) {
	args := m.Called(ctx, userID, tags)
	mems, _ := args.Get(0).([]*entities.Memory)
	return mems, args.Error(1)
}

func (m *MockMemoryRepository) ListTags(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	tags, _ := args.Get(0).([]string)
	return tags, args.Error(1)
}

func (m *MockMemoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMemoryRepository) ListOwners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

// MockChatRepository is a mock implementation of ports.ChatRepository
type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreateSession(ctx context.Context, session *entities.ChatSession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockChatRepository) FindSession(ctx context.Context, userID, sessionID string) (*entities.ChatSession, error) {
	args := m.Called(ctx, userID, sessionID)
	s, _ := args.Get(0).(*entities.ChatSession)
	return s, args.Error(1)
}

func (m *MockChatRepository) ListSessions(ctx context.Context, userID string) ([]ports.SessionSummary, error) {
	args := m.Called(ctx, userID)
	s, _ := args.Get(0).([]ports.SessionSummary)
	return s, args.Error(1)
}

func (m *MockChatRepository) AppendMessage(ctx context.Context, message *entities.ChatMessage) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockChatRepository) ListMessages(ctx context.Context, userID, sessionID string) ([]*entities.ChatMessage, error) {
	args := m.Called(ctx, userID, sessionID)
	msgs, _ := args.Get(0).([]*entities.ChatMessage)
	return msgs, args.Error(1)
}

func (m *MockChatRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*entities.ChatMessage, error) {
	args := m.Called(ctx, sessionID, limit)
	msgs, _ := args.Get(0).([]*entities.ChatMessage)
	return msgs, args.Error(1)
}

func (m *MockChatRepository) UpdateMessageContent(ctx context.Context, userID, messageID, content string) (*entities.ChatMessage, error) {
	args := m.Called(ctx, userID, messageID, content)
	msg, _ := args.Get(0).(*entities.ChatMessage)
	return msg, args.Error(1)
}

func (m *MockChatRepository) DeleteSession(ctx context.Context, userID, sessionID string) (int, error) {
	args := m.Called(ctx, userID, sessionID)
	return args.Int(0), args.Error(1)
}

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, userID string) (*entities.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*entities.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) UpdateImage(ctx context.Context, userID, image string, at time.Time) error {
	return m.Called(ctx, userID, image, at).Error(0)
}

func (m *MockUserRepository) FindSessionByToken(ctx context.Context, token string) (*entities.AuthSession, error) {
	args := m.Called(ctx, token)
	s, _ := args.Get(0).(*entities.AuthSession)
	return s, args.Error(1)
}

// MockIndexRepairQueue is a mock implementation of ports.IndexRepairQueue
type MockIndexRepairQueue struct {
	mock.Mock
}

func (m *MockIndexRepairQueue) Enqueue(ctx context.Context, repair ports.IndexRepair) error {
	return m.Called(ctx, repair).Error(0)
}

func (m *MockIndexRepairQueue) Pending(ctx context.Context, limit, maxAttempts int) ([]ports.IndexRepair, error) {
	args := m.Called(ctx, limit, maxAttempts)
	r, _ := args.Get(0).([]ports.IndexRepair)
	return r, args.Error(1)
}

func (m *MockIndexRepairQueue) Complete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockIndexRepairQueue) Fail(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

// MockSemanticIndex is a mock implementation of ports.SemanticIndex
type MockSemanticIndex struct {
	mock.Mock
}

func (m *MockSemanticIndex) Upsert(ctx context.Context, ns valueobjects.SemanticNamespace, records []ports.IndexRecord) error {
	return m.Called(ctx, ns, records).Error(0)
}

func (m *MockSemanticIndex) DeleteOne(ctx context.Context, ns valueobjects.SemanticNamespace, id string) error {
	return m.Called(ctx, ns, id).Error(0)
}

func (m *MockSemanticIndex) Search(ctx context.Context, ns valueobjects.SemanticNamespace, req ports.SearchRequest) ([]ports.RetrievalHit, error) {
	args := m.Called(ctx, ns, req)
	hits, _ := args.Get(0).([]ports.RetrievalHit)
	return hits, args.Error(1)
}

// MockCompletionGateway is a mock implementation of ports.CompletionGateway
type MockCompletionGateway struct {
	mock.Mock
}

func (m *MockCompletionGateway) Complete(ctx context.Context, model string, messages []ports.CompletionMessage) (valueobjects.ReplyContent, error) {
	args := m.Called(ctx, model, messages)
	reply, _ := args.Get(0).(valueobjects.ReplyContent)
	return reply, args.Error(1)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventBus) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	return m.Called(ctx, evts).Error(0)
}

// MockMetrics is a mock implementation of ports.Metrics
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IndexDrift(operation string) { m.Called(operation) }
func (m *MockMetrics) IndexRepair(outcome string)  { m.Called(outcome) }
func (m *MockMetrics) RetrievalHits(candidates, kept int) {
	m.Called(candidates, kept)
}
func (m *MockMetrics) Completion(provider string, duration time.Duration, err error) {
	m.Called(provider, duration, err)
}
func (m *MockMetrics) HTTPRequest(method, route string, status int, duration time.Duration) {
	m.Called(method, route, status, duration)
}

// MockAvatarStorage is a mock implementation of ports.AvatarStorage
type MockAvatarStorage struct {
	mock.Mock
}

func (m *MockAvatarStorage) Save(ctx context.Context, userID string, image io.Reader) (string, error) {
	args := m.Called(ctx, userID, image)
	return args.String(0), args.Error(1)
}

// StaticTunables returns a fixed retrieval configuration.
type StaticTunables struct {
	Config config.RetrievalConfig
}

func (s StaticTunables) Retrieval() config.RetrievalConfig { return s.Config }
