package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"neuronote/application/ports/mocks"
	"neuronote/domain/core/entities"
	"neuronote/pkg/auth"
	pkgerrors "neuronote/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCache struct {
	items map[string]interface{}
}

func newMemCache() *memCache {
	return &memCache{items: map[string]interface{}{}}
}

func (c *memCache) Get(ctx context.Context, key string) (interface{}, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.items[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.items, key)
	return nil
}

type authFixture struct {
	users     *mocks.MockUserRepository
	cache     *memCache
	generator *auth.JWTGenerator
	auth      *Authenticator
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SigningMethod: "HS256", SecretKey: "secret"})
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator("secret", "", nil, time.Hour)
	require.NoError(t, err)

	users := new(mocks.MockUserRepository)
	cache := newMemCache()
	return &authFixture{
		users:     users,
		cache:     cache,
		generator: generator,
		auth:      NewAuthenticator(validator, users, cache, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop()),
	}
}

// echoUser writes the resolved caller id and source.
var echoUser = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(user.UserID + "/" + user.Source))
})

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	msg, _ := body["message"].(string)
	return msg
}

func TestAuthenticator_Bearer(t *testing.T) {
	// Arrange
	f := newAuthFixture(t)
	token, err := f.generator.GenerateToken("u1", "a@example.com")
	require.NoError(t, err)
	f.users.On("FindByID", mock.Anything, "u1").Return(&entities.User{ID: "u1", Email: "a@example.com"}, nil).Once()
	handler := f.auth.Middleware(echoUser)

	// Act
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/memories", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		// Assert
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1/jwt", rec.Body.String())
	}
	// second request served from the cache
	f.users.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestAuthenticator_SessionCookie(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("FindSessionByToken", mock.Anything, "tok").
		Return(&entities.AuthSession{Token: "tok", UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)}, nil)
	f.users.On("FindByID", mock.Anything, "u2").Return(&entities.User{ID: "u2"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req.AddCookie(&http.Cookie{Name: SecureSessionCookie, Value: "tok.signature"})
	rec := httptest.NewRecorder()
	f.auth.Middleware(echoUser).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2/session", rec.Body.String())
}

func TestAuthenticator_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *authFixture, req *http.Request)
		message string
	}{
		{
			name:    "no credentials",
			setup:   func(f *authFixture, req *http.Request) {},
			message: "Missing authentication token",
		},
		{
			name: "malformed header",
			setup: func(f *authFixture, req *http.Request) {
				req.Header.Set("Authorization", "Token abc")
			},
			message: "Invalid authorization header format",
		},
		{
			name: "expired session",
			setup: func(f *authFixture, req *http.Request) {
				f.users.On("FindSessionByToken", mock.Anything, "old").
					Return(&entities.AuthSession{Token: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}, nil)
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "old.sig"})
			},
			message: "Token has expired",
		},
		{
			name: "unknown session",
			setup: func(f *authFixture, req *http.Request) {
				f.users.On("FindSessionByToken", mock.Anything, "nope").
					Return(nil, pkgerrors.NewNotFoundError("Session"))
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "nope.sig"})
			},
			message: "Unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			req := httptest.NewRequest(http.MethodGet, "/memories", nil)
			tt.setup(f, req)
			rec := httptest.NewRecorder()

			f.auth.Middleware(echoUser).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.message, message(t, rec))
			f.users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthenticator_BearerDisabledWithoutValidator(t *testing.T) {
	users := new(mocks.MockUserRepository)
	a := NewAuthenticator(nil, users, nil, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()

	a.Middleware(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (l *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.keys = append(l.keys, key)
	return l.allowed, l.err
}

func (l *stubLimiter) Reset(ctx context.Context, key string) error { return nil }

func TestRateLimiter_ByIP_Rejects(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	mw := ByIP(limiter, 2, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/memories", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()

	mw.Middleware(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded: 2 requests per minute", message(t, rec))
	assert.Equal(t, []string{"203.0.113.9"}, limiter.keys)
}

func TestRateLimiter_FailsOpenOnLimiterError(t *testing.T) {
	limiter := &stubLimiter{allowed: true, err: errors.New("dynamodb throttled")}
	mw := ByUser(limiter, 2, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/chats/s1", nil)
	req = req.WithContext(auth.SetUserInContext(req.Context(), &auth.UserContext{UserID: "u1", Source: "jwt"}))
	rec := httptest.NewRecorder()

	mw.Middleware(echoUser).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"u1"}, limiter.keys)
}

func TestRateLimiter_ByUser_SkipsAnonymous(t *testing.T) {
	limiter := &stubLimiter{allowed: false}
	mw := ByUser(limiter, 2, pkgerrors.NewErrorHandler(zap.NewNop(), false), zap.NewNop())
	rec := httptest.NewRecorder()

	mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, limiter.keys)
}
