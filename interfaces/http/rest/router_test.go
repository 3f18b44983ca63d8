package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"neuronote/application/commands/bus"
	"neuronote/application/ports/mocks"
	querybus "neuronote/application/queries/bus"
	"neuronote/infrastructure/metrics"
	"neuronote/interfaces/http/rest/middleware"
	pkgerrors "neuronote/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func newTestRouter(t *testing.T, db Pinger) (http.Handler, *mocks.MockUserRepository) {
	t.Helper()
	logger := zap.NewNop()
	errorHandler := pkgerrors.NewErrorHandler(logger, false)
	users := new(mocks.MockUserRepository)
	authenticator := middleware.NewAuthenticator(nil, users, nil, errorHandler, logger)

	router := NewRouter(
		bus.NewCommandBus(),
		querybus.NewQueryBus(),
		authenticator,
		errorHandler,
		Limits{},
		metrics.NewCollector("neuronote"),
		db,
		RouterConfig{CORSOrigins: []string{"http://localhost:3000"}, UploadDir: t.TempDir()},
		logger,
	)
	return router.Setup(), users
}

func TestRouter_Health(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestRouter_Ready_DatabaseDown(t *testing.T) {
	handler, _ := newTestRouter(t, pinger{err: assert.AnError})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Database unavailable"}`, rec.Body.String())
}

func TestRouter_SecuredRoutes_RequireAuthentication(t *testing.T) {
	handler, users := newTestRouter(t, pinger{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/memories"},
		{http.MethodPost, "/chats/session"},
		{http.MethodGet, "/ai/ai/chat?q=x"},
		{http.MethodGet, "/tags/me/all"},
		{http.MethodGet, "/profile/me"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"message":"Missing authentication token"}`, rec.Body.String())
		})
	}
	users.AssertNotCalled(t, "FindByID")
}

func TestRouter_CORSPreflight(t *testing.T) {
	handler, _ := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/memories", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Less(t, rec.Code, 300)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestRouter_MetricsExposed(t *testing.T) {
	handler, _ := newTestRouter(t, nil)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neuronote_http_requests_total")
}

func TestRouter_UnknownRoute(t *testing.T) {
	handler, _ := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not found"}`, rec.Body.String())
}
