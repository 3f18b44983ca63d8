package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	"neuronote/pkg/auth"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// Session cookies set by the external auth system.
const (
	SessionCookie       = "better-auth.session_token"
	SecureSessionCookie = "__Secure-better-auth.session_token"
)

const userCacheTTL = 5 * time.Minute

// Authenticator resolves the caller from a bearer JWT or an auth session
// cookie. Resolved users are cached per token.
type Authenticator struct {
	validator *auth.JWTValidator
	users     ports.UserRepository
	cache     ports.Cache
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthenticator creates the middleware. A nil validator disables bearer
// tokens, leaving only session cookies.
func NewAuthenticator(
	validator *auth.JWTValidator,
	users ports.UserRepository,
	cache ports.Cache,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		validator: validator,
		users:     users,
		cache:     cache,
		errors:    errorHandler,
		logger:    logger,
		now:       time.Now,
	}
}

// Middleware rejects unauthenticated requests with 401 before any handler
// runs.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, source, err := a.resolve(r)
		if err != nil {
			a.logger.Debug("Authentication failed",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			a.errors.Handle(w, r, unauthorized(err))
			return
		}

		ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Source: source,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolve(r *http.Request) (*entities.User, string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return nil, "", pkgerrors.NewUnauthorizedError("Invalid authorization header format")
		}
		user, err := a.fromBearer(r.Context(), strings.TrimSpace(token))
		return user, "jwt", err
	}

	if token := sessionToken(r); token != "" {
		user, err := a.fromSession(r.Context(), token)
		return user, "session", err
	}

	return nil, "", auth.ErrMissingToken
}

func (a *Authenticator) fromBearer(ctx context.Context, token string) (*entities.User, error) {
	if a.validator == nil {
		return nil, errors.New("bearer tokens are not accepted")
	}
	key := "auth:jwt:" + token
	if user, ok := a.cached(ctx, key); ok {
		return user, nil
	}

	claims, err := a.validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	ttl := userCacheTTL
	if claims.ExpiresAt != nil {
		ttl = min(ttl, claims.ExpiresAt.Sub(a.now()))
	}
	a.store(ctx, key, user, ttl)
	return user, nil
}

func (a *Authenticator) fromSession(ctx context.Context, token string) (*entities.User, error) {
	key := "auth:session:" + token
	if user, ok := a.cached(ctx, key); ok {
		return user, nil
	}

	session, err := a.users.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	now := a.now()
	if session.IsExpired(now) {
		return nil, auth.ErrExpiredToken
	}
	user, err := a.users.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	a.store(ctx, key, user, min(userCacheTTL, session.ExpiresAt.Sub(now)))
	return user, nil
}

func (a *Authenticator) cached(ctx context.Context, key string) (*entities.User, bool) {
	if a.cache == nil {
		return nil, false
	}
	v, ok := a.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	user, ok := v.(*entities.User)
	return user, ok
}

func (a *Authenticator) store(ctx context.Context, key string, user *entities.User, ttl time.Duration) {
	if a.cache == nil || ttl <= 0 {
		return
	}
	_ = a.cache.Set(ctx, key, user, ttl)
}

// sessionToken reads the session cookie; the token is the part before the
// first dot, the rest is its signature.
func sessionToken(r *http.Request) string {
	for _, name := range []string{SessionCookie, SecureSessionCookie} {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			continue
		}
		value, err := url.QueryUnescape(c.Value)
		if err != nil {
			value = c.Value
		}
		token, _, _ := strings.Cut(value, ".")
		if token != "" {
			return token
		}
	}
	return ""
}

// unauthorized maps every resolution failure to a 401 with a stable message.
func unauthorized(err error) error {
	switch {
	case pkgerrors.IsUnauthorized(err):
		return err
	case errors.Is(err, auth.ErrExpiredToken):
		return pkgerrors.NewUnauthorizedError("Token has expired")
	case errors.Is(err, auth.ErrMissingToken):
		return pkgerrors.NewUnauthorizedError("Missing authentication token")
	default:
		return pkgerrors.NewUnauthorizedError("Unauthorized")
	}
}

// UserID returns the authenticated caller's id; handlers only run behind
// the authenticator.
func UserID(r *http.Request) (string, error) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		return "", pkgerrors.NewUnauthorizedError("Unauthorized")
	}
	return user.UserID, nil
}
