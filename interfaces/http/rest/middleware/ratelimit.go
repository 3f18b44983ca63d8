package middleware

import (
	"net"
	"net/http"
	"strings"

	"neuronote/pkg/auth"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// RateLimiter rejects requests over budget with 429. The key function picks
// what a budget is counted against.
type RateLimiter struct {
	limiter auth.RateLimiter
	key     func(r *http.Request) string
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
	limit   int
}

// ByIP limits per client address.
func ByIP(limiter auth.RateLimiter, limit int, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{limiter: limiter, key: clientIP, errors: errorHandler, logger: logger, limit: limit}
}

// ByUser limits per authenticated user and must run after the authenticator.
func ByUser(limiter auth.RateLimiter, limit int, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		key: func(r *http.Request) string {
			id, _ := UserID(r)
			return id
		},
		errors: errorHandler,
		logger: logger,
		limit:  limit,
	}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.key(r)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := l.limiter.Allow(r.Context(), key)
		if err != nil {
			// limiters fail open
			l.logger.Warn("Rate limiter error", zap.String("path", r.URL.Path), zap.Error(err))
		}
		if !allowed {
			l.errors.Handle(w, r, pkgerrors.NewRateLimitError(l.limit, "minute"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the address chi's RealIP middleware already resolved.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
