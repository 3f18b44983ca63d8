package entities

import "time"

// User is owned by the external auth system; this service reads it and may
// replace the profile image.
type User struct {
	ID            string
	Name          string
	Email         string
	EmailVerified bool
	Image         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AuthSession is an auth-system session row resolved from a session cookie.
type AuthSession struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// IsExpired reports whether the session is no longer valid at now.
func (s AuthSession) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
