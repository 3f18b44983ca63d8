package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"neuronote/domain/core/entities"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/utils"

	"github.com/pkg/errors"
)

// UserRepository reads the auth system's tables.
type UserRepository struct {
	*DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, userID string) (*entities.User, error) {
	var u entities.User
	var created, updated int64
	err := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT id, name, email, email_verified, image, created_at, updated_at
		FROM users WHERE id = ?`), userID,
	).Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &u.Image, &created, &updated)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("User")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load user")
	}
	u.CreatedAt = utils.FromMillis(created)
	u.UpdatedAt = utils.FromMillis(updated)
	return &u, nil
}

func (r *UserRepository) UpdateImage(ctx context.Context, userID, image string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`UPDATE users SET image = ?, updated_at = ? WHERE id = ?`),
		image, utils.ToMillis(at), userID)
	if err != nil {
		return errors.Wrap(err, "failed to update user image")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.NewNotFoundError("User")
	}
	return nil
}

func (r *UserRepository) FindSessionByToken(ctx context.Context, token string) (*entities.AuthSession, error) {
	var s entities.AuthSession
	var expires int64
	err := r.db.QueryRowContext(ctx, r.rebind(`
		SELECT token, user_id, expires_at FROM auth_sessions WHERE token = ?`), token,
	).Scan(&s.Token, &s.UserID, &expires)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("Session")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load auth session")
	}
	s.ExpiresAt = utils.FromMillis(expires)
	return &s, nil
}

// UpsertUser writes a user row. The auth system owns users; this exists for
// local development seeding and tests.
func (r *UserRepository) UpsertUser(ctx context.Context, u *entities.User) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO users (id, name, email, email_verified, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			email_verified = excluded.email_verified,
			image = excluded.image,
			updated_at = excluded.updated_at`),
		u.ID, u.Name, u.Email, u.EmailVerified, u.Image, utils.ToMillis(u.CreatedAt), utils.ToMillis(u.UpdatedAt),
	)
	return errors.Wrap(err, "failed to upsert user")
}

// InsertAuthSession stores a session token; used for seeding like UpsertUser.
func (r *UserRepository) InsertAuthSession(ctx context.Context, s entities.AuthSession) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO auth_sessions (token, user_id, expires_at) VALUES (?, ?, ?)`),
		s.Token, s.UserID, utils.ToMillis(s.ExpiresAt))
	return errors.Wrap(err, "failed to insert auth session")
}
