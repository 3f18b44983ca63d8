package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"slices"

	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/utils"

	"github.com/pkg/errors"
)

const messageColumns = `c.id, c.session_id, c.role, c.content, c.created_at`

// ChatRepository implements ports.ChatRepository. Message order is the
// per-session seq column, assigned on append.
type ChatRepository struct {
	*DB
}

func NewChatRepository(db *DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

func (r *ChatRepository) CreateSession(ctx context.Context, session *entities.ChatSession) error {
	_, err := r.db.ExecContext(ctx, r.rebind(`
		INSERT INTO chat_sessions (id, user_id, title, created_at) VALUES (?, ?, ?, ?)`),
		session.ID, session.UserID, session.Title, utils.ToMillis(session.CreatedAt),
	)
	return errors.Wrap(err, "failed to insert chat session")
}

func (r *ChatRepository) FindSession(ctx context.Context, userID, sessionID string) (*entities.ChatSession, error) {
	return r.findSession(ctx, r.db, userID, sessionID)
}

func (r *ChatRepository) findSession(ctx context.Context, q queryer, userID, sessionID string) (*entities.ChatSession, error) {
	var s entities.ChatSession
	var created int64
	err := q.QueryRowContext(ctx, r.rebind(`
		SELECT id, user_id, title, created_at FROM chat_sessions WHERE id = ? AND user_id = ?`),
		sessionID, userID,
	).Scan(&s.ID, &s.UserID, &s.Title, &created)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("Session")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load chat session")
	}
	s.CreatedAt = utils.FromMillis(created)
	return &s, nil
}

func (r *ChatRepository) ListSessions(ctx context.Context, userID string) ([]ports.SessionSummary, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT id, user_id, title, created_at FROM chat_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat sessions")
	}

	var summaries []ports.SessionSummary
	index := make(map[string]int)
	for rows.Next() {
		var s entities.ChatSession
		var created int64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &created); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan chat session")
		}
		s.CreatedAt = utils.FromMillis(created)
		index[s.ID] = len(summaries)
		summaries = append(summaries, ports.SessionSummary{Session: &s})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chat sessions")
	}
	if len(summaries) == 0 {
		return []ports.SessionSummary{}, nil
	}

	latest, err := r.scanMessages(ctx, r.db, `
		SELECT `+messageColumns+` FROM chat_messages c
		JOIN (
			SELECT l.session_id, MAX(l.seq) AS seq FROM chat_messages l
			JOIN chat_sessions s ON s.id = l.session_id
			WHERE s.user_id = ?
			GROUP BY l.session_id
		) last ON last.session_id = c.session_id AND last.seq = c.seq`, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range latest {
		if i, ok := index[m.SessionID]; ok {
			summaries[i].LatestMessage = m
		}
	}
	return summaries, nil
}

// appendAttempts bounds retries when concurrent appends to one session race
// for the same seq.
const appendAttempts = 5

func (r *ChatRepository) AppendMessage(ctx context.Context, message *entities.ChatMessage) error {
	err := retryOnConflict(appendAttempts, func() error {
		_, err := r.db.ExecContext(ctx, r.rebind(`
			INSERT INTO chat_messages (id, session_id, seq, role, content, created_at)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE session_id = ?), ?, ?, ?)`),
			message.ID, message.SessionID, message.SessionID, string(message.Role), message.Content,
			utils.ToMillis(message.CreatedAt),
		)
		return err
	})
	return errors.Wrap(err, "failed to append chat message")
}

func (r *ChatRepository) ListMessages(ctx context.Context, userID, sessionID string) ([]*entities.ChatMessage, error) {
	return r.scanMessages(ctx, r.db, `
		SELECT `+messageColumns+` FROM chat_messages c
		JOIN chat_sessions s ON s.id = c.session_id
		WHERE c.session_id = ? AND s.user_id = ?
		ORDER BY c.seq`, sessionID, userID)
}

func (r *ChatRepository) RecentMessages(ctx context.Context, sessionID string, limit int) ([]*entities.ChatMessage, error) {
	if limit <= 0 {
		return []*entities.ChatMessage{}, nil
	}
	messages, err := r.scanMessages(ctx, r.db, `
		SELECT `+messageColumns+` FROM chat_messages c
		WHERE c.session_id = ?
		ORDER BY c.seq DESC
		LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *ChatRepository) UpdateMessageContent(ctx context.Context, userID, messageID, content string) (*entities.ChatMessage, error) {
	var updated *entities.ChatMessage
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(`
			UPDATE chat_messages SET content = ?
			WHERE id = ? AND session_id IN (SELECT id FROM chat_sessions WHERE user_id = ?)`),
			content, messageID, userID,
		)
		if err != nil {
			return errors.Wrap(err, "failed to update chat message")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return pkgerrors.NewNotFoundError("Message")
		}

		messages, err := r.scanMessages(ctx, tx, `SELECT `+messageColumns+` FROM chat_messages c WHERE c.id = ?`, messageID)
		if err != nil {
			return err
		}
		if len(messages) == 0 {
			return pkgerrors.NewNotFoundError("Message")
		}
		updated = messages[0]
		return nil
	})
	return updated, err
}

func (r *ChatRepository) DeleteSession(ctx context.Context, userID, sessionID string) (int, error) {
	var removed int
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.findSession(ctx, tx, userID, sessionID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM chat_messages WHERE session_id = ?`), sessionID)
		if err != nil {
			return errors.Wrap(err, "failed to delete chat messages")
		}
		n, _ := res.RowsAffected()
		removed = int(n)

		_, err = tx.ExecContext(ctx, r.rebind(`DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`), sessionID, userID)
		return errors.Wrap(err, "failed to delete chat session")
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// scanMessages returns stored roles verbatim; validation happens where the
// role is used.
func (r *ChatRepository) scanMessages(ctx context.Context, q queryer, query string, args ...any) ([]*entities.ChatMessage, error) {
	rows, err := q.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chat messages")
	}
	defer rows.Close()

	messages := []*entities.ChatMessage{}
	for rows.Next() {
		var m entities.ChatMessage
		var role string
		var created int64
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &created); err != nil {
			return nil, errors.Wrap(err, "failed to scan chat message")
		}
		m.Role = valueobjects.Role(role)
		m.CreatedAt = utils.FromMillis(created)
		messages = append(messages, &m)
	}
	return messages, errors.Wrap(rows.Err(), "failed to iterate chat messages")
}
