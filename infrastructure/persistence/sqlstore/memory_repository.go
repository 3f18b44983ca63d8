package sqlstore

import (
	"context"
	"database/sql"
	"strings"

	"neuronote/application/ports"
	"neuronote/domain/core/entities"
	pkgerrors "neuronote/pkg/errors"
	"neuronote/pkg/utils"

	"github.com/pkg/errors"
)

const memoryColumns = `m.id, m.user_id, m.title, m.content, m.url, m.is_favorite, m.created_at, m.updated_at`

// MemoryRepository implements ports.MemoryRepository.
type MemoryRepository struct {
	*DB
}

func NewMemoryRepository(db *DB) *MemoryRepository {
	return &MemoryRepository{DB: db}
}

func (r *MemoryRepository) Create(ctx context.Context, memory *entities.Memory) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO memories (id, user_id, title, content, url, is_favorite, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			memory.ID(), memory.UserID(), memory.Title(), memory.Content(), nullString(memory.URL()),
			memory.IsFavorite(), utils.ToMillis(memory.CreatedAt()), utils.ToMillis(memory.UpdatedAt()),
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert memory")
		}
		return r.writeTags(ctx, tx, memory.ID(), memory.Tags())
	})
}

func (r *MemoryRepository) Save(ctx context.Context, memory *entities.Memory) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(`
			UPDATE memories SET title = ?, content = ?, url = ?, is_favorite = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`),
			memory.Title(), memory.Content(), nullString(memory.URL()), memory.IsFavorite(),
			utils.ToMillis(memory.UpdatedAt()), memory.ID(), memory.UserID(),
		)
		if err != nil {
			return errors.Wrap(err, "failed to update memory")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return pkgerrors.NewNotFoundError("Memory")
		}

		if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM memory_tags WHERE memory_id = ?`), memory.ID()); err != nil {
			return errors.Wrap(err, "failed to clear memory tags")
		}
		return r.writeTags(ctx, tx, memory.ID(), memory.Tags())
	})
}

func (r *MemoryRepository) writeTags(ctx context.Context, tx *sql.Tx, memoryID string, tags []string) error {
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			r.rebind(`INSERT INTO memory_tags (memory_id, tag, position) VALUES (?, ?, ?)`),
			memoryID, tag, i,
		); err != nil {
			return errors.Wrapf(err, "failed to insert tag %q", tag)
		}
	}
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, userID, id string) (*entities.Memory, error) {
	memories, err := r.query(ctx, `
		SELECT `+memoryColumns+` FROM memories m
		WHERE m.id = ? AND m.user_id = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if len(memories) == 0 {
		return nil, pkgerrors.NewNotFoundError("Memory")
	}
	return memories[0], nil
}

func (r *MemoryRepository) FindByIDs(ctx context.Context, userID string, ids []string) ([]*entities.Memory, error) {
	if len(ids) == 0 {
		return []*entities.Memory{}, nil
	}
	args := append([]any{userID}, anyArgs(ids)...)
	return r.query(ctx, `
		SELECT `+memoryColumns+` FROM memories m
		WHERE m.user_id = ? AND m.id IN (`+placeholders(len(ids))+`)`, args...)
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entities.Memory, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories m
		WHERE m.user_id = ?
		ORDER BY m.created_at DESC, m.id DESC`
	query, args := r.paginate(query, []any{userID}, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *MemoryRepository) Delete(ctx context.Context, userID, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM memories WHERE id = ? AND user_id = ?`), id, userID)
		if err != nil {
			return errors.Wrap(err, "failed to delete memory")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return pkgerrors.NewNotFoundError("Memory")
		}
		_, err = tx.ExecContext(ctx, r.rebind(`DELETE FROM memory_tags WHERE memory_id = ?`), id)
		return errors.Wrap(err, "failed to delete memory tags")
	})
}

// Search matches the whole query against title and content case-insensitively,
// or any whitespace separated keyword exactly against tags.
func (r *MemoryRepository) Search(ctx context.Context, criteria ports.SearchCriteria) ([]*entities.Memory, error) {
	pattern := "%" + escapeLike(criteria.Query) + "%"
	conds := []string{
		`m.title ` + r.like() + ` ? ESCAPE '\'`,
		`m.content ` + r.like() + ` ? ESCAPE '\'`,
	}
	args := []any{criteria.UserID, pattern, pattern}
	if len(criteria.Keywords) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM memory_tags t WHERE t.memory_id = m.id AND t.tag IN (`+placeholders(len(criteria.Keywords))+`))`)
		args = append(args, anyArgs(criteria.Keywords)...)
	}

	query := `SELECT ` + memoryColumns + ` FROM memories m
		WHERE m.user_id = ? AND (` + strings.Join(conds, " OR ") + `)
		ORDER BY m.created_at DESC, m.id DESC`
	query, args = r.paginate(query, args, criteria.Limit, criteria.Offset)
	return r.query(ctx, query, args...)
}

func (r *MemoryRepository) FindByTags(ctx context.Context, userID string, tags []string) ([]*entities.Memory, error) {
	if len(tags) == 0 {
		return []*entities.Memory{}, nil
	}
	args := append([]any{userID}, anyArgs(tags)...)
	return r.query(ctx, `
		SELECT `+memoryColumns+` FROM memories m
		WHERE m.user_id = ?
		AND EXISTS (SELECT 1 FROM memory_tags t WHERE t.memory_id = m.id AND t.tag IN (`+placeholders(len(tags))+`))
		ORDER BY m.created_at DESC, m.id DESC`, args...)
}

func (r *MemoryRepository) ListTags(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT DISTINCT t.tag FROM memory_tags t
		JOIN memories m ON m.id = t.memory_id
		WHERE m.user_id = ?
		ORDER BY t.tag`), userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		tags = append(tags, tag)
	}
	return tags, errors.Wrap(rows.Err(), "failed to iterate tags")
}

func (r *MemoryRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT COUNT(*) FROM memories WHERE user_id = ?`), userID).Scan(&count)
	return count, errors.Wrap(err, "failed to count memories")
}

func (r *MemoryRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM memories ORDER BY user_id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory owners")
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan owner")
		}
		owners = append(owners, id)
	}
	return owners, errors.Wrap(rows.Err(), "failed to iterate owners")
}

// query runs a memory select and attaches tags in a second round trip.
func (r *MemoryRepository) query(ctx context.Context, query string, args ...any) ([]*entities.Memory, error) {
	type row struct {
		id, userID, title, content string
		url                        sql.NullString
		favorite                   bool
		created, updated           int64
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query memories")
	}
	var scanned []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.userID, &rw.title, &rw.content, &rw.url, &rw.favorite, &rw.created, &rw.updated); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan memory")
		}
		scanned = append(scanned, rw)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memories")
	}

	ids := make([]string, len(scanned))
	for i, rw := range scanned {
		ids[i] = rw.id
	}
	tags, err := r.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}

	memories := make([]*entities.Memory, 0, len(scanned))
	for _, rw := range scanned {
		var url *string
		if rw.url.Valid {
			u := rw.url.String
			url = &u
		}
		memories = append(memories, entities.ReconstructMemory(
			rw.id, rw.userID, rw.title, rw.content, tags[rw.id], url, rw.favorite,
			utils.FromMillis(rw.created), utils.FromMillis(rw.updated),
		))
	}
	return memories, nil
}

func (r *MemoryRepository) loadTags(ctx context.Context, ids []string) (map[string][]string, error) {
	tags := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT memory_id, tag FROM memory_tags
		WHERE memory_id IN (`+placeholders(len(ids))+`)
		ORDER BY memory_id, position`), anyArgs(ids)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load tags")
	}
	defer rows.Close()

	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, errors.Wrap(err, "failed to scan tag")
		}
		tags[id] = append(tags[id], tag)
	}
	return tags, errors.Wrap(rows.Err(), "failed to iterate tags")
}

// paginate appends LIMIT/OFFSET; a zero limit returns every row past offset.
func (r *MemoryRepository) paginate(query string, args []any, limit, offset int) (string, []any) {
	switch {
	case limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	case offset > 0 && r.dialect == SQLite:
		// SQLite only accepts OFFSET after a LIMIT clause.
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	case offset > 0:
		query += ` OFFSET ?`
		args = append(args, offset)
	}
	return query, args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
