package sqlstore

import (
	"context"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"
	"neuronote/pkg/utils"

	"github.com/pkg/errors"
)

// RepairQueue implements ports.IndexRepairQueue on the index_repairs table.
// There is at most one pending repair per memory; a newer drift replaces the
// entry, including its id, and resets the attempt counter.
type RepairQueue struct {
	*DB
}

func NewRepairQueue(db *DB) *RepairQueue {
	return &RepairQueue{DB: db}
}

func (q *RepairQueue) Enqueue(ctx context.Context, repair ports.IndexRepair) error {
	if repair.ID == "" {
		repair.ID = valueobjects.NewID()
	}
	now := utils.ToMillis(q.now())
	_, err := q.db.ExecContext(ctx, q.rebind(`
		INSERT INTO index_repairs (id, memory_id, user_id, operation, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT (memory_id) DO UPDATE SET
			id = excluded.id,
			user_id = excluded.user_id,
			operation = excluded.operation,
			attempts = 0,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at`),
		repair.ID, repair.MemoryID, repair.UserID, string(repair.Operation), repair.LastError, now, now,
	)
	return errors.Wrap(err, "failed to enqueue index repair")
}

func (q *RepairQueue) Pending(ctx context.Context, limit, maxAttempts int) ([]ports.IndexRepair, error) {
	rows, err := q.db.QueryContext(ctx, q.rebind(`
		SELECT id, memory_id, user_id, operation, attempts, last_error, created_at, updated_at
		FROM index_repairs
		WHERE attempts < ?
		ORDER BY created_at, id
		LIMIT ?`), maxAttempts, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list index repairs")
	}
	defer rows.Close()

	repairs := []ports.IndexRepair{}
	for rows.Next() {
		var r ports.IndexRepair
		var op string
		var created, updated int64
		if err := rows.Scan(&r.ID, &r.MemoryID, &r.UserID, &op, &r.Attempts, &r.LastError, &created, &updated); err != nil {
			return nil, errors.Wrap(err, "failed to scan index repair")
		}
		r.Operation = ports.RepairOperation(op)
		r.CreatedAt = utils.FromMillis(created)
		r.UpdatedAt = utils.FromMillis(updated)
		repairs = append(repairs, r)
	}
	return repairs, errors.Wrap(rows.Err(), "failed to iterate index repairs")
}

// Complete removes the repair. An entry re-enqueued since it was read carries
// a new id and stays pending.
func (q *RepairQueue) Complete(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, q.rebind(`DELETE FROM index_repairs WHERE id = ?`), id)
	return errors.Wrap(err, "failed to complete index repair")
}

func (q *RepairQueue) Fail(ctx context.Context, id, reason string) error {
	_, err := q.db.ExecContext(ctx, q.rebind(`
		UPDATE index_repairs SET attempts = attempts + 1, last_error = ?, updated_at = ? WHERE id = ?`),
		reason, utils.ToMillis(q.now()), id)
	return errors.Wrap(err, "failed to record index repair failure")
}
