// Package sqlstore is the relational store for memories, chats, users and the
// index repair queue. Queries are written once with `?` placeholders and
// rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect names a supported driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DB wraps the connection pool and the dialect it speaks.
type DB struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	now     func() time.Time
}

// Open connects, verifies the connection and applies pending migrations.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*DB, error) {
	dialect := Dialect(strings.ToLower(driver))
	if dialect != Postgres && dialect != SQLite {
		return nil, errors.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	switch dialect {
	case Postgres:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
		db.SetConnMaxIdleTime(15 * time.Minute)
	case SQLite:
		// One writer; also keeps in-memory databases on a single connection.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	store := &DB{db: db, dialect: dialect, logger: logger, now: time.Now}
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Relational store ready", zap.String("driver", string(dialect)))
	return store, nil
}

// SQL exposes the pool for components sharing it, such as the pgvector index.
func (d *DB) SQL() *sql.DB { return d.db }

// Dialect returns the active dialect
func (d *DB) Dialect() Dialect { return d.dialect }

// Ping is used by the readiness probe
func (d *DB) Ping(ctx context.Context) error {
	return errors.Wrap(d.db.PingContext(ctx), "database ping failed")
}

func (d *DB) Close() error {
	return d.db.Close()
}

// rebind rewrites `?` placeholders as `$n` for postgres.
func (d *DB) rebind(query string) string {
	if d.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// like is the case-insensitive LIKE operator of the dialect.
func (d *DB) like() string {
	if d.dialect == Postgres {
		return "ILIKE"
	}
	return "LIKE"
}

// placeholders returns n comma separated `?`
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, rolling back on error.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			d.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func anyArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// isUniqueViolation reports whether err is a unique or primary key conflict
// in either dialect.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if stderrors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

// retryOnConflict reruns fn while it fails with a unique violation. Other
// errors, and the last conflict, are returned as is.
func retryOnConflict(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !isUniqueViolation(err) {
			return err
		}
	}
	return err
}
