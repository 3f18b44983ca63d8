package sqlstore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"neuronote/pkg/utils"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one forward schema step, named NNNN_description.sql.
type Migration struct {
	Version     int
	Description string
	Checksum    string
	Statements  []string
}

// loadMigrations reads the embedded migrations in version order.
func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read migrations")
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		prefix, desc, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		if !ok {
			return nil, errors.Errorf("migration %s is not named NNNN_description.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, errors.Wrapf(err, "migration %s has no numeric version", name)
		}

		body, err := migrationFS.ReadFile(path.Join("migrations", name))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read migration %s", name)
		}
		sum := sha256.Sum256(body)

		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(desc, "_", " "),
			Checksum:    hex.EncodeToString(sum[:]),
			Statements:  splitStatements(string(body)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version == migrations[i-1].Version {
			return nil, errors.Errorf("duplicate migration version %d", migrations[i].Version)
		}
	}
	return migrations, nil
}

func splitStatements(body string) []string {
	var out []string
	for _, stmt := range strings.Split(body, ";") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" && !strings.HasPrefix(trimmed, "--") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}

// Migrate applies every migration newer than the recorded version. An
// applied migration whose file changed is refused.
func (d *DB) Migrate(ctx context.Context) error {
	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		checksum TEXT NOT NULL,
		applied_at BIGINT NOT NULL
	)`); err != nil {
		return errors.Wrap(err, "failed to create schema_migrations")
	}

	applied, err := d.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if checksum, ok := applied[m.Version]; ok {
			if checksum != m.Checksum {
				return errors.Errorf("migration %d was modified after it was applied", m.Version)
			}
			continue
		}

		err := d.withTx(ctx, func(tx *sql.Tx) error {
			for i, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return errors.Wrapf(err, "migration %d statement %d failed", m.Version, i+1)
				}
			}
			_, err := tx.ExecContext(ctx,
				d.rebind(`INSERT INTO schema_migrations (version, description, checksum, applied_at) VALUES (?, ?, ?, ?)`),
				m.Version, m.Description, m.Checksum, utils.ToMillis(d.now()),
			)
			return errors.Wrap(err, "failed to record migration")
		})
		if err != nil {
			return err
		}

		d.logger.Info("Applied migration",
			zap.Int("version", m.Version),
			zap.String("description", m.Description),
		)
	}
	return nil
}

func (d *DB) appliedMigrations(ctx context.Context) (map[int]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list applied migrations")
	}
	defer rows.Close()

	applied := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, errors.Wrap(err, "failed to scan migration")
		}
		applied[version] = checksum
	}
	return applied, rows.Err()
}

// SchemaVersion returns the highest applied migration.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := d.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return int(version.Int64), nil
}

func (m Migration) String() string {
	return fmt.Sprintf("%04d %s", m.Version, m.Description)
}
