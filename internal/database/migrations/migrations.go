package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// Files holds the SQL migrations shipped with the binary.
//
//go:embed *.sql
var Files embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Up      string
	Down    string
}

// LoadMigrations reads NNNN_name.up.sql / NNNN_name.down.sql pairs from the
// root of fsys, sorted by version.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		var version int
		var rest string
		if _, err := fmt.Sscanf(name, "%d_%s", &version, &rest); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("Skipping invalid migration file")
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version}
			byVersion[version] = m
		}

		switch {
		case strings.HasSuffix(rest, ".up.sql"):
			m.Up = string(content)
		case strings.HasSuffix(rest, ".down.sql"):
			m.Down = string(content)
		default:
			log.Warn().Str("file", name).Msg("Migration file has no direction suffix")
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	log.Debug().Int("count", len(migrations)).Msg("Loaded migrations")
	return migrations, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}

	versions, err := scanVersions(rows)
	if err != nil {
		return nil, err
	}

	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

// scanVersions drains and closes rows of a single version column.
func scanVersions(rows *sql.Rows) ([]int, error) {
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read migration versions: %w", err)
	}
	return versions, nil
}

// RunMigrations applies every migration not yet recorded in schema_migrations,
// each in its own transaction.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			log.Debug().Int("version", m.Version).Msg("Migration already applied, skipping")
			continue
		}

		log.Info().Int("version", m.Version).Msg("Running migration")
		if err := inTx(ctx, db, m.Up, "INSERT INTO schema_migrations (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// RollbackMigrations reverts the last n applied migrations, newest first.
// Migrations without a down script are skipped.
func RollbackMigrations(ctx context.Context, db *sql.DB, migrations []Migration, n int) error {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version DESC LIMIT ?", n)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	versions, err := scanVersions(rows)
	if err != nil {
		return err
	}

	byVersion := make(map[int]Migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	for _, version := range versions {
		m := byVersion[version]
		if m.Down == "" {
			log.Warn().Int("version", version).Msg("No down migration found, skipping")
			continue
		}

		log.Info().Int("version", version).Msg("Rolling back migration")
		if err := inTx(ctx, db, m.Down, "DELETE FROM schema_migrations WHERE version = ?", version); err != nil {
			return fmt.Errorf("rollback %d: %w", version, err)
		}
	}

	return nil
}

// inTx runs script and the bookkeeping statement atomically.
func inTx(ctx context.Context, db *sql.DB, script, record string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, script); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute script: %w", err)
	}
	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
