package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"hijack-addon/hijack/internal/database/migrations"
)

// DB wraps the SQLite handle holding host settings.
type DB struct {
	*sqlx.DB
}

// NewDB opens the database and, unless read-only, applies pending migrations.
func NewDB(cfg *Config) (*DB, error) {
	if !cfg.ReadOnly {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory for database: %w", err)
			}
		}
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", cfg.DBPath, cfg.BusyTimeoutMS)
	if cfg.ReadOnly {
		dsn += "&mode=ro"
	} else {
		dsn += "&_journal=WAL&_synchronous=NORMAL"
	}
	log.Info().Str("path", cfg.DBPath).Str("mode", modeStr(cfg.ReadOnly)).Msg("Opening settings database")

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db (%s): %w", modeStr(cfg.ReadOnly), err)
	}

	pragmas := []string{"PRAGMA temp_store = MEMORY;"}
	if cfg.ReadOnly {
		pragmas = append(pragmas, "PRAGMA query_only = ON;")
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Msg("Failed to set PRAGMA")
		}
	}

	if cfg.ReadOnly {
		log.Debug().Msg("Skipping migrations for read-only connection")
		return &DB{db}, nil
	}

	files, err := migrations.LoadMigrations(migrations.Files)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	if err := migrations.RunMigrations(ctx, db.DB, files); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("mode", modeStr(cfg.ReadOnly)).Msg("Database ready")
	return &DB{db}, nil
}

func modeStr(readOnly bool) string {
	if readOnly {
		return "read-only"
	}
	return "read-write"
}

// DeleteDB removes the database file if it exists
func DeleteDB(dbPath string) error {
	if _, err := os.Stat(dbPath); err == nil {
		return os.Remove(dbPath)
	}
	return nil
}
