package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hijack-addon/hijack/internal/database"
	"hijack-addon/hijack/internal/models"
)

// ErrNotFound is returned when a key has no row.
var ErrNotFound = errors.New("setting not found")

// SettingRepository defines operations on persisted host settings.
type SettingRepository interface {
	List(ctx context.Context) ([]models.Setting, error)
	Get(ctx context.Context, key string) (*models.Setting, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type sqlxRepository struct {
	db *database.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *database.DB) SettingRepository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) List(ctx context.Context) ([]models.Setting, error) {
	settings := []models.Setting{}
	err := r.db.SelectContext(ctx, &settings,
		`SELECT key, value, created_at, updated_at FROM host_settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	return settings, nil
}

func (r *sqlxRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var s models.Setting
	err := r.db.GetContext(ctx, &s,
		`SELECT key, value, created_at, updated_at FROM host_settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return &s, nil
}

// Upsert stores value (already JSON-encoded) under key.
func (r *sqlxRepository) Upsert(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO host_settings (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert setting %s: %w", key, err)
	}
	return nil
}

func (r *sqlxRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM host_settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}
