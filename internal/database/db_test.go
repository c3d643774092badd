package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hijack-addon/hijack/internal/database/migrations"
)

func TestNewDBRunsMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.db")

	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, count)

	_, err = db.Exec("INSERT INTO host_settings (key, value) VALUES ('DEBUG', 'true')")
	require.NoError(t, err)
}

func TestNewDBIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	first, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer second.Close()

	var count int
	require.NoError(t, second.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, count)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")

	rw, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	require.NoError(t, rw.Close())

	cfg := NewConfig(path)
	cfg.ReadOnly = true
	ro, err := NewDB(cfg)
	require.NoError(t, err)
	defer ro.Close()

	_, err = ro.Exec("INSERT INTO host_settings (key, value) VALUES ('X', '1')")
	assert.Error(t, err)
}

func TestRollback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	db, err := NewDB(NewConfig(path))
	require.NoError(t, err)
	defer db.Close()

	files, err := migrations.LoadMigrations(migrations.Files)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	require.NoError(t, migrations.RollbackMigrations(context.Background(), db.DB.DB, files, 1))

	_, err = db.Exec("SELECT 1 FROM host_settings")
	assert.Error(t, err)
}

func TestDeleteDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	require.NoError(t, DeleteDB(path))

	require.NoError(t, os.WriteFile(path, []byte{}, 0644))
	require.NoError(t, DeleteDB(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
