package migrations

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadMigrationsPairsDirections(t *testing.T) {
	files, err := LoadMigrations(Files)
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.Equal(t, 1, files[0].Version)
	assert.Contains(t, files[0].Up, "CREATE TABLE host_settings")
	assert.Contains(t, files[0].Down, "DROP TABLE")
}

func TestRunAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)

	files, err := LoadMigrations(Files)
	require.NoError(t, err)

	require.NoError(t, RunMigrations(ctx, db, files))
	// second run is a no-op
	require.NoError(t, RunMigrations(ctx, db, files))

	require.NoError(t, RollbackMigrations(ctx, db, files, 1))
	_, err = db.Exec("SELECT 1 FROM host_settings")
	assert.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Zero(t, count)
}

func TestScanVersions(t *testing.T) {
	db := openMemory(t)

	rows, err := db.Query("SELECT 3 UNION ALL SELECT 1")
	require.NoError(t, err)
	versions, err := scanVersions(rows)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 3}, versions)

	rows, err = db.Query("SELECT 'bogus'")
	require.NoError(t, err)
	_, err = scanVersions(rows)
	assert.Error(t, err)
}

func TestRollbackWithCancelledContext(t *testing.T) {
	db := openMemory(t)
	files, err := LoadMigrations(Files)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(context.Background(), db, files))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, RollbackMigrations(ctx, db, files, 1))

	_, err = db.Exec("SELECT 1 FROM host_settings")
	assert.NoError(t, err)
}
