package client

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/propscan/internal/client/repositories/kv"
	"github.com/stretchr/testify/require"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func TestInitDatabase_CreatesKVTable(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))
	require.True(t, tableExists(t, db, "goose_db_version"))
	require.True(t, tableExists(t, db, "kv"))
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db))
	require.NoError(t, RunMigrations(ctx, db), "second run must be a no-op")
	require.True(t, tableExists(t, db, "kv"))
}

func TestInitDatabase_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := InitDatabase(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, kv.NewSQLiteStore(db).Set(ctx, "auth_token", []byte("tok")))
	require.NoError(t, db.Close())

	db, err = InitDatabase(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	v, err := kv.NewSQLiteStore(db).Get(ctx, "auth_token")
	require.NoError(t, err)
	require.Equal(t, []byte("tok"), v)
}
