package testutil

import (
	"context"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/folio/folio/internal/database"
)

// NewPostgresDB returns a migrated Postgres database living in a throwaway schema.
// The test is skipped unless DATABASE_URL is set.
func NewPostgresDB(t testing.TB) *sqlx.DB {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := database.Connect(ctx, database.DriverPostgres, dsn)
	require.NoError(t, err)
	defer admin.Close()

	schema := "folio_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)

	db, err := database.Connect(ctx, database.DriverPostgres, withSearchPath(t, dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
		cleanup, err := database.Connect(context.Background(), database.DriverPostgres, dsn)
		if err != nil {
			return
		}
		defer cleanup.Close()
		_, _ = cleanup.ExecContext(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	require.NoError(t, database.Migrate(ctx, db))
	return db
}

// withSearchPath pins every pooled connection to schema.
// lib/pq forwards unknown parameters to the server as run-time settings.
func withSearchPath(t testing.TB, dsn, schema string) string {
	t.Helper()
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return dsn + " search_path=" + schema
	}
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
