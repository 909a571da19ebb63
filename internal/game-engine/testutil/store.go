package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/betbot-engine/internal/game-engine/repo"
	"github.com/radieske/betbot-engine/internal/shared/db"
)

// OpenTestStore abre um SQLite temporário com o schema aplicado
func OpenTestStore(t *testing.T) *repo.Store {
	t.Helper()

	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	store := repo.New(conn)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}
