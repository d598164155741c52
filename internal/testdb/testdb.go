// Package testdb opens a migrated in-memory SQLite database for tests.
package testdb

import (
	"fmt"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/kumarketplace/marketplace/database/migrations"
	"github.com/kumarketplace/marketplace/pkg/database"
	"github.com/kumarketplace/marketplace/pkg/migration"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Open returns a fresh database private to t, with every migration applied.
// One connection is used so the in-memory database lives until cleanup.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", unsafeName.ReplaceAllString(t.Name(), "_"))
	db, err := database.Open(database.Options{Driver: "sqlite", DSN: dsn, MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, migration.New(db, io.Discard).Run())
	return db
}
