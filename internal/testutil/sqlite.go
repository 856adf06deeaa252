package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/netcollect/backend/internal/infrastructure/config"
	"github.com/netcollect/backend/internal/infrastructure/migration"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSQLiteDB returns a GORM handle on a fresh, fully migrated SQLite file.
// The file lives in t.TempDir and the handle is closed on cleanup.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := config.DatabaseConfig{
		Driver:        config.DriverSQLite,
		Path:          filepath.Join(t.TempDir(), "billing.db"),
		BusyTimeoutMS: 10000,
	}
	dsn := cfg.SQLiteDSN()

	// The migrator closes the handle it is given, so it gets its own.
	migrateDB, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)
	m, err := migration.New(migrateDB, migration.DialectSQLite, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}
