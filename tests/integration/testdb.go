// Package integration exercises the receivables stack end to end: real
// application services over the gorm repositories, backed by a SQLite
// database so the suite runs without external services.
package integration

import (
	"path/filepath"
	"testing"

	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a file-backed SQLite database in a per-test temp
// directory and migrates the receivables schema into it.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "receivables.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, db.AutoMigrate(
		&models.OrderModel{},
		&models.PaymentTermModel{},
		&models.ReceivableModel{},
		&models.InstallmentModel{},
		&models.PaymentModel{},
	), "failed to migrate test schema")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}
