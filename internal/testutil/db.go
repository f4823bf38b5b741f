package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/NunoCorreia78/Biodesk-sub000/internal/migrate"
	"github.com/NunoCorreia78/Biodesk-sub000/migrations"
)

// OpenDB cria uma base SQLite temporária com todas as migrações aplicadas.
// O ficheiro vive em t.TempDir() e desaparece no fim do teste.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "biodesk_test.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migrate.Run(context.Background(), db, migrations.FS); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
