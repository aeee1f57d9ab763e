package postgres

import (
	"fmt"
	"sync"

	"github.com/FileGuard/go-engine/fileguard/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	db   *gorm.DB
	dbMu sync.RWMutex
)

// Connect opens the database and migrates the diagnostics schema. The engine
// runs fine without a database; callers should treat a failed Connect as a
// degraded mode, not a fatal error.
func Connect(dsn string) error {
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	if err := conn.AutoMigrate(&models.Event{}); err != nil {
		return fmt.Errorf("error migrating database schema: %w", err)
	}

	dbMu.Lock()
	db = conn
	dbMu.Unlock()
	return nil
}

// GetDB returns the shared connection, or nil when no database is configured.
func GetDB() *gorm.DB {
	dbMu.RLock()
	defer dbMu.RUnlock()
	return db
}
