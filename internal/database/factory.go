package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fpscan/internal/config"
	"fpscan/internal/scan"
)

// NewDatabaseFromConfig creates a database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string, clock scan.Clock, idgen scan.IDGenerator) (*SQLDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath := filepath.Join(cfg.DataDir, hostID+".db")
		return NewSQLiteDatabase(dbPath, clock, idgen)
	case "memory":
		return NewSQLiteDatabase(":memory:", clock, idgen)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("dsn required for postgres database")
		}
		return NewPostgresDatabase(cfg.DSN, clock, idgen)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
