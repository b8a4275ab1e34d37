package storage

import "fmt"

// Backend types.
const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
)

// Config selects and configures a backend.
type Config struct {
	// Type is "memory" or "sqlite". Default: "memory".
	Type string

	SQLite SQLiteConfig
}

// Open returns the backend described by cfg.
func Open(cfg Config) (Backend, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryStorage(), nil
	case TypeSQLite:
		sqliteCfg := cfg.SQLite
		return NewSQLiteStorage(&sqliteCfg)
	default:
		return nil, fmt.Errorf("unknown knowledge base backend %q", cfg.Type)
	}
}
