package config

import (
	"fmt"
	"os"
)

// Supported database types.
const (
	PostgresDBType = "postgres"
	SqliteDBType   = "sqlite"
)

// DefaultSqliteDSN is used when DATABASE_TYPE is sqlite and DATABASE_URL is unset.
const DefaultSqliteDSN = "taskkit.db"

// DatabaseSettings selects the user store backend.
type DatabaseSettings struct {
	Type string
	DSN  string
}

// NewDatabaseSettings reads DATABASE_TYPE (default: sqlite) and DATABASE_URL.
func NewDatabaseSettings() (*DatabaseSettings, error) {
	settings := &DatabaseSettings{
		Type: envOr("DATABASE_TYPE", SqliteDBType),
		DSN:  os.Getenv("DATABASE_URL"),
	}
	if err := settings.normalize(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *DatabaseSettings) normalize() error {
	switch s.Type {
	case PostgresDBType:
		if s.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for database type %s", s.Type)
		}
	case SqliteDBType:
		if s.DSN == "" {
			s.DSN = DefaultSqliteDSN
		}
	default:
		return fmt.Errorf("unsupported DATABASE_TYPE: %s", s.Type)
	}
	return nil
}
