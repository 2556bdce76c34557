package cases

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init initializes the case database and ensures the table exists.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to case database: %w", err)
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the cases table and its indexes on an already open
// connection.
func EnsureSchema(db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS cases (
	          id INTEGER PRIMARY KEY AUTOINCREMENT,
	          guild_id TEXT NOT NULL,
	          case_number INTEGER NOT NULL,
	          user_id TEXT NOT NULL,
	          moderator_id TEXT NOT NULL,
	          action_type TEXT NOT NULL,
	          reason TEXT NOT NULL,
	          duration_seconds INTEGER NOT NULL DEFAULT 0,
	          created_at INTEGER NOT NULL,
	          expires_at INTEGER NOT NULL DEFAULT 0,
	          status TEXT NOT NULL DEFAULT 'active',
	          UNIQUE (guild_id, case_number)
	      );`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cases table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS cases_guild_user_idx ON cases(guild_id, user_id)`,
		`CREATE INDEX IF NOT EXISTS cases_guild_action_idx ON cases(guild_id, action_type, status)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create case index: %w", err)
		}
	}
	return nil
}
