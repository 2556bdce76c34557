package punishments

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Init initializes the punishment database and ensures the table exists.
func Init(dbPath string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to punishment database: %w", err)
	}

	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the temporal_punishments table on an already open
// connection. The partial unique index is what enforces at most one active
// punishment per (guild, user, kind, role); every upsert targets it.
func EnsureSchema(db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS temporal_punishments (
	          id INTEGER PRIMARY KEY AUTOINCREMENT,
	          guild_id TEXT NOT NULL,
	          user_id TEXT NOT NULL,
	          kind TEXT NOT NULL,
	          role_id TEXT NOT NULL DEFAULT '',
	          case_id INTEGER NOT NULL,
	          created_at INTEGER NOT NULL,
	          expires_at INTEGER NOT NULL,
	          active BOOLEAN NOT NULL DEFAULT 1
	      );`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create temporal_punishments table: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS temporal_punishments_active_idx
		 ON temporal_punishments(guild_id, user_id, kind, role_id) WHERE active = 1`,
		`CREATE INDEX IF NOT EXISTS temporal_punishments_due_idx
		 ON temporal_punishments(kind, active, expires_at)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create punishment index: %w", err)
		}
	}
	return nil
}
