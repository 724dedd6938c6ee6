package database

import (
	"context"
	"fmt"

	"github.com/folklore/luck-server-go/internal/config"
)

// InitSchema creates the interactions and sessions tables.
// Safe to call on every startup - uses IF NOT EXISTS.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(db.driver) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func schemaStatements(driver string) []string {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == config.DriverPostgres {
		idColumn = "id BIGSERIAL PRIMARY KEY"
	}

	return []string{
		// one row per recorded interaction, never updated
		`CREATE TABLE IF NOT EXISTS interactions (
			` + idColumn + `,
			superstition  TEXT NOT NULL,
			outcome       TEXT NOT NULL,
			luck_change   INTEGER NOT NULL DEFAULT 0,
			timestamp     TEXT NOT NULL,
			session_id    TEXT NOT NULL
		)`,
		// running totals per session, maintained at write time
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id          TEXT PRIMARY KEY,
			total_luck          INTEGER NOT NULL DEFAULT 0,
			interactions_count  INTEGER NOT NULL DEFAULT 0,
			first_interaction   TEXT,
			last_interaction    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_session_ts ON interactions(session_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_superstition ON interactions(superstition)`,
	}
}
