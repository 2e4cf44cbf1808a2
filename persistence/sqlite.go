package persistence

import (
	"context"
	"database/sql"
	"fmt"

	// SQLite 驱动 (pure Go)
	_ "modernc.org/sqlite"
)

// SQLite is the embedded backend for single-node setups and tests.
type SQLite struct {
	sqlStore
}

// NewSQLite opens the database file at path, ":memory:" included.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer; an in-memory database also only exists on its connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA foreign_keys = ON`, `PRAGMA busy_timeout = 5000`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configure sqlite: %w", err)
		}
	}
	return &SQLite{sqlStore{db: db, rebind: rebindNone}}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	return s.execAll(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY,
            username TEXT UNIQUE NOT NULL,
            restricted BOOLEAN NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`, `
        CREATE TABLE IF NOT EXISTS multiplayer_scores (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            room_id INTEGER NOT NULL,
            player_id INTEGER NOT NULL,
            beatmap_hash TEXT NOT NULL,
            username TEXT NOT NULL,
            mods TEXT NOT NULL DEFAULT '',
            score INTEGER NOT NULL,
            max_combo INTEGER NOT NULL,
            hit_geki INTEGER NOT NULL DEFAULT 0,
            hit300 INTEGER NOT NULL DEFAULT 0,
            hit_katu INTEGER NOT NULL DEFAULT 0,
            hit100 INTEGER NOT NULL DEFAULT 0,
            hit50 INTEGER NOT NULL DEFAULT 0,
            hit_miss INTEGER NOT NULL DEFAULT 0,
            played_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_multiplayer_scores_player ON multiplayer_scores (player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_multiplayer_scores_beatmap ON multiplayer_scores (beatmap_hash)`,
	)
}
