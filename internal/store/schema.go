// Package store provides SQLite-backed persistence for recipes and their
// structured ingredients.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS recipes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT     NOT NULL,
	author       TEXT     NOT NULL,
	servings     INTEGER  NOT NULL DEFAULT 4 CHECK (servings > 0),
	instructions TEXT     NOT NULL DEFAULT '',
	ingredients  TEXT     NOT NULL DEFAULT '',
	prep_time    INTEGER,
	cook_time    INTEGER,
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ingredients (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	amount    REAL    NOT NULL,
	unit      TEXT    NOT NULL DEFAULT '',
	name      TEXT    NOT NULL,
	optional  INTEGER NOT NULL DEFAULT 0,
	notes     TEXT
);

CREATE TABLE IF NOT EXISTS imports (
	path        TEXT PRIMARY KEY,
	checksum    TEXT     NOT NULL,
	recipe_id   INTEGER  NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
	imported_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ingredients_recipe ON ingredients(recipe_id, position);
CREATE INDEX IF NOT EXISTS idx_recipes_created ON recipes(created_at);
`

// DB wraps a sql.DB with recipe-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
