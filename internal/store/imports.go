package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ImportRecord ties a library file to the recipe it produced. The checksum
// lets a sync pass skip files that have not changed since the last import.
type ImportRecord struct {
	Path       string
	Checksum   string
	RecipeID   int64
	ImportedAt time.Time
}

// GetImport returns the ledger entry for path, or nil if the file was never
// imported.
func (db *DB) GetImport(ctx context.Context, path string) (*ImportRecord, error) {
	var rec ImportRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT path, checksum, recipe_id, imported_at FROM imports WHERE path = ?`, path,
	).Scan(&rec.Path, &rec.Checksum, &rec.RecipeID, &rec.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get import %s: %w", path, err)
	}
	return &rec, nil
}

// RecordImport inserts or replaces the ledger entry for rec.Path.
func (db *DB) RecordImport(ctx context.Context, rec ImportRecord) error {
	if rec.ImportedAt.IsZero() {
		rec.ImportedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO imports (path, checksum, recipe_id, imported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			recipe_id   = excluded.recipe_id,
			imported_at = excluded.imported_at
	`, rec.Path, rec.Checksum, rec.RecipeID, rec.ImportedAt)
	if err != nil {
		return fmt.Errorf("store: record import %s: %w", rec.Path, err)
	}
	return nil
}

// ForgetImport drops the ledger entry for path. Missing entries are ignored.
func (db *DB) ForgetImport(ctx context.Context, path string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM imports WHERE path = ?`, path); err != nil {
		return fmt.Errorf("store: forget import %s: %w", path, err)
	}
	return nil
}

// AllImports returns every ledger entry keyed by path.
func (db *DB) AllImports(ctx context.Context) (map[string]ImportRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum, recipe_id, imported_at FROM imports`)
	if err != nil {
		return nil, fmt.Errorf("store: list imports: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ImportRecord)
	for rows.Next() {
		var rec ImportRecord
		if err := rows.Scan(&rec.Path, &rec.Checksum, &rec.RecipeID, &rec.ImportedAt); err != nil {
			return nil, err
		}
		out[rec.Path] = rec
	}
	return out, rows.Err()
}
