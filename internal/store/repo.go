package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
)

const recipeColumns = `id, title, author, servings, instructions, ingredients, prep_time, cook_time, created_at, updated_at`

// CreateRecipe inserts a recipe and its structured ingredients within a
// transaction and returns the stored record.
func (db *DB) CreateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (title, author, servings, instructions, ingredients, prep_time, cook_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Title, r.Author, r.Servings, r.Instructions, r.Ingredients,
		nullInt(r.PrepTime), nullInt(r.CookTime), now, now)
	if err != nil {
		return nil, fmt.Errorf("store: insert recipe: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: last insert id: %w", err)
	}

	if err := insertIngredients(ctx, tx, id, r.StructuredIngredients); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetRecipe(ctx, id)
}

// GetRecipe returns a recipe with its ingredients, or apperr.ErrNotFound.
func (db *DB) GetRecipe(ctx context.Context, id int64) (*models.Recipe, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get recipe %d: %w", id, err)
	}

	byRecipe, err := ingredientsFor(ctx, db.conn, `recipe_id = ?`, id)
	if err != nil {
		return nil, err
	}
	r.StructuredIngredients = nonNil(byRecipe[id])
	return r, nil
}

// UpdateRecipe writes every scalar field of r. When replaceIngredients is
// true the stored ingredient set is deleted and r.StructuredIngredients is
// inserted in its place, so ingredient ids change on every such update.
func (db *DB) UpdateRecipe(ctx context.Context, r *models.Recipe, replaceIngredients bool) (*models.Recipe, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE recipes SET
			title        = ?,
			author       = ?,
			servings     = ?,
			instructions = ?,
			ingredients  = ?,
			prep_time    = ?,
			cook_time    = ?,
			updated_at   = ?
		WHERE id = ?
	`, r.Title, r.Author, r.Servings, r.Instructions, r.Ingredients,
		nullInt(r.PrepTime), nullInt(r.CookTime), time.Now().UTC(), r.ID)
	if err != nil {
		return nil, fmt.Errorf("store: update recipe %d: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.ErrNotFound
	}

	if replaceIngredients {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE recipe_id = ?`, r.ID); err != nil {
			return nil, fmt.Errorf("store: clear ingredients: %w", err)
		}
		if err := insertIngredients(ctx, tx, r.ID, r.StructuredIngredients); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit: %w", err)
	}
	return db.GetRecipe(ctx, r.ID)
}

// DeleteRecipe removes a recipe. Ingredients and import records cascade.
func (db *DB) DeleteRecipe(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete recipe %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// ListRecipes returns recipes newest first. A non-positive limit returns all.
// Both queries run in one read transaction so the ingredient subquery sees
// the same recipes as the listing.
func (db *DB) ListRecipes(ctx context.Context, limit int) ([]models.Recipe, error) {
	if limit <= 0 {
		limit = -1
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const newest = `SELECT id FROM recipes ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := tx.QueryContext(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes
		WHERE id IN (`+newest+`)
		ORDER BY created_at DESC, id DESC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list recipes: %w", err)
	}

	out := []models.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	byRecipe, err := ingredientsFor(ctx, tx, `recipe_id IN (`+newest+`)`, limit)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].StructuredIngredients = nonNil(byRecipe[out[i].ID])
	}
	return out, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ingredientsFor loads ingredient rows matching where, grouped by recipe id
// and ordered by position.
func ingredientsFor(ctx context.Context, q querier, where string, args ...any) (map[int64][]models.Ingredient, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, recipe_id, amount, unit, name, optional, notes
		FROM ingredients
		WHERE `+where+`
		ORDER BY recipe_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: load ingredients: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.Ingredient)
	for rows.Next() {
		var (
			ing      models.Ingredient
			recipeID int64
			notes    sql.NullString
		)
		if err := rows.Scan(&ing.ID, &recipeID, &ing.Amount, &ing.Unit, &ing.Name, &ing.Optional, &notes); err != nil {
			return nil, err
		}
		ing.Notes = notes.String
		out[recipeID] = append(out[recipeID], ing)
	}
	return out, rows.Err()
}

func insertIngredients(ctx context.Context, tx *sql.Tx, recipeID int64, ings []models.Ingredient) error {
	if len(ings) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ingredients (recipe_id, position, amount, unit, name, optional, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare ingredient insert: %w", err)
	}
	defer stmt.Close()
	for i, ing := range ings {
		if _, err := stmt.ExecContext(ctx, recipeID, i, ing.Amount, ing.Unit, ing.Name, ing.Optional, nullString(ing.Notes)); err != nil {
			return fmt.Errorf("store: insert ingredient: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(s rowScanner) (*models.Recipe, error) {
	var (
		r        models.Recipe
		prepTime sql.NullInt64
		cookTime sql.NullInt64
	)
	err := s.Scan(&r.ID, &r.Title, &r.Author, &r.Servings, &r.Instructions, &r.Ingredients,
		&prepTime, &cookTime, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.PrepTime = intPtr(prepTime)
	r.CookTime = intPtr(cookTime)
	return &r, nil
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
