package store

import (
	"context"

	"github.com/starford/recipebox/internal/models"
)

// RecipeStore defines the persistence operations used by the service layer.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type RecipeStore interface {
	CreateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id int64) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, r *models.Recipe, replaceIngredients bool) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
	ListRecipes(ctx context.Context, limit int) ([]models.Recipe, error)

	GetImport(ctx context.Context, path string) (*ImportRecord, error)
	RecordImport(ctx context.Context, rec ImportRecord) error
	ForgetImport(ctx context.Context, path string) error
	AllImports(ctx context.Context) (map[string]ImportRecord, error)

	Ping(ctx context.Context) error
	Close() error
}

// Verify *DB satisfies RecipeStore at compile time.
var _ RecipeStore = (*DB)(nil)
