// Package recipeservice validates recipe input and coordinates the store,
// the scaler, and change notifications.
package recipeservice

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/scaler"
	"github.com/starford/recipebox/internal/store"
)

// Event kinds passed to a Notifier.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// DefaultMaxServings bounds the target of a scaled view.
const DefaultMaxServings = 100

// Notifier receives recipe change events. *sse.Broker satisfies it.
type Notifier interface {
	PublishRecipeEvent(kind string, id int64)
}

// Input carries the fields of a create or update request. A nil field means
// "not supplied": on create the default applies, on update the stored value
// is kept. A nil StructuredIngredients keeps the stored set on update; any
// non-nil slice, including an empty one, replaces it.
type Input struct {
	Title                 *string             `json:"title"`
	Author                *string             `json:"author"`
	Servings              *int                `json:"servings"`
	Instructions          *string             `json:"instructions"`
	Ingredients           *string             `json:"ingredients"`
	StructuredIngredients []models.Ingredient `json:"structuredIngredients"`
	PrepTime              *int                `json:"prepTime"`
	CookTime              *int                `json:"cookTime"`
}

// RecipeView is a recipe plus the line-split renderings the UI falls back to
// when a recipe has no structured ingredients.
type RecipeView struct {
	models.Recipe
	LegacyLines []string `json:"legacyLines"`
	Steps       []string `json:"steps"`
}

// ScaledView is a recipe's ingredient list rendered for a target serving
// count.
type ScaledView struct {
	RecipeID         int64                      `json:"recipeId"`
	Title            string                     `json:"title"`
	OriginalServings int                        `json:"originalServings"`
	TargetServings   int                        `json:"targetServings"`
	ScalingFactor    float64                    `json:"scalingFactor"`
	Label            string                     `json:"label"`
	Ingredients      []models.DisplayIngredient `json:"ingredients"`
	LegacyLines      []string                   `json:"legacyLines"`
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithMaxServings sets the upper bound for scaled views.
func WithMaxServings(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxServings = n
		}
	}
}

// Service implements recipe use cases on top of a store.
type Service struct {
	store       store.RecipeStore
	notify      Notifier
	maxServings int
}

// NewService creates a recipe service.
func NewService(st store.RecipeStore, opts ...Option) *Service {
	s := &Service{store: st, maxServings: DefaultMaxServings}
	for _, o := range opts {
		o(s)
	}
	return s
}

// MaxServings reports the upper bound for scaled views.
func (s *Service) MaxServings() int { return s.maxServings }

// Create validates in and stores a new recipe.
func (s *Service) Create(ctx context.Context, in Input) (*models.Recipe, error) {
	r := models.Recipe{Servings: models.DefaultServings}
	apply(&r, in)
	if in.StructuredIngredients == nil {
		r.StructuredIngredients = []models.Ingredient{}
	}
	if legacyOmitted(in) {
		r.Ingredients = DeriveLegacy(r.StructuredIngredients)
	}
	if err := Validate(&r); err != nil {
		return nil, err
	}

	created, err := s.store.CreateRecipe(ctx, &r)
	if err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	s.publish(EventCreated, created.ID)
	return created, nil
}

// Update applies in to the stored recipe id.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*models.Recipe, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(r, in)
	replace := in.StructuredIngredients != nil
	// An empty legacy text is re-derived from the current set, as on create.
	if legacyOmitted(in) && (replace || in.Ingredients != nil) {
		r.Ingredients = DeriveLegacy(r.StructuredIngredients)
	}
	if err := Validate(r); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateRecipe(ctx, r, replace)
	if err != nil {
		return nil, fmt.Errorf("update recipe %d: %w", id, err)
	}
	s.publish(EventUpdated, id)
	return updated, nil
}

// legacyOmitted reports whether in carries no usable legacy ingredient text.
func legacyOmitted(in Input) bool {
	return in.Ingredients == nil || *in.Ingredients == ""
}

// Delete removes the recipe id and its ingredients.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		return err
	}
	s.publish(EventDeleted, id)
	return nil
}

// Get returns the recipe id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Recipe, error) {
	return s.store.GetRecipe(ctx, id)
}

// View returns the recipe id with its line-split renderings.
func (s *Service) View(ctx context.Context, id int64) (*RecipeView, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	return &RecipeView{
		Recipe:      *r,
		LegacyLines: LegacyLines(r.Ingredients),
		Steps:       Steps(r.Instructions),
	}, nil
}

// List returns recipes newest first. limit <= 0 returns all of them.
func (s *Service) List(ctx context.Context, limit int) ([]models.Recipe, error) {
	return s.store.ListRecipes(ctx, limit)
}

// Scaled renders recipe id for target servings. target must lie in
// 1..MaxServings.
func (s *Service) Scaled(ctx context.Context, id int64, target int) (*ScaledView, error) {
	if target < 1 || target > s.maxServings {
		return nil, fmt.Errorf("%w: servings must be between 1 and %d", apperr.ErrInvalidInput, s.maxServings)
	}
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	return ScaleRecipe(r, target)
}

// ScaleRecipe renders r for target servings without touching the store.
func ScaleRecipe(r *models.Recipe, target int) (*ScaledView, error) {
	factor, err := scaler.Factor(r.Servings, target)
	if err != nil {
		return nil, err
	}
	display, err := scaler.ComputeDisplay(r.StructuredIngredients, r.Servings, target)
	if err != nil {
		return nil, err
	}
	return &ScaledView{
		RecipeID:         r.ID,
		Title:            r.Title,
		OriginalServings: r.Servings,
		TargetServings:   target,
		ScalingFactor:    factor,
		Label:            scaler.Label(r.Servings, target),
		Ingredients:      display,
		LegacyLines:      LegacyLines(r.Ingredients),
	}, nil
}

func (s *Service) publish(kind string, id int64) {
	if s.notify != nil {
		s.notify.PublishRecipeEvent(kind, id)
	}
}

func apply(r *models.Recipe, in Input) {
	if in.Title != nil {
		r.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		r.Author = strings.TrimSpace(*in.Author)
	}
	if in.Servings != nil {
		r.Servings = *in.Servings
	}
	if in.Instructions != nil {
		r.Instructions = *in.Instructions
	}
	if in.Ingredients != nil {
		r.Ingredients = *in.Ingredients
	}
	if in.StructuredIngredients != nil {
		ings := make([]models.Ingredient, len(in.StructuredIngredients))
		for i, ing := range in.StructuredIngredients {
			ing.ID = 0
			ing.Name = strings.TrimSpace(ing.Name)
			ing.Unit = strings.TrimSpace(ing.Unit)
			ings[i] = ing
		}
		r.StructuredIngredients = ings
	}
	if in.PrepTime != nil {
		r.PrepTime = in.PrepTime
	}
	if in.CookTime != nil {
		r.CookTime = in.CookTime
	}
}

// Validate checks a recipe before it is stored. Failures wrap
// apperr.ErrInvalidInput.
func Validate(r *models.Recipe) error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Author, validation.Required),
		validation.Field(&r.Servings, validation.Required, validation.Min(1)),
		validation.Field(&r.PrepTime, validation.Min(0)),
		validation.Field(&r.CookTime, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}
	for i := range r.StructuredIngredients {
		ing := &r.StructuredIngredients[i]
		err := validation.ValidateStruct(ing,
			validation.Field(&ing.Name, validation.Required),
			validation.Field(&ing.Amount, validation.Required, validation.Min(0.0).Exclusive()),
		)
		if err != nil {
			return fmt.Errorf("%w: structuredIngredients[%d]: %s", apperr.ErrInvalidInput, i, err.Error())
		}
	}
	return nil
}
