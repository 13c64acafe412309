package api

import (
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipeservice"
)

// RecipeRequest is the body of POST /api/recipes and PUT /api/recipes/{id}.
type RecipeRequest = recipeservice.Input

// RecipeView is the response of GET /api/recipes/{id}.
type RecipeView = recipeservice.RecipeView

// ScaledView is the response of GET /api/recipes/{id}/scaled.
type ScaledView = recipeservice.ScaledView

// VerifyRequest is the body of POST /api/auth/verify.
type VerifyRequest struct {
	Password string `json:"password" example:"secret" validate:"required"`
}

// VerifyResponse reports whether the password matched.
type VerifyResponse struct {
	IsValid bool `json:"isValid" validate:"required"`
}

// ScaleRequest is the body of POST /api/scale.
type ScaleRequest struct {
	Ingredients      []models.Ingredient `json:"ingredients" validate:"required"`
	OriginalServings int                 `json:"originalServings" example:"4" validate:"required"`
	TargetServings   int                 `json:"targetServings" example:"6" validate:"required"`
}

// ScaleResponse is the rendered ingredient list for the target servings.
type ScaleResponse struct {
	Ingredients   []models.DisplayIngredient `json:"ingredients" validate:"required"`
	ScalingFactor float64                    `json:"scalingFactor" example:"1.5" validate:"required"`
	Label         string                     `json:"label" example:"Scaled from 4 to 6 servings (1.5x)"`
}

// UnitsResponse lists the unit suggestions for the ingredient editor.
type UnitsResponse struct {
	Units []string `json:"units" validate:"required"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message" example:"Recipe deleted successfully" validate:"required"`
}
