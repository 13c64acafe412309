package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/apperr"
	"github.com/starford/recipebox/internal/auth"
	"github.com/starford/recipebox/internal/models"
	"github.com/starford/recipebox/internal/recipeservice"
	"github.com/starford/recipebox/internal/scaler"
)

// Handler holds API route handlers.
type Handler struct {
	svc       *recipeservice.Service
	gate      *auth.Gate
	publicURL string
}

// NewHandler creates a new Handler.
func NewHandler(svc *recipeservice.Service, gate *auth.Gate, publicURL string) *Handler {
	return &Handler{svc: svc, gate: gate, publicURL: publicURL}
}

// recipeID parses the {id} URL parameter.
func recipeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid recipe id", apperr.ErrInvalidInput)
	}
	return id, nil
}

// servingsParam parses the servings query parameter. ok is false when the
// parameter is absent.
func servingsParam(r *http.Request) (n int, ok bool, err error) {
	raw := r.URL.Query().Get("servings")
	if raw == "" {
		return 0, false, nil
	}
	n, err = strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%w: servings must be an integer", apperr.ErrInvalidInput)
	}
	return n, true, nil
}

// VerifyPassword handles POST /api/auth/verify.
//
//	@Summary		Check the shared catalog password
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		VerifyRequest	true	"Password to check"
//	@Success		200		{object}	VerifyResponse
//	@Failure		400		{object}	errResponse
//	@Failure		429		{object}	errResponse
//	@Failure		500		{object}	errResponse
//	@Router			/auth/verify [post]
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ok, err := h.gate.Check(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			slog.Error("password verification requested but no password is configured")
			writeJSON(w, http.StatusInternalServerError, errorBody("server configuration error"))
			return
		}
		writeError(w, "verify password", err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{IsValid: ok})
}

// Units handles GET /api/units.
//
//	@Summary		List unit suggestions
//	@Tags			recipes
//	@Produce		json
//	@Success		200	{object}	UnitsResponse
//	@Router			/units [get]
func (h *Handler) Units(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, UnitsResponse{Units: models.CommonUnits})
}

// ListRecipes handles GET /api/recipes.
//
//	@Summary		List recipes, newest first
//	@Tags			recipes
//	@Produce		json
//	@Param			limit	query	int	false	"Maximum number of recipes"
//	@Success		200		{array}	models.Recipe
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes [get]
func (h *Handler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "list recipes", fmt.Errorf("%w: limit must be an integer", apperr.ErrInvalidInput))
			return
		}
		limit = n
	}
	recipes, err := h.svc.List(r.Context(), limit)
	if err != nil {
		writeError(w, "list recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// CreateRecipe handles POST /api/recipes.
//
//	@Summary		Create a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		RecipeRequest	true	"Recipe to create"
//	@Success		201		{object}	models.Recipe
//	@Failure		400		{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes [post]
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req RecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	recipe, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create recipe", err)
		return
	}
	writeJSON(w, http.StatusCreated, recipe)
}

// GetRecipe handles GET /api/recipes/{id}.
//
//	@Summary		Get a recipe with its line-split views
//	@Tags			recipes
//	@Produce		json
//	@Param			id	path		int	true	"Recipe ID"
//	@Success		200	{object}	RecipeView
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id} [get]
func (h *Handler) GetRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "get recipe", err)
		return
	}
	view, err := h.svc.View(r.Context(), id)
	if err != nil {
		writeError(w, "get recipe", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateRecipe handles PUT /api/recipes/{id}.
//
// Omitted fields keep their stored value. A present structuredIngredients
// array replaces the whole ingredient set.
//
//	@Summary		Update a recipe
//	@Tags			recipes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Recipe ID"
//	@Param			body	body		RecipeRequest	true	"Fields to change"
//	@Success		200		{object}	models.Recipe
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id} [put]
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "update recipe", err)
		return
	}
	var req RecipeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	recipe, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, "update recipe", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// DeleteRecipe handles DELETE /api/recipes/{id}.
//
//	@Summary		Delete a recipe and its ingredients
//	@Tags			recipes
//	@Produce		json
//	@Param			id	path		int	true	"Recipe ID"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id} [delete]
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "delete recipe", err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, "delete recipe", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Recipe deleted successfully"})
}

// ScaledRecipe handles GET /api/recipes/{id}/scaled.
//
//	@Summary		Render a recipe's ingredients for a serving count
//	@Tags			scaling
//	@Produce		json
//	@Param			id			path		int	true	"Recipe ID"
//	@Param			servings	query		int	true	"Target servings"
//	@Success		200			{object}	ScaledView
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id}/scaled [get]
func (h *Handler) ScaledRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "scale recipe", err)
		return
	}
	target, ok, err := servingsParam(r)
	if err == nil && !ok {
		err = fmt.Errorf("%w: servings is required", apperr.ErrInvalidInput)
	}
	if err != nil {
		writeError(w, "scale recipe", err)
		return
	}
	view, err := h.svc.Scaled(r.Context(), id, target)
	if err != nil {
		writeError(w, "scale recipe", err, slog.Int64("id", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Scale handles POST /api/scale.
//
//	@Summary		Scale an ad-hoc ingredient list
//	@Tags			scaling
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ScaleRequest	true	"Ingredients and serving counts"
//	@Success		200		{object}	ScaleResponse
//	@Failure		400		{object}	errResponse
//	@Security		RecipePassword
//	@Router			/scale [post]
func (h *Handler) Scale(w http.ResponseWriter, r *http.Request) {
	var req ScaleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.TargetServings < 1 {
		writeError(w, "scale", fmt.Errorf("%w: target servings must be at least 1", apperr.ErrInvalidInput))
		return
	}
	factor, err := scaler.Factor(req.OriginalServings, req.TargetServings)
	if err != nil {
		writeError(w, "scale", err)
		return
	}
	display, err := scaler.ComputeDisplay(req.Ingredients, req.OriginalServings, req.TargetServings)
	if err != nil {
		writeError(w, "scale", err)
		return
	}
	writeJSON(w, http.StatusOK, ScaleResponse{
		Ingredients:   display,
		ScalingFactor: factor,
		Label:         scaler.Label(req.OriginalServings, req.TargetServings),
	})
}
