package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/starford/recipebox/internal/printout"
	"github.com/starford/recipebox/internal/recipeservice"
)

// RecipeCard handles GET /api/recipes/{id}/card.pdf.
//
//	@Summary		Printable recipe card
//	@Tags			printout
//	@Produce		application/pdf
//	@Param			id			path	int	true	"Recipe ID"
//	@Param			servings	query	int	false	"Target servings (defaults to the recipe's own)"
//	@Success		200
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id}/card.pdf [get]
func (h *Handler) RecipeCard(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "recipe card", err)
		return
	}
	target, explicit, err := servingsParam(r)
	if err != nil {
		writeError(w, "recipe card", err)
		return
	}

	recipe, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "recipe card", err, slog.Int64("id", id))
		return
	}

	var view *recipeservice.ScaledView
	if explicit {
		view, err = h.svc.Scaled(r.Context(), id, target)
	} else {
		view, err = recipeservice.ScaleRecipe(recipe, recipe.Servings)
	}
	if err != nil {
		writeError(w, "recipe card", err, slog.Int64("id", id))
		return
	}

	qr, err := printout.QRCode(printout.RecipeURL(h.publicURL, id), printout.DefaultQRSize)
	if err != nil {
		writeError(w, "recipe card", err, slog.Int64("id", id))
		return
	}

	var buf bytes.Buffer
	if err := printout.WriteCard(&buf, printout.Card{Recipe: recipe, Scaled: view, QR: qr}); err != nil {
		writeError(w, "recipe card", err, slog.Int64("id", id))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="recipe-%d.pdf"`, id))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// RecipeQR handles GET /api/recipes/{id}/qr.png.
//
//	@Summary		QR code linking to a recipe
//	@Tags			printout
//	@Produce		image/png
//	@Param			id	path	int	true	"Recipe ID"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		RecipePassword
//	@Router			/recipes/{id}/qr.png [get]
func (h *Handler) RecipeQR(w http.ResponseWriter, r *http.Request) {
	id, err := recipeID(r)
	if err != nil {
		writeError(w, "recipe qr", err)
		return
	}
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		writeError(w, "recipe qr", err, slog.Int64("id", id))
		return
	}
	png, err := printout.QRCode(printout.RecipeURL(h.publicURL, id), printout.DefaultQRSize)
	if err != nil {
		writeError(w, "recipe qr", err, slog.Int64("id", id))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
