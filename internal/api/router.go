package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recipebox/internal/auth"
	"github.com/starford/recipebox/internal/recipeservice"
)

// RouterConfig carries the settings NewRouter needs besides its services.
type RouterConfig struct {
	// RequirePassword guards the recipe routes with the shared password.
	RequirePassword bool
	// VerifyPerMinute limits password checks per client IP. Zero disables
	// the limit.
	VerifyPerMinute int
	// PublicURL is the base encoded into recipe QR codes.
	PublicURL string
	// Events, if non-nil, is mounted at GET /events inside the guarded group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes. It is meant to be
// mounted under /api.
func NewRouter(svc *recipeservice.Service, gate *auth.Gate, cfg RouterConfig) chi.Router {
	h := NewHandler(svc, gate, cfg.PublicURL)

	r := chi.NewRouter()

	// Unguarded.
	verify := http.HandlerFunc(h.VerifyPassword)
	if cfg.VerifyPerMinute > 0 {
		r.With(NewRateLimiter(cfg.VerifyPerMinute).Middleware).Post("/auth/verify", verify)
	} else {
		r.Post("/auth/verify", verify)
	}
	r.Get("/units", h.Units)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.RequirePassword, gate))

		r.Get("/recipes", h.ListRecipes)
		r.Post("/recipes", h.CreateRecipe)
		r.Get("/recipes/{id}", h.GetRecipe)
		r.Put("/recipes/{id}", h.UpdateRecipe)
		r.Delete("/recipes/{id}", h.DeleteRecipe)
		r.Get("/recipes/{id}/scaled", h.ScaledRecipe)
		r.Get("/recipes/{id}/card.pdf", h.RecipeCard)
		r.Get("/recipes/{id}/qr.png", h.RecipeQR)

		r.Post("/scale", h.Scale)

		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}
	})

	return r
}
