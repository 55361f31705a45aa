package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Health and metrics sit next to the city routes; nothing requires auth.
func NewRouter(handlers *Handlers, cache Pinger, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(Metrics)
	r.Use(Recoverer(log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", HealthHandlerFunc(cache, log))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/cities/{cityId}", func(r chi.Router) {
		r.Get("/infos", handlers.GetCityInfos)
		r.Post("/recipes", handlers.CreateRecipe)
		r.Delete("/recipes/{recipeId}", handlers.DeleteRecipe)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
