package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/neexbeast/city-infos/internal/cities"
	"github.com/neexbeast/city-infos/internal/recipes"
)

// Client-facing error messages.
const (
	msgCityNotFound   = "City not found"
	msgRecipeNotFound = "Recipe not found"
	msgInternal       = "Internal server error"
	msgInvalidBody    = "invalid request body."
)

// maxBodyBytes comfortably fits the longest valid recipe. Anything larger is
// reported as too long.
const maxBodyBytes = 64 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	cities  CityInfoGetter
	checker CityChecker
	recipes RecipeStore
	log     *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(cities CityInfoGetter, checker CityChecker, recipes RecipeStore, log *slog.Logger) *Handlers {
	return &Handlers{
		cities:  cities,
		checker: checker,
		recipes: recipes,
		log:     log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeCityError maps upstream lookup failures. Only a missing city is
// reported as such; everything else is logged and hidden behind a generic 500.
func (h *Handlers) writeCityError(w http.ResponseWriter, r *http.Request, cityID string, err error) {
	if errors.Is(err, cities.ErrCityNotFound) {
		writeError(w, http.StatusNotFound, msgCityNotFound)
		return
	}

	h.log.Error("city lookup failed",
		"city", cityID,
		"err", err,
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// GetCityInfos handles GET /cities/{cityId}/infos.
func (h *Handlers) GetCityInfos(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")

	info, err := h.cities.GetCityInfo(r.Context(), cityID)
	if err != nil {
		h.writeCityError(w, r, cityID, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// CreateRecipe handles POST /cities/{cityId}/recipes.
// The city is re-checked upstream before anything is stored.
func (h *Handlers) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")

	if err := h.checker.CityExists(r.Context(), cityID); err != nil {
		h.writeCityError(w, r, cityID, err)
		return
	}

	content, err := decodeContent(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.log.Info("rejecting oversized recipe body", "city", cityID, "limit", tooLarge.Limit)
		writeError(w, http.StatusBadRequest, recipes.ErrContentTooLong.Message)
		return
	}
	if err != nil {
		h.log.Info("rejecting recipe body", "city", cityID, "err", err)
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	if err := recipes.ValidateContent(content); err != nil {
		var verr *recipes.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		h.log.Error("validating recipe failed", "city", cityID, "err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	rec := h.recipes.Create(cityID, *content)
	recipesStored.Set(float64(h.recipes.Count()))
	h.log.Info("recipe created", "city", cityID, "recipe_id", rec.ID)

	writeJSON(w, http.StatusCreated, rec)
}

// decodeContent reads {"content": "..."}. It returns nil content, not an
// error, when the field is absent, null or not a string; an empty body counts
// as absent.
func decodeContent(body io.Reader) (*string, error) {
	var req struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	var content string
	if err := json.Unmarshal(req.Content, &content); err != nil || string(req.Content) == "null" {
		return nil, nil
	}
	return &content, nil
}

// DeleteRecipe handles DELETE /cities/{cityId}/recipes/{recipeId}.
func (h *Handlers) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	cityID := chi.URLParam(r, "cityId")
	rawID := chi.URLParam(r, "recipeId")

	if err := h.checker.CityExists(r.Context(), cityID); err != nil {
		h.writeCityError(w, r, cityID, err)
		return
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.log.Info("delete recipe: non-numeric id", "city", cityID, "recipe_id", rawID)
		writeError(w, http.StatusNotFound, msgRecipeNotFound)
		return
	}

	err = h.recipes.Delete(cityID, id)
	switch {
	case errors.Is(err, recipes.ErrNoRecipes):
		h.log.Info("delete recipe: no recipes for city", "city", cityID, "recipe_id", id)
		writeError(w, http.StatusNotFound, msgRecipeNotFound)
		return
	case errors.Is(err, recipes.ErrRecipeNotFound):
		h.log.Info("delete recipe: no such recipe", "city", cityID, "recipe_id", id)
		writeError(w, http.StatusNotFound, msgRecipeNotFound)
		return
	case err != nil:
		h.log.Error("delete recipe failed", "city", cityID, "recipe_id", id, "err", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	recipesStored.Set(float64(h.recipes.Count()))
	h.log.Info("recipe deleted", "city", cityID, "recipe_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// HealthHandlerFunc returns an http.HandlerFunc that checks cache connectivity.
func HealthHandlerFunc(cache Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok", "cache": "ok"}

		if err := cache.Ping(ctx); err != nil {
			log.Error("health check: cache ping failed", "err", err)
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["cache"] = "error"
		}

		writeJSON(w, status, body)
	}
}
