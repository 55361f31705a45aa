package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/city-infos/internal/api"
	"github.com/neexbeast/city-infos/internal/cities"
	"github.com/neexbeast/city-infos/internal/recipes"
)

// ---- mock implementations ----

type mockCities struct {
	getCityInfoFn func(ctx context.Context, cityID string) (*cities.CityInfo, error)
}

func (m *mockCities) GetCityInfo(ctx context.Context, cityID string) (*cities.CityInfo, error) {
	return m.getCityInfoFn(ctx, cityID)
}

type mockChecker struct {
	cityExistsFn func(ctx context.Context, cityID string) error
	calls        int
}

func (m *mockChecker) CityExists(ctx context.Context, cityID string) error {
	m.calls++
	return m.cityExistsFn(ctx, cityID)
}

type mockStore struct {
	createFn func(cityID, content string) recipes.Recipe
	deleteFn func(cityID string, id int64) error
}

func (m *mockStore) Create(cityID, content string) recipes.Recipe { return m.createFn(cityID, content) }
func (m *mockStore) Delete(cityID string, id int64) error         { return m.deleteFn(cityID, id) }
func (m *mockStore) Count() int                                   { return 0 }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

func existingCity() *mockChecker {
	return &mockChecker{cityExistsFn: func(_ context.Context, _ string) error { return nil }}
}

func failingChecker(err error) *mockChecker {
	return &mockChecker{cityExistsFn: func(_ context.Context, _ string) error { return err }}
}

func unusedStore(t *testing.T) *mockStore {
	return &mockStore{
		createFn: func(_, _ string) recipes.Recipe {
			t.Fatal("store.Create should not be called")
			return recipes.Recipe{}
		},
		deleteFn: func(_ string, _ int64) error {
			t.Fatal("store.Delete should not be called")
			return nil
		},
	}
}

func sampleInfo() *cities.CityInfo {
	return &cities.CityInfo{
		Coordinates: [2]float64{48.8566, 2.3522},
		Population:  2148327,
		KnownFor:    []string{"croissants"},
		WeatherPredictions: []cities.WeatherPrediction{
			{When: cities.WhenToday, Min: 10, Max: 18},
			{When: cities.WhenTomorrow, Min: 12, Max: 21},
		},
		Recipes: []recipes.Recipe{},
	}
}

func buildRouter(c api.CityInfoGetter, checker api.CityChecker, store api.RecipeStore, cache *mockPinger) http.Handler {
	if cache == nil {
		cache = &mockPinger{}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(c, checker, store, log)
	return api.NewRouter(handlers, cache, log)
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body["error"]
}

// ---- GET /cities/{cityId}/infos ----

func TestGetCityInfos_Success(t *testing.T) {
	var gotCity string
	c := &mockCities{getCityInfoFn: func(_ context.Context, cityID string) (*cities.CityInfo, error) {
		gotCity = cityID
		return sampleInfo(), nil
	}}

	w := do(t, buildRouter(c, existingCity(), unusedStore(t), nil), http.MethodGet, "/cities/paris/infos", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "paris", gotCity)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []any{48.8566, 2.3522}, body["coordinates"])
	assert.Equal(t, float64(2148327), body["population"])
	assert.Equal(t, []any{"croissants"}, body["knownFor"])
	assert.Equal(t, []any{}, body["recipes"])

	preds, ok := body["weatherPredictions"].([]any)
	require.True(t, ok)
	require.Len(t, preds, 2)
	assert.Equal(t, map[string]any{"when": "today", "min": float64(10), "max": float64(18)}, preds[0])
}

func TestGetCityInfos_NotFound(t *testing.T) {
	c := &mockCities{getCityInfoFn: func(_ context.Context, _ string) (*cities.CityInfo, error) {
		return nil, fmt.Errorf("insights for atlantis: %w", cities.ErrCityNotFound)
	}}

	w := do(t, buildRouter(c, existingCity(), unusedStore(t), nil), http.MethodGet, "/cities/atlantis/infos", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "City not found", errorBody(t, w))
}

func TestGetCityInfos_UpstreamErrorsAreHidden(t *testing.T) {
	for _, sentinel := range []error{cities.ErrUpstreamUnavailable, cities.ErrSchemaMismatch, fmt.Errorf("boom")} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			c := &mockCities{getCityInfoFn: func(_ context.Context, _ string) (*cities.CityInfo, error) {
				return nil, fmt.Errorf("GET insights: dial tcp 10.0.0.1:443: %w", sentinel)
			}}

			w := do(t, buildRouter(c, existingCity(), unusedStore(t), nil), http.MethodGet, "/cities/paris/infos", "")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, "Internal server error", errorBody(t, w))
		})
	}
}

func TestGetCityInfos_PanicIsRecovered(t *testing.T) {
	c := &mockCities{getCityInfoFn: func(_ context.Context, _ string) (*cities.CityInfo, error) {
		panic("unexpected")
	}}

	w := do(t, buildRouter(c, existingCity(), unusedStore(t), nil), http.MethodGet, "/cities/paris/infos", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorBody(t, w))
}

// ---- POST /cities/{cityId}/recipes ----

func TestCreateRecipe_Success(t *testing.T) {
	store := &mockStore{
		createFn: func(cityID, content string) recipes.Recipe {
			assert.Equal(t, "paris", cityID)
			return recipes.Recipe{ID: 7, Content: content}
		},
	}

	w := do(t, buildRouter(nil, existingCity(), store, nil), http.MethodPost, "/cities/paris/recipes",
		`{"content":"A valid dish name here"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	var got recipes.Recipe
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, recipes.Recipe{ID: 7, Content: "A valid dish name here"}, got)
}

func TestCreateRecipe_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "content required."},
		{name: "missing field", body: `{}`, want: "content required."},
		{name: "null", body: `{"content":null}`, want: "content required."},
		{name: "number", body: `{"content":12345678901}`, want: "content required."},
		{name: "object", body: `{"content":{"text":"A valid dish name"}}`, want: "content required."},
		{name: "9 chars", body: `{"content":"` + strings.Repeat("a", 9) + `"}`, want: "content too short."},
		{name: "2001 chars", body: `{"content":"` + strings.Repeat("a", 2001) + `"}`, want: "content too long."},
		{name: "larger than body limit", body: `{"content":"` + strings.Repeat("a", 70000) + `"}`, want: "content too long."},
		{name: "malformed json", body: `{"content":`, want: "invalid request body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, buildRouter(nil, existingCity(), unusedStore(t), nil), http.MethodPost, "/cities/paris/recipes", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, errorBody(t, w))
		})
	}
}

func TestCreateRecipe_BoundariesAccepted(t *testing.T) {
	for _, n := range []int{10, 2000} {
		t.Run(fmt.Sprintf("%d chars", n), func(t *testing.T) {
			store := &mockStore{createFn: func(_, content string) recipes.Recipe {
				return recipes.Recipe{ID: 1, Content: content}
			}}

			body := `{"content":"` + strings.Repeat("a", n) + `"}`
			w := do(t, buildRouter(nil, existingCity(), store, nil), http.MethodPost, "/cities/paris/recipes", body)

			assert.Equal(t, http.StatusCreated, w.Code)
		})
	}
}

func TestCreateRecipe_CityNotFound(t *testing.T) {
	checker := failingChecker(fmt.Errorf("insights for atlantis: %w", cities.ErrCityNotFound))

	w := do(t, buildRouter(nil, checker, unusedStore(t), nil), http.MethodPost, "/cities/atlantis/recipes",
		`{"content":"A valid dish name here"}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "City not found", errorBody(t, w))
	assert.Equal(t, 1, checker.calls)
}

func TestCreateRecipe_CityCheckedBeforeValidation(t *testing.T) {
	checker := failingChecker(cities.ErrCityNotFound)

	w := do(t, buildRouter(nil, checker, unusedStore(t), nil), http.MethodPost, "/cities/atlantis/recipes", `{}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateRecipe_UpstreamDown(t *testing.T) {
	checker := failingChecker(fmt.Errorf("GET insights: %w", cities.ErrUpstreamUnavailable))

	w := do(t, buildRouter(nil, checker, unusedStore(t), nil), http.MethodPost, "/cities/paris/recipes",
		`{"content":"A valid dish name here"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", errorBody(t, w))
}

// ---- DELETE /cities/{cityId}/recipes/{recipeId} ----

func TestDeleteRecipe_Success(t *testing.T) {
	var gotID int64
	store := &mockStore{deleteFn: func(_ string, id int64) error {
		gotID = id
		return nil
	}}

	w := do(t, buildRouter(nil, existingCity(), store, nil), http.MethodDelete, "/cities/paris/recipes/3", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, int64(3), gotID)
}

func TestDeleteRecipe_NotFound(t *testing.T) {
	for _, storeErr := range []error{recipes.ErrNoRecipes, recipes.ErrRecipeNotFound} {
		t.Run(storeErr.Error(), func(t *testing.T) {
			store := &mockStore{deleteFn: func(_ string, _ int64) error { return storeErr }}

			w := do(t, buildRouter(nil, existingCity(), store, nil), http.MethodDelete, "/cities/paris/recipes/99", "")

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Recipe not found", errorBody(t, w))
		})
	}
}

func TestDeleteRecipe_NonNumericID(t *testing.T) {
	w := do(t, buildRouter(nil, existingCity(), unusedStore(t), nil), http.MethodDelete, "/cities/paris/recipes/abc", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Recipe not found", errorBody(t, w))
}

func TestDeleteRecipe_CityNotFound(t *testing.T) {
	checker := failingChecker(cities.ErrCityNotFound)

	w := do(t, buildRouter(nil, checker, unusedStore(t), nil), http.MethodDelete, "/cities/atlantis/recipes/1", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "City not found", errorBody(t, w))
}

func TestDeleteRecipe_StoreError(t *testing.T) {
	store := &mockStore{deleteFn: func(_ string, _ int64) error { return fmt.Errorf("unexpected") }}

	w := do(t, buildRouter(nil, existingCity(), store, nil), http.MethodDelete, "/cities/paris/recipes/1", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---- routing ----

func TestUnknownRoute(t *testing.T) {
	w := do(t, buildRouter(nil, existingCity(), unusedStore(t), nil), http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", errorBody(t, w))
}

func TestMethodNotAllowed(t *testing.T) {
	w := do(t, buildRouter(nil, existingCity(), unusedStore(t), nil), http.MethodPut, "/cities/paris/recipes", "")

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

// ---- GET /health, /metrics ----

func TestHealth_OK(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, &mockPinger{}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["cache"])
}

func TestHealth_CacheDown(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, &mockPinger{err: fmt.Errorf("redis unreachable")}), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "error", body["cache"])
}

func TestMetricsEndpoint(t *testing.T) {
	router := buildRouter(nil, nil, nil, nil)

	_ = do(t, router, http.MethodGet, "/health", "")
	w := do(t, router, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `cityinfos_http_requests_total{method="GET",route="/health",status="200"}`)
}
