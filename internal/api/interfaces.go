package api

import (
	"context"

	"github.com/neexbeast/city-infos/internal/cities"
	"github.com/neexbeast/city-infos/internal/recipes"
)

// CityInfoGetter defines the aggregation needed by the infos handler.
type CityInfoGetter interface {
	GetCityInfo(ctx context.Context, cityID string) (*cities.CityInfo, error)
}

// CityChecker re-validates a city against the upstream before recipe mutations.
type CityChecker interface {
	CityExists(ctx context.Context, cityID string) error
}

// RecipeStore defines the recipe mutations needed by handlers.
type RecipeStore interface {
	Create(cityID, content string) recipes.Recipe
	Delete(cityID string, id int64) error
	Count() int
}

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}
