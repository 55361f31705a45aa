package cities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/neexbeast/city-infos/internal/recipes"
)

// maxPredictions is the number of forecast entries exposed to clients.
const maxPredictions = 2

// provider is the interface satisfied by Client.
type provider interface {
	FetchInsights(ctx context.Context, cityID string) (*Insights, error)
	FetchForecasts(ctx context.Context, cityID string) ([]Forecast, error)
}

// snapshotCache is the interface satisfied by cache.Redis and cache.Memory.
// Get returns nil, nil on a miss.
type snapshotCache interface {
	Get(ctx context.Context, cityID string) (*Snapshot, error)
	Set(ctx context.Context, cityID string, snap *Snapshot) error
	Delete(ctx context.Context, cityID string) error
}

// recipeLister is the read side of recipes.Store.
type recipeLister interface {
	List(cityID string) []recipes.Recipe
}

// Aggregator merges provider data and stored recipes into a CityInfo.
type Aggregator struct {
	provider provider
	cache    snapshotCache
	recipes  recipeLister
	log      *slog.Logger

	group singleflight.Group
	now   func() time.Time
	loc   *time.Location
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used for today/tomorrow tagging.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLocation sets the location whose calendar date counts as "today".
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// NewAggregator constructs an Aggregator.
func NewAggregator(p provider, cache snapshotCache, recipes recipeLister, log *slog.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		provider: p,
		cache:    cache,
		recipes:  recipes,
		log:      log,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetCityInfo returns the aggregated infos of a city.
// Errors wrap ErrCityNotFound, ErrUpstreamUnavailable or ErrSchemaMismatch.
func (a *Aggregator) GetCityInfo(ctx context.Context, cityID string) (*CityInfo, error) {
	ctx, span := otel.Tracer("cities").Start(ctx, "GetCityInfo", trace.WithAttributes(
		attribute.String("city.id", cityID),
	))
	defer span.End()

	snap, err := a.snapshot(ctx, cityID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetching city snapshot failed")
		return nil, err
	}

	info, err := normalize(snap, a.now().In(a.loc))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalizing city snapshot failed")
		return nil, fmt.Errorf("normalizing city %s: %w", cityID, err)
	}
	info.Recipes = a.recipes.List(cityID)

	span.SetAttributes(
		attribute.Int("city.predictions", len(info.WeatherPredictions)),
		attribute.Int("city.recipes", len(info.Recipes)),
	)
	span.SetStatus(codes.Ok, "city infos aggregated")
	return info, nil
}

// CityExists checks the city against the provider, bypassing the cache.
// It returns nil, ErrCityNotFound or ErrUpstreamUnavailable. A city the
// provider no longer knows is evicted from the cache.
func (a *Aggregator) CityExists(ctx context.Context, cityID string) error {
	_, err := a.provider.FetchInsights(ctx, cityID)
	if errors.Is(err, ErrCityNotFound) {
		if derr := a.cache.Delete(ctx, cityID); derr != nil {
			a.log.Warn("cache delete failed", "city", cityID, "err", derr)
		}
	}
	return err
}

// snapshot serves from the cache, falling back to the provider.
// Concurrent misses for the same city share one upstream round trip. The
// shared fetch is detached from the first caller's cancellation and bounded
// by the client timeout; each caller still stops waiting when its own ctx ends.
func (a *Aggregator) snapshot(ctx context.Context, cityID string) (*Snapshot, error) {
	cached, err := a.cache.Get(ctx, cityID)
	if err != nil {
		cacheLookupsTotal.WithLabelValues("error").Inc()
		a.log.Warn("cache get failed", "city", cityID, "err", err)
	}
	if cached != nil {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()

	ch := a.group.DoChan(cityID, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		snap, err := a.fetch(fetchCtx, cityID)
		if err != nil {
			return nil, err
		}
		if err := a.cache.Set(fetchCtx, cityID, snap); err != nil {
			a.log.Warn("cache set failed", "city", cityID, "err", err)
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for city %s: %w: %v", cityID, ErrUpstreamUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// fetch calls both provider endpoints in parallel. Metadata errors win over
// weather errors so a missing city is always reported as such; a failed
// metadata call cancels the weather call.
func (a *Aggregator) fetch(ctx context.Context, cityID string) (*Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group

	var insights *Insights
	var forecasts []Forecast
	var insightsErr, forecastsErr error

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("insights fetch panicked", "recover", r)
				err = fmt.Errorf("insights fetch panicked: %v", r)
			}
		}()
		insights, insightsErr = a.provider.FetchInsights(ctx, cityID)
		if insightsErr != nil {
			cancel()
		}
		return nil
	})

	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("weather fetch panicked", "recover", r)
				err = fmt.Errorf("weather fetch panicked: %v", r)
			}
		}()
		forecasts, forecastsErr = a.provider.FetchForecasts(ctx, cityID)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetching city data for %s: %w", cityID, err)
	}

	if insightsErr != nil {
		return nil, insightsErr
	}
	if forecastsErr != nil {
		return nil, forecastsErr
	}

	snap := &Snapshot{Insights: *insights, Forecasts: forecasts}
	if err := snap.validate(); err != nil {
		return nil, fmt.Errorf("city data for %s: %w", cityID, err)
	}

	return snap, nil
}

// validate rejects payloads that normalize could not use, so they never reach the cache.
func (s *Snapshot) validate() error {
	if len(s.Insights.Coordinates) == 0 {
		return fmt.Errorf("%w: no coordinates", ErrSchemaMismatch)
	}
	if s.Insights.Population < 0 {
		return fmt.Errorf("%w: negative population %d", ErrSchemaMismatch, s.Insights.Population)
	}
	if len(s.Forecasts) == 0 {
		return fmt.Errorf("%w: empty weather predictions", ErrSchemaMismatch)
	}
	if s.Forecasts[0].Predictions == nil {
		return fmt.Errorf("%w: missing predictions list", ErrSchemaMismatch)
	}
	for _, p := range firstPredictions(s.Forecasts[0].Predictions) {
		if _, err := parseDate(p.Date, time.UTC); err != nil {
			return err
		}
	}
	return nil
}

func firstPredictions(preds []Prediction) []Prediction {
	return preds[:min(len(preds), maxPredictions)]
}
