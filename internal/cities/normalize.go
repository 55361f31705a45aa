package cities

import (
	"fmt"
	"time"
)

// dateLayouts are the forecast date formats accepted from the provider.
// Layouts without a zone are read in the service location. Zoned dates keep
// their own offset so the calendar day written by the provider is the one compared.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable prediction date %q", ErrSchemaMismatch, s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// normalize turns a validated snapshot into a CityInfo. now must already be
// in the service location. Recipes are left for the caller.
func normalize(s *Snapshot, now time.Time) (*CityInfo, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	first := s.Insights.Coordinates[0]

	knownFor := make([]string, 0, len(s.Insights.KnownFor))
	for _, k := range s.Insights.KnownFor {
		knownFor = append(knownFor, k.Content)
	}

	preds := firstPredictions(s.Forecasts[0].Predictions)
	weather := make([]WeatherPrediction, 0, len(preds))
	todayTaken := false
	for _, p := range preds {
		date, err := parseDate(p.Date, now.Location())
		if err != nil {
			return nil, err
		}

		when := WhenTomorrow
		if !todayTaken && sameDay(date, now) {
			when = WhenToday
			todayTaken = true
		}

		weather = append(weather, WeatherPrediction{
			When: when,
			Min:  p.MinTemperature,
			Max:  p.MaxTemperature,
		})
	}

	return &CityInfo{
		Coordinates:        [2]float64{first.Latitude, first.Longitude},
		Population:         int64(s.Insights.Population),
		KnownFor:           knownFor,
		WeatherPredictions: weather,
	}, nil
}
