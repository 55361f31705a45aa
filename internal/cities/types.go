package cities

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/neexbeast/city-infos/internal/recipes"
)

// ---- upstream payloads ----

// Coordinate is one coordinate record of the insights payload.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// KnownFor is a single trivia entry of the insights payload.
type KnownFor struct {
	Content string `json:"content"`
}

// Population accepts either a JSON number or a numeric string.
type Population int64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Population) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*p = 0
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return fmt.Errorf("population %q is not an integer", s)
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return fmt.Errorf("population %q is out of range", s)
		}
		n = int64(f)
	}

	*p = Population(n)
	return nil
}

// Insights is the city metadata returned by the provider.
type Insights struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	Coordinates []Coordinate `json:"coordinates"`
	Population  Population   `json:"population"`
	KnownFor    []KnownFor   `json:"knownFor"`
}

// Prediction is a single daily forecast entry.
type Prediction struct {
	Date           string  `json:"date"`
	MinTemperature float64 `json:"minTemperature"`
	MaxTemperature float64 `json:"maxTemperature"`
}

// Forecast is one element of the weather-predictions array.
type Forecast struct {
	CityIdentifier string       `json:"cityIdentifier,omitempty"`
	Predictions    []Prediction `json:"predictions"`
}

// Snapshot is the raw upstream data for one city. It is what gets cached;
// date tagging and recipes are applied on every read.
type Snapshot struct {
	Insights  Insights   `json:"insights"`
	Forecasts []Forecast `json:"forecasts"`
}

// ---- response ----

// When tags a prediction relative to the current date.
type When string

const (
	WhenToday    When = "today"
	WhenTomorrow When = "tomorrow"
)

// WeatherPrediction is a normalized forecast entry.
type WeatherPrediction struct {
	When When    `json:"when"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CityInfo is the aggregated city-infos response.
type CityInfo struct {
	Coordinates        [2]float64          `json:"coordinates"`
	Population         int64               `json:"population"`
	KnownFor           []string            `json:"knownFor"`
	WeatherPredictions []WeatherPrediction `json:"weatherPredictions"`
	Recipes            []recipes.Recipe    `json:"recipes"`
}
