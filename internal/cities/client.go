package cities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production address of the cities provider.
	DefaultBaseURL = "https://api-ugi2pflmha-ew.a.run.app"
	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 10 * time.Second

	endpointInsights = "insights"
	endpointWeather  = "weather-predictions"
)

// Client talks to the cities provider.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient constructs a Client against the production provider.
func NewClient(apiKey string) *Client {
	return NewClientWithURL(DefaultBaseURL, apiKey, DefaultTimeout)
}

// NewClientWithURL constructs a Client pointing at a custom base URL and timeout.
func NewClientWithURL(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// doGet performs a GET request and decodes the JSON response into dst.
// The endpoint name is used in errors instead of the URL so the API key never leaks.
//
// 404 maps to ErrCityNotFound, any other non-2xx status and transport failures
// to ErrUpstreamUnavailable, undecodable bodies to ErrSchemaMismatch.
func doGet(ctx context.Context, client *http.Client, endpoint, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("GET %s: %w: %v", endpoint, ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		upstreamRequestsTotal.WithLabelValues(endpoint, "not_found").Inc()
		return fmt.Errorf("GET %s: %w", endpoint, ErrCityNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		upstreamRequestsTotal.WithLabelValues(endpoint, "bad_status").Inc()
		return fmt.Errorf("GET %s returned status %d: %w", endpoint, resp.StatusCode, ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "bad_payload").Inc()
		return fmt.Errorf("decoding %s response: %w: %v", endpoint, ErrSchemaMismatch, err)
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return nil
}

// FetchInsights retrieves the metadata of the given city.
func (c *Client) FetchInsights(ctx context.Context, cityID string) (*Insights, error) {
	endpoint := c.baseURL + "/cities/" + url.PathEscape(cityID) + "/insights?" +
		url.Values{"apiKey": {c.apiKey}}.Encode()

	var raw Insights
	if err := doGet(ctx, c.client, endpointInsights, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("insights for %s: %w", cityID, err)
	}

	return &raw, nil
}

// FetchForecasts retrieves the weather predictions of the given city.
// A 404 here is not a missing city: the metadata call decides that.
func (c *Client) FetchForecasts(ctx context.Context, cityID string) ([]Forecast, error) {
	endpoint := c.baseURL + "/weather-predictions?" +
		url.Values{"cityIdentifier": {cityID}, "apiKey": {c.apiKey}}.Encode()

	var raw []Forecast
	if err := doGet(ctx, c.client, endpointWeather, endpoint, &raw); err != nil {
		if errors.Is(err, ErrCityNotFound) {
			return nil, fmt.Errorf("weather predictions for %s: %w: %v", cityID, ErrUpstreamUnavailable, err)
		}
		return nil, fmt.Errorf("weather predictions for %s: %w", cityID, err)
	}

	return raw, nil
}
