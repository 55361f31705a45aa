package cities

import "errors"

var (
	// ErrCityNotFound means the provider answered 404 for the city metadata.
	ErrCityNotFound = errors.New("city not found")
	// ErrUpstreamUnavailable covers transport errors, timeouts and unexpected statuses.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSchemaMismatch means the provider answered with a payload we cannot use.
	ErrSchemaMismatch = errors.New("upstream schema mismatch")
)
