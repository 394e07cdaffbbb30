package weather

import (
	"context"
	"io"
)

// Endpoint identifies one of the upstream APIs.
type Endpoint string

const (
	EndpointCurrent    Endpoint = "current"
	EndpointForecast   Endpoint = "forecast"
	EndpointAirQuality Endpoint = "air_pollution"
)

// Response is what a Transport hands back for one GET.
type Response struct {
	StatusCode int
	Body       io.ReadCloser
}

// Transport performs a single blocking GET. Implementations report
// client-side failures as *TransportError; any HTTP status is returned as a
// Response.
type Transport interface {
	Get(ctx context.Context, rawURL string) (*Response, error)
}

// CycleScoped is implemented by transports that keep state between requests.
// The Service calls StartCycle at the start of every acquisition so nothing
// carries over from an earlier cycle.
type CycleScoped interface {
	StartCycle()
}

// Link reports the state of the network link without doing network I/O.
type Link interface {
	Status() LinkStatus
}

// Endpoints builds request URLs for the upstream APIs.
type Endpoints interface {
	CurrentURL() string
	ForecastURL() string
	AirQualityURL(start, end int64) string
	// Redact returns rawURL with credentials removed, for logging.
	Redact(rawURL string) string
}
