package providers

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/i474232898/epd-weather/internal/common"
	"github.com/i474232898/epd-weather/internal/weather"
)

const (
	// DefaultOpenWeatherHost is the public OpenWeatherMap API host.
	DefaultOpenWeatherHost = "api.openweathermap.org"

	currentPath    = "/data/2.5/weather"
	forecastPath   = "/data/2.5/forecast"
	airQualityPath = "/data/2.5/air_pollution/history"

	// forecastCount asks for the full 5 day / 3 hour series.
	forecastCount = 40

	apiKeyMask = "{API key}"
)

// OpenWeatherConfig holds what is needed to build OpenWeatherMap request URLs.
type OpenWeatherConfig struct {
	Host   string
	Scheme string
	APIKey string
	Lat    float64
	Lon    float64
	Lang   string
}

// OpenWeatherEndpoints implements weather.Endpoints for OpenWeatherMap.
type OpenWeatherEndpoints struct {
	cfg OpenWeatherConfig
}

var _ weather.Endpoints = (*OpenWeatherEndpoints)(nil)

func NewOpenWeatherEndpoints(cfg OpenWeatherConfig) (*OpenWeatherEndpoints, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}
	if cfg.Host == "" {
		cfg.Host = DefaultOpenWeatherHost
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	return &OpenWeatherEndpoints{cfg: cfg}, nil
}

// CurrentURL returns the current weather request URL. Units are always
// standard (kelvin, m/s); conversion happens at render time.
func (e *OpenWeatherEndpoints) CurrentURL() string {
	values := e.location()
	values.Set("units", "standard")
	values.Set("lang", e.cfg.Lang)
	values.Set("appid", e.cfg.APIKey)
	return e.build(currentPath, values)
}

// ForecastURL returns the 3-hour forecast request URL.
func (e *OpenWeatherEndpoints) ForecastURL() string {
	values := e.location()
	values.Set("lang", e.cfg.Lang)
	values.Set("units", "standard")
	values.Set("cnt", strconv.Itoa(forecastCount))
	values.Set("appid", e.cfg.APIKey)
	return e.build(forecastPath, values)
}

// AirQualityURL returns the air pollution history request URL for the
// window [start, end] in unix seconds.
func (e *OpenWeatherEndpoints) AirQualityURL(start, end int64) string {
	values := e.location()
	values.Set("start", strconv.FormatInt(start, 10))
	values.Set("end", strconv.FormatInt(end, 10))
	values.Set("appid", e.cfg.APIKey)
	return e.build(airQualityPath, values)
}

// Redact hides the API key in rawURL.
func (e *OpenWeatherEndpoints) Redact(rawURL string) string {
	return common.RedactParam(rawURL, "appid", apiKeyMask)
}

func (e *OpenWeatherEndpoints) location() url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(e.cfg.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(e.cfg.Lon, 'f', -1, 64))
	return values
}

func (e *OpenWeatherEndpoints) build(path string, values url.Values) string {
	u := url.URL{
		Scheme:   e.cfg.Scheme,
		Host:     e.cfg.Host,
		Path:     path,
		RawQuery: values.Encode(),
	}
	return u.String()
}
