package cycle

import (
	"context"
	"log"
	"time"

	"github.com/i474232898/epd-weather/internal/device"
	"github.com/i474232898/epd-weather/internal/weather"
)

// Screen names what a report shows.
type Screen string

const (
	ScreenWeather    Screen = "weather"
	ScreenError      Screen = "error"
	ScreenLowBattery Screen = "low_battery"
)

// Report is the immutable result of one wake cycle handed to renderers.
// It owns copies of everything it shows.
type Report struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Screen  Screen          `json:"screen"`
	Outcome weather.Outcome `json:"outcome"`

	Model      weather.Model      `json:"model"`
	AirQuality weather.AirQuality `json:"airQuality"`

	CurrentStatus    weather.Status `json:"currentStatus"`
	ForecastStatus   weather.Status `json:"forecastStatus"`
	AirQualityStatus weather.Status `json:"airQualityStatus"`

	Indoor            device.Reading       `json:"indoor"`
	BatteryMillivolts int                  `json:"batteryMillivolts"`
	Battery           device.BatteryLevel  `json:"battery"`
	Link              weather.LinkStatus   `json:"link"`
	StatusLine        string               `json:"statusLine,omitempty"`
	Error             *weather.ErrorScreen `json:"error,omitempty"`

	// Sleep is the time until the next wake. Hibernate means no timed wake.
	Sleep     time.Duration `json:"sleep"`
	Hibernate bool          `json:"hibernate"`
}

// Renderer receives finished reports.
type Renderer interface {
	Render(ctx context.Context, r Report) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, r Report) error

func (f RendererFunc) Render(ctx context.Context, r Report) error { return f(ctx, r) }

// LogRenderer writes a summary of each report to the standard logger.
type LogRenderer struct{}

func (LogRenderer) Render(ctx context.Context, r Report) error {
	if r.Error != nil {
		log.Printf("INFO: cycle %s: %s screen: %s / %s", r.ID, r.Screen, r.Error.Status, r.Error.Detail)
		return nil
	}

	c := r.Model.Current
	log.Printf("INFO: cycle %s: %s %s, %.1fK feels %.1fK, %d%% rh, %d hPa, wind %.1f m/s",
		r.ID, r.Model.City, c.Weather.Description, c.Temp, c.FeelsLike, c.Humidity, c.Pressure, c.WindSpeed)
	log.Printf("INFO: cycle %s: %d hourly, %d daily, %d air quality samples (%s)",
		r.ID, r.Model.HourlyLen, r.Model.DailyLen, r.AirQuality.Len, r.Outcome)
	if aq, ok := r.AirQuality.Latest(); ok {
		log.Printf("INFO: cycle %s: AQI %d, PM2.5 %.1f", r.ID, aq.AQI, aq.PM25)
	}
	if r.Indoor.TemperatureValid || r.Indoor.HumidityValid {
		log.Printf("INFO: cycle %s: indoor %.1f°C %.0f%%", r.ID, r.Indoor.Temperature, r.Indoor.Humidity)
	}
	if r.StatusLine != "" {
		log.Printf("INFO: cycle %s: status: %s", r.ID, r.StatusLine)
	}
	return nil
}
