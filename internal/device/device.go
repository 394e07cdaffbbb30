package device

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSensorNotFound is returned by Initialize when no sensor answered.
	ErrSensorNotFound = errors.New("sensor not found")
	// ErrSensorReadFailed is returned by Read when no sensor produced a valid value.
	ErrSensorReadFailed = errors.New("sensor read failed")
	// ErrNotInitialized is returned by Read before a successful Initialize.
	ErrNotInitialized = errors.New("sensor manager not initialized")
)

// Reading is one indoor measurement. Each quantity carries its own validity
// flag since the two sensors fail independently.
type Reading struct {
	Temperature      float64   `json:"temperature"` // °C
	TemperatureValid bool      `json:"temperatureValid"`
	Humidity         float64   `json:"humidity"` // %RH
	HumidityValid    bool      `json:"humidityValid"`
	Pressure         float64   `json:"pressure"` // Pa
	PressureValid    bool      `json:"pressureValid"`
	Altitude         float64   `json:"altitude"` // m
	AltitudeValid    bool      `json:"altitudeValid"`
	At               time.Time `json:"at"`
}

// Any reports whether at least one quantity is valid.
func (r Reading) Any() bool {
	return r.TemperatureValid || r.HumidityValid || r.PressureValid || r.AltitudeValid
}

// SensorManager owns the indoor sensors for one wake cycle.
type SensorManager interface {
	Initialize(ctx context.Context) error
	Read(ctx context.Context) (Reading, error)
	Shutdown() error
}

// PowerManager switches the sensor supply rail.
type PowerManager interface {
	Enable() error
	Disable() error
	Enabled() bool
}

// BatteryMonitor reports the battery voltage in millivolts.
type BatteryMonitor interface {
	Millivolts(ctx context.Context) (int, error)
}
