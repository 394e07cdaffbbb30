package device

import (
	"context"
	"sync"
	"time"
)

// Values reported when hardware is simulated.
const (
	SimulatedTemperature = 22.5
	SimulatedHumidity    = 45.0
	SimulatedMillivolts  = 4200
)

// SimulatedSensor stands in for the indoor sensors.
type SimulatedSensor struct {
	Temperature float64
	Humidity    float64

	mu          sync.Mutex
	initialized bool
}

var _ SensorManager = (*SimulatedSensor)(nil)

func NewSimulatedSensor() *SimulatedSensor {
	return &SimulatedSensor{Temperature: SimulatedTemperature, Humidity: SimulatedHumidity}
}

func (s *SimulatedSensor) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *SimulatedSensor) Read(ctx context.Context) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return Reading{}, ErrNotInitialized
	}
	return Reading{
		Temperature:      s.Temperature,
		TemperatureValid: true,
		Humidity:         s.Humidity,
		HumidityValid:    true,
		At:               time.Now(),
	}, nil
}

func (s *SimulatedSensor) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = false
	return nil
}

// SimulatedPower tracks the rail state in memory.
type SimulatedPower struct {
	mu sync.Mutex
	on bool
}

var _ PowerManager = (*SimulatedPower)(nil)

func (p *SimulatedPower) Enable() error {
	p.mu.Lock()
	p.on = true
	p.mu.Unlock()
	return nil
}

func (p *SimulatedPower) Disable() error {
	p.mu.Lock()
	p.on = false
	p.mu.Unlock()
	return nil
}

func (p *SimulatedPower) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// FixedBattery reports a constant voltage.
type FixedBattery int

var _ BatteryMonitor = FixedBattery(0)

func (b FixedBattery) Millivolts(ctx context.Context) (int, error) {
	return int(b), nil
}
