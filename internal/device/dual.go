package device

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// SeaLevelPressure is the reference used to derive altitude, in hPa.
const SeaLevelPressure = 1013.25

// PressureSensor is a BMP280 style barometer.
type PressureSensor interface {
	Begin() error
	// ReadTemperature returns °C.
	ReadTemperature() (float64, error)
	// ReadPressure returns Pa.
	ReadPressure() (float64, error)
}

// HumiditySensor is an AHT20 style hygrometer.
type HumiditySensor interface {
	Begin() error
	// Read returns °C and %RH.
	Read() (temperature, humidity float64, err error)
}

// DualSensor merges a barometer and a hygrometer into one Reading. The
// hygrometer's temperature wins when both sensors are present. Either sensor
// may be nil.
type DualSensor struct {
	bmp   PressureSensor
	aht   HumiditySensor
	power PowerManager
	now   func() time.Time

	mu          sync.Mutex
	initialized bool
	bmpOK       bool
	ahtOK       bool
	errorCount  int
}

var _ SensorManager = (*DualSensor)(nil)

func NewDualSensor(bmp PressureSensor, aht HumiditySensor, power PowerManager) *DualSensor {
	return &DualSensor{bmp: bmp, aht: aht, power: power, now: time.Now}
}

// Initialize powers the rail and probes both sensors. It fails only when
// neither sensor answers.
func (d *DualSensor) Initialize(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.power != nil && !d.power.Enabled() {
		if err := d.power.Enable(); err != nil {
			return fmt.Errorf("enable sensor power: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	d.bmpOK = d.bmp != nil && d.bmp.Begin() == nil
	d.ahtOK = d.aht != nil && d.aht.Begin() == nil
	log.Printf("DEBUG: sensors: bmp280=%t aht20=%t", d.bmpOK, d.ahtOK)

	if !d.bmpOK && !d.ahtOK {
		d.initialized = false
		return ErrSensorNotFound
	}
	d.initialized = true
	d.errorCount = 0
	return nil
}

// Read samples every available sensor. Non-finite values are dropped and
// counted as errors.
func (d *DualSensor) Read(ctx context.Context) (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r := Reading{At: d.now()}
	if !d.initialized {
		return r, ErrNotInitialized
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}

	if d.bmpOK {
		if temp, pressure, altitude, ok := d.readBMP(); ok {
			r.Pressure, r.PressureValid = pressure, true
			r.Altitude, r.AltitudeValid = altitude, true
			if !d.ahtOK {
				r.Temperature, r.TemperatureValid = temp, true
			}
		}
	}

	if d.ahtOK {
		if temp, humidity, ok := d.readAHT(); ok {
			r.Temperature, r.TemperatureValid = temp, true
			r.Humidity, r.HumidityValid = humidity, true
		}
	}

	if !r.Any() {
		return r, ErrSensorReadFailed
	}
	return r, nil
}

func (d *DualSensor) readBMP() (temp, pressure, altitude float64, ok bool) {
	temp, err := d.bmp.ReadTemperature()
	if err == nil {
		pressure, err = d.bmp.ReadPressure()
	}
	if err != nil {
		d.errorCount++
		log.Printf("ERROR: sensors: bmp280 read: %v", err)
		return 0, 0, 0, false
	}
	altitude = AltitudeFromPressure(pressure, SeaLevelPressure)
	if !valid(temp) || !valid(pressure) || !valid(altitude) {
		d.errorCount++
		log.Printf("ERROR: sensors: bmp280 returned invalid data")
		return 0, 0, 0, false
	}
	return temp, pressure, altitude, true
}

func (d *DualSensor) readAHT() (temp, humidity float64, ok bool) {
	temp, humidity, err := d.aht.Read()
	if err != nil {
		d.errorCount++
		log.Printf("ERROR: sensors: aht20 read: %v", err)
		return 0, 0, false
	}
	if !valid(temp) || !valid(humidity) {
		d.errorCount++
		log.Printf("ERROR: sensors: aht20 returned invalid data")
		return 0, 0, false
	}
	return temp, humidity, true
}

// Shutdown drops the sensors and switches the rail off.
func (d *DualSensor) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initialized = false
	d.bmpOK, d.ahtOK = false, false
	if d.power != nil && d.power.Enabled() {
		return d.power.Disable()
	}
	return nil
}

// ErrorCount returns the invalid reads since the last Initialize.
func (d *DualSensor) ErrorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.errorCount
}

// Available reports which sensors answered Initialize.
func (d *DualSensor) Available() (bmp280, aht20 bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bmpOK, d.ahtOK
}

// AltitudeFromPressure applies the international barometric formula.
// pressure is in Pa, seaLevel in hPa.
func AltitudeFromPressure(pressure, seaLevel float64) float64 {
	return 44330 * (1 - math.Pow(pressure/100/seaLevel, 0.1903))
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
