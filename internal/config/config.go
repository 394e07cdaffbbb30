package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"
)

var validate = validator.New()

type AppConfig struct {
	// OpenWeatherMap access.
	OpenWeatherAPIKey string `validate:"required"`
	OpenWeatherHost   string `validate:"required,hostname_port|hostname"`
	Lang              string `validate:"required"`

	// Device location. Resolved from City/Country with the geocoder when
	// LAT/LON are not set.
	Lat      float64 `validate:"min=-90,max=90"`
	Lon      float64 `validate:"min=-180,max=180"`
	City     string
	Country  string
	Timezone *time.Location `validate:"required"`

	// Transport.
	TransportMode string        `validate:"oneof=http https-insecure https-verify"`
	CACertFile    string        `validate:"required_if=TransportMode https-verify"`
	HTTPTimeout   time.Duration `validate:"gt=0"`
	RetryBackoff  time.Duration `validate:"min=0"`
	RateLimitRPS  float64       `validate:"min=0"`
	LinkInterface string

	// Wake grid.
	SleepMinutes int `validate:"min=2,max=1440"`
	BedHour      int `validate:"min=0,max=23"`
	WakeHour     int `validate:"min=0,max=23"`

	// Battery thresholds in millivolts.
	LowBatteryMV        int           `validate:"gtfield=VeryLowBatteryMV"`
	VeryLowBatteryMV    int           `validate:"gtfield=CritLowBatteryMV"`
	CritLowBatteryMV    int           `validate:"gt=0"`
	LowBatterySleep     time.Duration `validate:"gt=0"`
	VeryLowBatterySleep time.Duration `validate:"gt=0"`
	BatterySysfsDir     string

	// Non-volatile preferences.
	PrefsDriver string `validate:"oneof=sqlite3 postgres"`
	PrefsDSN    string `validate:"required"`

	RunMode string `validate:"oneof=oneshot daemon"`
	Port    string `validate:"required,numeric"`

	// In-memory report history retention.
	StoreMaxHistory int           `validate:"min=0"` // max number of reports (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"min=0"` // max age of reports (0 = unlimited)

	SimulateHardware bool
}

// SleepPeriod returns the wake period.
func (c *AppConfig) SleepPeriod() time.Duration {
	return time.Duration(c.SleepMinutes) * time.Minute
}

// geocode resolves a city to coordinates. Replaced in tests.
var geocode = func(apiKey, city, country string) (float64, float64, error) {
	geocoder.ApiKey = apiKey
	loc, err := geocoder.Geocoding(geocoder.Address{City: city, Country: country})
	if err != nil {
		return 0, 0, err
	}
	return loc.Latitude, loc.Longitude, nil
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OWM_API_KEY")
	cfg.OpenWeatherHost = getenvDefault("OWM_ENDPOINT", "api.openweathermap.org")
	cfg.Lang = getenvDefault("OWM_LANG", "en")

	tz, err := time.LoadLocation(getenvDefault("TIMEZONE", "Asia/Shanghai"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	cfg.TransportMode = getenvDefault("TRANSPORT_MODE", "https-insecure")
	cfg.CACertFile = os.Getenv("CA_CERT_FILE")
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = getenvDuration("RETRY_BACKOFF", 0); err != nil {
		return nil, err
	}
	cfg.RateLimitRPS = getenvFloat("API_RATE_LIMIT_RPS", 1)
	cfg.LinkInterface = os.Getenv("LINK_INTERFACE")

	cfg.SleepMinutes = getenvInt("SLEEP_DURATION", 30)
	cfg.BedHour = getenvInt("BED_TIME", 0)
	cfg.WakeHour = getenvInt("WAKE_TIME", 6)

	cfg.LowBatteryMV = getenvInt("LOW_BATTERY_MV", 3462)
	cfg.VeryLowBatteryMV = getenvInt("VERY_LOW_BATTERY_MV", 3442)
	cfg.CritLowBatteryMV = getenvInt("CRIT_LOW_BATTERY_MV", 3404)
	if cfg.LowBatterySleep, err = getenvDuration("LOW_BATTERY_SLEEP", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.VeryLowBatterySleep, err = getenvDuration("VERY_LOW_BATTERY_SLEEP", 120*time.Minute); err != nil {
		return nil, err
	}
	cfg.BatterySysfsDir = getenvDefault("BATTERY_SYSFS_DIR", "/sys/class/power_supply/BAT0")

	cfg.PrefsDriver = getenvDefault("PREFS_DRIVER", "sqlite3")
	cfg.PrefsDSN = getenvDefault("PREFS_DSN", "epd-weather.db")

	cfg.RunMode = getenvDefault("RUN_MODE", "oneshot")
	cfg.Port = getenvDefault("PORT", "8080")
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48) // one day at 30-minute wakes
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 24*time.Hour); err != nil {
		return nil, err
	}
	cfg.SimulateHardware = getenvBool("SIMULATE_HARDWARE", true)

	if err := loadLocation(cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadLocation(cfg *AppConfig) error {
	cfg.City = os.Getenv("CITY")
	cfg.Country = os.Getenv("COUNTRY")

	latStr, lonStr := os.Getenv("LAT"), os.Getenv("LON")
	if latStr != "" && lonStr != "" {
		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil {
			return fmt.Errorf("invalid LAT: %w", err)
		}
		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil {
			return fmt.Errorf("invalid LON: %w", err)
		}
		cfg.Lat, cfg.Lon = lat, lon
		return nil
	}

	if cfg.City == "" {
		return errors.New("LAT and LON, or CITY, must be set")
	}
	key := os.Getenv("GEOCODER_API_KEY")
	if key == "" {
		return errors.New("GEOCODER_API_KEY is required to resolve CITY")
	}

	lat, lon, err := geocode(key, cfg.City, cfg.Country)
	if err != nil {
		return fmt.Errorf("geocode %q: %w", cfg.City, err)
	}
	log.Printf("INFO: resolved %s,%s to %.4f,%.4f", cfg.City, cfg.Country, lat, lon)
	cfg.Lat, cfg.Lon = lat, lon
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
