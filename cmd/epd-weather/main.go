package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/epd-weather/internal/api/http"
	"github.com/i474232898/epd-weather/internal/config"
	"github.com/i474232898/epd-weather/internal/cycle"
	"github.com/i474232898/epd-weather/internal/device"
	"github.com/i474232898/epd-weather/internal/scheduler"
	"github.com/i474232898/epd-weather/internal/store"
	"github.com/i474232898/epd-weather/internal/weather"
	"github.com/i474232898/epd-weather/internal/weather/providers"
)

const cycleTimeout = 5 * time.Minute

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefs, err := store.OpenPrefs(ctx, cfg.PrefsDriver, cfg.PrefsDSN)
	if err != nil {
		log.Fatalf("failed to open preferences: %v", err)
	}
	defer prefs.Close()

	mode := providers.TransportMode(cfg.TransportMode)
	endpoints, err := providers.NewOpenWeatherEndpoints(providers.OpenWeatherConfig{
		Host:   cfg.OpenWeatherHost,
		Scheme: mode.Scheme(),
		APIKey: cfg.OpenWeatherAPIKey,
		Lat:    cfg.Lat,
		Lon:    cfg.Lon,
		Lang:   cfg.Lang,
	})
	if err != nil {
		log.Fatalf("failed to configure endpoints: %v", err)
	}

	// HTTP transport with resilience (rate limit + circuit breaker).
	transport, err := providers.NewHTTPTransport(providers.HTTPClientConfig{
		Mode:       mode,
		CACertFile: cfg.CACertFile,
		Timeout:    cfg.HTTPTimeout,
		RateLimit:  cfg.RateLimitRPS,
		Burst:      3,
	})
	if err != nil {
		log.Fatalf("failed to configure transport: %v", err)
	}

	link := providers.NewInterfaceLink(cfg.LinkInterface)
	service := weather.NewService(transport, link, endpoints,
		weather.WithLocation(cfg.Timezone),
		weather.WithRetry(weather.RetryConfig{
			AttemptTimeout: cfg.HTTPTimeout,
			Backoff:        cfg.RetryBackoff,
			MaxBackoff:     30 * time.Second,
		}),
	)

	sensors, battery := hardware(cfg)

	// In-memory history of reports, served by the status API.
	memStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	sleepCfg := scheduler.SleepConfig{Period: cfg.SleepPeriod(), BedHour: cfg.BedHour, WakeHour: cfg.WakeHour}
	runner := cycle.NewRunner(service, link, sensors, battery, prefs,
		[]cycle.Renderer{cycle.LogRenderer{}, memStore},
		cycle.WithBatteryPolicy(device.BatteryPolicy{
			LowMillivolts:      cfg.LowBatteryMV,
			VeryLowMillivolts:  cfg.VeryLowBatteryMV,
			CriticalMillivolts: cfg.CritLowBatteryMV,
			LowSleep:           cfg.LowBatterySleep,
			VeryLowSleep:       cfg.VeryLowBatterySleep,
		}),
		cycle.WithSleep(func(now time.Time) time.Duration {
			return scheduler.SleepDuration(now.In(cfg.Timezone), sleepCfg)
		}),
		cycle.WithClock(func() time.Time { return time.Now().In(cfg.Timezone) }),
	)

	if cfg.RunMode == "oneshot" {
		runCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
		defer cancel()
		report, err := runner.Run(runCtx)
		if err != nil {
			log.Printf("ERROR: cycle %s: %v", report.ID, err)
		}
		if report.Hibernate {
			log.Printf("INFO: hibernating until the battery is charged")
			return
		}
		log.Printf("INFO: sleeping %s until %s", report.Sleep, report.FinishedAt.Add(report.Sleep).Format(time.RFC3339))
		return
	}

	// Daemon: one cycle now, then on the wake grid.
	sched := scheduler.New(runner, sleepCfg, cfg.Timezone, cycleTimeout)
	if err := sched.RunAndStart(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "epd-weather",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, memStore, sched.NextRun)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

// hardware returns the indoor sensors and battery monitor.
func hardware(cfg *config.AppConfig) (device.SensorManager, device.BatteryMonitor) {
	if cfg.SimulateHardware {
		log.Printf("INFO: using simulated sensors and battery")
		return device.NewSimulatedSensor(), device.FixedBattery(device.SimulatedMillivolts)
	}
	// TODO: attach BMP280 and AHT20 I2C drivers; until then the cycle reports "BME not found".
	return device.NewDualSensor(nil, nil, nil), device.SysfsBattery{Dir: cfg.BatterySysfsDir}
}
