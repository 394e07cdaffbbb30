package cycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/epd-weather/internal/device"
	"github.com/i474232898/epd-weather/internal/weather"
)

// Preference keys kept across wake cycles.
const (
	PrefLowBattery  = "lowBat"
	PrefLastRefresh = "lastRefresh"
)

var (
	// ErrLowBattery is returned when the battery gate stops the cycle.
	ErrLowBattery = errors.New("battery too low")
	// ErrNetworkUnavailable is returned when the link is not connected.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// Prefs is the non-volatile key/value store that survives sleep.
type Prefs interface {
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	PutBool(ctx context.Context, key string, v bool) error
	PutInt(ctx context.Context, key string, v int64) error
}

// Acquirer runs one weather acquisition.
type Acquirer interface {
	Acquire(ctx context.Context) (*weather.Result, error)
}

// SleepFunc returns the sleep after a cycle that finished at now.
type SleepFunc func(now time.Time) time.Duration

// Runner executes wake cycles: battery gate, network gate, acquisition,
// indoor sensors, rendering.
type Runner struct {
	acquirer  Acquirer
	link      weather.Link
	sensors   device.SensorManager
	battery   device.BatteryMonitor
	policy    device.BatteryPolicy
	prefs     Prefs
	renderers []Renderer
	sleep     SleepFunc
	now       func() time.Time
}

// Option customises a Runner.
type Option func(*Runner)

// WithBatteryPolicy overrides the default thresholds.
func WithBatteryPolicy(p device.BatteryPolicy) Option {
	return func(r *Runner) { r.policy = p }
}

// WithSleep sets the sleep computation.
func WithSleep(f SleepFunc) Option {
	return func(r *Runner) { r.sleep = f }
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a new Runner. Reports go to every renderer in order.
func NewRunner(
	acquirer Acquirer,
	link weather.Link,
	sensors device.SensorManager,
	battery device.BatteryMonitor,
	prefs Prefs,
	renderers []Renderer,
	opts ...Option,
) *Runner {
	r := &Runner{
		acquirer:  acquirer,
		link:      link,
		sensors:   sensors,
		battery:   battery,
		policy:    device.DefaultBatteryPolicy(),
		prefs:     prefs,
		renderers: renderers,
		sleep:     func(time.Time) time.Duration { return 30 * time.Minute },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one wake cycle and returns its report. The error is non-nil
// when a gate or the acquisition stopped the cycle early; the report is
// complete either way, including the sleep to apply.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	rep := Report{ID: uuid.NewString(), StartedAt: r.now(), Screen: ScreenWeather}
	log.Printf("INFO: cycle %s: starting", rep.ID)

	if err := r.batteryGate(ctx, &rep); err != nil {
		return rep, err
	}
	if err := r.networkGate(ctx, &rep); err != nil {
		return rep, err
	}

	res, err := r.acquirer.Acquire(ctx)
	if res != nil {
		rep.Model = res.Model
		rep.AirQuality = res.AirQuality
		rep.CurrentStatus = res.CurrentStatus
		rep.ForecastStatus = res.ForecastStatus
		rep.AirQualityStatus = res.AirQualityStatus
		rep.Outcome = res.Outcome
		rep.Error = res.Error
	}
	if err != nil {
		rep.Screen = ScreenError
		rep.Outcome = weather.OutcomeFailed
		if rep.Error == nil {
			rep.Error = &weather.ErrorScreen{Status: "Weather Update Failed", Detail: err.Error()}
		}
		r.finish(ctx, &rep)
		return rep, fmt.Errorf("cycle %s: %w", rep.ID, err)
	}

	rep.Indoor, rep.StatusLine = r.readIndoor(ctx)

	r.finish(ctx, &rep)
	if err := r.prefs.PutInt(ctx, PrefLastRefresh, rep.FinishedAt.Unix()); err != nil {
		log.Printf("ERROR: cycle %s: save last refresh: %v", rep.ID, err)
	}
	return rep, nil
}

// batteryGate stops the cycle on low battery. The low battery screen is shown
// only the first time the threshold is crossed.
func (r *Runner) batteryGate(ctx context.Context, rep *Report) error {
	mv, err := r.battery.Millivolts(ctx)
	if err != nil {
		log.Printf("ERROR: cycle %s: battery read failed: %v", rep.ID, err)
		rep.Battery = device.BatteryOK
		return nil
	}
	rep.BatteryMillivolts = mv
	action := r.policy.Evaluate(mv)
	rep.Battery = action.Level
	log.Printf("INFO: cycle %s: battery %dmV (%s)", rep.ID, mv, action.Level)

	lowBat, err := r.prefs.GetBool(ctx, PrefLowBattery, false)
	if err != nil {
		log.Printf("ERROR: cycle %s: read %s: %v", rep.ID, PrefLowBattery, err)
	}

	if action.Proceed() {
		if lowBat {
			if err := r.prefs.PutBool(ctx, PrefLowBattery, false); err != nil {
				log.Printf("ERROR: cycle %s: clear %s: %v", rep.ID, PrefLowBattery, err)
			}
		}
		return nil
	}

	rep.Screen = ScreenLowBattery
	rep.Outcome = weather.OutcomeFailed
	rep.Error = &weather.ErrorScreen{Status: "Low Battery", Detail: fmt.Sprintf("%dmV", mv)}
	rep.Hibernate = action.Hibernate
	rep.Sleep = action.Sleep

	show := !lowBat
	if show {
		if err := r.prefs.PutBool(ctx, PrefLowBattery, true); err != nil {
			log.Printf("ERROR: cycle %s: set %s: %v", rep.ID, PrefLowBattery, err)
		}
	}
	rep.FinishedAt = r.now()
	if show {
		r.render(ctx, *rep)
	}
	if action.Hibernate {
		log.Printf("INFO: cycle %s: critically low battery, hibernating", rep.ID)
	} else {
		log.Printf("INFO: cycle %s: %s battery, sleeping %s", rep.ID, action.Level, action.Sleep)
	}
	return ErrLowBattery
}

func (r *Runner) networkGate(ctx context.Context, rep *Report) error {
	rep.Link = r.link.Status()
	if rep.Link == weather.LinkConnected {
		return nil
	}

	status := "WiFi Connection Failed"
	if rep.Link == weather.LinkNoSSIDAvailable {
		status = "Network Not Available"
	}
	rep.Screen = ScreenError
	rep.Outcome = weather.OutcomeFailed
	rep.Error = &weather.ErrorScreen{Status: status, Detail: rep.Link.String()}
	log.Printf("ERROR: cycle %s: %s (%s)", rep.ID, status, rep.Link)

	r.finish(ctx, rep)
	return ErrNetworkUnavailable
}

// readIndoor reads the indoor sensors. Failures only set the status line.
func (r *Runner) readIndoor(ctx context.Context) (device.Reading, string) {
	if r.sensors == nil {
		return device.Reading{}, ""
	}
	defer func() {
		if err := r.sensors.Shutdown(); err != nil {
			log.Printf("ERROR: cycle: sensor shutdown: %v", err)
		}
	}()

	if err := r.sensors.Initialize(ctx); err != nil {
		log.Printf("ERROR: cycle: sensor init: %v", err)
		return device.Reading{}, "BME not found"
	}
	reading, err := r.sensors.Read(ctx)
	if err != nil {
		log.Printf("ERROR: cycle: sensor read: %v", err)
		return reading, "BME read failed"
	}
	return reading, ""
}

func (r *Runner) finish(ctx context.Context, rep *Report) {
	rep.FinishedAt = r.now()
	rep.Sleep = r.sleep(rep.FinishedAt)
	r.render(ctx, *rep)
	log.Printf("INFO: cycle %s: awake for %s, sleeping %s",
		rep.ID, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond), rep.Sleep)
}

func (r *Runner) render(ctx context.Context, rep Report) {
	for _, rd := range r.renderers {
		if err := rd.Render(ctx, rep); err != nil {
			log.Printf("ERROR: cycle %s: render: %v", rep.ID, err)
		}
	}
}
