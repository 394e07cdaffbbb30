package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/epd-weather/internal/cycle"
)

// CycleRunner runs one wake cycle.
type CycleRunner interface {
	Run(ctx context.Context) (cycle.Report, error)
}

// Scheduler runs wake cycles on the aligned wake grid while the process
// stays up, standing in for deep sleep.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    CycleRunner
	cfg       SleepConfig
	timeout   time.Duration
	now       func() time.Time
}

// New creates a new Scheduler. Times are evaluated in loc.
func New(runner CycleRunner, cfg SleepConfig, loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		cfg:       cfg,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().In(loc) },
	}
}

// Start schedules the wake job, first run on the next aligned slot, and
// starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.cfg.Period <= 0 {
		return errors.New("scheduler: period must be positive")
	}

	first := NextWake(s.now(), s.cfg)
	_, err := s.scheduler.Every(s.cfg.Period).StartAt(first).Do(s.RunOnce)
	if err != nil {
		return err
	}

	log.Printf("scheduler: wake cycles every %s, first at %s", s.cfg.Period, first.Format(time.RFC3339))
	s.scheduler.StartAsync()
	return nil
}

// RunAndStart runs one wake cycle now and starts the scheduler once it has
// finished, so the first cycle never overlaps a scheduled one.
func (s *Scheduler) RunAndStart() error {
	s.RunOnce()
	return s.Start()
}

// RunOnce runs a single wake cycle unless it is bed time.
func (s *Scheduler) RunOnce() {
	now := s.now()
	if InBedTime(now, s.cfg) {
		log.Printf("scheduler: bed time, skipping cycle (next wake %s)", NextWake(now, s.cfg).Format(time.RFC3339))
		return
	}

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Println("scheduler: running wake cycle")
	report, err := s.runner.Run(ctx)
	if err != nil {
		log.Printf("scheduler: cycle %s ended early: %v", report.ID, err)
		return
	}
	log.Printf("scheduler: completed cycle %s", report.ID)
}

// NextRun returns when the wake job fires next.
func (s *Scheduler) NextRun() time.Time {
	_, t := s.scheduler.NextRun()
	return t
}

// Running reports whether the scheduler has been started.
func (s *Scheduler) Running() bool {
	return s.scheduler.IsRunning()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
