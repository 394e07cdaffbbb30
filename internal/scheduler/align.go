package scheduler

import (
	"math"
	"time"
)

const (
	// minSleep is the shortest sleep before the next aligned wake; closer
	// slots are skipped.
	minSleep = 2 * time.Minute
	// maxOffsetRatio skips a slot when less than 5% of the period remains.
	maxOffsetRatio = 0.95
	// rtcPadding and rtcDrift compensate clocks that run fast during sleep.
	rtcPadding = 3 * time.Second
	rtcDrift   = 1.0015
)

// SleepConfig describes the wake grid.
type SleepConfig struct {
	// Period between wakes. Wakes are aligned to multiples of Period counted
	// from WakeHour.
	Period time.Duration
	// BedHour and WakeHour bound the nightly pause. Equal values disable it.
	BedHour  int
	WakeHour int
}

func (c SleepConfig) periodSeconds() int {
	s := int(c.Period / time.Second)
	if s < 60 {
		return 60
	}
	return s
}

// bedtimeHour returns the bed hour relative to the wake hour.
func (c SleepConfig) bedtimeHour() int {
	if c.BedHour == c.WakeHour {
		return math.MaxInt
	}
	return (c.BedHour - c.WakeHour + 24) % 24
}

// relativeHour shifts t's hour so that WakeHour is hour 0.
func (c SleepConfig) relativeHour(t time.Time) int {
	return (t.Hour() - c.WakeHour + 24) % 24
}

// InBedTime reports whether t falls in the nightly pause.
func InBedTime(t time.Time, cfg SleepConfig) bool {
	return cfg.relativeHour(t) >= cfg.bedtimeHour()
}

// UntilNextWake returns the exact time from now to the next aligned wake,
// skipping bed time.
func UntilNextWake(now time.Time, cfg SleepConfig) time.Duration {
	period := cfg.periodSeconds()
	curHour := cfg.relativeHour(now)
	curSecond := curHour*3600 + now.Minute()*60 + now.Second()

	offset := curSecond % period
	sleep := period - offset
	if time.Duration(sleep)*time.Second < minSleep || float64(offset)/float64(period) > maxOffsetRatio {
		sleep += period
	}

	predictedWakeHour := ((curSecond + sleep) / 3600) % 24
	if predictedWakeHour >= cfg.bedtimeHour() {
		sleep = (24-curHour)*3600 - (now.Minute()*60 + now.Second())
	}
	return time.Duration(sleep) * time.Second
}

// SleepDuration is UntilNextWake padded for a fast real-time clock, whole
// seconds.
func SleepDuration(now time.Time, cfg SleepConfig) time.Duration {
	d := UntilNextWake(now, cfg) + rtcPadding
	secs := int64(float64(d/time.Second) * rtcDrift)
	return time.Duration(secs) * time.Second
}

// NextWake returns the wall clock time of the next aligned wake.
func NextWake(now time.Time, cfg SleepConfig) time.Time {
	return now.Add(UntilNextWake(now, cfg))
}
