package scheduler

import (
	"testing"
	"time"
)

func at(hour, min, sec int) time.Time {
	return time.Date(2024, 1, 15, hour, min, sec, 0, time.UTC)
}

func TestUntilNextWake(t *testing.T) {
	halfHour := SleepConfig{Period: 30 * time.Minute, BedHour: 0, WakeHour: 6}

	tests := []struct {
		name string
		now  time.Time
		cfg  SleepConfig
		want time.Duration
	}{
		{name: "aligns to next slot", now: at(10, 7, 20), cfg: halfHour, want: 22*time.Minute + 40*time.Second},
		{name: "exactly on a slot", now: at(10, 0, 0), cfg: halfHour, want: 30 * time.Minute},
		{name: "slot under two minutes away is skipped", now: at(10, 29, 0), cfg: halfHour, want: 31 * time.Minute},
		{name: "slot within last 5 percent is skipped", now: at(10, 28, 40), cfg: halfHour, want: 31*time.Minute + 20*time.Second},
		{name: "wake in bed time jumps to wake hour", now: at(23, 40, 0), cfg: halfHour, want: 6*time.Hour + 20*time.Minute},
		{name: "during bed time", now: at(2, 15, 30), cfg: halfHour, want: 3*time.Hour + 44*time.Minute + 30*time.Second},
		{
			name: "late bed time",
			now:  at(22, 45, 0),
			cfg:  SleepConfig{Period: 30 * time.Minute, BedHour: 23, WakeHour: 6},
			want: 7*time.Hour + 15*time.Minute,
		},
		{
			name: "no bed time when hours are equal",
			now:  at(23, 50, 0),
			cfg:  SleepConfig{Period: 30 * time.Minute, BedHour: 0, WakeHour: 0},
			want: 10 * time.Minute,
		},
		{
			name: "period not dividing an hour counts from wake hour",
			now:  at(7, 0, 0),
			cfg:  SleepConfig{Period: 45 * time.Minute, BedHour: 6, WakeHour: 6},
			want: 30 * time.Minute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UntilNextWake(tt.now, tt.cfg); got != tt.want {
				t.Errorf("UntilNextWake(%s) = %s, want %s", tt.now.Format("15:04:05"), got, tt.want)
			}
		})
	}
}

func TestSleepDurationCompensatesFastClock(t *testing.T) {
	cfg := SleepConfig{Period: 30 * time.Minute, BedHour: 0, WakeHour: 6}

	// 1360s exact, +3s padding, x1.0015 drift, truncated.
	if got := SleepDuration(at(10, 7, 20), cfg); got != 1365*time.Second {
		t.Errorf("SleepDuration = %s, want 1365s", got)
	}
}

func TestInBedTime(t *testing.T) {
	cfg := SleepConfig{Period: 30 * time.Minute, BedHour: 0, WakeHour: 6}

	for _, tt := range []struct {
		now  time.Time
		want bool
	}{
		{at(23, 59, 59), false},
		{at(0, 0, 0), true},
		{at(5, 59, 0), true},
		{at(6, 0, 0), false},
		{at(12, 0, 0), false},
	} {
		if got := InBedTime(tt.now, cfg); got != tt.want {
			t.Errorf("InBedTime(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
		}
	}

	if InBedTime(at(3, 0, 0), SleepConfig{Period: time.Hour, BedHour: 6, WakeHour: 6}) {
		t.Error("equal bed and wake hours disable bed time")
	}
}

func TestNextWake(t *testing.T) {
	cfg := SleepConfig{Period: 30 * time.Minute, BedHour: 0, WakeHour: 6}
	if got := NextWake(at(10, 7, 20), cfg); !got.Equal(at(10, 30, 0)) {
		t.Errorf("NextWake = %s, want 10:30:00", got.Format("15:04:05"))
	}
}
