package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BatteryLevel classifies a battery voltage.
type BatteryLevel int

const (
	BatteryOK BatteryLevel = iota
	BatteryLow
	BatteryVeryLow
	BatteryCritical
)

func (l BatteryLevel) String() string {
	switch l {
	case BatteryOK:
		return "ok"
	case BatteryLow:
		return "low"
	case BatteryVeryLow:
		return "very_low"
	case BatteryCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// BatteryPolicy holds the voltage thresholds (inclusive) and the sleep
// applied at each level.
type BatteryPolicy struct {
	LowMillivolts      int
	VeryLowMillivolts  int
	CriticalMillivolts int
	LowSleep           time.Duration
	VeryLowSleep       time.Duration
}

// DefaultBatteryPolicy matches a single cell LiPo.
func DefaultBatteryPolicy() BatteryPolicy {
	return BatteryPolicy{
		LowMillivolts:      3462,
		VeryLowMillivolts:  3442,
		CriticalMillivolts: 3404,
		LowSleep:           30 * time.Minute,
		VeryLowSleep:       120 * time.Minute,
	}
}

// BatteryAction is what the wake cycle must do for a given voltage.
type BatteryAction struct {
	Level BatteryLevel
	// Sleep is the forced sleep; zero with Hibernate means sleep until reset.
	Sleep     time.Duration
	Hibernate bool
}

// Proceed reports whether the cycle may continue.
func (a BatteryAction) Proceed() bool {
	return a.Level == BatteryOK
}

// Evaluate classifies mv.
func (p BatteryPolicy) Evaluate(mv int) BatteryAction {
	switch {
	case mv <= p.CriticalMillivolts:
		return BatteryAction{Level: BatteryCritical, Hibernate: true}
	case mv <= p.VeryLowMillivolts:
		return BatteryAction{Level: BatteryVeryLow, Sleep: p.VeryLowSleep}
	case mv <= p.LowMillivolts:
		return BatteryAction{Level: BatteryLow, Sleep: p.LowSleep}
	default:
		return BatteryAction{Level: BatteryOK}
	}
}

// SysfsBattery reads voltage_now from a Linux power_supply node.
type SysfsBattery struct {
	// Dir is e.g. /sys/class/power_supply/BAT0.
	Dir string
}

var _ BatteryMonitor = SysfsBattery{}

// Millivolts converts the kernel's microvolt reading.
func (b SysfsBattery) Millivolts(ctx context.Context) (int, error) {
	raw, err := os.ReadFile(filepath.Join(b.Dir, "voltage_now"))
	if err != nil {
		return 0, fmt.Errorf("read battery voltage: %w", err)
	}
	uv, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("parse battery voltage %q: %w", raw, err)
	}
	return uv / 1000, nil
}
