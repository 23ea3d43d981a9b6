// Package fault turns a mirror snapshot into a severity grade. It is pure
// and does no I/O: every check reads already-mirrored state.
package fault

import (
	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/units"
)

// Grade is a totally ordered severity. Higher values compare greater, so
// the worst of a set of grades is found with a plain max.
type Grade int

const (
	OK Grade = iota
	Good
	Warning
	Error
	Critical
)

func (g Grade) String() string {
	switch g {
	case OK:
		return "ok"
	case Good:
		return "good"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Critical:
		return "critical"
	default:
		return "unknown"
	}
}

func max(a, b Grade) Grade {
	if a > b {
		return a
	}
	return b
}

// Config holds the two site-specific thresholds the voltage checks need;
// everything else a check needs lives on the mirror itself.
type Config struct {
	MaxVoltageDifference float64 // volts, compared against |v_set - v_mes| while enabled
	MaxVoltageWhenOff    float64 // volts, compared against v_mes while disabled
}

func inRange(v, min, max float64) bool {
	return v >= min && v <= max
}

func checkActualVoltageSet(c mirror.Cell) Grade {
	v := units.Volts(c.VoltageSet.Actual)
	if !inRange(v, units.Volts(c.VoltageRange.Min), units.Volts(c.VoltageRange.Max)) {
		return Critical
	}
	return OK
}

func checkMeasuredVoltage(c mirror.Cell, cfg Config) Grade {
	vSet := units.Volts(c.VoltageSet.Actual)
	vMes := units.Volts(c.VoltageMeasured)
	if !inRange(vMes, units.Volts(c.MeasuredVoltageRange.Min), units.Volts(c.MeasuredVoltageRange.Max)) {
		return Critical
	}
	if c.Enabled.Actual {
		if abs(vSet-vMes) >= cfg.MaxVoltageDifference {
			return Error
		}
	} else if vMes > cfg.MaxVoltageWhenOff {
		return Error
	}
	return OK
}

func checkMeasuredCurrent(c mirror.Cell) Grade {
	iLim := units.Amperes(c.CurrentLimit.Actual)
	iMes := units.Amperes(c.CurrentMeasured)
	if !inRange(iMes, units.Amperes(c.MeasuredCurrentRange.Min), units.Amperes(c.MeasuredCurrentRange.Max)) {
		return Critical
	}
	if iMes > iLim {
		return Error
	}
	return OK
}

func checkCellStatus(c mirror.Cell) Grade {
	s := c.Status
	if s.CurrentOverload() || s.BaseVoltageError() || s.HardwareFailure() || s.Standby() || s.IOProtection() {
		return Error
	}
	return OK
}

func checkPending(pending int) Grade {
	if pending > 0 {
		return Warning
	}
	return OK
}

func goodIfEnabled(c mirror.Cell) Grade {
	if c.Enabled.Actual {
		return Good
	}
	return OK
}

// EvaluateCell grades one cell mirror: the worst of its range checks,
// status-bit checks, pending-write warnings, and the "enabled" informational
// uplift.
func EvaluateCell(c mirror.Cell, cfg Config) Grade {
	g := OK
	g = max(g, checkActualVoltageSet(c))
	g = max(g, checkMeasuredVoltage(c, cfg))
	g = max(g, checkMeasuredCurrent(c))
	g = max(g, checkCellStatus(c))
	g = max(g, checkPending(c.VoltageSet.Pending))
	g = max(g, checkPending(c.CurrentLimit.Pending))
	g = max(g, checkPending(c.Enabled.Pending))
	g = max(g, checkPending(c.RampUpSpeed.Pending))
	g = max(g, checkPending(c.RampDownSpeed.Pending))
	g = max(g, goodIfEnabled(c))
	return g
}

// EvaluateController grades the controller mirror: pending fan/shutdown
// temperature writes warn, and — per the stricter variant of the original's
// two conflicting implementations — any set controller status bit is an
// error, matching what the UI's status text has always escalated it to.
func EvaluateController(ctl mirror.Controller) Grade {
	g := OK
	g = max(g, checkPending(ctl.FanOffTemp.Pending))
	g = max(g, checkPending(ctl.FanOnTemp.Pending))
	g = max(g, checkPending(ctl.ShutdownTemp.Pending))
	s := ctl.Status
	if s.TemperatureProtection() || s.LowVoltageError() || s.BaseVoltageError() || s.HighVoltageProtectionActive() {
		g = max(g, Error)
	}
	return g
}

// EvaluateDevice grades a whole device: the worst of its controller grade
// and all of its cells' grades.
func EvaluateDevice(d *mirror.Device, cfg Config) Grade {
	g := EvaluateController(d.Controller)
	for _, c := range d.Cells {
		g = max(g, EvaluateCell(c, cfg))
	}
	return g
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
