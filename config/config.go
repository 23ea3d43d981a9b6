// Package config holds the single set of knobs loaded once at process
// start: fault-check thresholds, the registers written at every connect,
// and the value log destination.
package config

import "hvrack.dev/supervisor/register"

// Config is the process-wide configuration, analogous to the original
// program's config.py/settings.py split — but here there is exactly one
// place to look, since this program has no GUI layer to split settings
// away from (window_title is GUI-only display state and is intentionally
// not modeled here).
type Config struct {
	// MaxVoltageDifference is the fault evaluator's threshold (volts) for
	// |v_set - v_mes| while a cell is enabled.
	MaxVoltageDifference float64
	// MaxVoltageWhenOff is the fault evaluator's threshold (volts) for
	// v_mes while a cell is disabled.
	MaxVoltageWhenOff float64

	// ControllerDefaults is written to the controller bank once per
	// connect, before the initial state read.
	ControllerDefaults map[register.ControllerRegister]uint16
	// CellDefaults is written to every cell bank once per connect.
	CellDefaults map[register.CellRegister]uint16

	// DataLogFile is the path value-log CSV rows are appended to. Empty
	// disables value logging.
	DataLogFile string
}

// Default returns the configuration spec.md documents as defaults: a 1V
// voltage-difference threshold, a 10V when-off threshold, CRC checking
// enabled on both banks by default, and no other registers pinned at
// connect time.
func Default() Config {
	return Config{
		MaxVoltageDifference: 1,
		MaxVoltageWhenOff:    10,
		ControllerDefaults: map[register.ControllerRegister]uint16{
			register.CtlCRCEnable: 1,
		},
		CellDefaults: map[register.CellRegister]uint16{
			register.CellCRCEnable: 1,
		},
		DataLogFile: "values.csv",
	}
}
