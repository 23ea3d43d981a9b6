// Package datalog appends one CSV row per cell-updated event to a
// line-buffered log file, mirroring the original program's always-on value
// history.
package datalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"periph.io/x/conn/v3/physic"

	"hvrack.dev/supervisor/units"
)

// Writer appends rows to an open CSV file, flushing after every row so the
// file is always readable up to the last completed write. It is safe for
// concurrent use, so one Writer can be shared by several supervisors.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	csv  *csv.Writer
}

// Open opens (creating if necessary, appending if it exists) the file at
// path for value logging.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("datalog: %w", err)
	}
	return &Writer{file: f, csv: csv.NewWriter(f)}, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// WriteCellUpdate appends one row for a cell-updated event: device name,
// 1-indexed cell number, then the cell's actual values, matching spec.md
// §6's column order exactly (enabled, voltage_set, voltage_measured,
// current_measured, current_limit, ramp_down, ramp_up).
func (w *Writer) WriteCellUpdate(deviceName string, cellIndex int, enabled bool, voltageSet, voltageMeasured physic.ElectricPotential, currentMeasured, currentLimit physic.ElectricCurrent, rampDown, rampUp int) error {
	row := []string{
		deviceName,
		fmt.Sprintf("%d", cellIndex),
		fmt.Sprintf("%v", enabled),
		fmt.Sprintf("%.1f", units.Volts(voltageSet)),
		fmt.Sprintf("%.1f", units.Volts(voltageMeasured)),
		fmt.Sprintf("%.1f", units.Amperes(currentMeasured)*1e6),
		fmt.Sprintf("%.1f", units.Amperes(currentLimit)*1e6),
		fmt.Sprintf("%d", rampDown),
		fmt.Sprintf("%d", rampUp),
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.csv.Write(row); err != nil {
		return fmt.Errorf("datalog: %w", err)
	}
	w.csv.Flush()
	return w.csv.Error()
}
