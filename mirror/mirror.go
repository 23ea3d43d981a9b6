// Package mirror holds the in-memory snapshot of one board: its controller
// registers and its ordered list of cell registers. A Device is owned
// exclusively by the supervisor that populated it; every mutation happens on
// that supervisor's executor goroutine, so readers only ever need Clone to
// get a consistent, independently-readable copy.
package mirror

import (
	"periph.io/x/conn/v3/physic"

	"hvrack.dev/supervisor/param"
	"hvrack.dev/supervisor/register"
)

// Address names one board: a display name plus the host:port its TCP
// session dials.
type Address struct {
	Name string
	Host string
	Port int
}

// VoltageRange is an inclusive [Min, Max] bound captured once per session, used for
// the calibration constants and measurement ranges in Cell.
type VoltageRange struct{ Min, Max physic.ElectricPotential }

// CurrentRange is the current-valued counterpart of VoltageRange.
type CurrentRange struct{ Min, Max physic.ElectricCurrent }

// Cell is the live state of one high-voltage output channel, 1-indexed by
// Index to match the board's cell bank addressing.
type Cell struct {
	Index int

	Enabled        param.Cell[bool]
	VoltageSet     param.Cell[physic.ElectricPotential]
	CurrentLimit   param.Cell[physic.ElectricCurrent]
	RampUpSpeed    param.Cell[int]
	RampDownSpeed  param.Cell[int]

	VoltageMeasured physic.ElectricPotential
	CurrentMeasured physic.ElectricCurrent
	Status          register.CellStatus

	// Captured once per session; constant for the session's lifetime.
	VoltageRange         VoltageRange
	CurrentLimitRange    CurrentRange
	MeasuredVoltageRange VoltageRange
	MeasuredCurrentRange CurrentRange

	// Operator annotations, not backed by any device register.
	CounterNumber string
	AutoEnable    bool
}

// Clone returns an independent copy of c. Cell has no reference fields
// besides CounterNumber, and strings are immutable, so a shallow copy
// suffices.
func (c Cell) Clone() Cell {
	return c
}

// Controller is the live state of the board's single controller bank.
type Controller struct {
	BaseVoltageEnabled param.Cell[bool]
	FanOffTemp         param.Cell[int]
	FanOnTemp          param.Cell[int]
	ShutdownTemp       param.Cell[int]
	TempSensor         param.Cell[register.TemperatureSensor]

	ProcessorTemp   physic.Temperature
	BoardTemp       physic.Temperature
	PowerSupplyTemp physic.Temperature
	LowVoltage      physic.ElectricPotential
	BaseVoltage     physic.ElectricPotential
	Status          register.ControllerStatus
}

// Clone returns an independent copy of ctl.
func (ctl Controller) Clone() Controller {
	return ctl
}

// Device is the full live mirror of one board: its address, its controller
// bank, and its ordered cells (Cells[i].Index == i+1).
type Device struct {
	Address    Address
	Controller Controller
	Cells      []Cell
}

// New returns an empty device mirror with n cells, indexed 1..n.
func New(addr Address, n int) *Device {
	cells := make([]Cell, n)
	for i := range cells {
		cells[i].Index = i + 1
	}
	return &Device{Address: addr, Cells: cells}
}

// Cell returns a pointer to the mirror's cell with the given 1-indexed
// index, or nil if it is out of range.
func (d *Device) Cell(index int) *Cell {
	if index < 1 || index > len(d.Cells) {
		return nil
	}
	return &d.Cells[index-1]
}

// Clone returns a deep copy of d, safe for a reader to hold onto while the
// owning supervisor continues mutating the original.
func (d *Device) Clone() *Device {
	cells := make([]Cell, len(d.Cells))
	for i, c := range d.Cells {
		cells[i] = c.Clone()
	}
	return &Device{
		Address:    d.Address,
		Controller: d.Controller.Clone(),
		Cells:      cells,
	}
}
