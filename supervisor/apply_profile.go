package supervisor

import (
	"fmt"

	"periph.io/x/conn/v3/physic"

	"hvrack.dev/supervisor/profile"
	"hvrack.dev/supervisor/register"
	"hvrack.dev/supervisor/units"
)

// cellApply is a fully validated, pre-converted write plan for one cell:
// either the five-parameter compound write a profile entry calls for, or
// just a disable for a cell the profile did not mention.
type cellApply struct {
	index       int
	present     bool
	voltage     physic.ElectricPotential
	voltageCode uint16
	current     physic.ElectricCurrent
	currentCode uint16
	rampUp      int
	rampDown    int
}

// ApplyDeviceProfile validates every cell the profile assigns settings to
// against that cell's calibrated range; entries are checked in map order,
// so when several are invalid, which one is reported is not defined. If any
// entry fails validation, no writes are submitted at all. On success, one
// compound write job per cell is submitted to the executor in cell-index
// order, one s.submit call per cell so the poll ticker can interleave
// between cells. A present cell's job first copies the profile's
// counter_number and auto_enable annotations onto the mirror cell; then
// each job sets all five parameters' desired values and bumps their
// pending counters together, before any wire I/O for that cell begins,
// then writes enabled, voltage, current, ramp-up, and ramp-down in order,
// reading back each echo. Cells the profile does not mention have only
// their enabled bit cleared.
func (s *Supervisor) ApplyDeviceProfile(dp profile.DeviceProfile) error {
	ranges, err := s.allCellRanges()
	if err != nil {
		return err
	}

	plans := make([]cellApply, len(ranges))
	for i := range plans {
		plans[i].index = i + 1
	}

	for idx, settings := range dp {
		if idx < 1 || idx > len(ranges) {
			return fmt.Errorf("supervisor: profile cell index %d out of range", idx)
		}
		r := ranges[idx-1]

		minV, maxV := units.Volts(r.voltage.Min), units.Volts(r.voltage.Max)
		if settings.VoltageSet < minV || settings.VoltageSet > maxV {
			return &OutOfRangeError{Param: fmt.Sprintf("cell %d voltage", idx), Value: settings.VoltageSet, Min: minV, Max: maxV}
		}
		minI, maxI := units.Microamps(r.current.Min), units.Microamps(r.current.Max)
		microamps := settings.CurrentLimit * 1e6
		if microamps < minI || microamps > maxI {
			return &OutOfRangeError{Param: fmt.Sprintf("cell %d current_limit", idx), Value: settings.CurrentLimit, Min: minI / 1e6, Max: maxI / 1e6}
		}
		if err := validateRampSpeed(settings.RampUpSpeed); err != nil {
			return err
		}
		if err := validateRampSpeed(settings.RampDownSpeed); err != nil {
			return err
		}

		vCode, err := units.VoltageToCode(physic.ElectricPotential(settings.VoltageSet*float64(physic.Volt)), units.VoltageDACBits, minV, maxV)
		if err != nil {
			return &BadCalibrationError{Err: err}
		}
		iCode, err := units.CurrentToCode(physic.ElectricCurrent(microamps*float64(physic.MicroAmpere)), units.CurrentDACBits, minI, maxI)
		if err != nil {
			return &BadCalibrationError{Err: err}
		}

		plans[idx-1] = cellApply{
			index:       idx,
			present:     true,
			voltage:     physic.ElectricPotential(settings.VoltageSet * float64(physic.Volt)),
			voltageCode: vCode,
			current:     physic.ElectricCurrent(microamps * float64(physic.MicroAmpere)),
			currentCode: iCode,
			rampUp:      settings.RampUpSpeed,
			rampDown:    settings.RampDownSpeed,
		}
	}

	for _, p := range plans {
		settings := dp[p.index]
		if err := s.submit(func(ex *executor) {
			if c := ex.mirror.Cell(p.index); c != nil && p.present {
				c.CounterNumber = settings.CounterNumber
				c.AutoEnable = settings.AutoEnable
			}
			ex.applyProfileCell(p)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) applyProfileCell(p cellApply) {
	c := ex.mirror.Cell(p.index)
	if c == nil {
		return
	}
	if !p.present {
		ex.writeEnabled(p.index, false)
		return
	}

	// All five parameters' desired values and pending counts are set
	// together here, before any wire I/O for this cell starts, so a
	// concurrent Snapshot never observes only some of them pending.
	c.Enabled.WriteStart(true)
	c.VoltageSet.WriteStart(p.voltage)
	c.CurrentLimit.WriteStart(p.current)
	c.RampUpSpeed.WriteStart(p.rampUp)
	c.RampDownSpeed.WriteStart(p.rampDown)
	ex.emitCellUpdated(p.index)

	csr := c.Status.WithChannelOn(true)
	echo, err := ex.sess.Write(register.Bank(p.index), uint8(register.CellControlStatus), uint16(csr))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	newStatus := register.CellStatus(echo)
	c.Status = newStatus
	c.Enabled.WriteComplete(newStatus.ChannelOn())
	ex.emitCellUpdated(p.index)

	if !ex.completeVoltageWrite(c, p.index, p.voltage, p.voltageCode) {
		return
	}
	if !ex.completeCurrentWrite(c, p.index, p.current, p.currentCode) {
		return
	}
	if !ex.completeRampUpWrite(c, p.index, p.rampUp) {
		return
	}
	ex.completeRampDownWrite(c, p.index, p.rampDown)
}
