package supervisor

import (
	"math"

	"periph.io/x/conn/v3/physic"

	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/register"
	"hvrack.dev/supervisor/units"
)

// Every Set* method validates on the caller's goroutine against the
// calibration ranges captured at connect time, then dispatches one job to
// the executor. The command itself returns as soon as the job is
// enqueued; the resulting cell-updated/controller-updated events follow
// asynchronously on the event bus, one for the write's start and one for
// its completion, per the ordering guarantees in spec.md §4.5.

func validateRampSpeed(v int) error {
	if v < 1 {
		return &OutOfRangeError{Param: "ramp_speed", Value: float64(v), Min: 1, Max: math.Inf(1)}
	}
	return nil
}

// SetEnabled turns cell cellIndex on or off. No range check applies.
func (s *Supervisor) SetEnabled(cellIndex int, on bool) error {
	if _, err := s.cellRangesFor(cellIndex); err != nil {
		return err
	}
	return s.submit(func(ex *executor) { ex.writeEnabled(cellIndex, on) })
}

// SetOutputVoltage sets cellIndex's output voltage, rejecting values
// outside the cell's calibrated [Umin, Umax].
func (s *Supervisor) SetOutputVoltage(cellIndex int, volts float64) error {
	r, err := s.cellRangesFor(cellIndex)
	if err != nil {
		return err
	}
	minV, maxV := units.Volts(r.voltage.Min), units.Volts(r.voltage.Max)
	if volts < minV || volts > maxV {
		return &OutOfRangeError{Param: "output_voltage", Value: volts, Min: minV, Max: maxV}
	}
	code, err := units.VoltageToCode(physic.ElectricPotential(volts*float64(physic.Volt)), units.VoltageDACBits, minV, maxV)
	if err != nil {
		return &BadCalibrationError{Err: err}
	}
	desired := physic.ElectricPotential(volts * float64(physic.Volt))
	return s.submit(func(ex *executor) { ex.writeVoltageSet(cellIndex, desired, code) })
}

// SetCurrentLimit sets cellIndex's current limit, rejecting values outside
// the cell's calibrated [0, Imax].
func (s *Supervisor) SetCurrentLimit(cellIndex int, amps float64) error {
	r, err := s.cellRangesFor(cellIndex)
	if err != nil {
		return err
	}
	minI, maxI := units.Microamps(r.current.Min), units.Microamps(r.current.Max)
	microamps := amps * 1e6
	if microamps < minI || microamps > maxI {
		return &OutOfRangeError{Param: "current_limit", Value: amps, Min: minI / 1e6, Max: maxI / 1e6}
	}
	code, err := units.CurrentToCode(physic.ElectricCurrent(microamps*float64(physic.MicroAmpere)), units.CurrentDACBits, minI, maxI)
	if err != nil {
		return &BadCalibrationError{Err: err}
	}
	desired := physic.ElectricCurrent(microamps * float64(physic.MicroAmpere))
	return s.submit(func(ex *executor) { ex.writeCurrentLimit(cellIndex, desired, code) })
}

// SetRampUpSpeed sets cellIndex's ramp-up speed, an integer V/s rate that
// must be at least 1.
func (s *Supervisor) SetRampUpSpeed(cellIndex int, speed int) error {
	if _, err := s.cellRangesFor(cellIndex); err != nil {
		return err
	}
	if err := validateRampSpeed(speed); err != nil {
		return err
	}
	return s.submit(func(ex *executor) { ex.writeRampUpSpeed(cellIndex, speed) })
}

// SetRampDownSpeed sets cellIndex's ramp-down speed, an integer V/s rate
// that must be at least 1.
func (s *Supervisor) SetRampDownSpeed(cellIndex int, speed int) error {
	if _, err := s.cellRangesFor(cellIndex); err != nil {
		return err
	}
	if err := validateRampSpeed(speed); err != nil {
		return err
	}
	return s.submit(func(ex *executor) { ex.writeRampDownSpeed(cellIndex, speed) })
}

// SetBaseVoltageEnabled turns the controller's base voltage on or off.
func (s *Supervisor) SetBaseVoltageEnabled(on bool) error {
	return s.submit(func(ex *executor) { ex.writeBaseVoltageEnabled(on) })
}

// SetFanOffTemp sets the controller's fan-off temperature threshold.
func (s *Supervisor) SetFanOffTemp(degreesC int) error {
	return s.submit(func(ex *executor) { ex.writeFanOffTemp(degreesC) })
}

// SetFanOnTemp sets the controller's fan-on temperature threshold.
func (s *Supervisor) SetFanOnTemp(degreesC int) error {
	return s.submit(func(ex *executor) { ex.writeFanOnTemp(degreesC) })
}

// SetShutdownTemp sets the controller's thermal shutdown threshold.
func (s *Supervisor) SetShutdownTemp(degreesC int) error {
	return s.submit(func(ex *executor) { ex.writeShutdownTemp(degreesC) })
}

// SetTempSensor selects which on-board sensor drives the fan/shutdown
// control loop.
func (s *Supervisor) SetTempSensor(sensor register.TemperatureSensor) error {
	return s.submit(func(ex *executor) { ex.writeTempSensor(sensor) })
}

func (ex *executor) writeEnabled(cellIndex int, on bool) {
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	c.Enabled.WriteStart(on)
	ex.emitCellUpdated(cellIndex)

	csr := c.Status.WithChannelOn(on)
	echo, err := ex.sess.Write(register.Bank(cellIndex), uint8(register.CellControlStatus), uint16(csr))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	newStatus := register.CellStatus(echo)
	c.Status = newStatus
	c.Enabled.WriteComplete(newStatus.ChannelOn())
	ex.emitCellUpdated(cellIndex)
}

func (ex *executor) writeVoltageSet(cellIndex int, desired physic.ElectricPotential, code uint16) {
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	c.VoltageSet.WriteStart(desired)
	ex.emitCellUpdated(cellIndex)
	ex.completeVoltageWrite(c, cellIndex, desired, code)
}

// completeVoltageWrite writes the voltage_set code and folds the echo back
// into c.VoltageSet.Actual, assuming WriteStart has already been called.
// Reports whether the connection survived, so a caller chaining several
// parameters on the same cell knows whether to keep going.
func (ex *executor) completeVoltageWrite(c *mirror.Cell, cellIndex int, desired physic.ElectricPotential, code uint16) bool {
	echo, err := ex.sess.Write(register.Bank(cellIndex), uint8(register.CellVoltageSet), code)
	if err != nil {
		ex.loseConnection(err)
		return false
	}
	actual, err := units.VoltageFromCode(echo, units.VoltageDACBits, units.Volts(c.VoltageRange.Min), units.Volts(c.VoltageRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding voltage_set echo: %v", cellIndex, err)
		actual = desired
	}
	c.VoltageSet.WriteComplete(actual)
	ex.emitCellUpdated(cellIndex)
	return true
}

func (ex *executor) writeCurrentLimit(cellIndex int, desired physic.ElectricCurrent, code uint16) {
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	c.CurrentLimit.WriteStart(desired)
	ex.emitCellUpdated(cellIndex)
	ex.completeCurrentWrite(c, cellIndex, desired, code)
}

// completeCurrentWrite writes the current_limit code and folds the echo
// back into c.CurrentLimit.Actual, assuming WriteStart has already been
// called.
func (ex *executor) completeCurrentWrite(c *mirror.Cell, cellIndex int, desired physic.ElectricCurrent, code uint16) bool {
	echo, err := ex.sess.Write(register.Bank(cellIndex), uint8(register.CellCurrentLimit), code)
	if err != nil {
		ex.loseConnection(err)
		return false
	}
	actual, err := units.CurrentFromCode(echo, units.CurrentDACBits, 0, units.Microamps(c.CurrentLimitRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding current_limit echo: %v", cellIndex, err)
		actual = desired
	}
	c.CurrentLimit.WriteComplete(actual)
	ex.emitCellUpdated(cellIndex)
	return true
}

func (ex *executor) writeRampUpSpeed(cellIndex int, speed int) {
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	c.RampUpSpeed.WriteStart(speed)
	ex.emitCellUpdated(cellIndex)
	ex.completeRampUpWrite(c, cellIndex, speed)
}

func (ex *executor) completeRampUpWrite(c *mirror.Cell, cellIndex int, speed int) bool {
	echo, err := ex.sess.Write(register.Bank(cellIndex), uint8(register.CellRampUpSpeed), uint16(speed))
	if err != nil {
		ex.loseConnection(err)
		return false
	}
	c.RampUpSpeed.WriteComplete(int(echo))
	ex.emitCellUpdated(cellIndex)
	return true
}

func (ex *executor) writeRampDownSpeed(cellIndex int, speed int) {
	c := ex.mirror.Cell(cellIndex)
	if c == nil {
		return
	}
	c.RampDownSpeed.WriteStart(speed)
	ex.emitCellUpdated(cellIndex)
	ex.completeRampDownWrite(c, cellIndex, speed)
}

func (ex *executor) completeRampDownWrite(c *mirror.Cell, cellIndex int, speed int) bool {
	echo, err := ex.sess.Write(register.Bank(cellIndex), uint8(register.CellRampDownSpeed), uint16(speed))
	if err != nil {
		ex.loseConnection(err)
		return false
	}
	c.RampDownSpeed.WriteComplete(int(echo))
	ex.emitCellUpdated(cellIndex)
	return true
}

func (ex *executor) writeBaseVoltageEnabled(on bool) {
	ctl := &ex.mirror.Controller
	ctl.BaseVoltageEnabled.WriteStart(on)
	ex.emitControllerUpdated()

	var data uint16
	if on {
		data = 1
	}
	echo, err := ex.sess.Write(register.ControllerBank, uint8(register.CtlBaseVoltage), data)
	if err != nil {
		ex.loseConnection(err)
		return
	}
	ctl.BaseVoltageEnabled.WriteComplete(echo != 0)
	ex.emitControllerUpdated()
}

func (ex *executor) writeFanOffTemp(degreesC int) {
	ctl := &ex.mirror.Controller
	ctl.FanOffTemp.WriteStart(degreesC)
	ex.emitControllerUpdated()

	echo, err := ex.sess.Write(register.ControllerBank, uint8(register.CtlFanOffTemp), uint16(int16(degreesC)))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	ctl.FanOffTemp.WriteComplete(int(int16(echo)))
	ex.emitControllerUpdated()
}

func (ex *executor) writeFanOnTemp(degreesC int) {
	ctl := &ex.mirror.Controller
	ctl.FanOnTemp.WriteStart(degreesC)
	ex.emitControllerUpdated()

	echo, err := ex.sess.Write(register.ControllerBank, uint8(register.CtlFanOnTemp), uint16(int16(degreesC)))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	ctl.FanOnTemp.WriteComplete(int(int16(echo)))
	ex.emitControllerUpdated()
}

func (ex *executor) writeShutdownTemp(degreesC int) {
	ctl := &ex.mirror.Controller
	ctl.ShutdownTemp.WriteStart(degreesC)
	ex.emitControllerUpdated()

	echo, err := ex.sess.Write(register.ControllerBank, uint8(register.CtlShutdownTemp), uint16(int16(degreesC)))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	ctl.ShutdownTemp.WriteComplete(int(int16(echo)))
	ex.emitControllerUpdated()
}

func (ex *executor) writeTempSensor(sensor register.TemperatureSensor) {
	ctl := &ex.mirror.Controller
	ctl.TempSensor.WriteStart(sensor)
	ex.emitControllerUpdated()

	echo, err := ex.sess.Write(register.ControllerBank, uint8(register.CtlTempSensor), uint16(sensor))
	if err != nil {
		ex.loseConnection(err)
		return
	}
	ctl.TempSensor.WriteComplete(register.TemperatureSensor(echo))
	ex.emitControllerUpdated()
}
