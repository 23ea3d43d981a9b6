package supervisor

import (
	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/register"
	"hvrack.dev/supervisor/units"
)

// pollUpdates is the 10-second read_updates job: it re-reads every mutable
// field of the controller and of every cell, folds each through its
// parameter cell's poll_update rule, and emits one controller-updated, one
// cell-updated per cell in index order, then a closing batch "updated" —
// the order the original GUI worker's completion handler uses.
func (ex *executor) pollUpdates() error {
	if err := ex.pollController(); err != nil {
		return err
	}
	ex.emitControllerUpdated()

	for i := range ex.mirror.Cells {
		if err := ex.pollCell(&ex.mirror.Cells[i]); err != nil {
			return err
		}
		ex.emitCellUpdated(ex.mirror.Cells[i].Index)
	}

	ex.emitUpdated()
	return nil
}

func (ex *executor) pollController() error {
	ctl := &ex.mirror.Controller

	status, err := ex.readControllerRegister(register.CtlStatus)
	if err != nil {
		return err
	}
	ctl.Status = register.ControllerStatus(status)

	baseVoltageEnabled, err := ex.readControllerRegister(register.CtlBaseVoltage)
	if err != nil {
		return err
	}
	ctl.BaseVoltageEnabled.PollUpdate(baseVoltageEnabled != 0)

	procT, err := ex.readControllerRegister(register.CtlProcessorT)
	if err != nil {
		return err
	}
	ctl.ProcessorTemp = units.TemperatureFromCelsius(int16(procT))

	boardT, err := ex.readControllerRegister(register.CtlBoardT)
	if err != nil {
		return err
	}
	ctl.BoardTemp = units.TemperatureFromCelsius(int16(boardT))

	psT, err := ex.readControllerRegister(register.CtlPowerSupplyT)
	if err != nil {
		return err
	}
	ctl.PowerSupplyTemp = units.TemperatureFromCelsius(int16(psT))

	lowV, err := ex.readControllerRegister(register.CtlLowVoltage)
	if err != nil {
		return err
	}
	ctl.LowVoltage = units.VoltageTenthsFromCode(lowV)

	highV, err := ex.readControllerRegister(register.CtlHighVoltage)
	if err != nil {
		return err
	}
	ctl.BaseVoltage = units.VoltageTenthsFromCode(highV)

	fanOff, err := ex.readControllerRegister(register.CtlFanOffTemp)
	if err != nil {
		return err
	}
	ctl.FanOffTemp.PollUpdate(int(int16(fanOff)))

	fanOn, err := ex.readControllerRegister(register.CtlFanOnTemp)
	if err != nil {
		return err
	}
	ctl.FanOnTemp.PollUpdate(int(int16(fanOn)))

	shutdown, err := ex.readControllerRegister(register.CtlShutdownTemp)
	if err != nil {
		return err
	}
	ctl.ShutdownTemp.PollUpdate(int(int16(shutdown)))

	sensor, err := ex.readControllerRegister(register.CtlTempSensor)
	if err != nil {
		return err
	}
	ctl.TempSensor.PollUpdate(register.TemperatureSensor(sensor))

	return nil
}

// pollCell re-reads c's mutable registers only; calibration constants were
// captured once at connect and are not re-read.
func (ex *executor) pollCell(c *mirror.Cell) error {
	bank := register.Bank(c.Index)

	csr, err := ex.sess.Read(bank, uint8(register.CellControlStatus))
	if err != nil {
		return err
	}
	status := register.CellStatus(csr)
	c.Status = status
	c.Enabled.PollUpdate(status.ChannelOn())

	vSetCode, err := ex.sess.Read(bank, uint8(register.CellVoltageSet))
	if err != nil {
		return err
	}
	ex.warnIfCodeOutOfRange(c.Index, "voltage_set", vSetCode, units.VoltageDACBits)
	vSet, err := units.VoltageFromCode(vSetCode, units.VoltageDACBits, units.Volts(c.VoltageRange.Min), units.Volts(c.VoltageRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding voltage_set: %v", c.Index, err)
	}
	c.VoltageSet.PollUpdate(vSet)

	vMeasCode, err := ex.sess.Read(bank, uint8(register.CellVoltageMeasured))
	if err != nil {
		return err
	}
	ex.warnIfCodeOutOfRange(c.Index, "voltage_measured", vMeasCode, units.VoltageADCBits)
	vMeas, err := units.VoltageFromCode(vMeasCode, units.VoltageADCBits, 0, units.Volts(c.MeasuredVoltageRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding voltage_measured: %v", c.Index, err)
	}
	c.VoltageMeasured = vMeas

	iLimCode, err := ex.sess.Read(bank, uint8(register.CellCurrentLimit))
	if err != nil {
		return err
	}
	ex.warnIfCodeOutOfRange(c.Index, "current_limit", iLimCode, units.CurrentDACBits)
	iLim, err := units.CurrentFromCode(iLimCode, units.CurrentDACBits, 0, units.Microamps(c.CurrentLimitRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding current_limit: %v", c.Index, err)
	}
	c.CurrentLimit.PollUpdate(iLim)

	iMeasCode, err := ex.sess.Read(bank, uint8(register.CellCurrentMeasured))
	if err != nil {
		return err
	}
	ex.warnIfCodeOutOfRange(c.Index, "current_measured", iMeasCode, units.CurrentADCBits)
	iMeas, err := units.CurrentFromCode(iMeasCode, units.CurrentADCBits, 0, units.Microamps(c.MeasuredCurrentRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding current_measured: %v", c.Index, err)
	}
	c.CurrentMeasured = iMeas

	rampUp, err := ex.sess.Read(bank, uint8(register.CellRampUpSpeed))
	if err != nil {
		return err
	}
	c.RampUpSpeed.PollUpdate(int(rampUp))

	rampDown, err := ex.sess.Read(bank, uint8(register.CellRampDownSpeed))
	if err != nil {
		return err
	}
	c.RampDownSpeed.PollUpdate(int(rampDown))

	return nil
}
