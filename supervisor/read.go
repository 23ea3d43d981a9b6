package supervisor

import (
	"periph.io/x/conn/v3/physic"

	"hvrack.dev/supervisor/mirror"
	"hvrack.dev/supervisor/param"
	"hvrack.dev/supervisor/register"
	"hvrack.dev/supervisor/units"
)

// readFullState performs the initial ReadingState read: the controller's
// registers, then every cell's calibration constants (via the session's
// read-through cache, since they are constant for the life of the
// connection) and mutable values.
func (ex *executor) readFullState() error {
	if err := ex.readController(); err != nil {
		return err
	}
	for i := range ex.mirror.Cells {
		if err := ex.readCell(&ex.mirror.Cells[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ex *executor) readControllerRegister(reg register.ControllerRegister) (uint16, error) {
	return ex.sess.Read(register.ControllerBank, uint8(reg))
}

func (ex *executor) readController() error {
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
	ctl.BaseVoltageEnabled = param.NewCell(baseVoltageEnabled != 0)

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
	ctl.FanOffTemp = param.NewCell(int(int16(fanOff)))

	fanOn, err := ex.readControllerRegister(register.CtlFanOnTemp)
	if err != nil {
		return err
	}
	ctl.FanOnTemp = param.NewCell(int(int16(fanOn)))

	shutdown, err := ex.readControllerRegister(register.CtlShutdownTemp)
	if err != nil {
		return err
	}
	ctl.ShutdownTemp = param.NewCell(int(int16(shutdown)))

	sensor, err := ex.readControllerRegister(register.CtlTempSensor)
	if err != nil {
		return err
	}
	ctl.TempSensor = param.NewCell(register.TemperatureSensor(sensor))

	return nil
}

// readCell reads c's session-lifetime calibration constants (cached) and
// its mutable values (always fresh) for the initial state read.
func (ex *executor) readCell(c *mirror.Cell) error {
	bank := register.Bank(c.Index)

	vMin, err := ex.sess.ReadCached(bank, uint8(register.CellVoltageMin))
	if err != nil {
		return err
	}
	vMax, err := ex.sess.ReadCached(bank, uint8(register.CellVoltageMax))
	if err != nil {
		return err
	}
	iMax, err := ex.sess.ReadCached(bank, uint8(register.CellCurrentMax))
	if err != nil {
		return err
	}
	vMeasMax, err := ex.sess.ReadCached(bank, uint8(register.CellVoltageMeasMax))
	if err != nil {
		return err
	}
	iMeasMax, err := ex.sess.ReadCached(bank, uint8(register.CellCurrentMeasMax))
	if err != nil {
		return err
	}

	c.VoltageRange = mirror.VoltageRange{
		Min: physic.ElectricPotential(float64(vMin) * float64(physic.Volt)),
		Max: physic.ElectricPotential(float64(vMax) * float64(physic.Volt)),
	}
	c.CurrentLimitRange = mirror.CurrentRange{
		Min: 0,
		Max: physic.ElectricCurrent(float64(iMax) * float64(physic.MicroAmpere)),
	}
	c.MeasuredVoltageRange = mirror.VoltageRange{
		Min: 0,
		Max: physic.ElectricPotential(float64(vMeasMax) * float64(physic.Volt)),
	}
	c.MeasuredCurrentRange = mirror.CurrentRange{
		Min: 0,
		Max: physic.ElectricCurrent(float64(iMeasMax) * float64(physic.MicroAmpere)),
	}

	return ex.readCellMutable(c)
}

// readCellMutable reads c's uncached, mutable registers: status/enabled,
// the five parameter cells' actual values, and the measured sensed values.
func (ex *executor) readCellMutable(c *mirror.Cell) error {
	bank := register.Bank(c.Index)

	csr, err := ex.sess.Read(bank, uint8(register.CellControlStatus))
	if err != nil {
		return err
	}
	status := register.CellStatus(csr)
	c.Status = status
	c.Enabled = param.NewCell(status.ChannelOn())

	vSetCode, err := ex.sess.Read(bank, uint8(register.CellVoltageSet))
	if err != nil {
		return err
	}
	ex.warnIfCodeOutOfRange(c.Index, "voltage_set", vSetCode, units.VoltageDACBits)
	vSet, err := units.VoltageFromCode(vSetCode, units.VoltageDACBits, units.Volts(c.VoltageRange.Min), units.Volts(c.VoltageRange.Max))
	if err != nil {
		ex.sup.log.Warnf("supervisor: cell %d: bad calibration decoding voltage_set: %v", c.Index, err)
	}
	c.VoltageSet = param.NewCell(vSet)

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
	c.CurrentLimit = param.NewCell(iLim)

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
	c.RampUpSpeed = param.NewCell(int(rampUp))

	rampDown, err := ex.sess.Read(bank, uint8(register.CellRampDownSpeed))
	if err != nil {
		return err
	}
	c.RampDownSpeed = param.NewCell(int(rampDown))

	return nil
}
