// Package register names the wire registers exposed by a controller board
// and the bitfield layouts of its status words.
//
// Addresses and bit assignments are taken from the board's register map:
// bank 0 is the controller, banks 1..N are the cells (1-indexed).
package register

// Bank identifies a register namespace: the controller (0) or a cell (1..N).
type Bank uint8

// ControllerBank is the fixed bank address of the controller registers.
const ControllerBank Bank = 0

// ControllerRegister names a register of the controller bank.
type ControllerRegister uint8

const (
	CtlCellID       ControllerRegister = 0x00 // readonly, constant device ID
	CtlStatus       ControllerRegister = 0x01 // readonly, ControllerStatus bitfield
	CtlBaseVoltage  ControllerRegister = 0x02 // read/write, base voltage on/off
	CtlProcessorT   ControllerRegister = 0x03 // readonly, processor temperature, degrees C
	CtlBoardT       ControllerRegister = 0x04 // readonly, board temperature, degrees C
	CtlPowerSupplyT ControllerRegister = 0x05 // readonly, power supply temperature, degrees C
	CtlLowVoltage   ControllerRegister = 0x06 // readonly, low voltage, Volt*10
	CtlHighVoltage  ControllerRegister = 0x07 // readonly, base voltage, Volt*10
	CtlFanOffTemp   ControllerRegister = 0x10 // read/write, degrees C
	CtlFanOnTemp    ControllerRegister = 0x11 // read/write, degrees C
	CtlShutdownTemp ControllerRegister = 0x12 // read/write, degrees C
	CtlLVLowLimit   ControllerRegister = 0x13 // read/write
	CtlLVHighLimit  ControllerRegister = 0x14 // read/write
	CtlBVLowLimit   ControllerRegister = 0x15 // read/write
	CtlBVHighLimit  ControllerRegister = 0x16 // read/write
	CtlCRCEnable    ControllerRegister = 0x17 // read/write, nonzero enables CRC checking on the controller bank
	CtlTempSensor   ControllerRegister = 0x18 // read/write, TemperatureSensor
	CtlSerialNumber ControllerRegister = 0x19 // readonly
	CtlWriteFlash   ControllerRegister = 0x1f // write-only, persists all registers to flash
)

// CellRegister names a register of a cell bank.
type CellRegister uint8

const (
	CellID               CellRegister = 0
	CellControlStatus    CellRegister = 1  // read/write, CellStatus bitfield, bit 0 is the on/off control
	CellVoltageSet       CellRegister = 2  // read/write, DAC code, 12 bit
	CellVoltageMeasured  CellRegister = 3  // readonly, ADC code, 12 bit
	CellCurrentLimit     CellRegister = 4  // read/write, DAC code, 10 bit
	CellCurrentMeasured  CellRegister = 5  // readonly, ADC code, 12 bit
	CellStandbyVoltage   CellRegister = 6  // read/write, DAC code for standby regime
	CellRampUpSpeed      CellRegister = 7  // read/write, V/s
	CellRampDownSpeed    CellRegister = 8  // read/write, V/s
	CellProtectionDelay  CellRegister = 9  // read/write, delay before standby after overload
	CellVoltageMin       CellRegister = 10 // read/write, constant, volts at DAC code 0
	CellVoltageMax       CellRegister = 11 // read/write, constant, volts at max DAC code
	CellCurrentMax       CellRegister = 12 // read/write, constant, microamps at max DAC code
	CellVoltageMeasMax   CellRegister = 13 // read/write, constant, volts at max ADC code
	CellCurrentMeasMax   CellRegister = 14 // read/write, constant, microamps at max ADC code
	CellBitWidths        CellRegister = 15 // readonly, packed ADC/DAC bit widths
	CellVoltageOKMin     CellRegister = 16 // read/write, fault threshold, do not change
	CellVoltageOKMax     CellRegister = 17 // read/write, fault threshold, do not change
	CellCurrentOKMin     CellRegister = 18 // read/write, fault threshold, do not change
	CellBaseVoltageOKMin CellRegister = 19 // read/write, fault threshold, do not change
	CellCRCEnable        CellRegister = 20 // read/write, nonzero enables CRC checking on this cell bank
	CellKeepVoltageOnBoot CellRegister = 21 // read/write, persist VsetON across reboot
	CellOnAtBoot         CellRegister = 22 // read/write, turn on HV at power-on
	CellHVOffOnOverload  CellRegister = 23 // read/write, turn off HV on current overload
	CellCurrentMeasured2 CellRegister = 24 // readonly, second rough ADC channel, 12 bit
	CellCurrentMeas2Max  CellRegister = 25 // read/write, constant, microamps for the second channel
)

// TemperatureSensor selects which on-board sensor the controller uses for
// its fan/shutdown temperature control loop.
type TemperatureSensor uint16

const (
	TempSensorProcessor TemperatureSensor = iota
	TempSensorBoard
	TempSensorPowerSupply
)

func (t TemperatureSensor) String() string {
	switch t {
	case TempSensorProcessor:
		return "processor"
	case TempSensorBoard:
		return "board"
	case TempSensorPowerSupply:
		return "power-supply"
	default:
		return "unknown"
	}
}

// ControllerStatus is the controller's read-only status bitfield.
type ControllerStatus uint16

const (
	ControllerTemperatureProtection   ControllerStatus = 1 << 0
	ControllerLowVoltageError         ControllerStatus = 1 << 1
	ControllerBaseVoltageError        ControllerStatus = 1 << 2
	ControllerHighVoltageProtection   ControllerStatus = 1 << 3
)

func (s ControllerStatus) TemperatureProtection() bool { return s&ControllerTemperatureProtection != 0 }
func (s ControllerStatus) LowVoltageError() bool        { return s&ControllerLowVoltageError != 0 }
func (s ControllerStatus) BaseVoltageError() bool        { return s&ControllerBaseVoltageError != 0 }
func (s ControllerStatus) HighVoltageProtectionActive() bool {
	return s&ControllerHighVoltageProtection != 0
}

// CellStatus is a cell's control/status register (CSR): bit 0 both reports
// and controls the channel on/off state, the rest are read-only fault bits.
type CellStatus uint16

const (
	CellChannelOn         CellStatus = 1 << 0
	CellError             CellStatus = 1 << 1
	CellAccumulatedError  CellStatus = 1 << 2
	CellCurrentOverload   CellStatus = 1 << 3
	CellBaseVoltageError  CellStatus = 1 << 4
	CellHardwareFailure   CellStatus = 1 << 5
	CellRampUpActive      CellStatus = 1 << 6
	CellRampDownActive    CellStatus = 1 << 7
	CellStandby           CellStatus = 1 << 8
	CellIOProtection      CellStatus = 1 << 9
)

func (s CellStatus) ChannelOn() bool        { return s&CellChannelOn != 0 }
func (s CellStatus) Error() bool            { return s&CellError != 0 }
func (s CellStatus) AccumulatedError() bool { return s&CellAccumulatedError != 0 }
func (s CellStatus) CurrentOverload() bool  { return s&CellCurrentOverload != 0 }
func (s CellStatus) BaseVoltageError() bool { return s&CellBaseVoltageError != 0 }
func (s CellStatus) HardwareFailure() bool  { return s&CellHardwareFailure != 0 }
func (s CellStatus) RampUpActive() bool     { return s&CellRampUpActive != 0 }
func (s CellStatus) RampDownActive() bool   { return s&CellRampDownActive != 0 }
func (s CellStatus) Standby() bool          { return s&CellStandby != 0 }
func (s CellStatus) IOProtection() bool     { return s&CellIOProtection != 0 }

// WithChannelOn returns the status word with bit 0 set or cleared, used when
// composing a write to CellControlStatus to turn a channel on or off without
// disturbing the read-only fault bits the device will overwrite anyway.
func (s CellStatus) WithChannelOn(on bool) CellStatus {
	if on {
		return s | CellChannelOn
	}
	return s &^ CellChannelOn
}
