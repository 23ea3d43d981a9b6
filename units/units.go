// Package units converts between raw DAC/ADC codes and physical quantities.
//
// The board exposes voltage and current as fixed-point codes over a
// calibrated range: a DAC/ADC register holds a code in [0, max_code], which
// maps affinely onto [min_value, max_value] volts or microamps. Every
// conversion in this package is grounded on that one affine law.
package units

import (
	"errors"
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Bit widths of the board's DAC/ADC channels, used to compute MaxCode.
const (
	VoltageDACBits = 12
	CurrentDACBits = 10
	VoltageADCBits = 12
	CurrentADCBits = 12
)

// MaxCode returns the largest representable code for a channel of the given
// bit width, e.g. MaxCode(12) == 4095.
func MaxCode(bits int) uint16 {
	return uint16(1<<uint(bits) - 1)
}

// ErrBadCalibration is returned when a channel's calibration constants make
// the affine code<->value mapping undefined: a zero-width code range, or a
// minimum value not strictly below the maximum.
var ErrBadCalibration = errors.New("units: bad calibration")

// CodeToValue maps a raw code in [0, maxCode] onto [minValue, maxValue].
func CodeToValue(code, maxCode uint16, minValue, maxValue float64) (float64, error) {
	if maxCode == 0 {
		return 0, fmt.Errorf("%w: max code is 0", ErrBadCalibration)
	}
	if !(minValue < maxValue) {
		return 0, fmt.Errorf("%w: min value %g is not below max value %g", ErrBadCalibration, minValue, maxValue)
	}
	return minValue + float64(code)/float64(maxCode)*(maxValue-minValue), nil
}

// ValueToCode maps a value in [minValue, maxValue] onto the nearest code in
// [0, maxCode], rounding to the nearest integer code.
func ValueToCode(value, minValue, maxValue float64, maxCode uint16) (uint16, error) {
	if maxCode == 0 {
		return 0, fmt.Errorf("%w: max code is 0", ErrBadCalibration)
	}
	if !(minValue < maxValue) {
		return 0, fmt.Errorf("%w: min value %g is not below max value %g", ErrBadCalibration, minValue, maxValue)
	}
	// No clamping: a value outside [minValue, maxValue] is an
	// out-of-range command, which is the caller's responsibility to
	// reject before the code ever reaches the wire.
	code := math.Round((value - minValue) / (maxValue - minValue) * float64(maxCode))
	return uint16(code), nil
}

// VoltageFromCode converts a DAC/ADC voltage code to a physical potential,
// given the cell's calibrated [minVolts, maxVolts] range and channel width.
func VoltageFromCode(code uint16, bits int, minVolts, maxVolts float64) (physic.ElectricPotential, error) {
	v, err := CodeToValue(code, MaxCode(bits), minVolts, maxVolts)
	if err != nil {
		return 0, err
	}
	return physic.ElectricPotential(v * float64(physic.Volt)), nil
}

// VoltageToCode converts a physical potential to a DAC code.
func VoltageToCode(v physic.ElectricPotential, bits int, minVolts, maxVolts float64) (uint16, error) {
	return ValueToCode(float64(v)/float64(physic.Volt), minVolts, maxVolts, MaxCode(bits))
}

// CurrentFromCode converts a DAC/ADC current code to a physical current,
// given the cell's calibrated range in microamps and channel width.
func CurrentFromCode(code uint16, bits int, minMicroamps, maxMicroamps float64) (physic.ElectricCurrent, error) {
	v, err := CodeToValue(code, MaxCode(bits), minMicroamps, maxMicroamps)
	if err != nil {
		return 0, err
	}
	return physic.ElectricCurrent(v * float64(physic.MicroAmpere)), nil
}

// CurrentToCode converts a physical current to a DAC code.
func CurrentToCode(c physic.ElectricCurrent, bits int, minMicroamps, maxMicroamps float64) (uint16, error) {
	return ValueToCode(float64(c)/float64(physic.MicroAmpere), minMicroamps, maxMicroamps, MaxCode(bits))
}

// TemperatureFromCelsius converts a raw register value, stored as whole
// degrees Celsius, to a physic.Temperature.
func TemperatureFromCelsius(degreesC int16) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(degreesC)*physic.Celsius
}

// Volts returns v as a plain float64 number of volts, for arithmetic that
// mixes device values with site-configured thresholds expressed in volts.
func Volts(v physic.ElectricPotential) float64 {
	return float64(v) / float64(physic.Volt)
}

// Amperes returns c as a plain float64 number of amperes.
func Amperes(c physic.ElectricCurrent) float64 {
	return float64(c) / float64(physic.Ampere)
}

// Microamps returns c as a plain float64 number of microamps, the unit the
// board's current calibration and limit registers are expressed in.
func Microamps(c physic.ElectricCurrent) float64 {
	return float64(c) / float64(physic.MicroAmpere)
}

// VoltageTenthsFromCode converts a register holding volts*10 (the wire
// encoding used by the low/high base-voltage readouts, which are raw
// engineering values and not DAC/ADC codes) to a physical potential.
func VoltageTenthsFromCode(tenths uint16) physic.ElectricPotential {
	return physic.ElectricPotential(tenths) * physic.Volt / 10
}
