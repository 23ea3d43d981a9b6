package supervisor

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by every command submitted to a Supervisor whose
// executor has already exited, whether from an explicit Close or from a
// protocol error that tore the connection down.
var ErrCancelled = errors.New("supervisor: cancelled")

// errNotConnected is returned by command validation when the Supervisor has
// not yet reached Connected and so has no calibration ranges to validate
// against.
var errNotConnected = errors.New("supervisor: not connected")

// ErrUnknownCell is returned when a command names a cell index outside the
// device's configured cell count.
var ErrUnknownCell = errors.New("supervisor: unknown cell index")

// OutOfRangeError reports a command rejected because its value falls
// outside the device's calibrated range, or outside the fixed minimum the
// protocol imposes (ramp speeds must be at least 1).
type OutOfRangeError struct {
	Param    string
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("supervisor: %s value %g out of range [%g, %g]", e.Param, e.Value, e.Min, e.Max)
}

// BadCalibrationError wraps a units conversion failure discovered while
// validating a command against the device's calibration constants. Unlike
// OutOfRangeError, this signals the device's own calibration registers are
// inconsistent, not that the caller's value was bad.
type BadCalibrationError struct {
	Err error
}

func (e *BadCalibrationError) Error() string {
	return fmt.Sprintf("supervisor: bad calibration: %v", e.Err)
}

func (e *BadCalibrationError) Unwrap() error { return e.Err }

// ConnectionError wraps the error that caused the connect sequence (dial,
// default writes, initial state read) to fail before the device ever
// reached Connected. No mirror is ever published for a
// Supervisor that fails this way.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("supervisor: connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
