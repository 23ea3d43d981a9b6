package units

import (
	"math"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestCodeToValueScenario(t *testing.T) {
	got, err := CodeToValue(2048, 4095, 0.0, 100.0)
	if err != nil {
		t.Fatal(err)
	}
	const want = 50.01221001221001
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("CodeToValue(2048, 4095, 0, 100) = %v, want %v", got, want)
	}
}

func TestValueToCodeScenario(t *testing.T) {
	got, err := ValueToCode(50.0, 0.0, 100.0, 4095)
	if err != nil {
		t.Fatal(err)
	}
	const want = 2048
	if got != want {
		t.Errorf("ValueToCode(50, 0, 100, 4095) = %d, want %d", got, want)
	}
}

func TestCodeToValueBadCalibration(t *testing.T) {
	cases := []struct {
		name               string
		maxCode            uint16
		minValue, maxValue float64
	}{
		{"zero max code", 0, 0, 100},
		{"min equals max", 100, 50, 50},
		{"min above max", 100, 60, 50},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := CodeToValue(1, c.maxCode, c.minValue, c.maxValue); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func TestValueToCodeWithinRangeExact(t *testing.T) {
	// ValueToCode performs no range clamping: checking that a value is
	// within [minValue, maxValue] is the caller's job, done before
	// conversion. Exercise it only at the boundaries, where the result is
	// well-defined regardless.
	lo, err := ValueToCode(0, 0, 100, 4095)
	if err != nil {
		t.Fatal(err)
	}
	if lo != 0 {
		t.Errorf("ValueToCode(0, 0, 100, 4095) = %d, want 0", lo)
	}
	hi, err := ValueToCode(100, 0, 100, 4095)
	if err != nil {
		t.Fatal(err)
	}
	if hi != 4095 {
		t.Errorf("ValueToCode(100, 0, 100, 4095) = %d, want 4095", hi)
	}
}

func TestRoundTripCodeValueCode(t *testing.T) {
	// Property: encoding a value derived from a code and decoding it back
	// never drifts by more than one code step (rounding is the only lossy
	// step in the round trip).
	for code := uint16(0); code <= 4095; code += 137 {
		value, err := CodeToValue(code, 4095, -10, 250)
		if err != nil {
			t.Fatal(err)
		}
		back, err := ValueToCode(value, -10, 250, 4095)
		if err != nil {
			t.Fatal(err)
		}
		if diff := int(back) - int(code); diff < -1 || diff > 1 {
			t.Errorf("code %d -> value %v -> code %d, drifted by %d", code, value, back, diff)
		}
	}
}

func TestVoltageFromCodeAndBack(t *testing.T) {
	v, err := VoltageFromCode(2048, VoltageDACBits, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(float64(v)/float64(physic.Volt)-50.01221001221001) > 1e-6 {
		t.Errorf("VoltageFromCode = %v, want ~50.012V", v)
	}
	code, err := VoltageToCode(v, VoltageDACBits, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if code != 2048 {
		t.Errorf("VoltageToCode(VoltageFromCode(2048)) = %d, want 2048", code)
	}
}

func TestCurrentFromCodeAndBack(t *testing.T) {
	c, err := CurrentFromCode(512, CurrentDACBits, 0, 2000)
	if err != nil {
		t.Fatal(err)
	}
	code, err := CurrentToCode(c, CurrentDACBits, 0, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if code != 512 {
		t.Errorf("CurrentToCode(CurrentFromCode(512)) = %d, want 512", code)
	}
}

func TestTemperatureFromCelsius(t *testing.T) {
	got := TemperatureFromCelsius(25)
	want := physic.ZeroCelsius + 25*physic.Celsius
	if got != want {
		t.Errorf("TemperatureFromCelsius(25) = %v, want %v", got, want)
	}
}

func TestVoltageTenthsFromCode(t *testing.T) {
	got := VoltageTenthsFromCode(235) // 23.5V
	want := 235 * physic.Volt / 10
	if got != want {
		t.Errorf("VoltageTenthsFromCode(235) = %v, want %v", got, want)
	}
}

func TestMaxCode(t *testing.T) {
	if got := MaxCode(12); got != 4095 {
		t.Errorf("MaxCode(12) = %d, want 4095", got)
	}
	if got := MaxCode(10); got != 1023 {
		t.Errorf("MaxCode(10) = %d, want 1023", got)
	}
}
