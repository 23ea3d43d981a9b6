package config

import "testing"

func TestDefaultMatchesDocumentedValues(t *testing.T) {
	c := Default()
	if c.MaxVoltageDifference != 1 {
		t.Errorf("MaxVoltageDifference = %v, want 1", c.MaxVoltageDifference)
	}
	if c.MaxVoltageWhenOff != 10 {
		t.Errorf("MaxVoltageWhenOff = %v, want 10", c.MaxVoltageWhenOff)
	}
	if c.DataLogFile == "" {
		t.Error("DataLogFile should default to a non-empty path")
	}
}

func TestDefaultEnablesCRCOnBothBanks(t *testing.T) {
	c := Default()
	if v, ok := c.ControllerDefaults[0x17]; !ok || v != 1 {
		t.Errorf("controller ccrc default = %v, %v, want 1, true", v, ok)
	}
	if v, ok := c.CellDefaults[20]; !ok || v != 1 {
		t.Errorf("cell ccrc default = %v, %v, want 1, true", v, ok)
	}
}
