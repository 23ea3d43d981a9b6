// Package profile parses and holds saved per-device, per-cell settings
// applied at connect time.
package profile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CellSettings is the set of writable cell parameters a profile assigns.
// Enabled is always false here: a profile never turns a cell on directly,
// only the supervisor's apply step decides enablement (see spec.md §4.5).
type CellSettings struct {
	Enabled       bool
	VoltageSet    float64
	CurrentLimit  float64
	RampUpSpeed   int
	RampDownSpeed int
	CounterNumber string
	AutoEnable    bool
}

// DeviceProfile maps a 1-indexed cell number to the settings a profile
// assigns it. A cell absent from the map was not mentioned in the profile.
type DeviceProfile map[int]CellSettings

// Profile is a parsed profile CSV: per-device cell settings plus the
// filename it was loaded from, carried for display.
type Profile struct {
	Filename string
	devices  map[string]DeviceProfile
}

// Device returns the DeviceProfile for name, or an empty one if name was
// not present in the file — a device not mentioned in a profile gets no
// writes and every cell disabled on apply, per spec.md §3.
func (p *Profile) Device(name string) DeviceProfile {
	if dp, ok := p.devices[name]; ok {
		return dp
	}
	return nil
}

// DeviceNames returns every device name the profile assigns settings to.
func (p *Profile) DeviceNames() []string {
	names := make([]string, 0, len(p.devices))
	for name := range p.devices {
		names = append(names, name)
	}
	return names
}

// FormatError reports a profile CSV row or header that could not be
// parsed, with the 1-indexed line number and a human-readable reason.
type FormatError struct {
	Line   int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("profile: line %d: %s", e.Line, e.Reason)
}

var profileHeader = []string{"device", "cell_index", "auto_enable", "voltage", "current_limit", "ramp_up", "ramp_down"}

// Read parses a profile CSV from r. filename is recorded on the result for
// display; it need not correspond to an actual path.
func Read(r io.Reader, filename string) (*Profile, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("reading header: %v", err)}
	}
	if !equalHeader(header, profileHeader) {
		return nil, &FormatError{Line: 1, Reason: fmt.Sprintf("wrong csv file header: expected %v, got %v", profileHeader, header)}
	}

	p := &Profile{Filename: filename, devices: make(map[string]DeviceProfile)}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, &FormatError{Line: line, Reason: err.Error()}
		}
		if len(row) != 7 {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("expected 7 fields, got %d", len(row))}
		}
		device := row[0]
		cellIndex, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("bad cell_index %q: %v", row[1], err)}
		}
		autoEnable := strings.EqualFold(row[2], "true")
		voltage, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("bad voltage %q: %v", row[3], err)}
		}
		currentLimit, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("bad current_limit %q: %v", row[4], err)}
		}
		rampUp, err := strconv.Atoi(row[5])
		if err != nil {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("bad ramp_up %q: %v", row[5], err)}
		}
		rampDown, err := strconv.Atoi(row[6])
		if err != nil {
			return nil, &FormatError{Line: line, Reason: fmt.Sprintf("bad ramp_down %q: %v", row[6], err)}
		}

		dp, ok := p.devices[device]
		if !ok {
			dp = make(DeviceProfile)
			p.devices[device] = dp
		}
		dp[cellIndex] = CellSettings{
			Enabled:       false,
			VoltageSet:    voltage,
			CurrentLimit:  currentLimit,
			RampUpSpeed:   rampUp,
			RampDownSpeed: rampDown,
			CounterNumber: "",
			AutoEnable:    autoEnable,
		}
	}
	return p, nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
