package profile

import (
	"strings"
	"testing"
)

const validCSV = `device,cell_index,auto_enable,voltage,current_limit,ramp_up,ramp_down
A,1,true,50,10,1,1
A,3,False,20.5,5.5,2,2
`

func TestReadParsesRows(t *testing.T) {
	p, err := Read(strings.NewReader(validCSV), "test.csv")
	if err != nil {
		t.Fatal(err)
	}
	if p.Filename != "test.csv" {
		t.Errorf("Filename = %q, want %q", p.Filename, "test.csv")
	}
	dp := p.Device("A")
	if dp == nil {
		t.Fatal("Device(A) = nil")
	}
	s1, ok := dp[1]
	if !ok {
		t.Fatal("cell 1 missing")
	}
	if s1.VoltageSet != 50 || s1.CurrentLimit != 10 || s1.RampUpSpeed != 1 || s1.RampDownSpeed != 1 || !s1.AutoEnable {
		t.Errorf("cell 1 = %+v", s1)
	}
	if s1.Enabled {
		t.Error("a profile never sets Enabled directly")
	}
	s3 := dp[3]
	if s3.AutoEnable {
		t.Errorf("cell 3 auto_enable should be false (case-insensitive compare of %q)", "False")
	}
}

func TestDeviceAbsentIsEmpty(t *testing.T) {
	p, err := Read(strings.NewReader(validCSV), "test.csv")
	if err != nil {
		t.Fatal(err)
	}
	if dp := p.Device("nonexistent"); dp != nil {
		t.Errorf("Device(nonexistent) = %v, want nil", dp)
	}
}

func TestReadRejectsWrongHeader(t *testing.T) {
	const bad = "a,b,c\n1,2,3\n"
	_, err := Read(strings.NewReader(bad), "bad.csv")
	if err == nil {
		t.Fatal("want error")
	}
	fe, ok := err.(*FormatError)
	if !ok {
		t.Fatalf("err = %T, want *FormatError", err)
	}
	if fe.Line != 1 {
		t.Errorf("Line = %d, want 1", fe.Line)
	}
}

func TestReadRejectsMalformedRow(t *testing.T) {
	const bad = "device,cell_index,auto_enable,voltage,current_limit,ramp_up,ramp_down\nA,notanumber,true,1,1,1,1\n"
	_, err := Read(strings.NewReader(bad), "bad.csv")
	if err == nil {
		t.Fatal("want error")
	}
	fe, ok := err.(*FormatError)
	if !ok {
		t.Fatalf("err = %T, want *FormatError", err)
	}
	if fe.Line != 2 {
		t.Errorf("Line = %d, want 2", fe.Line)
	}
}
