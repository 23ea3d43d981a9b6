package datalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"periph.io/x/conn/v3/physic"
)

func TestWriteCellUpdateAppendsCSVLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	w, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	err = w.WriteCellUpdate("A", 1, true, 50*physic.Volt, 49900*physic.MilliVolt, 999*physic.MicroAmpere, 1000*physic.MicroAmpere, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := strings.TrimSpace(string(data))
	want := "A,1,true,50.0,49.9,999.0,1000.0,1,2"
	if line != want {
		t.Errorf("line = %q, want %q", line, want)
	}
}

func TestWriteAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "values.csv")
	w1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w1.WriteCellUpdate("A", 1, true, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	w1.Close()

	w2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w2.WriteCellUpdate("A", 2, false, 0, 0, 0, 0, 0, 0); err != nil {
		t.Fatal(err)
	}
	w2.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
}
