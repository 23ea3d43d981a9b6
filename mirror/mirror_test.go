package mirror

import "testing"

func TestNewIndexesCellsFromOne(t *testing.T) {
	d := New(Address{Name: "A"}, 3)
	for i, c := range d.Cells {
		if c.Index != i+1 {
			t.Errorf("Cells[%d].Index = %d, want %d", i, c.Index, i+1)
		}
	}
}

func TestCellLookup(t *testing.T) {
	d := New(Address{Name: "A"}, 16)
	if c := d.Cell(1); c == nil || c.Index != 1 {
		t.Fatalf("Cell(1) = %v", c)
	}
	if c := d.Cell(16); c == nil || c.Index != 16 {
		t.Fatalf("Cell(16) = %v", c)
	}
	if c := d.Cell(0); c != nil {
		t.Errorf("Cell(0) = %v, want nil", c)
	}
	if c := d.Cell(17); c != nil {
		t.Errorf("Cell(17) = %v, want nil", c)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	d := New(Address{Name: "A"}, 2)
	d.Cell(1).CounterNumber = "original"
	clone := d.Clone()
	clone.Cell(1).CounterNumber = "modified"
	if d.Cell(1).CounterNumber != "original" {
		t.Errorf("mutating the clone affected the original: %q", d.Cell(1).CounterNumber)
	}
	clone.Controller.FanOffTemp.Desired = 42
	if d.Controller.FanOffTemp.Desired == 42 {
		t.Error("mutating the clone's controller affected the original")
	}
}
