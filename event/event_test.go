package event

import "testing"

func TestBusDeliversInOrder(t *testing.T) {
	b := NewBus(4)
	b.Send(Event{Kind: CellUpdated, CellIndex: 1})
	b.Send(Event{Kind: CellUpdated, CellIndex: 3})
	b.Send(Event{Kind: Updated})
	b.Close()

	var got []Event
	for ev := range b.Events() {
		got = append(got, ev)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].CellIndex != 1 || got[1].CellIndex != 3 || got[2].Kind != Updated {
		t.Errorf("events out of order: %+v", got)
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		CellUpdated:       "cell-updated",
		ControllerUpdated: "controller-updated",
		Updated:           "updated",
		ConnectionError:   "connection-error",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}
