package devicelist

import (
	"strings"
	"testing"

	"github.com/btcsuite/btclog"
)

func TestReadParsesRows(t *testing.T) {
	const csv = "name,address,port\nA,10.0.0.1,5000\nB, 10.0.0.2,5001\n"
	addrs, err := Read(strings.NewReader(csv), btclog.Disabled)
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 2 {
		t.Fatalf("len(addrs) = %d, want 2", len(addrs))
	}
	if addrs[0].Name != "A" || addrs[0].Host != "10.0.0.1" || addrs[0].Port != 5000 {
		t.Errorf("addrs[0] = %+v", addrs[0])
	}
	if addrs[1].Host != "10.0.0.2" {
		t.Errorf("addrs[1].Host = %q, want leading space stripped", addrs[1].Host)
	}
}

func TestReadWrongHeaderReturnsEmptyList(t *testing.T) {
	const csv = "a,b,c\n1,2,3\n"
	addrs, err := Read(strings.NewReader(csv), btclog.Disabled)
	if err != nil {
		t.Fatal(err)
	}
	if len(addrs) != 0 {
		t.Errorf("len(addrs) = %d, want 0", len(addrs))
	}
}

func TestReadMalformedRowIsError(t *testing.T) {
	const csv = "name,address,port\nA,10.0.0.1,notaport\n"
	_, err := Read(strings.NewReader(csv), btclog.Disabled)
	if err == nil {
		t.Fatal("want error")
	}
}
