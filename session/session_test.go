package session

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/btcsuite/btclog"

	"hvrack.dev/supervisor/codec"
	"hvrack.dev/supervisor/register"
)

// fakeDevice serves one end of a net.Pipe as if it were a controller board:
// it echoes back whatever data it was asked to write (or zero for a read),
// encoded as a correct response line.
func fakeDevice(t *testing.T, conn net.Conn, state map[byte]uint16) {
	t.Helper()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if len(line) < 6 {
			continue
		}
		kind := line[0]
		data := state[kind]
		if kind == 'w' {
			// addr(2) sub(2) data(4)
			var v uint16
			for i := 5; i < 9; i++ {
				v = v<<4 | hexNibble(line[i])
			}
			data = v
			state[kind] = v
		}
		if _, err := conn.Write([]byte(codec.EncodeResponse(data))); err != nil {
			return
		}
	}
}

func hexNibble(c byte) uint16 {
	switch {
	case c >= '0' && c <= '9':
		return uint16(c - '0')
	case c >= 'a' && c <= 'f':
		return uint16(c-'a') + 10
	default:
		return 0
	}
}

func newTestSession(t *testing.T) (*Session, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	go fakeDevice(t, server, map[byte]uint16{})
	s := &Session{
		conn: client,
		opts: Options{RequestTimeout: time.Second, CRC: true},
		log:  btclog.Disabled,
		caches: map[register.Bank]map[uint8]uint16{},
	}
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return s, server
}

func TestReadUncachedHitsWire(t *testing.T) {
	s, _ := newTestSession(t)
	v, err := s.Read(register.ControllerBank, uint8(register.CtlCellID))
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("Read() = %d, want 0 (fake device echoes 0 for reads)", v)
	}
}

func TestWriteReturnsEchoAndCachesWrittenValue(t *testing.T) {
	s, _ := newTestSession(t)
	echo, err := s.Write(register.Bank(1), uint8(register.CellVoltageSet), 0x1234)
	if err != nil {
		t.Fatal(err)
	}
	if echo != 0x1234 {
		t.Errorf("Write() echo = %#x, want %#x", echo, 0x1234)
	}
	cached, ok := s.caches[register.Bank(1)][uint8(register.CellVoltageSet)]
	if !ok || cached != 0x1234 {
		t.Errorf("cache = %#x, ok=%v, want %#x, true", cached, ok, 0x1234)
	}
}

func TestReadCachedDoesNotHitWireTwice(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	reads := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			_ = line
			reads++
			if _, err := server.Write([]byte(codec.EncodeResponse(7))); err != nil {
				return
			}
		}
	}()

	s := &Session{
		conn:   client,
		opts:   Options{RequestTimeout: time.Second, CRC: true},
		log:    btclog.Disabled,
		caches: map[register.Bank]map[uint8]uint16{},
	}
	v1, err := s.ReadCached(register.ControllerBank, uint8(register.CtlLowVoltage))
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.ReadCached(register.ControllerBank, uint8(register.CtlLowVoltage))
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 7 || v2 != 7 {
		t.Errorf("ReadCached() = %d, %d, want 7, 7", v1, v2)
	}
	client.Close()
	server.Close()
	<-done
	if reads != 1 {
		t.Errorf("device saw %d requests, want 1 (second ReadCached should hit the cache)", reads)
	}
}

func TestMalformedResponseIsProtocolError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		r := bufio.NewReader(server)
		r.ReadString('\n')
		server.Write([]byte("garbage\n"))
	}()

	s := &Session{
		conn:   client,
		opts:   Options{RequestTimeout: time.Second, CRC: true},
		log:    btclog.Disabled,
		caches: map[register.Bank]map[uint8]uint16{},
	}
	_, err := s.Read(register.ControllerBank, uint8(register.CtlCellID))
	if err == nil {
		t.Fatal("want error")
	}
	var protoErr *ProtocolError
	if !isProtocolError(err, &protoErr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if protoErr.Kind != MalformedResponse {
		t.Errorf("Kind = %v, want %v", protoErr.Kind, MalformedResponse)
	}
}

func TestPeerClosedIsProtocolError(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		r := bufio.NewReader(server)
		r.ReadString('\n')
		server.Close()
	}()

	s := &Session{
		conn:   client,
		opts:   Options{RequestTimeout: time.Second, CRC: true},
		log:    btclog.Disabled,
		caches: map[register.Bank]map[uint8]uint16{},
	}
	_, err := s.Read(register.ControllerBank, uint8(register.CtlCellID))
	if err == nil {
		t.Fatal("want error")
	}
	var protoErr *ProtocolError
	if !isProtocolError(err, &protoErr) {
		t.Fatalf("err = %v, want *ProtocolError", err)
	}
	if protoErr.Kind != PeerClosed && protoErr.Kind != Transport {
		t.Errorf("Kind = %v, want PeerClosed or Transport", protoErr.Kind)
	}
}

func TestBadCRCStillReturnsValue(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		r := bufio.NewReader(server)
		r.ReadString('\n')
		// "0000" with an intentionally wrong CRC digit (0 instead of f).
		server.Write([]byte("00000\n"))
	}()

	s := &Session{
		conn:   client,
		opts:   Options{RequestTimeout: time.Second, CRC: true},
		log:    btclog.Disabled,
		caches: map[register.Bank]map[uint8]uint16{},
	}
	v, err := s.Read(register.ControllerBank, uint8(register.CtlCellID))
	if err != nil {
		t.Fatalf("bad CRC must not fail the read: %v", err)
	}
	if v != 0 {
		t.Errorf("Read() = %d, want 0", v)
	}
}

func isProtocolError(err error, target **ProtocolError) bool {
	pe, ok := err.(*ProtocolError)
	if !ok {
		return false
	}
	*target = pe
	return true
}
