// Package session implements one TCP connection to a controller board:
// synchronous request/response over the codec's wire protocol, with a
// per-bank read-through cache for values that are constant for the life of
// the connection.
//
// A Session is used only by its owning supervisor's executor goroutine; it
// keeps no internal lock, matching spec.md's "it is not internally
// synchronized."
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/btcsuite/btclog"

	"hvrack.dev/supervisor/codec"
	"hvrack.dev/supervisor/register"
)

// ErrorKind classifies a ProtocolError, matching spec.md §4.1/§7's taxonomy.
type ErrorKind int

const (
	// Transport covers any socket-level failure other than a clean peer
	// close or a deadline expiring: connection reset, refused, etc.
	Transport ErrorKind = iota
	// MalformedResponse is a framing or hex decode failure.
	MalformedResponse
	// PeerClosed is a clean EOF from the remote end mid-response.
	PeerClosed
	// Timeout is a connect or per-request deadline expiring.
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case MalformedResponse:
		return "malformed response"
	case PeerClosed:
		return "peer closed"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ProtocolError is fatal to the Session: the caller must treat it as a
// connection loss and tear the Session down.
type ProtocolError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("session: %s", e.Kind)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Options configures a Session at Dial time.
type Options struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// CRC controls whether outgoing requests carry a real CRC nibble or
	// the disabled-CRC sentinel.
	CRC bool
	Log btclog.Logger
}

func (o Options) logger() btclog.Logger {
	if o.Log == nil {
		return btclog.Disabled
	}
	return o.Log
}

// Session owns one TCP connection and the read-through caches for every
// bank addressed over it.
type Session struct {
	conn    net.Conn
	opts    Options
	log     btclog.Logger
	caches  map[register.Bank]map[uint8]uint16
}

// Dial connects to addr (host:port) and returns a ready Session. The
// connect attempt is bounded by opts.ConnectTimeout.
func Dial(ctx context.Context, addr string, opts Options) (*Session, error) {
	dialer := &net.Dialer{
		Timeout: opts.ConnectTimeout,
		Control: controlTCPNoDelay,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return nil, &ProtocolError{Kind: Timeout, Err: err}
		}
		return nil, &ProtocolError{Kind: classify(err), Err: err}
	}
	return &Session{
		conn:   conn,
		opts:   opts,
		log:    opts.logger(),
		caches: make(map[register.Bank]map[uint8]uint16),
	}, nil
}

// Close closes the underlying connection.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) cacheFor(bank register.Bank) map[uint8]uint16 {
	c, ok := s.caches[bank]
	if !ok {
		c = make(map[uint8]uint16)
		s.caches[bank] = c
	}
	return c
}

// InvalidateCache drops every cached value for every bank. Intended use is
// once per new Session, which already starts with empty caches; exposed so
// a supervisor can force a re-read of session constants without redialing.
func (s *Session) InvalidateCache() {
	s.caches = make(map[register.Bank]map[uint8]uint16)
}

// Read performs an uncached read of (bank, reg), always hitting the wire.
func (s *Session) Read(bank register.Bank, reg uint8) (uint16, error) {
	resp, err := s.exchange(codec.Request{Kind: codec.Read, Addr: uint8(bank), Sub: reg, CRC: s.opts.CRC})
	if err != nil {
		return 0, err
	}
	if !resp.CRCOK {
		s.log.Warnf("session: bad CRC reading bank %d register %d", bank, reg)
	}
	s.cacheFor(bank)[reg] = resp.Data
	return resp.Data, nil
}

// Write performs an uncached write of value to (bank, reg) and returns the
// device's echoed value. The cache is updated with the written value, not
// the echo — the echo is reserved for the caller, who may need it to
// reconcile a rounded or clamped write.
func (s *Session) Write(bank register.Bank, reg uint8, value uint16) (uint16, error) {
	resp, err := s.exchange(codec.Request{Kind: codec.Write, Addr: uint8(bank), Sub: reg, Data: value, CRC: s.opts.CRC})
	if err != nil {
		return 0, err
	}
	if !resp.CRCOK {
		s.log.Warnf("session: bad CRC writing bank %d register %d", bank, reg)
	}
	s.cacheFor(bank)[reg] = value
	return resp.Data, nil
}

// ReadCached returns the cached value for (bank, reg) if present, otherwise
// performs a Read and caches the result. Intended for session-lifetime
// constants such as calibration ranges.
func (s *Session) ReadCached(bank register.Bank, reg uint8) (uint16, error) {
	if v, ok := s.cacheFor(bank)[reg]; ok {
		return v, nil
	}
	return s.Read(bank, reg)
}

func (s *Session) exchange(req codec.Request) (codec.Response, error) {
	line, err := req.Encode()
	if err != nil {
		return codec.Response{}, &ProtocolError{Kind: MalformedResponse, Err: err}
	}

	deadline := time.Now().Add(s.opts.RequestTimeout)
	if err := s.conn.SetDeadline(deadline); err != nil {
		return codec.Response{}, &ProtocolError{Kind: Transport, Err: err}
	}

	if _, err := io.WriteString(s.conn, line); err != nil {
		if isTimeout(err) {
			return codec.Response{}, &ProtocolError{Kind: Timeout, Err: err}
		}
		return codec.Response{}, &ProtocolError{Kind: classify(err), Err: err}
	}

	buf := make([]byte, codec.ResponseLength)
	if _, err := io.ReadFull(s.conn, buf); err != nil {
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return codec.Response{}, &ProtocolError{Kind: PeerClosed, Err: err}
		case isTimeout(err):
			return codec.Response{}, &ProtocolError{Kind: Timeout, Err: err}
		default:
			return codec.Response{}, &ProtocolError{Kind: classify(err), Err: err}
		}
	}

	resp, err := codec.Decode(string(buf))
	if err != nil {
		return codec.Response{}, &ProtocolError{Kind: MalformedResponse, Err: err}
	}
	return resp, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
