//go:build linux

package session

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// controlTCPNoDelay is a net.Dialer.Control hook that disables Nagle's
// algorithm on the freshly-created socket. The protocol is a strict
// request/response exchange of short lines, so batching small writes only
// adds latency.
func controlTCPNoDelay(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// classify maps a transport-level error to the ErrorKind that best
// describes the underlying syscall.Errno, falling back to Transport for
// anything it doesn't recognize.
func classify(err error) ErrorKind {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return Transport
	}
	var errno syscall.Errno
	if !errors.As(opErr.Err, &errno) {
		return Transport
	}
	switch errno {
	case unix.ECONNRESET, unix.ECONNREFUSED, unix.EHOSTUNREACH, unix.ENETUNREACH, unix.EPIPE:
		return Transport
	case unix.ETIMEDOUT:
		return Timeout
	default:
		return Transport
	}
}
