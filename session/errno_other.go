//go:build !linux

package session

import "syscall"

// controlTCPNoDelay is a no-op outside Linux, where the socket-option
// constants this package tunes are not portable.
func controlTCPNoDelay(network, address string, c syscall.RawConn) error {
	return nil
}

// classify has no syscall.Errno-level detail to work with outside Linux;
// every transport failure is reported as a generic Transport error.
func classify(err error) ErrorKind {
	return Transport
}
