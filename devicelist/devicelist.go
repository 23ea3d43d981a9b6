// Package devicelist parses the device list CSV: one row per board this
// process should supervise.
package devicelist

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/btcsuite/btclog"

	"hvrack.dev/supervisor/mirror"
)

var expectedHeader = []string{"name", "address", "port"}

// Read parses a device list CSV from r. A header that does not match
// exactly logs a warning and returns an empty, non-nil list rather than an
// error, matching the permissive behavior spec.md §6 calls for. A
// malformed row is a hard error, since by that point the caller has
// committed to treating the file as a device list.
func Read(r io.Reader, log btclog.Logger) ([]mirror.Address, error) {
	if log == nil {
		log = btclog.Disabled
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("devicelist: reading header: %w", err)
	}
	if !equalHeader(header, expectedHeader) {
		log.Warnf("devicelist: wrong csv file header: expected %v, got %v", expectedHeader, header)
		return []mirror.Address{}, nil
	}

	var addrs []mirror.Address
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("devicelist: line %d: %w", line, err)
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("devicelist: line %d: expected 3 fields, got %d", line, len(row))
		}
		port, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("devicelist: line %d: bad port %q: %w", line, row[2], err)
		}
		addrs = append(addrs, mirror.Address{Name: row[0], Host: row[1], Port: port})
	}
	return addrs, nil
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
