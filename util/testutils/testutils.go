package testutils

import (
	"fmt"
	"net"
	"strings"
	"time"
)

/*
General purpose test utilities.
*/

////////////////////////////////////////////////////////////////////////////////

// GetOpenPort returns an open port that can be used for testing.
func GetOpenPort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("failed to get open port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// Date returns midnight UTC of a YYYY-MM-DD date. It panics on bad input.
func Date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// StripSpace collapses runs of whitespace to single spaces, so that expected
// plan strings can be written over several lines.
func StripSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
