package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

/*
ParseDuration extends time.ParseDuration with day and week units, which are
the usual way tolerances are written for daily or weekly data ("1d", "2w").
Units may be mixed, as in "1d12h". A bare integer is read as nanoseconds.
*/

////////////////////////////////////////////////////////////////////////////////

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ErrEmptyDuration is returned when an empty duration string is parsed.
var ErrEmptyDuration = errors.New("empty duration")

// ParseDuration parses a duration string.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyDuration
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	negative := false
	rest := s
	if rest[0] == '-' || rest[0] == '+' {
		negative = rest[0] == '-'
		rest = rest[1:]
	}
	var total time.Duration
	for rest != "" {
		i := strings.IndexAny(rest, "dw")
		if i < 0 {
			d, err := time.ParseDuration(rest)
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			total += d
			break
		}
		// a 'd' or 'w' may only follow digits directly.
		n, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		unit := When(rest[i] == 'd', day, week)
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}
	if negative {
		total = -total
	}
	return total, nil
}

// FormatDuration formats a duration, preferring whole days when possible.
func FormatDuration(d time.Duration) string {
	if d != 0 && d%day == 0 {
		return strconv.FormatInt(int64(d/day), 10) + "d"
	}
	return d.String()
}
