package parser

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTime reports an unparseable trap date token.
var ErrMalformedTime = errors.New("malformed trap timestamp")

// ParseTrapTime parses the compact date-time token embedded in trap
// files: hyphen-separated year and month followed by a fused day+time
// block, e.g. "2025-3-1409:15:42.500" for 2025-03-14 09:15:42.
// Fractional seconds, when present, are discarded.
func ParseTrapTime(token string) (time.Time, error) {
	parts := strings.Split(token, "-")
	if len(parts) < 3 {
		return time.Time{}, ErrMalformedTime
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, ErrMalformedTime
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, ErrMalformedTime
	}

	dayTime := parts[2]
	if len(dayTime) < 2 {
		return time.Time{}, ErrMalformedTime
	}
	day, err := strconv.Atoi(dayTime[:2])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrMalformedTime
	}

	clock := strings.Split(dayTime[2:], ":")
	if len(clock) < 3 {
		return time.Time{}, ErrMalformedTime
	}

	hour, err := strconv.Atoi(clock[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, ErrMalformedTime
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, ErrMalformedTime
	}

	// Seconds keep their first two digits only; anything after
	// (fractional part) is dropped.
	secToken := clock[2]
	if len(secToken) > 2 {
		secToken = secToken[:2]
	}
	second, err := strconv.Atoi(secToken)
	if err != nil || second < 0 || second > 59 {
		return time.Time{}, ErrMalformedTime
	}

	ts := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)
	// time.Date normalizes impossible dates (Feb 30 becomes Mar 2);
	// such lines must go to the error report, not the script
	if ts.Year() != year || ts.Month() != time.Month(month) || ts.Day() != day {
		return time.Time{}, ErrMalformedTime
	}
	return ts, nil
}
