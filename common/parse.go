package common

import (
	"strconv"
	"strings"
	"time"
)

// ParseNewsgroup parses a newsgroup info line. The wire contract (RFC 3977)
// is "name low high status", and the integers are preserved in on-wire
// order.
func ParseNewsgroup(line string) (Newsgroup, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return Newsgroup{}, &DataError{Reason: "Invalid newsgroup info"}
	}
	low, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Newsgroup{}, &DataError{Reason: "Invalid newsgroup info"}
	}
	high, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Newsgroup{}, &DataError{Reason: "Invalid newsgroup info"}
	}
	return Newsgroup{Name: parts[0], Low: low, High: high, Status: parts[3]}, nil
}

// ParseDate parses a timestamp in the form returned by the DATE command
// ("YYYYMMDDHHMMSS") as UTC.
func ParseDate(value string) (time.Time, error) {
	ts, err := time.Parse("20060102150405", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, &DataError{Reason: "Invalid date " + strconv.Quote(value)}
	}
	return ts.UTC(), nil
}

// ParseEpoch parses a seconds-since-epoch timestamp as UTC.
func ParseEpoch(value string) (time.Time, error) {
	secs, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return time.Time{}, &DataError{Reason: "Invalid epoch " + strconv.Quote(value)}
	}
	return time.Unix(secs, 0).UTC(), nil
}
