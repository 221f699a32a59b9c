package session

import (
	"errors"
	"strings"
	"time"
)

// DateTimeLayout is the only accepted reminder time format: 24-hour
// clock followed by day/month/year, local time, no timezone marker.
const DateTimeLayout = "15:04 02/01/2006"

// ErrBadDateTime is returned for input that does not match DateTimeLayout.
var ErrBadDateTime = errors.New("invalid date/time format")

// ParseDateTime parses "HH:MM DD/MM/YYYY" into an absolute local
// timestamp. The input must tokenize into exactly five components
// (hour, minute, day, month, year); anything else is rejected rather
// than partially parsed.
func ParseDateTime(input string) (time.Time, error) {
	input = strings.TrimSpace(input)

	components := strings.FieldsFunc(input, func(r rune) bool {
		return r == ' ' || r == ':' || r == '/'
	})
	if len(components) != 5 {
		return time.Time{}, ErrBadDateTime
	}

	t, err := time.ParseInLocation(DateTimeLayout, input, time.Local)
	if err != nil {
		return time.Time{}, ErrBadDateTime
	}
	return t, nil
}
