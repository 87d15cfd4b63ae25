package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrDateOutOfRange = errors.New("date out of range")
)

// MinTransactionYear bounds transaction dates from below. It also keeps an
// explicit zero date from reading as "no date given".
const MinTransactionYear = 1900

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate accepts RFC3339 or a zone-less timestamp/date, which is read as
// UTC. The result is truncated to whole seconds, the stored precision.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC().Truncate(time.Second)
			if t.Year() < MinTransactionYear {
				return time.Time{}, ErrDateOutOfRange
			}
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
