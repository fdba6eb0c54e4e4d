package utils

import "time"

const isoLayout = "2006-01-02T15:04:05.000Z"

// ToISOString formats t in UTC with millisecond precision, as Yamcs expects.
func ToISOString(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISOString parses timestamps as returned by Yamcs.
func ParseISOString(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
