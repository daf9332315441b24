// utils/dates.go
package utils

import "time"

const DateLayout = "2006-01-02"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func BeginningOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// ParseDateRange reads YYYY-MM-DD bounds, falling back to the given defaults.
// The returned end is exclusive (start of the day after end).
func ParseDateRange(startStr, endStr string, defStart, defEnd time.Time) (time.Time, time.Time, error) {
	start, end := defStart, defEnd
	if startStr != "" {
		t, err := time.Parse(DateLayout, startStr)
		if err != nil {
			return start, end, err
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse(DateLayout, endStr)
		if err != nil {
			return start, end, err
		}
		end = t
	}
	return BeginningOfDay(start), BeginningOfDay(end).AddDate(0, 0, 1), nil
}
