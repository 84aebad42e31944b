package utils

import (
	"errors"
	"time"
)

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// MonthYear labels are "2006-01".
const MonthYearLayout = "2006-01"

// MonthBounds returns [start, end) of the calendar month named by a
// monthYear label, in UTC.
func MonthBounds(monthYear string) (time.Time, time.Time, error) {
	start, err := time.Parse(MonthYearLayout, monthYear)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid month label, want YYYY-MM")
	}
	end := start.AddDate(0, 1, 0)
	return start, end, nil
}

func FormatMonthYear(t time.Time) string {
	return t.UTC().Format(MonthYearLayout)
}
