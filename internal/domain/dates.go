package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// Today returns the calendar date of now in its own location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// AddMonths moves d by n calendar months, clamping the day to the length of
// the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(d civil.Date, n int) civil.Date {
	first := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := d.Day
	if day > last {
		day = last
	}
	return civil.Date{Year: first.Year(), Month: first.Month(), Day: day}
}

// DateOrNil converts a nullable timestamp read from storage into a date.
func DateOrNil(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := civil.DateOf(*t)
	return &d
}

// TimeOrNil converts a nullable date into a UTC midnight timestamp for storage.
func TimeOrNil(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.In(time.UTC)
	return &t
}
