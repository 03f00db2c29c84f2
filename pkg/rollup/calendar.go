// Package rollup turns pre-fetched CO2 time series into day-bucketed totals.
//
// Everything here is pure: callers fetch projects, pipelines and infrastructure
// elements from the store and hand them over together with an inclusive day range.
// All day arithmetic uses UTC calendar days via ToCalendarDay.
package rollup

import (
	"encoding/json"
	"fmt"
	"time"
)

const secondsPerDay = 24 * 60 * 60

// Day is a UTC calendar day, counted in days since 1970-01-01.
type Day int

// ToCalendarDay truncates t to its UTC calendar day.
// This is the only truncation rule used for runs and consumptions alike.
func ToCalendarDay(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay)
}

// Time returns midnight UTC of d.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

// String formats d as YYYY-MM-DD.
func (d Day) String() string {
	return d.Time().Format(time.DateOnly)
}

// MarshalJSON encodes d as a "YYYY-MM-DD" string.
func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a "YYYY-MM-DD" string.
func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("invalid day %q: %w", s, err)
	}
	*d = ToCalendarDay(t)
	return nil
}

// DayCount is the number of days in the inclusive range [start, end], zero when end < start.
func DayCount(start, end Day) int {
	if end < start {
		return 0
	}
	return int(end-start) + 1
}
