// Package etclock centralizes the ET calendar logic that the Slate
// Builder's day gate and the Scheduler's cron triggers both depend on.
// Every other package asks this one for day boundaries instead of
// re-deriving them from time.LoadLocation.
package etclock

import (
	"fmt"
	"time"
)

const zoneName = "America/New_York"

// Location returns the America/New_York *time.Location, panicking at
// process start (via MustLocation) if the tzdata isn't available rather than
// silently scoring on the wrong calendar day.
func Location() (*time.Location, error) {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		return nil, fmt.Errorf("etclock: load %s: %w", zoneName, err)
	}
	return loc, nil
}

// MustLocation is Location but panics on failure; intended for package-level
// var initialization only.
func MustLocation() *time.Location {
	loc, err := Location()
	if err != nil {
		panic(err)
	}
	return loc
}

var et = MustLocation()

// Now returns the current instant rendered in ET.
func Now() time.Time { return time.Now().In(et) }

// Date returns the ET calendar date (YYYY-MM-DD) for an instant.
func Date(t time.Time) string { return t.In(et).Format("2006-01-02") }

// DayBounds returns [start, end) in UTC for the ET calendar day etDate
// (format YYYY-MM-DD): 00:00 ET on etDate through 00:00 ET the next day.
// This is the ET Day Gate boundary every admitted event must fall inside.
func DayBounds(etDate string) (start, end time.Time, err error) {
	d, err := time.ParseInLocation("2006-01-02", etDate, et)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("etclock: parse et_date %q: %w", etDate, err)
	}
	start = d
	end = d.AddDate(0, 0, 1)
	return start.UTC(), end.UTC(), nil
}

// InDay reports whether instant t falls within the ET calendar day etDate,
// i.e. [00:00 ET on etDate, 00:00 ET on etDate+1).
func InDay(t time.Time, etDate string) (bool, error) {
	start, end, err := DayBounds(etDate)
	if err != nil {
		return false, err
	}
	tu := t.UTC()
	return !tu.Before(start) && tu.Before(end), nil
}

// DisplayString renders an instant as the ET display string used on Picks
// and nowhere else leaks a UTC/ISO timestamp to consumer-facing payloads:
// "9:10 PM ET".
func DisplayString(t time.Time) string {
	return t.In(et).Format("3:04 PM") + " ET"
}

// DebugSnapshot is the payload for the DebugTime operator operation.
type DebugSnapshot struct {
	NowUTC     time.Time `json:"now_utc"`
	NowET      string    `json:"now_et"`
	ETDate     string    `json:"et_date"`
	ETDayStart time.Time `json:"et_day_start"`
	ETDayEnd   time.Time `json:"et_day_end"`
}

// DebugTime implements the DebugTime operator operation.
func DebugTime() (DebugSnapshot, error) {
	now := time.Now()
	etDate := Date(now)
	start, end, err := DayBounds(etDate)
	if err != nil {
		return DebugSnapshot{}, err
	}
	return DebugSnapshot{
		NowUTC:     now.UTC(),
		NowET:      now.In(et).Format(time.RFC3339),
		ETDate:     etDate,
		ETDayStart: start,
		ETDayEnd:   end,
	}, nil
}
