package timeutil

import (
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the wire format for clock times ("15:04"). The scheduling domain
// is minute-precision; seconds are never carried.
const Layout = "15:04"

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// TimeOfDay is a second-free local clock time, stored as minutes since
// midnight. The zero value is 00:00.
type TimeOfDay struct {
	minutes int
}

// New returns the TimeOfDay for the given hour and minute.
func New(hour, minute int) TimeOfDay {
	return TimeOfDay{minutes: hour*60 + minute}
}

// FromMinutes returns the TimeOfDay m minutes after midnight.
func FromMinutes(m int) TimeOfDay {
	return TimeOfDay{minutes: m}
}

// FromTime extracts the clock time from t, discarding date and seconds.
func FromTime(t time.Time) TimeOfDay {
	return New(t.Hour(), t.Minute())
}

// Parse reads a "15:04" string.
func Parse(s string) (TimeOfDay, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParse is Parse for package-level constants; it panics on malformed
// input.
func MustParse(s string) TimeOfDay {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.minutes }

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.minutes / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return t.minutes % 60 }

// Add returns the time m minutes later.
func (t TimeOfDay) Add(m int) TimeOfDay {
	return TimeOfDay{minutes: t.minutes + m}
}

// Sub returns t minus u in minutes.
func (t TimeOfDay) Sub(u TimeOfDay) int { return t.minutes - u.minutes }

// Before reports whether t is before u.
func (t TimeOfDay) Before(u TimeOfDay) bool { return t.minutes < u.minutes }

// After reports whether t is after u.
func (t TimeOfDay) After(u TimeOfDay) bool { return t.minutes > u.minutes }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At anchors the clock time on the given calendar day.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseDate reads a "2006-01-02" string as a local calendar day.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// CombineDate builds the full local date-time for a calendar day and a clock
// time. Seconds and sub-seconds are always zero.
func CombineDate(date time.Time, t TimeOfDay) time.Time {
	return t.At(date)
}

// StartOfDay truncates t to midnight, keeping the location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable minute of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
