package model

import (
	"fmt"
	"time"
)

// CalendarTime is a broken-down local date/time as read from a calendar
// feed. Hour, Minute and Second are zero for all-day dates. The day of the
// week is never stored; Weekday derives it from the date fields.
type CalendarTime struct {
	Year   int // absolute, e.g. 2024
	Month  int // 1-12
	Day    int // 1-31
	Hour   int
	Minute int
	Second int
}

// Date returns an all-day CalendarTime.
func Date(year, month, day int) CalendarTime {
	return CalendarTime{Year: year, Month: month, Day: day}
}

// FromTime breaks t down in its own location.
func FromTime(t time.Time) CalendarTime {
	return CalendarTime{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
	}
}

// FixedZone is the location for a display offset in hours, e.g. 9 or -3.5.
func FixedZone(offsetHours float64) *time.Location {
	secs := int(offsetHours * 3600)
	sign := "+"
	abs := secs
	if secs < 0 {
		sign = "-"
		abs = -secs
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, abs/3600, abs%3600/60), secs)
}

// IsZero reports whether ct is the zeroed value produced for unparsable input.
func (ct CalendarTime) IsZero() bool {
	return ct == CalendarTime{}
}

// Weekday returns 0 (Sunday) through 6 (Saturday).
func (ct CalendarTime) Weekday() int {
	if ct.IsZero() {
		return 0
	}
	return DayOfWeek(ct.Year, ct.Month, ct.Day)
}

// SecondsOfDay is the offset of the time fields from midnight.
func (ct CalendarTime) SecondsOfDay() int {
	return ct.Hour*3600 + ct.Minute*60 + ct.Second
}

// Time interprets the fields as wall-clock time in loc (UTC when nil).
func (ct CalendarTime) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(ct.Year, time.Month(ct.Month), ct.Day, ct.Hour, ct.Minute, ct.Second, 0, loc)
}

// Unix returns seconds since the epoch treating the fields as UTC. All
// CalendarTimes in one cycle share a timezone, so differences and ordering
// are meaningful.
func (ct CalendarTime) Unix() int64 {
	return ct.Time(time.UTC).Unix()
}

func (ct CalendarTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", ct.Year, ct.Month, ct.Day, ct.Hour, ct.Minute, ct.Second)
}

// DayOfWeek uses Sakamoto's congruence: 0 is Sunday.
func DayOfWeek(year, month, day int) int {
	if month < 3 {
		year--
		month += 12
	}
	return (year + year/4 - year/100 + year/400 + (13*month+8)/5 + day) % 7
}

func IsLeapYear(year int) bool {
	return year%4 == 0 && year%100 != 0 || year%400 == 0
}

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysInMonth returns the length of month (1-12) in year, or 0 for an
// out-of-range month.
func DaysInMonth(year, month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return daysPerMonth[month-1]
}
