package ics

import (
	"papercal/internal/model"
)

const secondsPerDay = 24 * 3600

// minRollbackYear is the earliest year a previous-day rollover in January
// may step back from. Years at or below it keep their value.
const minRollbackYear = 1901

// ParseDateTime converts an iCalendar DATE ("20240122") or DATE-TIME
// ("20240122T051119Z", or without the Z) value into a CalendarTime.
//
// Inputs shorter than eight characters produce the zero CalendarTime. A
// value without a 'T' at offset 8, or shorter than fifteen characters, is
// read as a date with zero time. For date-times a non-zero offset (in hours,
// fractions allowed) is added and the date rolls over by at most one day.
func ParseDateTime(value string, offsetHours float64) model.CalendarTime {
	var ct model.CalendarTime
	if len(value) < 8 {
		return ct
	}
	ct.Year = leadingInt(value[0:4])
	ct.Month = leadingInt(value[4:6])
	ct.Day = leadingInt(value[6:8])

	if len(value) < 15 || value[8] != 'T' {
		return ct
	}
	ct.Hour = leadingInt(value[9:11])
	ct.Minute = leadingInt(value[11:13])
	ct.Second = leadingInt(value[13:15])

	if offsetHours != 0 {
		ct = shiftTimezone(ct, offsetHours)
	}
	return ct
}

// shiftTimezone applies offsetHours to the time of day, moving the date by
// one day when the result leaves [0, 86400).
func shiftTimezone(ct model.CalendarTime, offsetHours float64) model.CalendarTime {
	// Truncates toward zero after the addition.
	secs := int(float64(ct.SecondsOfDay()) + offsetHours*3600)

	switch {
	case secs < 0:
		ct = previousDay(ct)
		secs += secondsPerDay
	case secs >= secondsPerDay:
		ct = nextDay(ct)
		secs -= secondsPerDay
	}

	ct.Hour = secs / 3600
	ct.Minute = (secs % 3600) / 60
	ct.Second = secs % 60
	return ct
}

func previousDay(ct model.CalendarTime) model.CalendarTime {
	if ct.Day != 1 {
		ct.Day--
		return ct
	}
	if ct.Month == 1 {
		if ct.Year > minRollbackYear {
			ct.Year--
		}
		ct.Month = 12
	} else {
		ct.Month--
	}
	ct.Day = model.DaysInMonth(ct.Year, ct.Month)
	return ct
}

func nextDay(ct model.CalendarTime) model.CalendarTime {
	if ct.Day != model.DaysInMonth(ct.Year, ct.Month) {
		ct.Day++
		return ct
	}
	if ct.Month == 12 {
		ct.Year++
		ct.Month = 1
	} else {
		ct.Month++
	}
	ct.Day = 1
	return ct
}

// leadingInt reads an optionally signed run of decimal digits after leading
// blanks and ignores the rest. No digits yields 0.
func leadingInt(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		return -n
	}
	return n
}
