package ics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"papercal/internal/model"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		offset float64
		want   model.CalendarTime
	}{
		{"too short", "2024", 0, model.CalendarTime{}},
		{"date only", "20240122", 9, model.Date(2024, 1, 22)},
		{"missing T", "20240122X051119Z", 9, model.Date(2024, 1, 22)},
		{"truncated time", "20240122T0511", 9, model.Date(2024, 1, 22)},
		{"utc no offset", "20240122T051119Z", 0, model.CalendarTime{Year: 2024, Month: 1, Day: 22, Hour: 5, Minute: 11, Second: 19}},
		{"local variant", "20240122T051119", 0, model.CalendarTime{Year: 2024, Month: 1, Day: 22, Hour: 5, Minute: 11, Second: 19}},
		{"same day shift", "20240122T051119Z", 9, model.CalendarTime{Year: 2024, Month: 1, Day: 22, Hour: 14, Minute: 11, Second: 19}},
		{"next day", "20240101T230000Z", 3, model.CalendarTime{Year: 2024, Month: 1, Day: 2, Hour: 2}},
		{"previous year", "20240101T010000Z", -3, model.CalendarTime{Year: 2023, Month: 12, Day: 31, Hour: 22}},
		{"year clamp", "19010101T010000Z", -3, model.CalendarTime{Year: 1901, Month: 12, Day: 31, Hour: 22}},
		{"above clamp", "19020101T010000Z", -3, model.CalendarTime{Year: 1901, Month: 12, Day: 31, Hour: 22}},
		{"into leap day", "20240228T230000Z", 2, model.CalendarTime{Year: 2024, Month: 2, Day: 29, Hour: 1}},
		{"past february", "20230228T230000Z", 2, model.CalendarTime{Year: 2023, Month: 3, Day: 1, Hour: 1}},
		{"back to leap day", "20240301T003000Z", -1, model.CalendarTime{Year: 2024, Month: 2, Day: 29, Hour: 23, Minute: 30}},
		{"new year", "20231231T230000Z", 1, model.CalendarTime{Year: 2024, Month: 1, Day: 1}},
		{"half hour offset", "20240122T000000Z", 5.5, model.CalendarTime{Year: 2024, Month: 1, Day: 22, Hour: 5, Minute: 30}},
		{"negative half hour", "20240122T001000Z", -0.5, model.CalendarTime{Year: 2024, Month: 1, Day: 21, Hour: 23, Minute: 40}},
		{"truncates toward zero", "20240122T000000Z", -0.0001, model.CalendarTime{Year: 2024, Month: 1, Day: 22}},
		{"garbage digits", "2024ab22", 0, model.CalendarTime{Year: 2024, Month: 0, Day: 22}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDateTime(tt.value, tt.offset))
		})
	}
}

func TestParseDateTimeWeekday(t *testing.T) {
	start := time.Date(1999, time.December, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() < 2031; d = d.AddDate(0, 0, 1) {
		ct := ParseDateTime(d.Format("20060102"), 0)
		assert.Equal(t, int(d.Weekday()), ct.Weekday(), d.Format("20060102"))
	}
}

func TestParseDateTimeWeekdayAfterRollover(t *testing.T) {
	// 2024-01-01 is a Monday; shifting past midnight must move the weekday.
	ct := ParseDateTime("20240101T230000Z", 3)
	assert.Equal(t, 2, ct.Weekday())

	ct = ParseDateTime("20240101T010000Z", -3)
	assert.Equal(t, 0, ct.Weekday())
}

func TestLeadingInt(t *testing.T) {
	tests := map[string]int{
		"2024": 2024,
		"07":   7,
		" 12":  12,
		"-3":   -3,
		"12ab": 12,
		"ab":   0,
		"":     0,
	}
	for in, want := range tests {
		assert.Equal(t, want, leadingInt(in), fmt.Sprintf("%q", in))
	}
}
