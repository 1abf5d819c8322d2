package ics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papercal/internal/model"
)

func holiday(day int, title string) model.Event {
	ev := model.NewAllDayEvent(2024, 1, day, title)
	ev.Holiday = true
	return ev
}

func TestHolidayCacheSerialize(t *testing.T) {
	ix := january()
	ix.InsertHoliday(15, holiday(15, "B"))
	ix.InsertHoliday(1, holiday(1, "A"))
	ix.InsertHoliday(15, holiday(15, "C"))

	assert.Equal(t, "202401\n1:A\n15:B\n15:C\n", ix.HolidayCache())
}

func TestHolidayCacheEmpty(t *testing.T) {
	assert.Equal(t, "202401\n", january().HolidayCache())
}

func TestHolidayCacheRoundTrip(t *testing.T) {
	src := january()
	src.InsertHoliday(1, holiday(1, "New Year"))
	src.InsertHoliday(8, holiday(8, "Coming of Age Day"))
	src.InsertHoliday(8, holiday(8, "Second: with colon"))

	dst := january()
	require.True(t, dst.RestoreHolidays(src.HolidayCache()))
	assert.True(t, dst.CacheValid())

	assert.Equal(t, src.AllHolidays(), dst.AllHolidays())
	got := dst.Holidays(8)
	require.Len(t, got, 2)
	assert.Equal(t, "Coming of Age Day", got[0].Title())
	assert.Equal(t, "Second: with colon", got[1].Title())
	assert.True(t, got[0].Holiday)
	assert.True(t, got[0].AllDay())
	assert.Equal(t, 1, got[0].Weekday())
	assert.Zero(t, dst.TotalEvents())
}

func TestRestoreHolidaysRejectsStaleCache(t *testing.T) {
	tests := []struct {
		name  string
		cache string
	}{
		{"empty", ""},
		{"previous month", "202312\n25:Christmas\n"},
		{"next year", "202501\n1:New Year\n"},
		{"garbage", "hello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := january()
			ix.InsertHoliday(3, holiday(3, "kept"))

			assert.False(t, ix.RestoreHolidays(tt.cache))
			assert.False(t, ix.CacheValid())
			assert.Equal(t, 1, ix.TotalHolidays())
		})
	}
}

func TestRestoreHolidaysSkipsBadLines(t *testing.T) {
	ix := january()
	cache := "202401\r\n:no day\r\n\r\nabc:not a number\r\n11:Founding Day\r\n12\r\n"

	require.True(t, ix.RestoreHolidays(cache))

	assert.Equal(t, 2, ix.TotalHolidays())
	require.Equal(t, 1, ix.HolidayCount(11))
	assert.Equal(t, "Founding Day", ix.Holidays(11)[0].Title())
	require.Equal(t, 1, ix.HolidayCount(12))
	assert.Empty(t, ix.Holidays(12)[0].Title())
}

func TestRestoreHolidaysResetsValidity(t *testing.T) {
	ix := january()
	require.True(t, ix.RestoreHolidays("202401\n"))
	assert.True(t, ix.CacheValid())

	assert.False(t, ix.RestoreHolidays("202312\n"))
	assert.False(t, ix.CacheValid())
}

func TestResetClearsIndex(t *testing.T) {
	ix := january()
	require.True(t, ix.RestoreHolidays("202401\n1:New Year\n"))
	ix.InsertEvent(2, model.NewAllDayEvent(2024, 1, 2, "x"))
	ix.Add(model.NewAllDayEvent(2024, 2, 2, "y"))

	ix.Reset(NewPeriod(2024, 2, 1))

	assert.Zero(t, ix.TotalEvents())
	assert.Zero(t, ix.TotalHolidays())
	assert.Empty(t, ix.NextMonthEvents())
	assert.False(t, ix.CacheValid())
	assert.Equal(t, "202402", ix.Period().Stamp())
}

func TestPeriod(t *testing.T) {
	p := NewPeriod(2024, 12, 31)
	assert.Equal(t, 2025, p.NextYear)
	assert.Equal(t, 1, p.NextMonth)
	assert.True(t, p.InWindow(2024, 12))
	assert.True(t, p.InWindow(2025, 1))
	assert.False(t, p.InWindow(2024, 1))
	assert.Equal(t, "202412", p.Stamp())

	p = NewPeriod(2024, 1, 22)
	assert.True(t, p.IsNext(2024, 2))
	assert.False(t, p.IsCurrent(2024, 2))
}

func TestDayEntriesListsHolidaysFirst(t *testing.T) {
	ix := january()
	ix.InsertEvent(8, model.NewAllDayEvent(2024, 1, 8, "event"))
	ix.InsertHoliday(8, holiday(8, "holiday"))

	entries := ix.DayEntries(8)
	require.Len(t, entries, 2)
	assert.Equal(t, "holiday", entries[0].Title())
	assert.Equal(t, "event", entries[1].Title())
	assert.Empty(t, ix.DayEntries(9))
}
