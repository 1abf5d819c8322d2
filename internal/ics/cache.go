package ics

import (
	"strconv"
	"strings"

	appLog "papercal/internal/log"
	"papercal/internal/model"
	"papercal/internal/scan"
)

// HolidayCache serializes the holiday half of the index:
//
//	YYYYMM
//	<day>:<title>
//	...
//
// Holidays are written in ascending day order, same-day entries in
// insertion order.
func (ix *MonthIndex) HolidayCache() string {
	var b strings.Builder
	b.WriteString(ix.period.Stamp())
	b.WriteByte('\n')
	for _, day := range ix.holidays.days() {
		for _, ev := range ix.holidays[day] {
			b.WriteString(strconv.Itoa(day))
			b.WriteByte(':')
			b.WriteString(ev.Title())
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RestoreHolidays loads a cache produced by HolidayCache. The cache is used
// only when it starts with the current period's stamp; otherwise the index
// is left untouched. The result is also available from CacheValid.
func (ix *MonthIndex) RestoreHolidays(cache string) bool {
	ix.cacheValid = false
	if cache == "" || !strings.HasPrefix(cache, ix.period.Stamp()) {
		return false
	}

	s := scan.New(cache)
	s.UpTo("\n", true)
	for !s.AtEnd() {
		line := strings.TrimSuffix(s.UpTo("\n", true), "\r")
		fields := scan.New(line)
		dayToken := strings.TrimSpace(fields.UpTo(":", true))
		title := fields.Rest()
		if dayToken == "" {
			continue
		}
		day, err := strconv.Atoi(dayToken)
		if err != nil {
			appLog.Debug("holiday cache: skipping line", "line", line)
			continue
		}
		ev := model.NewAllDayEvent(ix.period.Year, ix.period.Month, day, title)
		ev.Holiday = true
		ix.InsertHoliday(day, ev)
	}

	ix.cacheValid = true
	return true
}

// CacheValid reports whether the last RestoreHolidays call accepted its
// cache, in which case the holiday feed need not be fetched.
func (ix *MonthIndex) CacheValid() bool {
	return ix.cacheValid
}
