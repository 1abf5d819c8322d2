package ics

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"papercal/internal/model"
)

// Period is the temporal context of one wake cycle: today's date and the
// month that follows it.
type Period struct {
	Year  int
	Month int
	Day   int

	NextYear  int
	NextMonth int
}

// NewPeriod derives the following month, rolling December into January.
func NewPeriod(year, month, day int) Period {
	p := Period{Year: year, Month: month, Day: day, NextYear: year, NextMonth: month + 1}
	if month == 12 {
		p.NextYear = year + 1
		p.NextMonth = 1
	}
	return p
}

// PeriodOf builds a Period from a wall-clock time, using its own location.
func PeriodOf(t time.Time) Period {
	return NewPeriod(t.Year(), int(t.Month()), t.Day())
}

func (p Period) IsCurrent(year, month int) bool {
	return year == p.Year && month == p.Month
}

func (p Period) IsNext(year, month int) bool {
	return year == p.NextYear && month == p.NextMonth
}

// InWindow reports whether year/month is the current or the next month.
func (p Period) InWindow(year, month int) bool {
	return p.IsCurrent(year, month) || p.IsNext(year, month)
}

// Stamp is the "YYYYMM" prefix of a holiday cache for this period.
func (p Period) Stamp() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// dayMap is a multi-map from day of month to events in insertion order.
type dayMap map[int][]model.Event

func (m dayMap) insert(day int, ev model.Event) {
	m[day] = append(m[day], ev)
}

func (m dayMap) days() []int {
	return slices.Sorted(maps.Keys(m))
}

func (m dayMap) total() int {
	n := 0
	for _, evs := range m {
		n += len(evs)
	}
	return n
}

// all flattens the map in ascending day order.
func (m dayMap) all() []model.Event {
	out := make([]model.Event, 0, m.total())
	for _, day := range m.days() {
		out = append(out, m[day]...)
	}
	return out
}

// MonthIndex holds the events of the displayed month keyed by day, split
// into regular events and holidays, plus the events found for the next
// month. One index serves one wake cycle; Reset prepares it for another.
type MonthIndex struct {
	period Period

	events    dayMap
	holidays  dayMap
	nextMonth []model.Event

	cacheValid bool
}

func NewMonthIndex(p Period) *MonthIndex {
	return &MonthIndex{
		period:   p,
		events:   make(dayMap),
		holidays: make(dayMap),
	}
}

func (ix *MonthIndex) Period() Period {
	return ix.period
}

// Reset drops all events and the cache flag and adopts a new period.
func (ix *MonthIndex) Reset(p Period) {
	ix.period = p
	clear(ix.events)
	clear(ix.holidays)
	ix.nextMonth = nil
	ix.cacheValid = false
}

// Add routes ev by its start month: events of the current month are indexed
// by day (holidays separately), anything else goes to the next-month list.
// It reports whether ev landed in the day index.
func (ix *MonthIndex) Add(ev model.Event) bool {
	if ev.Month() != ix.period.Month {
		ix.nextMonth = append(ix.nextMonth, ev)
		return false
	}
	if ev.Holiday {
		ix.InsertHoliday(ev.Day(), ev)
	} else {
		ix.InsertEvent(ev.Day(), ev)
	}
	return true
}

func (ix *MonthIndex) InsertEvent(day int, ev model.Event) {
	ix.events.insert(day, ev)
}

func (ix *MonthIndex) InsertHoliday(day int, ev model.Event) {
	ix.holidays.insert(day, ev)
}

func (ix *MonthIndex) EventCount(day int) int {
	return len(ix.events[day])
}

// Events returns a copy of the regular events on day, in insertion order.
func (ix *MonthIndex) Events(day int) []model.Event {
	return slices.Clone(ix.events[day])
}

func (ix *MonthIndex) HolidayCount(day int) int {
	return len(ix.holidays[day])
}

func (ix *MonthIndex) Holidays(day int) []model.Event {
	return slices.Clone(ix.holidays[day])
}

// DayEntries lists holidays first, then regular events.
func (ix *MonthIndex) DayEntries(day int) []model.Event {
	out := make([]model.Event, 0, ix.HolidayCount(day)+ix.EventCount(day))
	out = append(out, ix.holidays[day]...)
	return append(out, ix.events[day]...)
}

// TotalEvents counts regular events across the month.
func (ix *MonthIndex) TotalEvents() int {
	return ix.events.total()
}

func (ix *MonthIndex) TotalHolidays() int {
	return ix.holidays.total()
}

// AllEvents returns every regular event of the month ordered by day.
func (ix *MonthIndex) AllEvents() []model.Event {
	return ix.events.all()
}

// AllHolidays returns every holiday of the month ordered by day.
func (ix *MonthIndex) AllHolidays() []model.Event {
	return ix.holidays.all()
}

// NextMonthEvents returns the events collected for the following month.
// They are not indexed by day.
func (ix *MonthIndex) NextMonthEvents() []model.Event {
	return slices.Clone(ix.nextMonth)
}
