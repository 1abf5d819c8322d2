package model

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/samber/mo"
)

// Event is one calendar item for the month view. Start and End are already
// normalized to the display timezone. Values are copied into the index, so
// an Event is never shared.
type Event struct {
	start  CalendarTime
	end    mo.Option[CalendarTime]
	title  string
	allDay bool

	// Holiday tags events that came from the holiday feed or cache. The
	// ingestion pipeline sets it right after construction.
	Holiday bool
}

// NewEvent builds an Event from already-parsed fields.
func NewEvent(start CalendarTime, end mo.Option[CalendarTime], title string, allDay bool) Event {
	return Event{start: start, end: end, title: title, allDay: allDay}
}

// NewAllDayEvent synthesizes an all-day event, as used when rehydrating
// cached holidays.
func NewAllDayEvent(year, month, day int, title string) Event {
	return Event{
		start:  Date(year, month, day),
		end:    mo.None[CalendarTime](),
		title:  title,
		allDay: true,
	}
}

func (e Event) Start() CalendarTime { return e.start }

// End is present only when the source block carried a DTEND field.
func (e Event) End() mo.Option[CalendarTime] { return e.end }

func (e Event) Title() string { return e.title }
func (e Event) AllDay() bool  { return e.allDay }
func (e Event) Year() int     { return e.start.Year }
func (e Event) Month() int    { return e.start.Month }
func (e Event) Day() int      { return e.start.Day }
func (e Event) Weekday() int  { return e.start.Weekday() }
func (e Event) Hour() int     { return e.start.Hour }
func (e Event) Minute() int   { return e.start.Minute }
func (e Event) Second() int   { return e.start.Second }

// DescriptionForDay is the short label shown next to the title: "HH:MM" for
// a timed event today, "Today:" for a midnight or all-day event today, and
// "M/D" on other days.
func (e Event) DescriptionForDay(isToday bool) string {
	if isToday {
		if e.start.Hour > 0 {
			return fmt.Sprintf("%02d:%02d", e.start.Hour, e.start.Minute)
		}
		return "Today:"
	}
	return fmt.Sprintf("%d/%d", e.start.Month, e.start.Day)
}

// Duration is end minus start. Without a DTEND the end is the zero
// CalendarTime and the result carries no meaning.
func (e Event) Duration() time.Duration {
	end := e.end.OrEmpty()
	return time.Duration(end.Unix()-e.start.Unix()) * time.Second
}

// CompareEvents orders events by start instant.
func CompareEvents(a, b Event) int {
	return cmp.Compare(a.start.Unix(), b.start.Unix())
}

// SortEvents sorts by start instant, keeping the relative order of events
// that start together.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, CompareEvents)
}
