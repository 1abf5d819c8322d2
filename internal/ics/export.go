package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"papercal/internal/model"
)

const productID = "-//papercal//month index//EN"

// Export renders the index (holidays, events, then next-month events) as an
// iCalendar document. Times are written in UTC for offsetHours, so the
// result ingests back into an equivalent index.
func Export(ix *MonthIndex, offsetHours float64, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	loc := time.FixedZone("display", int(offsetHours*3600))
	add := func(ev model.Event) {
		vev := cal.AddEvent(uuid.NewString())
		vev.SetDtStampTime(now)
		vev.SetSummary(ev.Title())
		if ev.AllDay() {
			vev.SetAllDayStartAt(ev.Start().Time(loc))
			return
		}
		vev.SetStartAt(ev.Start().Time(loc))
		if end, ok := ev.End().Get(); ok {
			vev.SetEndAt(end.Time(loc))
		}
	}

	for _, ev := range ix.AllHolidays() {
		add(ev)
	}
	for _, ev := range ix.AllEvents() {
		add(ev)
	}
	for _, ev := range ix.nextMonth {
		add(ev)
	}
	return cal.Serialize()
}
