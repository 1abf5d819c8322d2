// Package render turns a month index into the panel layout: a Sunday-first
// grid with up to three entries per day and a status footer. The same view
// feeds the /calendar page, the JSON API and the terminal preview.
package render

import (
	"fmt"

	"papercal/internal/battery"
	"papercal/internal/ics"
	"papercal/internal/model"
)

// Panel geometry in pixels.
const (
	PanelWidth   = 800
	PanelHeight  = 480
	FooterHeight = 20
	ColumnWidth  = 114
	DayHeight    = 34
	EntryHeight  = 13
)

// MaxEntries is how many entries fit under a day number.
const MaxEntries = 3

// Entry is one line under a day number.
type Entry struct {
	Title string `json:"title"`
	// Label is "HH:MM", "Today:" or "M/D".
	Label   string `json:"label"`
	AllDay  bool   `json:"all_day"`
	Holiday bool   `json:"holiday"`
}

// Day is one cell of the grid.
type Day struct {
	Day    int  `json:"day"`
	Row    int  `json:"row"`
	Column int  `json:"column"`
	Red    bool `json:"red"`
	Today  bool `json:"today"`
	// Entries holds at most MaxEntries items, holidays first.
	Entries []Entry `json:"entries"`
	// Hidden counts entries that did not fit.
	Hidden int `json:"hidden"`
}

// MonthView is the laid-out month.
type MonthView struct {
	Year         int            `json:"year"`
	Month        int            `json:"month"`
	FirstWeekday int            `json:"first_weekday"`
	Rows         int            `json:"rows"`
	RowHeight    int            `json:"row_height"`
	Days         []Day          `json:"days"`
	Events       int            `json:"events"`
	Holidays     int            `json:"holidays"`
	NextMonth    []Entry        `json:"next_month"`
	Boot         int            `json:"boot"`
	Battery      battery.Status `json:"battery"`
	Footer       string         `json:"footer"`
}

// Weekday abbreviations, Sunday first.
var Weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// BuildMonth lays out ix for the wall clock now. now must fall in the index
// period; its day is highlighted as today.
func BuildMonth(ix *ics.MonthIndex, now model.CalendarTime, boot int, bat battery.Status) MonthView {
	p := ix.Period()
	first := model.DayOfWeek(p.Year, p.Month, 1)
	days := model.DaysInMonth(p.Year, p.Month)
	rows := (first+days-1)/7 + 1

	v := MonthView{
		Year:         p.Year,
		Month:        p.Month,
		FirstWeekday: first,
		Rows:         rows,
		RowHeight:    (PanelHeight - FooterHeight) / rows,
		Days:         make([]Day, 0, days),
		Events:       ix.TotalEvents(),
		Holidays:     ix.TotalHolidays(),
		Boot:         boot,
		Battery:      bat,
	}

	for d := 1; d <= days; d++ {
		column := (first + d - 1) % 7
		today := d == p.Day
		cell := Day{
			Day:    d,
			Row:    (first + d - 1) / 7,
			Column: column,
			Red:    column == 0 || column == 6 || ix.HolidayCount(d) > 0,
			Today:  today,
		}
		all := ix.DayEntries(d)
		for i, ev := range all {
			if i == MaxEntries {
				cell.Hidden = len(all) - MaxEntries
				break
			}
			cell.Entries = append(cell.Entries, entryOf(ev, today))
		}
		v.Days = append(v.Days, cell)
	}

	for _, ev := range ix.NextMonthEvents() {
		v.NextMonth = append(v.NextMonth, entryOf(ev, false))
	}

	v.Footer = Footer(now, v.Events, boot, bat)
	return v
}

func entryOf(ev model.Event, today bool) Entry {
	return Entry{
		Title:   ev.Title(),
		Label:   ev.DescriptionForDay(today),
		AllDay:  ev.AllDay(),
		Holiday: ev.Holiday,
	}
}

// Footer is the status line at the bottom of the panel:
//
//	2024/1/22 00:05:03, Events:12, Boot:4, Bat:3.912
//
// The battery part is only present when a gauge was read.
func Footer(now model.CalendarTime, events, boot int, bat battery.Status) string {
	s := fmt.Sprintf("%d/%d/%d %02d:%02d:%02d, Events:%d, Boot:%d",
		now.Year, now.Month, now.Day, now.Hour, now.Minute, now.Second, events, boot)
	if bat.Known {
		s += ", Bat:" + bat.Volts()
	}
	return s
}

// Left is the x pixel origin of the cell.
func (d Day) Left() int { return d.Column * ColumnWidth }

// Top is the y pixel origin of d.
func (v MonthView) Top(d Day) int { return d.Row * v.RowHeight }

// Today returns the highlighted cell, if any.
func (v MonthView) Today() (Day, bool) {
	for _, d := range v.Days {
		if d.Today {
			return d, true
		}
	}
	return Day{}, false
}
