package ics

import (
	"strings"

	"github.com/samber/mo"

	"papercal/internal/model"
	"papercal/internal/scan"
)

// Recognized property keys. Anything else in a block is ignored.
const (
	keyStartDate = "DTSTART;VALUE=DATE"
	keyStart     = "DTSTART"
	keyEndPrefix = "DTEND"
	keySummary   = "SUMMARY"
)

// lineEnd terminates every line of an assembled VEVENT block.
const lineEnd = "\r\n"

// ParseEvent reads one VEVENT block ("KEY:VALUE" lines joined by CRLF).
// All-day starts ignore offsetHours; timed starts and any DTEND* value are
// shifted by it. Missing fields stay zero.
func ParseEvent(block string, offsetHours float64) model.Event {
	var (
		start  model.CalendarTime
		end    = mo.None[model.CalendarTime]()
		title  string
		allDay bool
	)

	s := scan.New(block)
	for {
		key := strings.TrimSpace(s.UpTo(":", true))
		content := strings.TrimSpace(s.UpTo(lineEnd, true))

		switch {
		case key == keyStartDate:
			start = ParseDateTime(content, 0)
			allDay = true
		case key == keyStart:
			start = ParseDateTime(content, offsetHours)
			allDay = false
		case strings.HasPrefix(key, keyEndPrefix):
			end = mo.Some(ParseDateTime(content, offsetHours))
		case key == keySummary:
			title = content
		}

		if s.AtEnd() {
			break
		}
	}

	return model.NewEvent(start, end, title, allDay)
}
