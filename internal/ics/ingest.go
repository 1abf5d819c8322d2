package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// IngestOptions describes one calendar source.
type IngestOptions struct {
	// Chunked is true when the body still carries chunked transfer framing.
	Chunked bool
	// Holiday tags every event of the source as a holiday.
	Holiday bool
	// Timezone is the display offset in hours applied to timed values.
	Timezone float64
}

// IngestStats summarizes one Ingest call.
type IngestStats struct {
	Lines     int // logical lines read
	Indexed   int // events added to the day index
	NextMonth int // events routed to the next-month list
	Discarded int // blocks dropped because DTSTART fell outside the window

	// MaxBlockBytes is the largest VEVENT block held in memory at once.
	MaxBlockBytes int
}

// Ingest streams calendar text from r into the index.
//
// VEVENT blocks are accumulated line by line. As soon as a DTSTART line
// names a month other than the current or next one, the block is dropped
// and nothing more of it is buffered. Completed blocks are parsed and
// routed through Add. Events committed before a read error stay in the
// index.
func (ix *MonthIndex) Ingest(r io.Reader, opts IngestOptions) (IngestStats, error) {
	var (
		stats   IngestStats
		block   strings.Builder
		loading bool
	)

	lr := NewLineReader(r, opts.Chunked)
	for {
		line, err := lr.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return stats, nil
			}
			return stats, fmt.Errorf("ics: read calendar: %w", err)
		}
		stats.Lines++

		switch {
		case strings.HasPrefix(line, "BEGIN:VEVENT"):
			loading = true
		case strings.HasPrefix(line, "DTSTART"):
			_, value, _ := strings.Cut(line, ":")
			start := ParseDateTime(strings.TrimSpace(value), opts.Timezone)
			if !ix.period.InWindow(start.Year, start.Month) {
				if loading {
					stats.Discarded++
				}
				loading = false
				block.Reset()
			}
		}

		if !loading {
			continue
		}
		block.WriteString(line)
		block.WriteString(lineEnd)
		stats.MaxBlockBytes = max(stats.MaxBlockBytes, block.Len())

		if strings.HasPrefix(line, "END:VEVENT") {
			loading = false
			ev := ParseEvent(block.String(), opts.Timezone)
			ev.Holiday = opts.Holiday
			if ix.Add(ev) {
				stats.Indexed++
			} else {
				stats.NextMonth++
			}
			block.Reset()
		}
	}
}
