// Package wake runs one refresh cycle of the calendar: restore state, load
// every feed into a fresh month index, lay it out, hand it to the display
// and persist what the next cycle needs.
package wake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"papercal/internal/battery"
	"papercal/internal/config"
	"papercal/internal/ics"
	appLog "papercal/internal/log"
	"papercal/internal/model"
	"papercal/internal/prefs"
	"papercal/internal/render"
	"papercal/internal/transport"
	"papercal/internal/web"
)

// Feeds opens calendar streams. *transport.Client implements it.
type Feeds interface {
	Open(ctx context.Context, rawURL string) (*transport.Response, error)
}

// Presenter shows a laid-out month.
type Presenter interface {
	Present(ctx context.Context, v render.MonthView) error
}

// Runner holds everything a cycle needs. Battery, Presenter and Publish are
// optional.
type Runner struct {
	Config    *config.Config
	Prefs     *prefs.Store
	Feeds     Feeds
	Battery   battery.Reader
	Presenter Presenter
	// Publish receives the snapshot before the presenter runs, so a capture
	// of /calendar sees this cycle's data.
	Publish func(web.Snapshot)
	// Now defaults to time.Now.
	Now func() time.Time
}

// SourceResult reports one feed of a cycle.
type SourceResult struct {
	Name    string
	URL     string // redacted
	Holiday bool
	Stats   ics.IngestStats
	Err     error
}

// Result is the outcome of a cycle.
type Result struct {
	Period   ics.Period
	Index    *ics.MonthIndex
	View     render.MonthView
	Calendar string
	Boot     int
	// HolidayCacheHit is true when holidays came from prefs instead of the
	// holiday feed.
	HolidayCacheHit bool
	Sources         []SourceResult
	NextWake        time.Time
}

// Run executes one cycle. scheduled is true for timer wake-ups, which
// increment the boot counter; any other start resets it. Feed failures are
// logged and reported in Result.Sources; the returned error covers only
// persistence and presentation.
func (r *Runner) Run(ctx context.Context, scheduled bool) (Result, error) {
	cfg := r.Config
	loc := model.FixedZone(cfg.Timezone)
	nowFn := r.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	now := nowFn().In(loc)

	var errs []error

	boot := 0
	if scheduled {
		boot = r.Prefs.GetInt(prefs.KeyBoot, 0) + 1
	}

	res := Result{Period: ics.PeriodOf(now), Boot: boot}
	ix := ics.NewMonthIndex(res.Period)
	res.Index = ix
	res.HolidayCacheHit = ix.RestoreHolidays(r.Prefs.GetString(prefs.KeyHoliday, ""))

	appLog.Info("wake cycle start",
		"period", res.Period.Stamp(),
		"day", res.Period.Day,
		"scheduled", scheduled,
		"boot", boot,
		"holiday_cache", res.HolidayCacheHit,
		"calendars", len(cfg.Calendars),
	)

	for _, cal := range cfg.Calendars {
		if cal.URL == "" {
			continue
		}
		res.Sources = append(res.Sources, r.load(ctx, ix, cal.Name, cal.URL, false))
	}

	if !ix.CacheValid() && cfg.HolidayURL != "" {
		src := r.load(ctx, ix, "holidays", cfg.HolidayURL, true)
		res.Sources = append(res.Sources, src)
		if src.Err == nil {
			if err := r.Prefs.PutString(prefs.KeyHoliday, ix.HolidayCache()); err != nil {
				appLog.Error("holiday cache save failed", err)
				errs = append(errs, err)
			}
		}
	}

	bat := r.readBattery(ctx)
	res.View = render.BuildMonth(ix, model.FromTime(now), boot, bat)
	res.Calendar = ics.Export(ix, cfg.Timezone, now)

	appLog.Info("wake cycle loaded", "footer", res.View.Footer, "holidays", res.View.Holidays, "next_month", len(res.View.NextMonth))

	if err := r.Prefs.PutInt(prefs.KeyBoot, boot); err != nil {
		appLog.Error("boot count save failed", err)
		errs = append(errs, err)
	}

	if r.Publish != nil {
		r.Publish(web.Snapshot{View: res.View, Calendar: res.Calendar, UpdatedAt: now})
	}
	if r.Presenter != nil {
		if err := r.Presenter.Present(ctx, res.View); err != nil {
			appLog.Error("present failed", err)
			errs = append(errs, fmt.Errorf("wake: present: %w", err))
		}
	}

	next, err := NextWake(cfg.RefreshCron, now)
	if err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", cfg.RefreshCron)
	} else {
		res.NextWake = next
		appLog.Info("next wake", "at", next.Format(time.RFC3339), "in", next.Sub(now).Round(time.Second).String())
	}

	return res, errors.Join(errs...)
}

func (r *Runner) load(ctx context.Context, ix *ics.MonthIndex, name, rawURL string, holiday bool) SourceResult {
	res := SourceResult{Name: name, URL: transport.RedactURL(rawURL), Holiday: holiday}

	resp, err := r.Feeds.Open(ctx, rawURL)
	if err != nil {
		res.Err = err
		appLog.Error("calendar open failed", err, "source", name, "url", res.URL)
		return res
	}
	defer resp.Close()

	res.Stats, res.Err = ix.Ingest(resp.Body, ics.IngestOptions{
		Chunked:  resp.Chunked,
		Holiday:  holiday,
		Timezone: r.Config.Timezone,
	})
	if res.Err != nil {
		appLog.Error("calendar read failed", res.Err, "source", name, "url", res.URL, "lines", res.Stats.Lines)
	}
	appLog.Info("calendar loaded",
		"source", name,
		"url", res.URL,
		"chunked", resp.Chunked,
		"lines", res.Stats.Lines,
		"events", res.Stats.Indexed,
		"next_month", res.Stats.NextMonth,
		"discarded", res.Stats.Discarded,
	)
	return res
}

func (r *Runner) readBattery(ctx context.Context) battery.Status {
	if r.Battery == nil {
		return battery.Status{}
	}
	st, err := r.Battery.Read(ctx)
	if err != nil {
		if !errors.Is(err, battery.ErrUnavailable) {
			appLog.Warn("battery read failed", "err", err.Error())
		}
		return battery.Status{}
	}
	return st
}
