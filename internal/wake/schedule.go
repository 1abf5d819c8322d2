package wake

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "papercal/internal/log"
	"papercal/internal/model"
)

// NextWake returns the first activation of the cron spec after now, in now's
// location.
func NextWake(spec string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("wake: parse schedule %q: %w", spec, err)
	}
	return sched.Next(now), nil
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Schedule runs a scheduled cycle at every activation of the configured
// refresh spec until ctx is canceled. Overlapping activations are skipped.
func (r *Runner) Schedule(ctx context.Context) error {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(model.FixedZone(r.Config.Timezone)),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(r.Config.RefreshCron, func() {
		if _, err := r.Run(ctx, true); err != nil {
			appLog.Error("scheduled cycle failed", err)
		}
	}); err != nil {
		return fmt.Errorf("wake: schedule %q: %w", r.Config.RefreshCron, err)
	}

	c.Start()
	appLog.Info("scheduler started", "refresh", r.Config.RefreshCron)
	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("scheduler stopped")
	return nil
}
