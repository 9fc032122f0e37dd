package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// StartMaintenance schedules expired-entry purges on cache.purge_schedule.
// The scheduler stops when ctx is done or the returned stop func is called;
// stop waits for a running purge to finish. An empty schedule disables it.
func (a *App) StartMaintenance(ctx context.Context) (func(), error) {
	schedule := a.cfg.Cache.PurgeSchedule
	if schedule == "" {
		return func() {}, nil
	}

	logger := cronLogger{logger: a.logger.With().Str("job", "purge_expired").Logger()}
	scheduler := cron.New(
		cron.WithChain(cron.Recover(logger)),
		cron.WithLogger(logger),
	)

	if _, err := scheduler.AddFunc(schedule, func() { a.runPurge(ctx) }); err != nil {
		return nil, fmt.Errorf("scheduling cache purge %q: %w", schedule, err)
	}
	scheduler.Start()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-scheduler.Stop().Done()
	}()

	a.logger.Info().Str("schedule", schedule).Msg("cache maintenance scheduled")

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-stopped
	}, nil
}

func (a *App) runPurge(ctx context.Context) {
	removed, err := a.PurgeExpired(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("scheduled cache purge failed")
		return
	}
	a.logger.Info().Int("removed", removed).Msg("scheduled cache purge finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
