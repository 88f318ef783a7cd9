package app

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/xentripetal/verseengine/scheduler"
)

// RunEvery registers label to run on spec's cron schedule (standard 5-field
// cron syntax) instead of every tick of App.Run's own loop. Use this for a
// schedule that should fire on wall-clock time — a periodic save, a remote
// poll — independent of how fast (or whether) the main tick loop is
// running. Returns the underlying *cron.Cron so the caller can Stop it
// directly; App.Run does not manage it.
//
// RunEvery is entirely additive: a consumer who never calls it pulls in
// nothing beyond the binary's own transitive dependency on robfig/cron/v3.
func (a *App) RunEvery(ctx context.Context, label scheduler.Label, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		a.Schedules.RunSchedule(ctx, a.World, label)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return c, nil
}
