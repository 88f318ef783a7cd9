package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xentripetal/verseengine/ecs"
	"github.com/xentripetal/verseengine/scheduler"
)

// DefaultTickRate is the wall-clock pace App.Run drives Order.RunOnce at
// when the caller hasn't set a different one.
const DefaultTickRate = time.Second / 60

// App owns the World, the named Schedules every plugin registers systems
// into, and the list of plugins driving its lifecycle.
type App struct {
	World     *ecs.World
	Schedules *scheduler.Schedules
	Order     *scheduler.MainScheduleOrder

	// TickRate paces the main loop started by Run. Zero means run as fast
	// as possible with no pacing at all, appropriate for headless batch
	// processing or tests.
	TickRate time.Duration

	Log *zap.Logger

	plugins []Plugin
}

// New returns an App with a fresh World and empty Schedules container,
// driven by the default MainScheduleOrder (Update only) at DefaultTickRate.
func New(opts ...ecs.Option) *App {
	return &App{
		World:     ecs.NewWorld(opts...),
		Schedules: scheduler.NewSchedules(),
		Order:     scheduler.NewMainScheduleOrder(),
		TickRate:  DefaultTickRate,
		Log:       zap.NewNop(),
	}
}

// AddPlugin registers p and immediately calls its Build. Plugins are built
// in the order they're added, so a later plugin may depend on resources or
// schedules an earlier one registered.
func (a *App) AddPlugin(p Plugin) *App {
	a.plugins = append(a.plugins, p)
	p.Build(a)
	return a
}

// Run blocks until ctx is canceled. It waits for every ReadyPlugin to
// report ready, calls every FinishPlugin once, then every CleanupPlugin in
// reverse registration order, and then drives the main loop —
// World.Maintain, Order.RunOnce, World.AdvanceTick — once per TickRate
// interval (or as fast as possible if TickRate is zero) until ctx.Done
// fires. If ctx is canceled while waiting for readiness, Finish is skipped
// and Cleanup still runs before Run returns.
func (a *App) Run(ctx context.Context) {
	a.waitReady(ctx)
	if ctx.Err() != nil {
		a.runCleanup()
		return
	}
	for _, p := range a.plugins {
		if fp, ok := p.(FinishPlugin); ok {
			fp.Finish(a)
		}
	}
	a.runCleanup()

	if a.TickRate <= 0 {
		for ctx.Err() == nil {
			a.tick(ctx)
		}
		return
	}

	ticker := time.NewTicker(a.TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *App) tick(ctx context.Context) {
	a.World.Maintain()
	a.Order.RunOnce(ctx, a.World, a.Schedules)
	a.World.AdvanceTick()
}

// waitReady polls every registered ReadyPlugin until all report true or ctx
// is canceled. Plugins with no Ready method are always considered ready.
func (a *App) waitReady(ctx context.Context) {
	for ctx.Err() == nil {
		allReady := true
		for _, p := range a.plugins {
			rp, ok := p.(ReadyPlugin)
			if ok && !rp.Ready(a) {
				allReady = false
				break
			}
		}
		if allReady {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Millisecond):
		}
	}
}

func (a *App) runCleanup() {
	for i := len(a.plugins) - 1; i >= 0; i-- {
		if cp, ok := a.plugins[i].(CleanupPlugin); ok {
			cp.Cleanup(a)
		}
	}
}

// WithLogger is re-exported from ecs for convenience when constructing an
// App: app.New(app.WithLogger(l)) reads the same as ecs.NewWorld's own
// option.
func WithLogger(l *zap.Logger) ecs.Option { return ecs.WithLogger(l) }
