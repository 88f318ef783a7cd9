package app

import (
	"context"
	"testing"
	"time"

	"github.com/xentripetal/verseengine/ecs"
	"github.com/xentripetal/verseengine/scheduler"
)

type countingPlugin struct {
	ticks   *int
	built   bool
	ready   bool
	readyAt int
	finishN *int
	cleanN  *int
}

func (p *countingPlugin) Build(a *App) {
	p.built = true
	sys := scheduler.NewSystem("count", func(w *ecs.World, last, this ecs.Tick) { *p.ticks++ }).Build()
	g := scheduler.NewGraph()
	g.AddSystem(sys)
	sched, err := g.Build()
	if err != nil {
		panic(err)
	}
	a.Schedules.Insert(scheduler.Update, scheduler.NewSchedule(sched, scheduler.NewSingleThreadedExecutor(nil)))
}

func (p *countingPlugin) Ready(a *App) bool {
	p.readyAt++
	return p.readyAt >= 2
}

func (p *countingPlugin) Finish(a *App) { *p.finishN++ }

func (p *countingPlugin) Cleanup(a *App) { *p.cleanN++ }

func TestAppRunsPluginLifecycleAndTicksSchedule(t *testing.T) {
	ticks, finishN, cleanN := 0, 0, 0
	plugin := &countingPlugin{ticks: &ticks, finishN: &finishN, cleanN: &cleanN}

	a := New()
	a.TickRate = time.Millisecond
	a.AddPlugin(plugin)
	if !plugin.built {
		t.Fatalf("expected Build to run synchronously from AddPlugin")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	a.Run(ctx)

	if finishN != 1 {
		t.Fatalf("expected Finish to run exactly once, got %d", finishN)
	}
	if cleanN != 1 {
		t.Fatalf("expected Cleanup to run exactly once, got %d", cleanN)
	}
	if ticks == 0 {
		t.Fatalf("expected at least one tick of the Update schedule to run")
	}
}

func TestAppRunCleansUpWhenNeverReady(t *testing.T) {
	alwaysNotReady := &neverReadyPlugin{}
	a := New()
	a.AddPlugin(alwaysNotReady)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	a.Run(ctx)

	if alwaysNotReady.cleaned != 1 {
		t.Fatalf("expected Cleanup to run once even when Ready never returns true, got %d", alwaysNotReady.cleaned)
	}
}

type neverReadyPlugin struct{ cleaned int }

func (p *neverReadyPlugin) Build(a *App)   {}
func (p *neverReadyPlugin) Ready(a *App) bool { return false }
func (p *neverReadyPlugin) Cleanup(a *App) { p.cleaned++ }
