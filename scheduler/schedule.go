package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/xentripetal/verseengine/ecs"
)

// Label identifies one Schedule within a Schedules container — "Startup",
// "Update", "FixedUpdate" or a caller-defined value; any comparable works.
type Label any

// Schedule bundles a built SystemSchedule with the CommandBuffer its
// systems defer into and the executor that runs it.
type Schedule struct {
	Compiled *SystemSchedule
	Commands *ecs.CommandBuffer
	Exec     Executor

	// ApplyFinalDeferred controls whether commands still queued after the
	// schedule's last system get flushed automatically once Run returns,
	// on top of whatever mid-schedule Barriers (including any explicit
	// ApplyDeferredSystem node) already flushed. Defaults to true. A caller
	// chaining several Schedules that share one CommandBuffer and wants it
	// applied exactly once, after the last of them, sets this false on
	// every Schedule but the last.
	ApplyFinalDeferred bool
}

// NewSchedule wraps a compiled graph for repeated execution.
func NewSchedule(compiled *SystemSchedule, exec Executor) *Schedule {
	return &Schedule{Compiled: compiled, Commands: ecs.NewCommandBuffer(), Exec: exec, ApplyFinalDeferred: true}
}

// Run executes the schedule once against w, applying any commands still
// queued after the last barrier if ApplyFinalDeferred is set.
func (s *Schedule) Run(ctx context.Context, w *ecs.World) {
	s.Exec.Run(ctx, w, s.Compiled, s.Commands)
	if s.ApplyFinalDeferred && !s.Commands.IsEmpty() {
		s.Commands.Apply(w)
	}
}

// Schedules is the registry of named schedules (App owns one). RunSchedule
// removes the target schedule from the map before running it and reinserts
// it afterward, so a system that (incorrectly) tries to run the same
// schedule it's currently inside of gets a hard error instead of silent
// reentrant corruption.
type Schedules struct {
	byLabel map[any][]*scheduleEntry
	running map[any]bool
}

type scheduleEntry struct {
	label    Label
	schedule *Schedule
}

// NewSchedules returns an empty container.
func NewSchedules() *Schedules {
	return &Schedules{byLabel: make(map[any][]*scheduleEntry), running: make(map[any]bool)}
}

// Insert registers sched under label, replacing any schedule already there.
func (s *Schedules) Insert(label Label, sched *Schedule) {
	s.byLabel[label] = []*scheduleEntry{{label: label, schedule: sched}}
}

// Get returns the schedule registered under label, or nil.
func (s *Schedules) Get(label Label) *Schedule {
	entries := s.byLabel[label]
	if len(entries) == 0 {
		return nil
	}
	return entries[0].schedule
}

// RunSchedule removes label's schedule from the map, runs it, then
// reinserts it. Calling RunSchedule for a label that is already running
// (i.e. this call would be reentrant) panics rather than silently
// corrupting the schedule's command buffer or run-condition state.
func (s *Schedules) RunSchedule(ctx context.Context, w *ecs.World, label Label) {
	if s.running[label] {
		panic(fmt.Sprintf("scheduler: schedule %v re-entered while already running", label))
	}
	entries, ok := s.byLabel[label]
	if !ok || len(entries) == 0 {
		return
	}
	sched := entries[0].schedule
	delete(s.byLabel, label)
	s.running[label] = true
	defer func() {
		delete(s.running, label)
		s.byLabel[label] = entries
	}()
	sched.Run(ctx, w)
}

// Standard schedule labels for the main run loop: Startup runs once, then
// Update and FixedUpdate drive every subsequent tick.
const (
	Startup     = "Startup"
	Update      = "Update"
	FixedUpdate = "FixedUpdate"
)

// MainScheduleOrder drives the top-level run loop: Startup exactly once,
// then every label in Order on every call to RunOnce thereafter.
type MainScheduleOrder struct {
	Order       []Label
	startupDone bool
}

// NewMainScheduleOrder returns the default order: just Update. Callers
// append FixedUpdate or app-defined labels as needed.
func NewMainScheduleOrder() *MainScheduleOrder {
	return &MainScheduleOrder{Order: []Label{Update}}
}

// RunOnce runs Startup (only the first time) followed by every label in
// Order, in sequence.
func (m *MainScheduleOrder) RunOnce(ctx context.Context, w *ecs.World, schedules *Schedules) {
	if !m.startupDone {
		schedules.RunSchedule(ctx, w, Startup)
		m.startupDone = true
	}
	for _, label := range m.Order {
		schedules.RunSchedule(ctx, w, label)
	}
}

// RunFixedMainLoop drains FixedUpdate at a fixed virtual-time step,
// accumulating the wall-clock delta each call provides and running
// FixedUpdate once per whole step, carrying any remainder ("overstep")
// into the next call. Returns the number of FixedUpdate steps executed.
func RunFixedMainLoop(ctx context.Context, w *ecs.World, schedules *Schedules, accumulator *time.Duration, step, delta time.Duration) int {
	*accumulator += delta
	steps := 0
	for *accumulator >= step {
		schedules.RunSchedule(ctx, w, FixedUpdate)
		*accumulator -= step
		steps++
	}
	return steps
}
