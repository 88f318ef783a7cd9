// Package scheduler builds and runs the dependency graph of systems that
// operate on an ecs.World each tick: explicit before/after/chain ordering,
// automatic conflict detection between systems with no declared order, and
// pluggable single-threaded or parallel execution.
//
// Systems carry their own access declarations and run-state bookkeeping
// (ShouldRun/Run mirror a mark-run step per tick); conflict detection is
// delegated entirely to the access package's registry.ID-keyed bitsets,
// shared across the whole engine rather than rebuilt per scheduler.
//
// © 2025 verseengine authors. MIT License.
package scheduler

import (
	"github.com/xentripetal/verseengine/access"
	"github.com/xentripetal/verseengine/ecs"
)

// Func is the body of a system: given the world and the (last_run, this_run)
// tick pair that bounds this invocation's change-detection window, it reads
// and writes the world's data.
type Func func(w *ecs.World, lastRun, thisRun ecs.Tick)

// Condition is a callable evaluated once per tick to decide whether a
// system should run. It carries no access declaration of its own, so
// Graph.Build does not include it in conflict checks. Unlike a system, it must be
// side-effect free with respect to structural mutation — it may read the
// world but not queue commands.
type Condition func(w *ecs.World) bool

// IsExclusive/HasDeferred are flags a system declares about itself at
// registration; SystemBuilder offers a fluent chain for setting them.
// IsApplyDeferred marks the scheduler-synthesized pseudo-system ApplyDeferredSystem
// returns — never set by a caller building an ordinary system.
type SystemMeta struct {
	Name            string
	Access          *access.FilteredAccessSet
	IsExclusive     bool
	HasDeferred     bool
	IsApplyDeferred bool
}

// System is one registered unit of work: its body, its declared access, and
// the run conditions gating it.
type System struct {
	Meta       SystemMeta
	Fn         Func
	Conditions []Condition

	lastRun ecs.Tick
	thisRun ecs.Tick
}

// ShouldRun evaluates every attached condition (AND semantics: all must
// pass) against the current world state.
func (s *System) ShouldRun(w *ecs.World) bool {
	for _, c := range s.Conditions {
		if !c(w) {
			return false
		}
	}
	return true
}

// Run invokes the system body with its stamped tick window, then advances
// lastRun to thisRun so the next invocation's window starts where this one
// ended.
func (s *System) Run(w *ecs.World, thisRun ecs.Tick) {
	s.Fn(w, s.lastRun, thisRun)
	s.lastRun = thisRun
}

// SystemBuilder accumulates a System's registration before it's added to a
// Graph via a small fluent chain (WithAccess/Exclusive/Deferred/RunIf/Build).
type SystemBuilder struct {
	sys *System
}

// NewSystem starts building a system named name around fn.
func NewSystem(name string, fn Func) *SystemBuilder {
	return &SystemBuilder{sys: &System{
		Meta: SystemMeta{Name: name, Access: access.NewFilteredAccessSet()},
		Fn:   fn,
	}}
}

// WithAccess attaches fa as one of the system's declared data accesses
// (typically one per query or resource parameter).
func (b *SystemBuilder) WithAccess(fa *access.FilteredAccess) *SystemBuilder {
	b.sys.Meta.Access.Add(fa)
	return b
}

// Exclusive marks the system as needing the whole world, conflicting with
// every other system regardless of declared access.
func (b *SystemBuilder) Exclusive() *SystemBuilder {
	b.sys.Meta.IsExclusive = true
	b.sys.Meta.Access.Combined.SetWritesAll()
	return b
}

// Deferred marks the system as queuing commands into a CommandBuffer that
// must be flushed before any system depending on its effects runs.
func (b *SystemBuilder) Deferred() *SystemBuilder {
	b.sys.Meta.HasDeferred = true
	return b
}

// RunIf attaches a run condition; multiple calls AND together.
func (b *SystemBuilder) RunIf(c Condition) *SystemBuilder {
	b.sys.Conditions = append(b.sys.Conditions, c)
	return b
}

// Build finalizes the system.
func (b *SystemBuilder) Build() *System { return b.sys }

// ApplyDeferredSystem returns the scheduler's synthetic flush point: a node
// with no body and no declared access (so it never trips an access-conflict
// diagnostic against anything) that Graph.Build always treats as a barrier
// position regardless of whether its neighbors are .Deferred(). Add it with
// Graph.AddSystem and place it explicitly with Before/After/Chain, the same
// way a caller would name any other system — it exists so a schedule can
// demand "flush here" at a specific point instead of only wherever a
// .Deferred() system's outgoing edges happen to imply one.
func ApplyDeferredSystem() *System {
	return &System{
		Meta: SystemMeta{
			Name:            "ApplyDeferred",
			Access:          access.NewFilteredAccessSet(),
			IsApplyDeferred: true,
		},
		Fn: func(*ecs.World, ecs.Tick, ecs.Tick) {},
	}
}
