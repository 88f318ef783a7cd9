package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/xentripetal/verseengine/config"
	"github.com/xentripetal/verseengine/ecs"
	"github.com/xentripetal/verseengine/metrics"
)

// runState names the stages a system passes through in one tick:
// NotEvaluated -> Evaluated (conditions checked) -> Running -> Complete.
// Neither executor below stores a runState per system; they check
// conditions and run the system directly.
type runState uint8

const (
	stateNotEvaluated runState = iota
	stateEvaluated
	stateRunning
	stateComplete
)

// Logger is the minimal structured-logging surface the executor needs to
// report a system panic without aborting the tick. *zap.SugaredLogger
// satisfies it directly; nopLogger is used when the caller supplies none.
type Logger interface {
	Errorw(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Errorw(string, ...any) {}

// Executor runs one SystemSchedule against a world for a single tick.
type Executor interface {
	Run(ctx context.Context, w *ecs.World, sched *SystemSchedule, cb *ecs.CommandBuffer)
}

// SingleThreadedExecutor runs every system in Order, in order, on the
// calling goroutine, checking each system's own conditions just before it
// runs.
type SingleThreadedExecutor struct {
	Log  Logger
	sink metrics.Sink
}

// NewSingleThreadedExecutor returns an executor that logs panics through
// log, or silently swallows them if log is nil. opts configures metrics
// collection; with none, system timing and panics go uncollected.
func NewSingleThreadedExecutor(log Logger, opts ...Option) *SingleThreadedExecutor {
	if log == nil {
		log = nopLogger{}
	}
	cfg := defaultConfig()
	config.Apply(&cfg, opts)
	return &SingleThreadedExecutor{Log: log, sink: metrics.New(cfg.Registry)}
}

// Run executes every system in sched.Order sequentially, evaluating run
// conditions, recovering panics without aborting the tick, and flushing cb
// at every barrier position sched.Barriers marks.
func (ex *SingleThreadedExecutor) Run(ctx context.Context, w *ecs.World, sched *SystemSchedule, cb *ecs.CommandBuffer) {
	thisRun := w.CurrentTick()
	for i, idx := range sched.Order {
		sys := sched.Systems[idx]
		ex.runOne(w, sys, thisRun)

		if i < len(sched.Barriers) && sched.Barriers[i] {
			cb.Apply(w)
		}
	}
}

func (ex *SingleThreadedExecutor) runOne(w *ecs.World, sys *System, thisRun ecs.Tick) {
	if !sys.ShouldRun(w) {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			ex.sink.IncSystemPanic(sys.Meta.Name)
			ex.Log.Errorw("system panicked", "system", sys.Meta.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	start := time.Now()
	defer func() { ex.sink.ObserveSystemDuration(sys.Meta.Name, time.Since(start)) }()
	sys.Run(w, thisRun)
}

// ParallelExecutor runs systems whose predecessors in the graph are
// complete, bounded by a worker semaphore. Declared access is not checked
// at run time: any two systems in one segment with no ordering edge between
// them may run at once, which includes pairs excused by AmbiguousWith or the
// ignore list. Each system's conditions are evaluated on its own worker
// goroutine; deferred-command flushes stay on the scheduling goroutine,
// matching the single-threaded executor's barrier semantics.
type ParallelExecutor struct {
	Log         Logger
	Parallelism int64
	sink        metrics.Sink
}

// NewParallelExecutor returns an executor that admits up to parallelism
// systems at once (at least 1). opts configures metrics collection; with
// none, system timing and panics go uncollected.
func NewParallelExecutor(log Logger, parallelism int64, opts ...Option) *ParallelExecutor {
	if log == nil {
		log = nopLogger{}
	}
	if parallelism < 1 {
		parallelism = 1
	}
	cfg := defaultConfig()
	config.Apply(&cfg, opts)
	return &ParallelExecutor{Log: log, Parallelism: parallelism, sink: metrics.New(cfg.Registry)}
}

// Run executes sched against w, running systems concurrently within a
// barrier-delimited segment, but only once sched.Predecessors reports a
// system's own graph predecessors have finished — so a Before/After edge is
// honored even when its source system has no deferred commands to flush and
// therefore never earns a Barriers entry.
func (ex *ParallelExecutor) Run(ctx context.Context, w *ecs.World, sched *SystemSchedule, cb *ecs.CommandBuffer) {
	thisRun := w.CurrentTick()
	sem := semaphore.NewWeighted(ex.Parallelism)

	// Systems run in Order-array segments separated by barrier points: a
	// barrier forces every system before it to complete (so the command
	// buffer reflects every prior deferred mutation) before anything after
	// it starts. Within a segment, non-conflicting systems run together.
	start := 0
	for start < len(sched.Order) {
		end := start
		for end < len(sched.Barriers) && !sched.Barriers[end] {
			end++
		}
		// end now indexes either a barrier position or len(Barriers); the
		// segment is Order[start:end+1].
		segmentEnd := end
		if segmentEnd >= len(sched.Order) {
			segmentEnd = len(sched.Order) - 1
		}
		ex.runSegment(ctx, w, sched, thisRun, sem, start, segmentEnd+1)
		if end < len(sched.Barriers) {
			cb.Apply(w)
		}
		start = segmentEnd + 1
	}
}

// runSegment runs Order[from:to] concurrently, but a system whose
// Predecessors include another system in this same segment still waits for
// that predecessor's goroutine to finish before starting — segment
// membership only says "no barrier forces full serialization here", not
// "every pair is conflict-free and unordered". Predecessors outside
// [from, to) are guaranteed already complete: segments run strictly in
// Order, so any earlier index has already had its runSegment call return.
func (ex *ParallelExecutor) runSegment(ctx context.Context, w *ecs.World, sched *SystemSchedule, thisRun ecs.Tick, sem *semaphore.Weighted, from, to int) {
	g, gctx := errgroup.WithContext(ctx)
	done := make(map[int]chan struct{}, to-from)
	for i := from; i < to; i++ {
		done[sched.Order[i]] = make(chan struct{})
	}
	for i := from; i < to; i++ {
		idx := sched.Order[i]
		sys := sched.Systems[idx]
		preds := sched.Predecessors[idx]
		g.Go(func() error {
			defer close(done[idx])
			for _, p := range preds {
				ch, ok := done[p]
				if !ok {
					continue
				}
				select {
				case <-ch:
				case <-gctx.Done():
					return nil
				}
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)
			if !sys.ShouldRun(w) {
				return nil
			}
			ex.runOneSafe(w, sys, thisRun)
			return nil
		})
	}
	_ = g.Wait()
}

func (ex *ParallelExecutor) runOneSafe(w *ecs.World, sys *System, thisRun ecs.Tick) {
	defer func() {
		if r := recover(); r != nil {
			ex.sink.IncSystemPanic(sys.Meta.Name)
			ex.Log.Errorw("system panicked", "system", sys.Meta.Name, "panic", fmt.Sprint(r))
		}
	}()
	start := time.Now()
	defer func() { ex.sink.ObserveSystemDuration(sys.Meta.Name, time.Since(start)) }()
	sys.Run(w, thisRun)
}
