package ecs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xentripetal/verseengine/config"
	"github.com/xentripetal/verseengine/internal/tick"
	"github.com/xentripetal/verseengine/metrics"
	"github.com/xentripetal/verseengine/registry"
)

// Config holds World's construction-time options: a logger and an optional
// metrics registry, following the same Observability-embedding pattern
// scheduler.Config and asset.Config use.
type Config struct {
	config.Observability
}

func defaultConfig() Config {
	return Config{Observability: config.DefaultObservability()}
}

// Option configures a World at construction time.
type Option = config.Option[Config]

// WithLogger stores l as the world's logger. The World itself writes no log
// entries through it.
func WithLogger(l *zap.Logger) Option {
	return config.WithLogger(func(c *Config) *config.Observability { return &c.Observability }, l)
}

// WithMetrics enables Prometheus collection for world_entities,
// world_archetypes and world_chunk_moves_total.
func WithMetrics(reg *prometheus.Registry) Option {
	return config.WithMetrics(func(c *Config) *config.Observability { return &c.Observability }, reg)
}

// CheckTickThreshold mirrors internal/tick's rebase threshold, exposed here
// so World.Maintain callers can decide when a rebase pass is due without
// importing internal/tick themselves for that one constant.
const CheckTickThreshold = tick.CheckTickThreshold

// record is the sparse per-entity pointer to its storage location: which
// archetype, which chunk within it, and which row within that chunk.
// Mutated on every structural change, removed when the entity is destroyed.
type record struct {
	archetype *Archetype
	chunk     *Chunk
	row       int
	alive     bool
}

// World owns every entity, its archetype storage, the registered resources
// and the tick clock change detection is measured against. Structural
// mutation (spawn/destroy/set/unset component, resource insert/remove)
// takes the world's exclusive lock; query iteration takes it shared,
// appropriate because a query's declared access was already checked for
// conflicts against every other concurrently running system at schedule
// build time.
type World struct {
	mu sync.RWMutex

	registry   *registry.Registry
	components *componentRegistry
	archetypes *archetypeTable
	entities   *entityAllocator
	records    []record

	resources *resourceStore

	currentTick   Tick
	lastRebaseAt  Tick
	liveEntities  int

	logger *zap.Logger
	sink   metrics.Sink
}

// Tick is an alias so ecs package consumers don't need to import
// internal/tick directly for ordinary use.
type Tick = tick.Tick

// NewWorld returns an empty World with its own component/resource
// registry.
func NewWorld(opts ...Option) *World {
	cfg := defaultConfig()
	config.Apply(&cfg, opts)

	reg := registry.New()
	return &World{
		registry:   reg,
		components: newComponentRegistry(reg),
		archetypes: newArchetypeTable(),
		entities:   newEntityAllocator(),
		resources:  newResourceStore(),
		logger:     cfg.Logger,
		sink:       metrics.New(cfg.Registry),
	}
}

// Stats is a point-in-time snapshot of world size, used by the metrics
// reporter and by cmd/verseengine-inspect's debug surface.
type Stats struct {
	Entities   int
	Archetypes int
	Chunks     int
}

// Stats returns the world's current size. Archetypes counts every interned
// archetype including the empty root; Chunks sums chunks across all of them.
func (w *World) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	chunks := 0
	for _, a := range w.archetypes.byIndex {
		chunks += len(a.chunks)
	}
	return Stats{
		Entities:   w.liveEntities,
		Archetypes: len(w.archetypes.byIndex),
		Chunks:     chunks,
	}
}

// ReportMetrics pushes the current Stats into the world's configured
// metrics.Sink. Intended to be called periodically (e.g. once per tick or on
// a slower cadence) rather than on every mutation, since world_entities and
// world_archetypes are gauges.
func (w *World) ReportMetrics() {
	s := w.Stats()
	w.sink.SetWorldEntities(s.Entities)
	w.sink.SetWorldArchetypes(s.Archetypes)
}

// Registry exposes the world's component/resource ID registry, needed by
// callers (queries, access filters) that must resolve a type to its ID.
func (w *World) Registry() *registry.Registry { return w.registry }

// CurrentTick returns the tick the world is presently on. Systems stamp
// this into a component's changed-tick on every declared write.
func (w *World) CurrentTick() Tick {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.currentTick
}

// AdvanceTick increments the world's clock by one and returns the new
// value. App calls it once per tick, after every schedule of that tick has
// run; the executors and systems never call it.
func (w *World) AdvanceTick() Tick {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.currentTick++
	return w.currentTick
}

// Maintain rebases every tick cell in every chunk and every resource box
// once the clock has advanced at least CheckTickThreshold ticks since the
// previous rebase; otherwise it does nothing. Must
// only be called when no system holds a (last_run, this_run) pair computed
// against the pre-rebase clock — ordinarily right before a schedule run
// begins.
func (w *World) Maintain() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentTick-w.lastRebaseAt < CheckTickThreshold {
		return
	}
	w.lastRebaseAt = w.currentTick
	for _, arch := range w.archetypes.byIndex {
		for _, chunk := range arch.chunks {
			for _, col := range chunk.columns {
				tick.RebaseSlice(col.added[:chunk.len], w.currentTick)
				tick.RebaseSlice(col.changed[:chunk.len], w.currentTick)
			}
		}
	}
	w.resources.rebase(w.currentTick)
}

// SpawnEntity creates a new entity with no components, placed in the empty
// root archetype.
func (w *World) SpawnEntity() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	e := w.entities.alloc()
	root := w.archetypes.root()
	chunk, row := root.allocRow(e, w.currentTick, w.components)
	w.setRecord(e, record{archetype: root, chunk: chunk, row: row, alive: true})
	w.liveEntities++
	return e
}

func (w *World) setRecord(e Entity, r record) {
	idx := int(e.Index())
	for idx >= len(w.records) {
		w.records = append(w.records, record{})
	}
	w.records[idx] = r
}

// DestroyEntity removes e from its archetype via swap-remove and recycles
// its index. Destroying an already-dead or stale Entity is a no-op.
func (w *World) DestroyEntity(e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyLocked(e)
}

func (w *World) destroyLocked(e Entity) {
	if !w.entities.isCurrent(e) {
		return
	}
	r := &w.records[e.Index()]
	if !r.alive {
		return
	}
	moved := r.chunk.swapRemove(r.row)
	if moved != Null {
		w.records[moved.Index()].row = r.row
	}
	r.alive = false
	w.entities.release(e)
	w.liveEntities--
}

// IsAlive reports whether e currently refers to a live entity.
func (w *World) IsAlive(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.entities.isCurrent(e) && w.records[e.Index()].alive
}

// SetComponent assigns value as e's T component, moving e to the archetype
// that includes T if it doesn't already have it. The added-tick is set only
// on first insertion; every write — including this one — updates the
// changed-tick to the world's current tick.
func SetComponent[T any](w *World, e Entity, value T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := componentInfoFor[T](w.components)
	r := &w.records[e.Index()]
	if !r.archetype.Has(info.id) {
		w.moveToLocked(e, w.archetypes.withAdded(r.archetype, info.id, w.components))
		r = &w.records[e.Index()]
	}
	ptr := r.chunk.writePointer(info.id, r.row, w.currentTick)
	*(*T)(ptr) = value
}

// UnsetComponent removes T from e, moving it to the archetype without T.
// A no-op if e doesn't have T.
func UnsetComponent[T any](w *World, e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info := componentInfoFor[T](w.components)
	r := &w.records[e.Index()]
	if !r.archetype.Has(info.id) {
		return
	}
	w.moveToLocked(e, w.archetypes.withRemoved(r.archetype, info.id, w.components))
}

// GetComponent returns a pointer to e's T component and true, or nil and
// false if e doesn't have one. The pointer is only valid until the next
// structural mutation of e's archetype.
func GetComponent[T any](w *World, e Entity) (*T, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	info, ok := registry.LookupComponentID[T](w.registry)
	if !ok || !w.entities.isCurrent(e) {
		return nil, false
	}
	r := &w.records[e.Index()]
	if !r.alive || !r.archetype.Has(info) {
		return nil, false
	}
	return (*T)(r.chunk.readPointer(info, r.row)), true
}

// moveToLocked relocates e from its current archetype to dst, copying every
// component value dst and the source archetype share. Caller must already
// hold w.mu for writing.
func (w *World) moveToLocked(e Entity, dst *Archetype) {
	r := &w.records[e.Index()]
	src := r.archetype
	if src == dst {
		return
	}
	newChunk, newRow := dst.allocRow(e, w.currentTick, w.components)
	for _, id := range dst.components {
		if !src.Has(id) {
			continue // newly added component: left zero-valued until the caller writes it
		}
		srcPtr := r.chunk.readPointer(id, r.row)
		dstCol := newChunk.columns[id]
		dstPtr := dstCol.ptrAt(newRow)
		copyRaw(dstPtr, srcPtr, dstCol.stride)
		dstCol.added[newRow] = r.chunk.columns[id].added[r.row]
		dstCol.changed[newRow] = r.chunk.columns[id].changed[r.row]
	}
	moved := r.chunk.swapRemove(r.row)
	if moved != Null {
		w.records[moved.Index()].row = r.row
	}
	w.setRecord(e, record{archetype: dst, chunk: newChunk, row: newRow, alive: true})
	w.sink.AddChunkMoves(1)
}
