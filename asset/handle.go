package asset

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DropEvent is emitted exactly once per strong handle, whether the handle
// was dropped explicitly via Release or reclaimed by the garbage collector
// without ever being released.
type DropEvent struct {
	ID                 ID
	AssetServerManaged bool
}

// dropChannels owns one unbounded-ish (large buffer) channel per asset
// type, so DropHandler can drain exactly the type it owns without
// contending with every other asset type's drop traffic.
type dropChannels struct {
	mu sync.Mutex
	ch map[AssetType]chan DropEvent
}

func newDropChannels() *dropChannels {
	return &dropChannels{ch: make(map[AssetType]chan DropEvent)}
}

func (d *dropChannels) channelFor(typ AssetType) chan DropEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.ch[typ]
	if !ok {
		ch = make(chan DropEvent, 4096)
		d.ch[typ] = ch
	}
	return ch
}

func (d *dropChannels) send(typ AssetType, ev DropEvent) {
	d.channelFor(typ) <- ev
}

// sharedState is the refcounted record a StrongHandle's clones share: when
// the last clone's refcount hits zero, exactly one DropEvent is enqueued.
// runtime.AddCleanup backstops clones that are dropped on the floor (never
// explicitly Released): once the shared state itself is collected without
// the DropEvent having fired, the cleanup enqueues it.
type sharedState struct {
	id      ID
	managed bool
	refs    atomic.Int64
	drops   *dropChannels
	fired   atomic.Bool
	cleanup runtime.Cleanup
}

func (s *sharedState) release() {
	if s.refs.Add(-1) == 0 {
		if s.fired.CompareAndSwap(false, true) {
			s.cleanup.Stop()
			s.drops.send(s.id.Type(), DropEvent{ID: s.id, AssetServerManaged: s.managed})
		}
	}
}

// StrongHandle is an owning reference to an asset: it keeps the asset
// alive and, once every clone of it is released, enqueues exactly one
// DropEvent naming the asset's ID.
type StrongHandle struct {
	state *sharedState
}

// newStrongHandle constructs the first (refcount-1) owner of id's asset.
func newStrongHandle(id ID, managed bool, drops *dropChannels) StrongHandle {
	s := &sharedState{id: id, managed: managed, drops: drops}
	s.refs.Store(1)
	h := StrongHandle{state: s}
	dc := drops
	s.cleanup = runtime.AddCleanup(s, func(ev DropEvent) { dc.send(ev.ID.Type(), ev) }, DropEvent{ID: id, AssetServerManaged: managed})
	return h
}

// Clone returns a new owning reference sharing the same refcount; the
// DropEvent fires only once every clone (the original and every Clone
// result) has been released.
func (h StrongHandle) Clone() StrongHandle {
	h.state.refs.Add(1)
	return h
}

// Release drops this reference. Release on the zero value is a no-op.
// Releasing the same reference twice is a caller error: it decrements the
// shared refcount a second time.
func (h StrongHandle) Release() {
	if h.state != nil {
		h.state.release()
	}
}

// ID returns the asset ID this handle keeps alive.
func (h StrongHandle) ID() ID { return h.state.id }

// IsAlive reports whether this handle's refcount is still above zero.
func (h StrongHandle) IsAlive() bool { return h.state.refs.Load() > 0 }

// GuidHandle names an asset by a user-assigned GUID. It never participates
// in lifetime tracking: no refcount, no DropEvent.
type GuidHandle struct {
	Guid uuid.UUID
	Typ  AssetType
}

// ID returns the GuidID this handle names.
func (h GuidHandle) ID() ID { return GuidID(h.Guid, h.Typ) }

// Handle is the sum type applications hold: exactly one of Strong or Guid
// is populated, mirroring the two ways an asset can be named.
type Handle[T any] struct {
	Strong *StrongHandle
	Guid   *GuidHandle
}

// StrongOf wraps h as a typed strong Handle.
func StrongOf[T any](h StrongHandle) Handle[T] { return Handle[T]{Strong: &h} }

// GuidOf wraps h as a typed GUID Handle.
func GuidOf[T any](h GuidHandle) Handle[T] { return Handle[T]{Guid: &h} }

// ID returns the underlying asset ID regardless of which variant is set.
func (h Handle[T]) ID() ID {
	if h.Strong != nil {
		return h.Strong.ID()
	}
	return h.Guid.ID()
}

// Untyped erases T, keeping only the runtime type tag carried by the ID.
func (h Handle[T]) Untyped() UntypedHandle {
	return UntypedHandle{Strong: h.Strong, Guid: h.Guid, typ: h.ID().Type()}
}

// UntypedHandle is Handle[T] with T erased, carrying its AssetType tag at
// runtime instead of at the type level. Dependency lists and the tracker's
// internal bookkeeping, which must hold handles of heterogeneous asset
// types in one slice, use this form.
type UntypedHandle struct {
	Strong *StrongHandle
	Guid   *GuidHandle
	typ    AssetType
}

// ID returns the underlying asset ID.
func (h UntypedHandle) ID() ID {
	if h.Strong != nil {
		return h.Strong.ID()
	}
	return h.Guid.ID()
}

// Type returns the erased asset type tag.
func (h UntypedHandle) Type() AssetType { return h.typ }

// HandleProvider allocates indices and mints strong handles, routing every
// resulting drop through the per-asset-type channel the tracker drains.
type HandleProvider struct {
	allocators map[AssetType]*Allocator
	drops      *dropChannels
	mu         sync.Mutex
}

// NewHandleProvider returns an empty provider; allocators are created
// lazily per AssetType on first use.
func NewHandleProvider() *HandleProvider {
	return &HandleProvider{allocators: make(map[AssetType]*Allocator), drops: newDropChannels()}
}

func (p *HandleProvider) allocatorFor(typ AssetType) *Allocator {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.allocators[typ]
	if !ok {
		a = NewAllocator(1024)
		p.allocators[typ] = a
	}
	return a
}

// ReserveHandle allocates a fresh Index for typ and mints the one strong
// handle that owns it.
func (p *HandleProvider) ReserveHandle(typ AssetType, managed bool) StrongHandle {
	idx := p.allocatorFor(typ).Reserve()
	return newStrongHandle(IndexID(idx, typ), managed, p.drops)
}

// ReserveGuidHandle mints a strong handle around a caller-chosen GUID
// rather than an allocator-issued Index.
func (p *HandleProvider) ReserveGuidHandle(typ AssetType, g uuid.UUID, managed bool) StrongHandle {
	return newStrongHandle(GuidID(g, typ), managed, p.drops)
}

// DropEvents returns the channel every StrongHandle release for typ
// publishes to.
func (p *HandleProvider) DropEvents(typ AssetType) <-chan DropEvent {
	return p.drops.channelFor(typ)
}

// Release returns idx to typ's allocator for reuse, resetting the slot via
// reset before any future Reserve call can reissue it.
func (p *HandleProvider) Release(typ AssetType, idx Index, reset func(slot uint32)) {
	a := p.allocatorFor(typ)
	a.Release(idx)
	a.DrainStorageResets(reset)
}
