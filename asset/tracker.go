package asset

import (
	"strconv"
	"sync"
)

// LoadState is the terminal-or-in-flight state of one asset's own load,
// independent of its dependencies.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Loaded
	Failed
)

func (s LoadState) String() string {
	switch s {
	case NotLoaded:
		return "NotLoaded"
	case Loading:
		return "Loading"
	case Loaded:
		return "Loaded"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// LoadMode selects whether GetOrCreatePathHandle starts a load for an
// asset that already has state beyond NotLoaded/Failed.
type LoadMode int

const (
	// Request only starts a load if the asset is NotLoaded or Failed.
	Request LoadMode = iota
	// Force always (re)starts a load, resetting state to Loading.
	Force
)

// assetInfo is everything the tracker keeps per live asset ID: its own
// state, its dependency bookkeeping, and the two waiter sets
// ProcessAssetLoad drains.
type assetInfo struct {
	id  ID
	typ AssetType

	handle           StrongHandle
	handleDropsToSkip int

	state          LoadState
	recursiveState LoadState
	err            error

	dependencies []ID // declared by the loader once loaded
	loadingDeps  map[ID]struct{}
	failedDeps   map[ID]struct{}

	dependentsWaitingOnLoad      map[ID]struct{} // ids whose own state depends on this one loading
	dependentsWaitingOnRecursive map[ID]struct{} // ids whose recursive state depends on this one's recursive state

	lastHash string // loader-declared dependency hash, for hot reload
}

func newAssetInfo(id ID, typ AssetType, handle StrongHandle) *assetInfo {
	return &assetInfo{
		id:                           id,
		typ:                          typ,
		handle:                       handle,
		state:                        NotLoaded,
		recursiveState:               NotLoaded,
		loadingDeps:                  make(map[ID]struct{}),
		failedDeps:                   make(map[ID]struct{}),
		dependentsWaitingOnLoad:      make(map[ID]struct{}),
		dependentsWaitingOnRecursive: make(map[ID]struct{}),
	}
}

// InternalEvent is what ProcessAssetLoad/ProcessAssetFail enqueue for
// HandleInternalAssetEvents to dispatch, and what LoadedWithDependencies
// observers (the public event stream) are fed from.
type InternalEvent struct {
	Kind InternalEventKind
	ID   ID
	Deps []ID
	Err  error
}

type InternalEventKind int

const (
	EventLoaded InternalEventKind = iota
	EventLoadedWithDependencies
	EventFailed
)

// Tracker owns the path->id registry and every assetInfo, guarded by one
// reader-writer lock: readers (GetLoadState, IsLoaded) take RLock; the
// mutating algorithms (GetOrCreatePathHandle, ProcessAssetLoad,
// ProcessAssetFail, ProcessHandleDrop) take Lock.
type Tracker struct {
	mu sync.RWMutex

	byPath map[string]ID // (path -> id), keyed per AssetType by storing type in the path key
	infos  map[ID]*assetInfo

	provider *HandleProvider

	pending []InternalEvent
}

// NewTracker returns an empty tracker minting handles from provider.
func NewTracker(provider *HandleProvider) *Tracker {
	return &Tracker{
		byPath:   make(map[string]ID),
		infos:    make(map[ID]*assetInfo),
		provider: provider,
	}
}

// Stats counts tracked assets by their own (non-recursive) LoadState, for
// the debug/operability surface Server.Snapshot exposes.
func (t *Tracker) Stats() map[LoadState]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	counts := make(map[LoadState]int, 4)
	for _, info := range t.infos {
		counts[info.state]++
	}
	return counts
}

func pathKey(path string, typ AssetType) string {
	return strconv.FormatUint(uint64(typ), 10) + ":" + path
}

// GetOrCreatePathHandle looks up (path, type); if absent, allocate a
// fresh strong handle and
// record an info in state Loading. If present but the previous handle is
// dead, revive it with a new strong handle for the same ID and bump
// handleDropsToSkip so the stale drop event, once it arrives, is absorbed
// rather than removing the live asset. Returns the handle and whether a
// load should be started given mode.
//
// info.handle is a non-owning copy: it shares the returned handle's
// refcount without adding to it, so IsAlive on it reports whether any
// caller still owns the asset.
func (t *Tracker) GetOrCreatePathHandle(path string, typ AssetType, mode LoadMode) (StrongHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pathKey(path, typ)
	if id, ok := t.byPath[key]; ok {
		info := t.infos[id]
		if info.handle.IsAlive() {
			shouldLoad := mode == Force || info.state == NotLoaded || info.state == Failed
			if shouldLoad {
				info.state = Loading
				info.recursiveState = Loading
			}
			return info.handle.Clone(), shouldLoad
		}
		// Revive: previous handle died but the drop hasn't been processed yet.
		info.handle = newStrongHandle(id, true, t.provider.drops)
		info.handleDropsToSkip++
		info.state = Loading
		info.recursiveState = Loading
		return info.handle, true
	}

	handle := t.provider.ReserveHandle(typ, true)
	id := handle.ID()
	info := newAssetInfo(id, typ, handle)
	info.state = Loading
	info.recursiveState = Loading
	t.byPath[key] = id
	t.infos[id] = info
	return handle, true
}

// ProcessAssetLoad records a completed load: its own state flips to Loaded,
// dependencies are registered and their current recursive states checked
// (not their own terminal-or-in-flight state, which only reports their own
// bytes, not their dependency closure), and any dependent waiting on id is
// re-evaluated. insert installs the typed asset into the per-type
// collection the caller owns; deps are the dependency IDs the loader
// declared.
func (t *Tracker) ProcessAssetLoad(id ID, deps []ID, insert func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.infos[id]
	if !ok {
		return // tolerate late events from a cancelled/forgotten task
	}

	insert()

	info.dependencies = deps
	info.loadingDeps = make(map[ID]struct{})
	info.failedDeps = make(map[ID]struct{})
	for _, dep := range deps {
		depInfo, known := t.infos[dep]
		if !known || depInfo.recursiveState == Loaded {
			continue
		}
		if depInfo.recursiveState == Failed {
			info.failedDeps[dep] = struct{}{}
			continue
		}
		info.loadingDeps[dep] = struct{}{}
		if depInfo.state == Loaded {
			// dep's own bytes are in, but its dependency closure isn't:
			// its one-time own-load notification already fired (or never
			// will again), so wait for its recursive transition directly.
			depInfo.dependentsWaitingOnRecursive[id] = struct{}{}
		} else {
			// dep hasn't loaded yet; its own ProcessAssetLoad call is
			// what first computes a recursive state worth acting on.
			depInfo.dependentsWaitingOnLoad[id] = struct{}{}
		}
	}

	info.state = Loaded
	t.recomputeRecursiveState(info, make(map[ID]struct{}))

	t.pending = append(t.pending, InternalEvent{Kind: EventLoaded, ID: id})

	waitingOnLoad := info.dependentsWaitingOnLoad
	info.dependentsWaitingOnLoad = make(map[ID]struct{})
	switch info.recursiveState {
	case Loaded:
		for dep := range waitingOnLoad {
			t.propagateLoadedState(dep, id)
		}
	case Failed:
		for dep := range waitingOnLoad {
			t.propagateFailedState(dep, id, info.err)
		}
	default:
		// info's own load just finished but it still has unresolved
		// nested dependencies: anyone who was only waiting on its own
		// load now needs to wait on its eventual recursive resolution
		// instead, same as a dependent that registered after info's own
		// load had already finished.
		for dep := range waitingOnLoad {
			info.dependentsWaitingOnRecursive[dep] = struct{}{}
		}
	}
}

func (t *Tracker) recomputeRecursiveState(info *assetInfo, visiting map[ID]struct{}) {
	if _, cyc := visiting[info.id]; cyc {
		return
	}
	visiting[info.id] = struct{}{}

	if info.state == Failed || len(info.failedDeps) > 0 {
		info.recursiveState = Failed
		return
	}
	if info.state != Loaded || len(info.loadingDeps) > 0 {
		info.recursiveState = Loading
		return
	}
	wasLoaded := info.recursiveState == Loaded
	info.recursiveState = Loaded
	if !wasLoaded {
		t.pending = append(t.pending, InternalEvent{Kind: EventLoadedWithDependencies, ID: info.id})
	}
}

// ProcessAssetFail sets both the asset's own state and its recursive state
// to Failed and propagates failure
// to every dependent, in both waiting sets.
func (t *Tracker) ProcessAssetFail(id ID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.infos[id]
	if !ok {
		return
	}
	info.state = Failed
	info.recursiveState = Failed
	info.err = err

	t.pending = append(t.pending, InternalEvent{Kind: EventFailed, ID: id, Err: err})

	loadWaiters := info.dependentsWaitingOnLoad
	info.dependentsWaitingOnLoad = make(map[ID]struct{})
	recWaiters := info.dependentsWaitingOnRecursive
	info.dependentsWaitingOnRecursive = make(map[ID]struct{})

	for dep := range loadWaiters {
		t.propagateFailedState(dep, id, err)
	}
	for dep := range recWaiters {
		t.propagateFailedState(dep, id, err)
	}
}

// propagateLoadedState is PropagateLoadedState: dependent's loading-set
// loses id, its dependency state is recomputed, and if that flips its
// recursive state to Loaded the walk continues into dependent's own
// dependents.
func (t *Tracker) propagateLoadedState(dependent, id ID) {
	info, ok := t.infos[dependent]
	if !ok {
		return
	}
	delete(info.loadingDeps, id)
	t.recomputeRecursiveState(info, make(map[ID]struct{}))
	if info.recursiveState == Loaded {
		waiting := info.dependentsWaitingOnRecursive
		info.dependentsWaitingOnRecursive = make(map[ID]struct{})
		for grandDependent := range waiting {
			t.propagateLoadedState(grandDependent, dependent)
		}
	}
}

// propagateFailedState is PropagateFailedState: failure is contagious
// through the recursive-state graph regardless of whether dependent's own
// load ever completes.
func (t *Tracker) propagateFailedState(dependent, id ID, err error) {
	info, ok := t.infos[dependent]
	if !ok {
		return
	}
	delete(info.loadingDeps, id)
	info.failedDeps[id] = struct{}{}
	info.recursiveState = Failed

	waiting := info.dependentsWaitingOnRecursive
	info.dependentsWaitingOnRecursive = make(map[ID]struct{})
	for grandDependent := range waiting {
		t.propagateFailedState(grandDependent, dependent, err)
	}
}

// ProcessHandleDrop absorbs a pending revival skip, or removes the info
// entirely and reports that the caller's storage should delete the asset's
// bytes.
func (t *Tracker) ProcessHandleDrop(id ID) (shouldRemoveStorage bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.infos[id]
	if !ok {
		return false
	}
	if info.handleDropsToSkip > 0 {
		info.handleDropsToSkip--
		return false
	}
	delete(t.infos, id)
	for path, pathID := range t.byPath {
		if pathID == id {
			delete(t.byPath, path)
			break
		}
	}
	return true
}

// GetLoadState returns id's own load state under a read lock.
func (t *Tracker) GetLoadState(id ID) LoadState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.infos[id]
	if !ok {
		return NotLoaded
	}
	return info.state
}

// RecursiveDependencyLoadState returns id's aggregate state across its
// transitive dependency closure.
func (t *Tracker) RecursiveDependencyLoadState(id ID) LoadState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.infos[id]
	if !ok {
		return NotLoaded
	}
	return info.recursiveState
}

// IsLoaded reports id.LoadState() == Loaded.
func (t *Tracker) IsLoaded(id ID) bool { return t.GetLoadState(id) == Loaded }

// DrainInternalEvents returns and clears every InternalEvent queued by
// ProcessAssetLoad/ProcessAssetFail since the last drain.
func (t *Tracker) DrainInternalEvents() []InternalEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}
