package asset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xentripetal/verseengine/config"
	"github.com/xentripetal/verseengine/metrics"
)

// ErrMetaDirective is returned when a meta sidecar's Asset.Type is
// Process or Ignore: those directives belong to an offline asset
// pipeline, not the runtime loader.
type ErrMetaDirective struct {
	Path string
	Kind MetaKind
}

func (e *ErrMetaDirective) Error() string {
	return fmt.Sprintf("asset: %s has meta directive %s, which the runtime loader does not process", e.Path, e.Kind)
}

// ErrNoLoader is returned when no registered Loader claims a path by name,
// type and extension.
type ErrNoLoader struct{ Path string }

func (e *ErrNoLoader) Error() string { return fmt.Sprintf("asset: no loader claims %q", e.Path) }

// Server is the asset runtime: it owns the tracker, handle provider,
// per-type asset storage, the loader registry, and the two internal/public
// event queues HandleInternalAssetEvents and ProcessAssetDrops drain every
// tick. Loads run on Go's own goroutine scheduler rather than a bespoke
// task pool; singleflight collapses concurrent loads of the same path into
// one in-flight task, the same way asset/store's byte cache collapses
// concurrent misses on the same key one layer below.
type Server struct {
	mu sync.RWMutex

	source  AssetSource
	sources map[string]AssetSource // named alternate sources, keyed by Path.Source

	tracker  *Tracker
	provider *HandleProvider
	store    *collections

	loadersByName map[string]Loader
	loadersByExt  map[extKey]Loader

	group singleflight.Group

	internal chan InternalEvent
	failed   *Events[LoadFailedEvent]
	loaded   *Events[LoadedEvent]

	sink metrics.Sink
}

type extKey struct {
	typ AssetType
	ext string
}

// Config holds Server's construction-time options: a logger and an
// optional metrics registry, following the same Observability-embedding
// pattern ecs.Config and scheduler.Config use.
type Config struct {
	config.Observability
}

func defaultConfig() Config {
	return Config{Observability: config.DefaultObservability()}
}

// Option configures a Server at construction time.
type Option = config.Option[Config]

// WithLogger stores l as the server's logger. The Server itself writes no
// log entries through it.
func WithLogger(l *zap.Logger) Option {
	return config.WithLogger(func(c *Config) *config.Observability { return &c.Observability }, l)
}

// WithMetrics enables Prometheus collection for asset_loads_total,
// asset_load_duration_seconds and asset_drops_total.
func WithMetrics(reg *prometheus.Registry) Option {
	return config.WithMetrics(func(c *Config) *config.Observability { return &c.Observability }, reg)
}

// NewServer returns a Server reading from defaultSource unless a path
// names an alternate registered source.
func NewServer(defaultSource AssetSource, opts ...Option) *Server {
	cfg := defaultConfig()
	config.Apply(&cfg, opts)

	provider := NewHandleProvider()
	return &Server{
		source:        defaultSource,
		sources:       make(map[string]AssetSource),
		tracker:       NewTracker(provider),
		provider:      provider,
		store:         newCollections(),
		loadersByName: make(map[string]Loader),
		loadersByExt:  make(map[extKey]Loader),
		internal:      make(chan InternalEvent, 4096),
		failed:        NewEvents[LoadFailedEvent](),
		loaded:        NewEvents[LoadedEvent](),
		sink:          metrics.New(cfg.Registry),
	}
}

// RegisterSource adds an alternate AssetSource selectable via the
// `name://` prefix of an asset path.
func (s *Server) RegisterSource(name string, src AssetSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = src
}

// RegisterLoader adds l to both the by-name and by-(type,extension)
// loader indexes.
func (s *Server) RegisterLoader(typ AssetType, l Loader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadersByName[l.Name()] = l
	for _, ext := range l.Extensions() {
		s.loadersByExt[extKey{typ: typ, ext: strings.ToLower(ext)}] = l
	}
}

func (s *Server) sourceFor(name string) AssetSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		return s.source
	}
	if src, ok := s.sources[name]; ok {
		return src
	}
	return s.source
}

func (s *Server) selectLoader(typ AssetType, path string, name string) (Loader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name != "" {
		if l, ok := s.loadersByName[name]; ok {
			return l, nil
		}
		return nil, &ErrNoLoader{Path: path}
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if l, ok := s.loadersByExt[extKey{typ: typ, ext: ext}]; ok {
		return l, nil
	}
	return nil, &ErrNoLoader{Path: path}
}

// Load[T] starts loading path (in mode Request, i.e. skipping an already
// loaded/loading asset) and returns immediately with a strong handle. The
// actual I/O and loader invocation run in a background goroutine;
// HandleInternalAssetEvents dispatches the result once it completes.
func Load[T any](s *Server, path string) Handle[T] {
	typ := TypeOf[T]()
	p := ParsePath(path)
	handle, shouldLoad := s.tracker.GetOrCreatePathHandle(p.Path, typ, Request)
	id := handle.ID()
	if shouldLoad {
		s.spawnLoad(context.Background(), id, p, typ)
	}
	return StrongOf[T](handle)
}

// Reload force-starts a fresh load of path even if it's already
// Loaded, resetting its state to Loading.
func Reload[T any](s *Server, path string) Handle[T] {
	typ := TypeOf[T]()
	p := ParsePath(path)
	handle, _ := s.tracker.GetOrCreatePathHandle(p.Path, typ, Force)
	s.spawnLoad(context.Background(), handle.ID(), p, typ)
	return StrongOf[T](handle)
}

func (s *Server) spawnLoad(ctx context.Context, id ID, p Path, typ AssetType) {
	key := fmt.Sprintf("%d:%s", typ, p.Path)
	go func() {
		start := time.Now()
		_, _, _ = s.group.Do(key, func() (any, error) {
			value, deps, err := s.runLoad(ctx, p, typ)
			s.sink.ObserveAssetLoadDuration(time.Since(start))
			if err != nil {
				s.sink.IncAssetLoad("failed")
				s.internal <- InternalEvent{Kind: EventFailed, ID: id, Err: err}
				return nil, err
			}
			s.store.of(typ).set(id.Index().Slot(), value)
			s.sink.IncAssetLoad("loaded")
			s.internal <- InternalEvent{Kind: EventLoaded, ID: id, Deps: deps}
			return value, nil
		})
	}()
}

func (s *Server) runLoad(ctx context.Context, p Path, typ AssetType) (any, []ID, error) {
	src := s.sourceFor(p.Source)

	meta := defaultMeta()
	metaStream, err := src.ReadMeta(p.Path)
	if err == nil {
		defer metaStream.Close()
		if parsed, perr := ParseMeta(metaStream); perr == nil {
			meta = parsed
		}
	} else if err != ErrNotFound {
		return nil, nil, err
	}

	if meta.Asset.Type == MetaProcess || meta.Asset.Type == MetaIgnore {
		return nil, nil, &ErrMetaDirective{Path: p.Path, Kind: meta.Asset.Type}
	}

	loader, err := s.selectLoader(typ, p.Path, meta.Asset.Name)
	if err != nil {
		return nil, nil, err
	}

	stream, err := src.Read(p.Path)
	if err != nil {
		return nil, nil, err
	}
	defer stream.Close()

	lctx := newLoadContext(p, func(depPath string) (ID, error) {
		depTyp := typ // dependency type resolution is loader-specific; the
		// engine does not know T for a dependency declared by path alone,
		// so dependencies are tracked under the requesting asset's own type
		// unless the loader resolves a concrete sub-loader itself.
		handle, shouldLoad := s.tracker.GetOrCreatePathHandle(depPath, depTyp, Request)
		id := handle.ID()
		if shouldLoad {
			s.spawnLoad(ctx, id, ParsePath(depPath), depTyp)
		}
		return id, nil
	})

	var settings []byte
	if len(meta.Asset.LoaderSettings.Inner) > 0 {
		settings = meta.Asset.LoaderSettings.Inner
	}

	value, err := loader.Load(lctx, stream, settings)
	if err != nil {
		return nil, nil, err
	}
	return value, lctx.Dependencies(), nil
}

// GetLoadState reads id's own load state.
func (s *Server) GetLoadState(id ID) LoadState { return s.tracker.GetLoadState(id) }

// IsLoaded reports whether id's own load state is Loaded.
func (s *Server) IsLoaded(id ID) bool { return s.tracker.IsLoaded(id) }

// GetAsset[T] returns the loaded value for handle, or false if it hasn't
// loaded yet.
func GetAsset[T any](s *Server, h Handle[T]) (T, bool) {
	var zero T
	id := h.ID()
	v, ok := s.store.of(id.Type()).get(id.Index().Slot())
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// ProcessAssetDrops[T] drains every pending DropEvent for T's asset type
// under an exclusive lock: for each, either the storage slot is cleared
// (the tracker approved removal) or the drop is discarded (superseded by a
// revival).
func ProcessAssetDrops[T any](s *Server) {
	typ := TypeOf[T]()
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.store.of(typ)
	ch := s.provider.DropEvents(typ)
	for {
		select {
		case ev := <-ch:
			if s.tracker.ProcessHandleDrop(ev.ID) {
				col.remove(ev.ID.Index().Slot())
				s.sink.IncAssetDrop()
			}
		default:
			return
		}
	}
}

// HandleInternalAssetEvents is the system that drains pending load results:
// under an exclusive lock, drain the internal event channel and dispatch
// Loaded/LoadedWithDependencies/Failed to the tracker, then rotate the
// public event frames.
func (s *Server) HandleInternalAssetEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		select {
		case ev := <-s.internal:
			switch ev.Kind {
			case EventLoaded:
				s.tracker.ProcessAssetLoad(ev.ID, ev.Deps, func() {})
				s.loaded.Send(LoadedEvent{ID: ev.ID})
			case EventFailed:
				s.tracker.ProcessAssetFail(ev.ID, ev.Err)
				s.failed.Send(LoadFailedEvent{ID: ev.ID, Err: ev.Err})
			}
		default:
			for _, internalEv := range s.tracker.DrainInternalEvents() {
				if internalEv.Kind == EventLoadedWithDependencies {
					s.loaded.Send(LoadedEvent{ID: internalEv.ID})
				}
			}
			s.failed.Update()
			s.loaded.Update()
			return
		}
	}
}

// Snapshot is a point-in-time debug view of the server's load state,
// consumed by cmd/verseengine-inspect's debug endpoint. Counts are by
// LoadState.String() rather than the raw LoadState int so the JSON survives
// a future reordering of the LoadState constants.
type Snapshot struct {
	ByState       map[string]int `json:"by_state"`
	PendingEvents int            `json:"pending_events"`
}

// Snapshot returns the current tracker state counts plus the number of
// internal events not yet drained by HandleInternalAssetEvents.
func (s *Server) Snapshot() Snapshot {
	byState := make(map[string]int, 4)
	for state, n := range s.tracker.Stats() {
		byState[state.String()] = n
	}
	return Snapshot{ByState: byState, PendingEvents: len(s.internal)}
}

// NewLoadedReader/NewFailedReader return a per-consumer cursor into the
// public event streams, matching the two-frame-rotation independent-reader
// semantics Events[T] implements.
func (s *Server) NewLoadedReader() *Reader[LoadedEvent]     { return NewReader(s.loaded) }
func (s *Server) NewFailedReader() *Reader[LoadFailedEvent] { return NewReader(s.failed) }
