// Package metrics is a thin abstraction over Prometheus so the engine can be
// used with or without metrics, following the same noop-vs-Prometheus sink
// factory shape as asset/store/metrics.go, generalized here from one cache
// object to world/scheduler/asset. When a caller passes a
// *prometheus.Registry the hot path pays for labeled metric updates;
// otherwise New returns a no-op sink and nothing is collected.
//
// © 2025 verseengine authors. MIT License.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sink is the engine-wide metrics surface: world/scheduler/asset all record
// through the same interface so a single Registry can back all three.
type Sink interface {
	SetWorldEntities(n int)
	SetWorldArchetypes(n int)
	AddChunkMoves(n int)

	ObserveSystemDuration(system string, d time.Duration)
	IncSystemPanic(system string)

	IncAssetLoad(state string)
	ObserveAssetLoadDuration(d time.Duration)
	IncAssetDrop()
}

// noop implements Sink with every method empty; used when no registry is
// supplied to New.
type noop struct{}

func (noop) SetWorldEntities(int)                      {}
func (noop) SetWorldArchetypes(int)                    {}
func (noop) AddChunkMoves(int)                         {}
func (noop) ObserveSystemDuration(string, time.Duration) {}
func (noop) IncSystemPanic(string)                     {}
func (noop) IncAssetLoad(string)                       {}
func (noop) ObserveAssetLoadDuration(time.Duration)    {}
func (noop) IncAssetDrop()                             {}

// prom implements Sink by registering the engine's metric names against the
// supplied registry.
type prom struct {
	worldEntities    prometheus.Gauge
	worldArchetypes  prometheus.Gauge
	chunkMoves       prometheus.Counter
	systemDuration   *prometheus.HistogramVec
	systemPanics     *prometheus.CounterVec
	assetLoads       *prometheus.CounterVec
	assetLoadSeconds prometheus.Histogram
	assetDrops       prometheus.Counter
}

func newProm(reg *prometheus.Registry) *prom {
	p := &prom{
		worldEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "world", Name: "entities",
			Help: "Number of live entities in the world.",
		}),
		worldArchetypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "world", Name: "archetypes",
			Help: "Number of distinct archetypes currently interned.",
		}),
		chunkMoves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "world", Name: "chunk_moves_total",
			Help: "Number of times an entity moved between archetype chunks.",
		}),
		systemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler", Name: "system_duration_seconds",
			Help: "Wall-clock duration of one system's Run call.",
		}, []string{"system"}),
		systemPanics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler", Name: "system_panics_total",
			Help: "Number of times a system's Run call panicked.",
		}, []string{"system"}),
		assetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asset", Name: "loads_total",
			Help: "Number of asset loads, by terminal state.",
		}, []string{"state"}),
		assetLoadSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "asset", Name: "load_duration_seconds",
			Help: "Wall-clock duration of one asset load (I/O plus loader).",
		}),
		assetDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "asset", Name: "drops_total",
			Help: "Number of asset handles dropped and removed from storage.",
		}),
	}
	reg.MustRegister(p.worldEntities, p.worldArchetypes, p.chunkMoves,
		p.systemDuration, p.systemPanics, p.assetLoads, p.assetLoadSeconds, p.assetDrops)
	return p
}

func (p *prom) SetWorldEntities(n int)   { p.worldEntities.Set(float64(n)) }
func (p *prom) SetWorldArchetypes(n int) { p.worldArchetypes.Set(float64(n)) }
func (p *prom) AddChunkMoves(n int)      { p.chunkMoves.Add(float64(n)) }

func (p *prom) ObserveSystemDuration(system string, d time.Duration) {
	p.systemDuration.WithLabelValues(system).Observe(d.Seconds())
}
func (p *prom) IncSystemPanic(system string) { p.systemPanics.WithLabelValues(system).Inc() }

func (p *prom) IncAssetLoad(state string)                   { p.assetLoads.WithLabelValues(state).Inc() }
func (p *prom) ObserveAssetLoadDuration(d time.Duration)     { p.assetLoadSeconds.Observe(d.Seconds()) }
func (p *prom) IncAssetDrop()                                { p.assetDrops.Add(1) }

// New returns a no-op Sink if reg is nil, otherwise a Sink backed by reg.
func New(reg *prometheus.Registry) Sink {
	if reg == nil {
		return noop{}
	}
	return newProm(reg)
}
