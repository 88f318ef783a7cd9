// Package config is the shared functional-options plumbing used by
// ecs.NewWorld, the scheduler executors and asset.NewServer: each package
// owns its own configuration struct, but all of them are built the same
// way — a slice of Option[T] applied in order over a struct seeded with
// sane defaults. Apply performs no validation, and none of these packages
// adds a validation step of its own.
//
// © 2025 verseengine authors. MIT License.
package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option mutates a package's own configuration struct. T is that package's
// concrete config type (ecs.Config, scheduler.Config, asset.Config, ...).
type Option[T any] func(*T)

// Apply runs every option over target, in order, skipping nil options.
// Options never fail and the result is not validated.
func Apply[T any](target *T, opts []Option[T]) {
	for _, opt := range opts {
		if opt != nil {
			opt(target)
		}
	}
}

// Observability bundles the two cross-cutting knobs every package accepts:
// a logger (default zap.NewNop()) and an optional Prometheus registry
// (default nil, meaning metrics stay no-op). Packages embed this rather
// than redeclaring the same two fields.
type Observability struct {
	Logger   *zap.Logger
	Registry *prometheus.Registry
}

// DefaultObservability returns the zero-cost defaults: a no-op logger and
// no metrics registry.
func DefaultObservability() Observability {
	return Observability{Logger: zap.NewNop()}
}

// WithLogger returns an option that plugs l into any config embedding
// Observability, via the accessor fn the owning package supplies.
func WithLogger[T any](fn func(*T) *Observability, l *zap.Logger) Option[T] {
	return func(t *T) {
		if l != nil {
			fn(t).Logger = l
		}
	}
}

// WithMetrics returns an option that plugs reg into any config embedding
// Observability. Passing nil disables metrics (the default).
func WithMetrics[T any](fn func(*T) *Observability, reg *prometheus.Registry) Option[T] {
	return func(t *T) {
		fn(t).Registry = reg
	}
}
