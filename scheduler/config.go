package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/xentripetal/verseengine/config"
)

// Config holds an executor's construction-time options: a logger and an
// optional metrics registry, following the same Observability-embedding
// pattern ecs.Config and asset.Config use.
type Config struct {
	config.Observability
}

func defaultConfig() Config {
	return Config{Observability: config.DefaultObservability()}
}

// Option configures an executor at construction time.
type Option = config.Option[Config]

// WithLogger stores l in the executor's Config. Distinct from the Logger
// interface passed positionally to NewSingleThreadedExecutor/
// NewParallelExecutor, which receives panic text; the executors write
// nothing through this one.
func WithLogger(l *zap.Logger) Option {
	return config.WithLogger(func(c *Config) *config.Observability { return &c.Observability }, l)
}

// WithMetrics enables Prometheus collection for scheduler_system_duration_seconds
// and scheduler_system_panics_total, both labeled by system name.
func WithMetrics(reg *prometheus.Registry) Option {
	return config.WithMetrics(func(c *Config) *config.Observability { return &c.Observability }, reg)
}
