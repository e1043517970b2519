// Package engine dispatches update, query, reset, serialize and merge calls to
// the sketches held by a registry, taking each entry's lock for the duration
// of the underlying sketch operation.
package engine

import (
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/logger"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/metrics"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

// DefaultCacheSize is the number of serialized images kept by default.
const DefaultCacheSize = 256

// Image is a serialized sketch with the metadata needed to interpret it.
type Image struct {
	Name      string
	Family    sketches.Family
	ValueType sketches.ValueType
	Data      []byte
}

type cachedImage struct {
	version uint64
	data    []byte
}

// Engine is safe for concurrent use.
type Engine struct {
	reg     *registry.Registry
	log     *logger.Logger
	metrics *metrics.Metrics
	cache   *lru.Cache[string, cachedImage]
}

// Option configures an Engine.
type Option func(*config)

type config struct {
	log       *logger.Logger
	metrics   *metrics.Metrics
	cacheSize int
}

// WithLogger sets the engine's logger.
func WithLogger(l *logger.Logger) Option { return func(c *config) { c.log = l } }

// WithMetrics sets the engine's metrics. Without it nothing is recorded.
func WithMetrics(m *metrics.Metrics) Option { return func(c *config) { c.metrics = m } }

// WithCacheSize bounds the serialize cache. Zero or less disables it.
func WithCacheSize(n int) Option { return func(c *config) { c.cacheSize = n } }

// New returns an engine over reg.
func New(reg *registry.Registry, opts ...Option) *Engine {
	c := config{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	e := &Engine{reg: reg, log: c.log, metrics: c.metrics}
	if c.cacheSize > 0 {
		// lru.New only fails for a non-positive size.
		e.cache, _ = lru.New[string, cachedImage](c.cacheSize)
	}
	return e
}

// Registry returns the registry the engine dispatches to.
func (e *Engine) Registry() *registry.Registry { return e.reg }

func (e *Engine) cached(name string, version uint64) ([]byte, bool) {
	if e.cache == nil {
		return nil, false
	}
	c, ok := e.cache.Get(name)
	hit := ok && c.version == version
	e.metrics.CacheLookup(hit)
	if !hit {
		return nil, false
	}
	return slices.Clone(c.data), true
}

func (e *Engine) store(name string, version uint64, data []byte) {
	if e.cache != nil {
		e.cache.Add(name, cachedImage{version: version, data: slices.Clone(data)})
	}
}
