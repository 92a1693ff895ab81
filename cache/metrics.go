package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "sfxcache"
	metricsSubsystem = "cache"
)

// metrics mirrors the cache counters into Prometheus collectors.
// A nil *metrics is valid and records nothing.
type metrics struct {
	reg        prometheus.Registerer
	hits       prometheus.Counter
	misses     prometheus.Counter
	loadErrors prometheus.Counter
	evictions  prometheus.Counter
	bytes      prometheus.Gauge
	pinned     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      name,
			Help:      help,
		})
	}

	m := &metrics{
		reg:        reg,
		hits:       counter("hits_total", "Locks served from a resident buffer."),
		misses:     counter("misses_total", "Locks that had to load a buffer."),
		loadErrors: counter("load_errors_total", "Loads that failed."),
		evictions:  counter("evictions_total", "Buffers evicted to make room or flushed."),
		bytes:      gauge("bytes", "Resident buffer bytes."),
		pinned:     gauge("pinned_entries", "Buffers holding at least one pin."),
	}

	var registered []prometheus.Collector
	for _, col := range m.collectors() {
		if err := reg.Register(col); err != nil {
			for _, r := range registered {
				reg.Unregister(r)
			}
			return nil, errors.Join(errors.New("cache: register metrics"), err)
		}
		registered = append(registered, col)
	}
	return m, nil
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.hits, m.misses, m.loadErrors, m.evictions, m.bytes, m.pinned}
}

func (m *metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *metrics) loadError() {
	if m != nil {
		m.loadErrors.Inc()
	}
}

func (m *metrics) evict(bytes int64) {
	if m != nil {
		m.evictions.Inc()
		m.bytes.Set(float64(bytes))
	}
}

func (m *metrics) setBytes(bytes int64) {
	if m != nil {
		m.bytes.Set(float64(bytes))
	}
}

func (m *metrics) setPinned(n int) {
	if m != nil {
		m.pinned.Set(float64(n))
	}
}

// unregister removes the collectors so a new cache can reuse the registerer.
func (c *Cache) unregister() {
	if c.metrics == nil {
		return
	}
	for _, col := range c.metrics.collectors() {
		c.metrics.reg.Unregister(col)
	}
}
