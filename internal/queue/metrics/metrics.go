// Package metrics wires queue-depth and throughput counters into both of
// the monitoring stacks the example pack carries: elastic-agent-libs's
// monitoring.Registry (the teacher's own choice, see
// publisher/pipeline/module.go) and, additively, Prometheus client_golang
// collectors (as used throughout ghjramos-aistore) for deployments that
// scrape Prometheus instead of shipping to the monitoring registry.
package metrics

import (
	"github.com/elastic/elastic-agent-libs/monitoring"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter/gauge a Queue reports. A nil *Metrics is
// valid everywhere and simply discards updates, so callers that don't
// care about observability can pass nil to queue.New.
type Metrics struct {
	size      *monitoring.Uint
	enqueued  *monitoring.Uint
	dequeued  *monitoring.Uint
	dropped   *monitoring.Uint
	errored   *monitoring.Uint
	segments  *monitoring.Uint

	promSize     prometheus.Gauge
	promEnqueued prometheus.Counter
	promDequeued prometheus.Counter
	promDropped  prometheus.Counter
	promErrored  prometheus.Counter
}

// NewRegistryMetrics registers queue counters under reg, a sub-registry a
// caller typically names after the queue (e.g. "queue.mainq").
func NewRegistryMetrics(reg *monitoring.Registry) *Metrics {
	if reg == nil {
		return nil
	}
	return &Metrics{
		size:     monitoring.NewUint(reg, "size"),
		enqueued: monitoring.NewUint(reg, "enqueued"),
		dequeued: monitoring.NewUint(reg, "dequeued"),
		dropped:  monitoring.NewUint(reg, "dropped"),
		errored:  monitoring.NewUint(reg, "errored"),
		segments: monitoring.NewUint(reg, "disk.segments"),
	}
}

// WithPrometheus attaches Prometheus collectors to an existing Metrics,
// registering them against reg. Calling this on a nil Metrics is a no-op,
// matching the nil-safety of the rest of this package.
func (m *Metrics) WithPrometheus(reg prometheus.Registerer, namespace, queueName string) *Metrics {
	if m == nil || reg == nil {
		return m
	}
	labels := prometheus.Labels{"queue": queueName}
	m.promSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Name: "queue_size", ConstLabels: labels,
	})
	m.promEnqueued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "queue_enqueued_total", ConstLabels: labels,
	})
	m.promDequeued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "queue_dequeued_total", ConstLabels: labels,
	})
	m.promDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "queue_dropped_total", ConstLabels: labels,
	})
	m.promErrored = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "queue_errored_total", ConstLabels: labels,
	})
	reg.MustRegister(m.promSize, m.promEnqueued, m.promDequeued, m.promDropped, m.promErrored)
	return m
}

func (m *Metrics) SetSize(n int) {
	if m == nil {
		return
	}
	m.size.Set(uint64(n))
	if m.promSize != nil {
		m.promSize.Set(float64(n))
	}
}

func (m *Metrics) IncEnqueued() {
	if m == nil {
		return
	}
	m.enqueued.Inc()
	if m.promEnqueued != nil {
		m.promEnqueued.Inc()
	}
}

func (m *Metrics) IncDequeued() {
	if m == nil {
		return
	}
	m.dequeued.Inc()
	if m.promDequeued != nil {
		m.promDequeued.Inc()
	}
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
	if m.promDropped != nil {
		m.promDropped.Inc()
	}
}

func (m *Metrics) IncErrored() {
	if m == nil {
		return
	}
	m.errored.Inc()
	if m.promErrored != nil {
		m.promErrored.Inc()
	}
}

func (m *Metrics) SetSegments(n int) {
	if m == nil {
		return
	}
	m.segments.Set(uint64(n))
}
