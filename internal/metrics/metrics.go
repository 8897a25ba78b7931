// Package metrics exposes RXS server observability as Prometheus
// collectors, using an optional, nil-safe collector pattern: pass a
// nil Collector to disable metrics with zero overhead.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records RXS dispatch-level metrics. A nil *PromCollector
// pointer satisfies this interface via the nil-receiver methods below,
// so callers never need a "metrics enabled" branch.
type Collector interface {
	RecordOperation(operation string, duration time.Duration, errCode string)
	RecordBytes(operation, direction string, n uint64)
	SessionOpened()
	SessionClosed()
}

// PromCollector is the Prometheus-backed Collector implementation.
type PromCollector struct {
	operations *prometheus.HistogramVec
	bytesTotal *prometheus.CounterVec
	sessions   prometheus.Gauge
}

// NewPromCollector registers and returns a fresh set of collectors
// against reg (typically prometheus.DefaultRegisterer).
func NewPromCollector(reg prometheus.Registerer) *PromCollector {
	c := &PromCollector{
		operations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rxs",
			Subsystem: "server",
			Name:      "operation_duration_seconds",
			Help:      "Duration of dispatched RXS operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "error"}),
		bytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rxs",
			Subsystem: "server",
			Name:      "bytes_total",
			Help:      "Bytes transferred over RXS data channels.",
		}, []string{"operation", "direction"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rxs",
			Subsystem: "server",
			Name:      "sessions_active",
			Help:      "Currently active RXS control-channel sessions.",
		}),
	}
	reg.MustRegister(c.operations, c.bytesTotal, c.sessions)
	return c
}

func (c *PromCollector) RecordOperation(operation string, duration time.Duration, errCode string) {
	if c == nil {
		return
	}
	c.operations.WithLabelValues(operation, errCode).Observe(duration.Seconds())
}

func (c *PromCollector) RecordBytes(operation, direction string, n uint64) {
	if c == nil {
		return
	}
	c.bytesTotal.WithLabelValues(operation, direction).Add(float64(n))
}

func (c *PromCollector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessions.Inc()
}

func (c *PromCollector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessions.Dec()
}
