package queue

import "github.com/prometheus/client_golang/prometheus"

// MetricsRegisterer is the narrow prometheus.Registerer seam the engine
// needs, so callers can pass either the global registry or a scoped one
// built for tests without pulling prometheus into every call site.
type MetricsRegisterer interface {
	MustRegister(...prometheus.Collector)
}

// queueMetrics are the gauges/counters mirroring GetSize/QueuesDetail's
// on-demand state for scrape-based dashboards and alerting.
type queueMetrics struct {
	size       *prometheus.GaugeVec
	pushed     *prometheus.CounterVec
	popped     *prometheus.CounterVec
	acked      *prometheus.CounterVec
	reclaimed  *prometheus.CounterVec
	reclaimDur prometheus.Histogram
}

func newQueueMetrics(reg MetricsRegisterer) *queueMetrics {
	m := &queueMetrics{
		size: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "workq",
			Name:      "queue_size",
			Help:      "Current number of unacked messages per queue.",
		}, []string{"queue"}),
		pushed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workq",
			Name:      "messages_pushed_total",
			Help:      "Messages pushed per queue.",
		}, []string{"queue"}),
		popped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workq",
			Name:      "messages_popped_total",
			Help:      "Messages popped (delivered) per queue.",
		}, []string{"queue"}),
		acked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workq",
			Name:      "messages_acked_total",
			Help:      "Messages acknowledged per queue.",
		}, []string{"queue"}),
		reclaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workq",
			Name:      "messages_reclaimed_total",
			Help:      "Messages recycled by the unack reclaimer, per queue.",
		}, []string{"queue"}),
		reclaimDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workq",
			Name:      "reclaim_tick_seconds",
			Help:      "Duration of a single unack-reclaim sweep.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.size, m.pushed, m.popped, m.acked, m.reclaimed, m.reclaimDur)
	}
	return m
}
