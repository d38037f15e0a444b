package acktracker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NoOpObserver discards every event. It is the default Observer used
// when a caller passes nil to a constructor.
type NoOpObserver struct{}

func (NoOpObserver) ObserveTrack()                            {}
func (NoOpObserver) ObserveAck(string)                        {}
func (NoOpObserver) ObserveSave()                              {}
func (NoOpObserver) ObserveCreditsReturned(uint32)             {}
func (NoOpObserver) ObserveBatchFlushed(int, string)           {}
func (NoOpObserver) ObserveWindowExhausted()                   {}

var _ Observer = NoOpObserver{}

// Metrics is a prometheus-backed Observer implementation: every tracker
// event becomes a counter or histogram observation on a private
// registry, rather than the teacher's hand-rolled atomic counters plus
// a manual percentile histogram (DESIGN.md: a concrete ecosystem
// metrics library is available, so this is exactly the kind of stdlib
// rendering the "wire it or justify it" rule asks us to replace).
type Metrics struct {
	registry *prometheus.Registry

	tracksTotal            prometheus.Counter
	acksTotal              *prometheus.CounterVec
	savesTotal             prometheus.Counter
	creditsReturnedTotal   prometheus.Counter
	batchesFlushed         *prometheus.CounterVec
	batchSizeHistogram     prometheus.Histogram
	windowExhaustedTotal   prometheus.Counter
}

// NewMetrics creates a Metrics observer registered on a fresh, private
// prometheus.Registry (never the global DefaultRegisterer, so multiple
// trackers in the same process never collide on metric names).
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.tracksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "tracked_total",
		Help: "Total messages handed an ack-tracking slot.",
	})
	m.acksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "acked_total",
		Help: "Total acks received, labeled by ack type.",
	}, []string{"ack_type"})
	m.savesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "bookmark_saves_total",
		Help: "Total bookmark save callback invocations.",
	})
	m.creditsReturnedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "flow_control_credits_returned_total",
		Help: "Total flow-control credits returned to the source.",
	})
	m.batchesFlushed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "batches_flushed_total",
		Help: "Total batches handed to the on_batch callback, labeled by flush reason.",
	}, []string{"reason"})
	m.batchSizeHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "batch_size",
		Help:    "Distribution of flushed batch sizes.",
		Buckets: prometheus.LinearBuckets(1, 8, 16),
	})
	m.windowExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "window_exhausted_total",
		Help: "Total RequestBookmark calls refused for a full static window.",
	})

	m.registry.MustRegister(
		m.tracksTotal, m.acksTotal, m.savesTotal, m.creditsReturnedTotal,
		m.batchesFlushed, m.batchSizeHistogram, m.windowExhaustedTotal,
	)
	return m
}

// Registry exposes the private registry so callers can serve it (e.g.
// via promhttp.HandlerFor) without risking collision with other
// trackers' metrics in the same process.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveTrack() { m.tracksTotal.Inc() }

func (m *Metrics) ObserveAck(ackType string) { m.acksTotal.WithLabelValues(ackType).Inc() }

func (m *Metrics) ObserveSave() { m.savesTotal.Inc() }

func (m *Metrics) ObserveCreditsReturned(n uint32) { m.creditsReturnedTotal.Add(float64(n)) }

func (m *Metrics) ObserveBatchFlushed(size int, reason string) {
	m.batchesFlushed.WithLabelValues(reason).Inc()
	m.batchSizeHistogram.Observe(float64(size))
}

func (m *Metrics) ObserveWindowExhausted() { m.windowExhaustedTotal.Inc() }

var _ Observer = (*Metrics)(nil)
