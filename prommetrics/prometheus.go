package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/tracegc"
)

const defaultNamespace = "tracegc"

// Collector implements tracegc.MetricsCollector on top of Prometheus
// collectors.
type Collector struct {
	opLatency      *prometheus.HistogramVec
	cycles         *prometheus.CounterVec
	swept          prometheus.Counter
	bytesReclaimed prometheus.Counter
	pinnedRetained prometheus.Counter
	liveObjects    prometheus.Gauge
	lastMarked     prometheus.Gauge
	resolves       *prometheus.CounterVec
}

var _ tracegc.MetricsCollector = (*Collector)(nil)

type options struct {
	namespace string
	buckets   []float64
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric namespace. The default is "tracegc".
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(buckets []float64) Option {
	return func(o *options) {
		if len(buckets) > 0 {
			o.buckets = buckets
		}
	}
}

// New creates a Collector and registers its metrics with reg.
func New(reg prometheus.Registerer, optFns ...Option) (*Collector, error) {
	o := options{
		namespace: defaultNamespace,
		buckets:   prometheus.DefBuckets,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of collector operations",
			Buckets:   o.buckets,
		}, []string{"op", "status"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "cycles_total",
			Help:      "Total collection cycles",
		}, []string{"status"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "swept_objects_total",
			Help:      "Total objects reclaimed",
		}),
		bytesReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "reclaimed_bytes_total",
			Help:      "Total bytes reported by finalization",
		}),
		pinnedRetained: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "pinned_retained_total",
			Help:      "Unmarked objects kept because they were pinned during a cycle",
		}),
		liveObjects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "live_objects",
			Help:      "Live objects after the most recent cycle",
		}),
		lastMarked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "marked_objects",
			Help:      "Objects marked by the most recent cycle",
		}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "weak_resolves_total",
			Help:      "Weak handle resolutions",
		}, []string{"result"}),
	}

	for _, m := range []prometheus.Collector{
		c.opLatency, c.cycles, c.swept, c.bytesReclaimed,
		c.pinnedRetained, c.liveObjects, c.lastMarked, c.resolves,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is like New but panics if registration fails.
func MustNew(reg prometheus.Registerer, optFns ...Option) *Collector {
	c, err := New(reg, optFns...)
	if err != nil {
		panic(err)
	}
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRegister implements tracegc.MetricsCollector.
func (c *Collector) RecordRegister(duration time.Duration, err error) {
	c.opLatency.WithLabelValues("register", status(err)).Observe(duration.Seconds())
}

// RecordCollect implements tracegc.MetricsCollector.
func (c *Collector) RecordCollect(stats tracegc.CollectionStats, err error) {
	c.opLatency.WithLabelValues("collect", status(err)).Observe(stats.Duration.Seconds())
	c.cycles.WithLabelValues(status(err)).Inc()
	if stats.Cycle == 0 {
		// Aborted before the sweep.
		return
	}
	c.swept.Add(float64(stats.Swept))
	c.bytesReclaimed.Add(float64(stats.BytesReclaimed))
	c.pinnedRetained.Add(float64(stats.PinnedRetained))
	c.liveObjects.Set(float64(stats.Live))
	c.lastMarked.Set(float64(stats.Marked))
}

// RecordFinalize implements tracegc.MetricsCollector.
func (c *Collector) RecordFinalize(duration time.Duration, err error) {
	c.opLatency.WithLabelValues("finalize", status(err)).Observe(duration.Seconds())
}

// RecordResolve implements tracegc.MetricsCollector.
func (c *Collector) RecordResolve(hit bool) {
	if hit {
		c.resolves.WithLabelValues("hit").Inc()
	} else {
		c.resolves.WithLabelValues("miss").Inc()
	}
}
