package tracegc

import (
	"log/slog"
	"math"

	"github.com/hupe1980/tracegc/resource"
)

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	maxObjects        uint32
	maxPins           uint32
	memoryLimit       int64
	sizeFunc          SizeFunc
	finalize          FinalizeFunc
	finalizerWorkers  int
	finalizeRate      float64
	controller        *resource.Controller
	collectOnCapacity bool
	rootProviders     []RootProvider
}

// Option configures a Collector.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tracegc.NewJSONLogger(slog.LevelDebug)
//	c := tracegc.New(tracegc.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMaxObjects sets the hard cap on handle table slots. Registrations beyond
// it fail with ErrCapacityExceeded.
func WithMaxObjects(n uint32) Option {
	return func(o *options) {
		o.maxObjects = n
	}
}

// WithMaxPins sets the pin count at which Pin fails with ErrPinOverflow.
func WithMaxPins(n uint32) Option {
	return func(o *options) {
		if n == 0 {
			n = math.MaxUint32
		}
		o.maxPins = n
	}
}

// WithMemoryLimit sets a byte budget for registered objects. Sizes come from
// the SizeFunc; without one every object accounts for zero bytes.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithSizeFunc configures how object sizes are accounted.
func WithSizeFunc(fn SizeFunc) Option {
	return func(o *options) {
		o.sizeFunc = fn
	}
}

// WithFinalizer configures the callback that destroys swept objects.
//
// Without one, objects implementing Finalizer have Finalize called and their
// accounted size is reported as reclaimed.
func WithFinalizer(fn FinalizeFunc) Option {
	return func(o *options) {
		o.finalize = fn
	}
}

// WithFinalizerWorkers sets how many goroutines may run finalizers of one
// cycle in parallel. Batches no larger than n run on the collecting goroutine.
func WithFinalizerWorkers(n int) Option {
	return func(o *options) {
		o.finalizerWorkers = n
	}
}

// WithFinalizeRate bounds finalizations per second. Ignored when a shared
// controller is configured with WithResourceController.
func WithFinalizeRate(perSecond float64) Option {
	return func(o *options) {
		o.finalizeRate = perSecond
	}
}

// WithResourceController shares a resource controller between collectors.
// Its memory limit, finalizer slots and finalize rate take precedence over
// WithMemoryLimit and WithFinalizeRate.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithCollectOnCapacity makes a registration that fails with
// ErrCapacityExceeded run one collection and retry once.
func WithCollectOnCapacity(enabled bool) Option {
	return func(o *options) {
		o.collectOnCapacity = enabled
	}
}

// WithRootProvider registers a root provider at construction time.
func WithRootProvider(p RootProvider) Option {
	return func(o *options) {
		if p != nil {
			o.rootProviders = append(o.rootProviders, p)
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		maxPins:          math.MaxUint32,
		finalizerWorkers: 1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.finalizerWorkers < 1 {
		o.finalizerWorkers = 1
	}
	if o.controller == nil {
		o.controller = resource.NewController(resource.Config{
			MemoryLimitBytes: o.memoryLimit,
			MaxFinalizers:    math.MaxInt32,
			FinalizeRate:     o.finalizeRate,
		})
	}
	return o
}
