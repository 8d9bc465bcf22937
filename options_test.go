package tracegc

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tracegc/resource"
)

func TestApplyOptionsDefaults(t *testing.T) {
	o := applyOptions(nil)

	assert.NotNil(t, o.logger)
	assert.Equal(t, NoopMetricsCollector{}, o.metricsCollector)
	assert.Equal(t, uint32(math.MaxUint32), o.maxPins)
	assert.Equal(t, 1, o.finalizerWorkers)
	assert.NotNil(t, o.controller)
	assert.Equal(t, int64(0), o.controller.MemoryLimit())
}

func TestApplyOptionsOverrides(t *testing.T) {
	o := applyOptions([]Option{
		nil,
		WithLogger(nil),
		WithMetricsCollector(nil),
		WithMaxPins(0),
		WithFinalizerWorkers(-3),
		WithMemoryLimit(1024),
		WithMaxObjects(8),
	})

	assert.NotNil(t, o.logger)
	assert.Equal(t, NoopMetricsCollector{}, o.metricsCollector)
	assert.Equal(t, uint32(math.MaxUint32), o.maxPins)
	assert.Equal(t, 1, o.finalizerWorkers)
	assert.Equal(t, int64(1024), o.controller.MemoryLimit())
	assert.Equal(t, uint32(8), o.maxObjects)
}

func TestSharedResourceController(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	size := WithSizeFunc(func(any, TypeTag) int64 { return 60 })

	a := New(WithResourceController(rc), size)
	b := New(WithResourceController(rc), size)

	_, err := a.Track(ctx, &testNode{}, tagNode)
	require.NoError(t, err)

	_, err = b.Track(ctx, &testNode{}, tagNode)
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	_, err = a.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rc.MemoryUsage())

	_, err = b.Track(ctx, &testNode{}, tagNode)
	require.NoError(t, err)
	assert.Equal(t, int64(60), rc.MemoryUsage())
}

func TestFinalizeRate(t *testing.T) {
	ctx := context.Background()
	c := New(WithFinalizeRate(1000))

	for range 5 {
		track(t, c, "n")
	}
	stats, err := c.Collect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Swept)
}

func TestSetFinalizerWorkers(t *testing.T) {
	c := New()
	c.SetFinalizerWorkers(0)
	assert.Equal(t, 1, c.FinalizerWorkers())
	c.SetFinalizerWorkers(16)
	assert.Equal(t, 16, c.FinalizerWorkers())
}
