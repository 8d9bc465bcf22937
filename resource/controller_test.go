package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Equal(t, int64(0), c.MemoryLimit())
}

func TestController_NonPositiveBytes(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 10})

	require.NoError(t, c.AcquireMemory(0))
	require.NoError(t, c.AcquireMemory(-5))
	c.ReleaseMemory(-5)
	assert.Equal(t, int64(0), c.MemoryUsage())
}

func TestController_Finalizers(t *testing.T) {
	c := NewController(Config{MaxFinalizers: 2})

	require.NoError(t, c.AcquireFinalizer(t.Context()))
	require.NoError(t, c.AcquireFinalizer(t.Context()))
	assert.Equal(t, int64(2), c.ActiveFinalizers())

	assert.False(t, c.TryAcquireFinalizer())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireFinalizer(ctx))

	c.ReleaseFinalizer()
	assert.True(t, c.TryAcquireFinalizer())
	assert.Equal(t, int64(2), c.MaxFinalizers())
}

func TestController_DefaultFinalizers(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(1), c.MaxFinalizers())
}

func TestController_FinalizeRate(t *testing.T) {
	c := NewController(Config{FinalizeRate: 1, FinalizeBurst: 1})

	assert.True(t, c.TryFinalize())
	assert.False(t, c.TryFinalize())

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.WaitFinalize(ctx))
}

func TestController_UnlimitedRate(t *testing.T) {
	c := NewController(Config{})
	for range 100 {
		assert.True(t, c.TryFinalize())
	}
	assert.NoError(t, c.WaitFinalize(t.Context()))
}

func TestController_NilChecks(t *testing.T) {
	var c *Controller
	assert.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Equal(t, int64(0), c.MemoryUsage())
	assert.NoError(t, c.AcquireFinalizer(t.Context()))
	assert.True(t, c.TryAcquireFinalizer())
	c.ReleaseFinalizer()
	assert.NoError(t, c.WaitFinalize(t.Context()))
	assert.True(t, c.TryFinalize())
}
