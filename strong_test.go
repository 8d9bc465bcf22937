package tracegc_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tracegc"
	"github.com/hupe1980/tracegc/testutil"
)

const tagNode tracegc.TypeTag = 1

func TestStrong(t *testing.T) {
	ctx := context.Background()

	t.Run("KeepsObjectAlive", func(t *testing.T) {
		gc := tracegc.New()
		n := testutil.NewNode(1)

		s, err := tracegc.Register(ctx, gc, n, tagNode)
		require.NoError(t, err)

		for range 3 {
			_, err = gc.Collect(ctx)
			require.NoError(t, err)
		}
		assert.True(t, s.IsValid())
		assert.Same(t, n, s.Get())
		assert.Equal(t, 0, n.Finalized())

		require.NoError(t, s.Release())
		assert.Nil(t, s.Get())
		assert.False(t, s.IsValid())

		_, err = gc.Collect(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n.Finalized())
	})

	t.Run("ReleaseIsIdempotent", func(t *testing.T) {
		gc := tracegc.New()

		s, err := tracegc.Register(ctx, gc, testutil.NewNode(1), tagNode)
		require.NoError(t, err)
		other, err := s.Clone()
		require.NoError(t, err)

		require.NoError(t, s.Release())
		require.NoError(t, s.Release())

		pins, ok := gc.PinCount(other.Handle())
		require.True(t, ok)
		assert.Equal(t, uint32(1), pins)
	})

	t.Run("Clone", func(t *testing.T) {
		gc := tracegc.New()
		n := testutil.NewNode(1)

		s, err := tracegc.Register(ctx, gc, n, tagNode)
		require.NoError(t, err)
		c, err := s.Clone()
		require.NoError(t, err)

		assert.Equal(t, s.Handle(), c.Handle())
		pins, _ := gc.PinCount(s.Handle())
		assert.Equal(t, uint32(2), pins)

		require.NoError(t, s.Release())
		_, err = gc.Collect(ctx)
		require.NoError(t, err)
		assert.Same(t, n, c.Get())

		require.NoError(t, c.Release())
		_, err = s.Clone()
		require.ErrorIs(t, err, tracegc.ErrInvalidHandle)
	})

	t.Run("Move", func(t *testing.T) {
		gc := tracegc.New()
		n := testutil.NewNode(1)

		s, err := tracegc.Register(ctx, gc, n, tagNode)
		require.NoError(t, err)

		m := s.Move()
		require.NotNil(t, m)
		assert.Nil(t, s.Get())
		assert.Nil(t, s.Move())
		assert.Same(t, n, m.Get())

		pins, _ := gc.PinCount(m.Handle())
		assert.Equal(t, uint32(1), pins)

		require.NoError(t, s.Release())
		pins, _ = gc.PinCount(m.Handle())
		assert.Equal(t, uint32(1), pins)

		require.NoError(t, m.Release())
		pins, _ = gc.PinCount(m.Handle())
		assert.Equal(t, uint32(0), pins)
	})

	t.Run("NilReceiver", func(t *testing.T) {
		var s *tracegc.Strong[testutil.Node]
		assert.Nil(t, s.Get())
		assert.False(t, s.IsValid())
		assert.True(t, s.Handle().IsZero())
		require.NoError(t, s.Release())
		assert.Nil(t, s.Move())
	})

	t.Run("RegisterNil", func(t *testing.T) {
		gc := tracegc.New()
		_, err := tracegc.Register[testutil.Node](ctx, gc, nil, tagNode)
		require.ErrorIs(t, err, tracegc.ErrInvalidObject)
	})

	t.Run("DroppedWithoutRelease", func(t *testing.T) {
		gc := tracegc.New()
		h := registerAndDrop(t, gc)

		require.Eventually(t, func() bool {
			runtime.GC()
			pins, ok := gc.PinCount(h)
			return ok && pins == 0
		}, 5*time.Second, 10*time.Millisecond)

		_, err := gc.Collect(ctx)
		require.NoError(t, err)
		assert.False(t, gc.IsAlive(h))
	})
}

//go:noinline
func registerAndDrop(t *testing.T, gc *tracegc.Collector) tracegc.Handle {
	t.Helper()
	s, err := tracegc.Register(context.Background(), gc, testutil.NewNode(1), tagNode)
	require.NoError(t, err)
	return s.Handle()
}
