package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tracegc"
)

func TestRNGDeterministic(t *testing.T) {
	a := NewRNG(4711)
	b := NewRNG(4711)

	for range 16 {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}

	first := a.Perm(10)
	a.Reset()
	for range 16 {
		a.Intn(1000)
	}
	assert.Equal(t, first, a.Perm(10))
	assert.Equal(t, int64(4711), a.Seed())
}

func TestSubset(t *testing.T) {
	rng := NewRNG(1)

	s := rng.Subset(10, 4)
	assert.Len(t, s, 4)

	seen := map[int]bool{}
	for _, v := range s {
		assert.False(t, seen[v])
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
		seen[v] = true
	}

	assert.Len(t, rng.Subset(3, 10), 3)
}

func TestNodeLinks(t *testing.T) {
	n := NewNode(1)
	a := tracegc.NewHandle(1, 1)
	b := tracegc.NewHandle(2, 1)

	n.Link(a, b, a)
	n.Unlink(a)
	assert.Equal(t, []tracegc.Handle{b}, n.Refs())

	var traced []tracegc.Handle
	n.TraceReferences(func(h tracegc.Handle) { traced = append(traced, h) })
	assert.Equal(t, []tracegc.Handle{b}, traced)

	n.Finalize(context.Background())
	assert.Equal(t, 1, n.Finalized())
}

func TestGraphReachable(t *testing.T) {
	ctx := context.Background()
	gc := tracegc.New()

	g, err := NewGraph(ctx, gc, 5, 1)
	require.NoError(t, err)

	g.Link(0, 1)
	g.Link(1, 2)
	g.Link(2, 0)
	g.Link(3, 4)

	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, g.Reachable(0))
	assert.Equal(t, map[int]bool{3: true, 4: true}, g.Reachable(3))
	assert.Equal(t, map[int]bool{4: true}, g.Reachable(4))

	roots := g.Roots(0, 3)
	assert.Equal(t, tracegc.StaticRoots{g.Handles[0], g.Handles[3]}, roots)
}
