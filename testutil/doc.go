// Package testutil provides testing utilities for tracegc.
//
// This package is intended for use in tests and benchmarks only.
// It provides traced test objects, random object graphs, and a reference
// reachability walk to check collector results against.
//
// # Object Graphs
//
//	rng := testutil.NewRNG(seed)
//	g, _ := testutil.NewGraph(ctx, gc, 100, TagNode)
//	g.RandomEdges(rng, 300)
//
//	want := g.Reachable(0, 7)  // indices reachable from nodes 0 and 7
//
// # Finalization Tracking
//
//	n := testutil.NewNode(1)
//	...
//	n.Finalized()              // number of times Finalize ran
package testutil
