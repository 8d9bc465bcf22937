package tracegc_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/tracegc"
	"github.com/hupe1980/tracegc/testutil"
)

// Example demonstrates registering an object, dropping it, and collecting it.
func Example() {
	ctx := context.Background()
	gc := tracegc.New()

	s, err := tracegc.Register(ctx, gc, testutil.NewNode(1), tagNode)
	if err != nil {
		log.Fatal(err)
	}
	w := s.Weak()

	// Pinned objects survive collection.
	_, _ = gc.Collect(ctx)
	_, ok := w.Get()
	fmt.Println("alive while pinned:", ok)

	_ = s.Release()
	stats, _ := gc.Collect(ctx)
	_, ok = w.Get()
	fmt.Println("alive after release:", ok, "swept:", stats.Swept)
	// Output:
	// alive while pinned: true
	// alive after release: false swept: 1
}

// Example_rootProvider demonstrates keeping a graph alive through a root.
func Example_rootProvider() {
	ctx := context.Background()
	gc := tracegc.New()

	root := testutil.NewNode(0)
	child := testutil.NewNode(1)
	orphan := testutil.NewNode(2)

	hr, _ := gc.Track(ctx, root, tagNode)
	hc, _ := gc.Track(ctx, child, tagNode)
	_, _ = gc.Track(ctx, orphan, tagNode)
	root.Link(hc)

	gc.AddRootProvider(tracegc.StaticRoots{hr})

	stats, err := gc.Collect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("marked:", stats.Marked, "swept:", stats.Swept)
	fmt.Println("orphan finalized:", orphan.Finalized())
	// Output:
	// marked: 2 swept: 1
	// orphan finalized: 1
}

// Example_finalizer demonstrates a finalizer that reports reclaimed bytes.
func Example_finalizer() {
	ctx := context.Background()
	gc := tracegc.New(
		tracegc.WithFinalizer(func(_ context.Context, obj any, tag tracegc.TypeTag) (int64, error) {
			fmt.Printf("finalize node %d (tag %d)\n", obj.(*testutil.Node).ID, tag)
			return 64, nil
		}),
	)

	_, _ = gc.Track(ctx, testutil.NewNode(42), tagNode)

	stats, _ := gc.Collect(ctx)
	fmt.Println("reclaimed:", stats.BytesReclaimed)
	// Output:
	// finalize node 42 (tag 1)
	// reclaimed: 64
}
