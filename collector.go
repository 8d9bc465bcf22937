package tracegc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/cpu"

	"github.com/hupe1980/tracegc/internal/addr"
	"github.com/hupe1980/tracegc/internal/clearqueue"
	"github.com/hupe1980/tracegc/internal/markbits"
	"github.com/hupe1980/tracegc/internal/slots"
	"github.com/hupe1980/tracegc/resource"
)

// Collector is a tracing mark/sweep collector over a table of
// generation-stamped handles.
//
// All slot mutations happen under one collector-wide lock; weak resolution
// takes the read side so a generation and its payload are always observed
// together. Only one cycle runs at a time: a concurrent Collect fails with
// ErrCollectionInProgress instead of waiting.
type Collector struct {
	opts    options
	log     *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	collecting atomic.Bool
	closed     atomic.Bool
	workers    atomic.Int32
	reentrant  atomic.Int64
	_          cpu.CacheLinePad

	mu         sync.RWMutex
	table      *slots.Table
	marks      *markbits.Set
	pending    *clearqueue.Queue
	addrs      *addr.Registry
	epoch      uint64 // bumped when a cycle starts its root scan
	cycles     uint64 // completed cycles
	lastSwept  int
	totalSwept uint64

	provMu    sync.RWMutex
	providers []providerEntry
	nextProv  uint64

	// afterMark runs between the mark and sweep phases with no lock held.
	afterMark func()
}

type providerEntry struct {
	id uint64
	p  RootProvider
}

// condemned is a swept slot waiting for its finalizer.
type condemned struct {
	h    Handle
	obj  any
	tag  TypeTag
	size int64
}

// New creates a Collector.
func New(optFns ...Option) *Collector {
	o := applyOptions(optFns)

	c := &Collector{
		opts:    o,
		log:     o.logger,
		metrics: o.metricsCollector,
		rc:      o.controller,
		table:   slots.New(o.maxObjects),
		marks:   markbits.New(slots.SegmentSize),
		pending: clearqueue.New(),
		addrs:   addr.New(),
	}
	c.SetFinalizerWorkers(o.finalizerWorkers)

	for _, p := range o.rootProviders {
		c.AddRootProvider(p)
	}
	return c
}

// Register registers obj and returns a strong handle owning the first pin.
func Register[T any](ctx context.Context, c *Collector, obj *T, tag TypeTag) (*Strong[T], error) {
	if obj == nil {
		return nil, ErrInvalidObject
	}
	h, err := c.RegisterObject(ctx, obj, tag)
	if err != nil {
		return nil, err
	}
	return newStrong(c, h, obj), nil
}

// Acquire returns a strong handle to obj, pinning the existing handle when the
// address is already registered and registering it otherwise.
func Acquire[T any](ctx context.Context, c *Collector, obj *T, tag TypeTag) (*Strong[T], error) {
	if obj == nil {
		return nil, ErrInvalidObject
	}
	h, err := c.registerWithRetry(ctx, obj, tag, 1, true)
	if err != nil {
		return nil, err
	}
	return newStrong(c, h, obj), nil
}

// RegisterObject registers obj, which must be a non-nil pointer to a value of
// non-zero size, and returns its handle pinned once. The caller owns that pin and must Unpin it.
func (c *Collector) RegisterObject(ctx context.Context, obj any, tag TypeTag) (Handle, error) {
	return c.registerWithRetry(ctx, obj, tag, 1, false)
}

// Track registers obj with a pin count of zero. The object survives only while
// it is reachable from a root, so it should be linked into a reachable parent
// before the next cycle starts.
func (c *Collector) Track(ctx context.Context, obj any, tag TypeTag) (Handle, error) {
	return c.registerWithRetry(ctx, obj, tag, 0, false)
}

func (c *Collector) registerWithRetry(ctx context.Context, obj any, tag TypeTag, pins uint32, reuse bool) (Handle, error) {
	h, err := c.register(ctx, obj, tag, pins, reuse)
	if err == nil || !c.opts.collectOnCapacity || !errors.Is(err, ErrCapacityExceeded) {
		return h, err
	}

	if _, cerr := c.Collect(ctx); cerr != nil && !errors.Is(cerr, ErrCollectionInProgress) {
		return Handle{}, errors.Join(err, cerr)
	}
	return c.register(ctx, obj, tag, pins, reuse)
}

func (c *Collector) register(ctx context.Context, obj any, tag TypeTag, pins uint32, reuse bool) (h Handle, err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordRegister(time.Since(start), err)
		c.log.LogRegister(ctx, h, tag, err)
	}()

	if isFinalizing(ctx) {
		c.reentrant.Add(1)
		return Handle{}, ErrReentrantFinalize
	}
	if c.closed.Load() {
		return Handle{}, ErrClosed
	}

	address, err := addressOf(obj)
	if err != nil {
		return Handle{}, err
	}

	size := c.sizeOf(obj, tag)
	if merr := c.rc.AcquireMemory(size); merr != nil {
		return Handle{}, fmt.Errorf("%w: %w", ErrCapacityExceeded, merr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.addrs.Lookup(address); ok {
		c.rc.ReleaseMemory(size)
		existing := Handle{index: idx, gen: c.table.At(idx).Gen}
		if !reuse {
			return Handle{}, &DuplicateRegistrationError{Addr: address, Existing: existing}
		}
		if perr := c.pinLocked(existing); perr != nil {
			return Handle{}, perr
		}
		return existing, nil
	}

	idx, err := c.table.Allocate()
	if err != nil {
		c.rc.ReleaseMemory(size)
		return Handle{}, fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	}
	c.marks.Grow(uint(c.table.Len()))

	s := c.table.At(idx)
	s.Obj = obj
	s.Addr = address
	s.Tag = uint32(tag)
	s.Pins = pins
	s.Born = c.epoch
	s.Size = size
	c.addrs.Insert(address, idx)

	return Handle{index: idx, gen: s.Gen}, nil
}

func (c *Collector) sizeOf(obj any, tag TypeTag) int64 {
	if c.opts.sizeFunc == nil {
		return 0
	}
	return max(c.opts.sizeFunc(obj, tag), 0)
}

func addressOf(obj any) (uintptr, error) {
	if obj == nil {
		return 0, ErrInvalidObject
	}
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Pointer:
		// Zero-sized values may share one address.
		if v.IsNil() || v.Type().Elem().Size() == 0 {
			return 0, ErrInvalidObject
		}
		return v.Pointer(), nil
	case reflect.UnsafePointer:
		if v.IsNil() {
			return 0, ErrInvalidObject
		}
		return v.Pointer(), nil
	default:
		return 0, ErrInvalidObject
	}
}

// liveSlot returns the slot h names if it is live. Callers hold c.mu.
func (c *Collector) liveSlot(h Handle) *slots.Slot {
	s := c.table.At(h.index)
	if s == nil || s.Gen != h.gen || s.State != slots.StateLive {
		return nil
	}
	return s
}

// Pin increments the pin count of h. Pinned objects are roots.
func (c *Collector) Pin(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pinLocked(h)
}

func (c *Collector) pinLocked(h Handle) error {
	s := c.liveSlot(h)
	if s == nil {
		return ErrInvalidHandle
	}
	if s.Pins >= c.opts.maxPins {
		return ErrPinOverflow
	}
	s.Pins++
	return nil
}

// Unpin decrements the pin count of h.
func (c *Collector) Unpin(h Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.liveSlot(h)
	if s == nil {
		return ErrInvalidHandle
	}
	if s.Pins == 0 {
		return ErrPinUnderflow
	}
	s.Pins--
	return nil
}

// PinCount returns the pin count of h.
func (c *Collector) PinCount(h Handle) (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.liveSlot(h)
	if s == nil {
		return 0, false
	}
	return s.Pins, true
}

// IsAlive reports whether h still names its object: the generation matches
// and the payload has not been cleared by a sweep.
func (c *Collector) IsAlive(h Handle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.table.Resolve(h.index, h.gen)
	return ok
}

// Resolve returns the object h names, or false once it has been collected.
func (c *Collector) Resolve(h Handle) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.table.Resolve(h.index, h.gen)
}

// TypeOf returns the type tag h was registered with.
func (c *Collector) TypeOf(h Handle) (TypeTag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := c.liveSlot(h)
	if s == nil {
		return 0, false
	}
	return TypeTag(s.Tag), true
}

func (c *Collector) resolveWeak(h Handle) (any, bool) {
	obj, ok := c.Resolve(h)
	c.metrics.RecordResolve(ok)
	return obj, ok
}

// resolveAndPin resolves h and pins it under one lock.
func (c *Collector) resolveAndPin(h Handle) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, ok := c.table.Resolve(h.index, h.gen)
	if !ok {
		return nil, false
	}
	if err := c.pinLocked(h); err != nil {
		return nil, false
	}
	return obj, true
}

// Lookup returns the live handle registered for obj's address.
func (c *Collector) Lookup(obj any) (Handle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, h := c.lookupLocked(obj)
	return h, s != nil
}

func (c *Collector) lookupLocked(obj any) (*slots.Slot, Handle) {
	address, err := addressOf(obj)
	if err != nil {
		return nil, Handle{}
	}
	idx, ok := c.addrs.Lookup(address)
	if !ok {
		return nil, Handle{}
	}
	s := c.table.At(idx)
	if s == nil || s.State != slots.StateLive {
		return nil, Handle{}
	}
	return s, Handle{index: idx, gen: s.Gen}
}

// IsObjectValid reports whether obj is registered and not yet swept.
func (c *Collector) IsObjectValid(obj any) bool {
	_, ok := c.Lookup(obj)
	return ok
}

// IsPendingKill reports whether obj is registered but has no pins. Such an
// object survives the next cycle only if it is reachable from a root.
func (c *Collector) IsPendingKill(obj any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, _ := c.lookupLocked(obj)
	return s != nil && s.Pins == 0
}

// IsValidAndNotPendingKill reports whether obj is registered and pinned.
func (c *Collector) IsValidAndNotPendingKill(obj any) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, _ := c.lookupLocked(obj)
	return s != nil && s.Pins > 0
}

// AddRootProvider adds a root provider and returns its id.
func (c *Collector) AddRootProvider(p RootProvider) uint64 {
	c.provMu.Lock()
	defer c.provMu.Unlock()

	c.nextProv++
	c.providers = append(c.providers, providerEntry{id: c.nextProv, p: p})
	return c.nextProv
}

// RemoveRootProvider removes the provider with the given id.
func (c *Collector) RemoveRootProvider(id uint64) bool {
	c.provMu.Lock()
	defer c.provMu.Unlock()

	for i, e := range c.providers {
		if e.id == id {
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
			return true
		}
	}
	return false
}

func (c *Collector) scanRoots(ctx context.Context) ([]Handle, int, error) {
	c.provMu.RLock()
	providers := make([]providerEntry, len(c.providers))
	copy(providers, c.providers)
	c.provMu.RUnlock()

	var roots []Handle
	for _, e := range providers {
		hs, err := e.p.Roots(ctx)
		if err != nil {
			return nil, len(providers), fmt.Errorf("provider %d: %w", e.id, err)
		}
		roots = append(roots, hs...)
	}
	return roots, len(providers), nil
}

// Collect runs one full mark/sweep cycle.
//
// Roots are gathered from every provider plus every pinned slot. Objects
// reachable from them are marked; live slots that are unmarked, unpinned and
// registered before the cycle started are swept. Swept slots stop resolving
// immediately, their finalizers run, and only then are the slots recycled with
// a new generation.
//
// A root provider error aborts the cycle before the table is touched. Once
// the sweep has begun the cycle runs to completion regardless of ctx.
// Finalizer failures are returned joined, alongside complete stats.
func (c *Collector) Collect(ctx context.Context) (stats CollectionStats, err error) {
	if c.closed.Load() {
		return stats, ErrClosed
	}
	if !c.collecting.CompareAndSwap(false, true) {
		return stats, ErrCollectionInProgress
	}
	defer c.collecting.Store(false)

	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		c.metrics.RecordCollect(stats, err)
	}()

	if err = ctx.Err(); err != nil {
		return stats, err
	}

	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	roots, providers, err := c.scanRoots(ctx)
	if err != nil {
		c.log.LogRootScan(ctx, providers, err)
		return stats, fmt.Errorf("tracegc: root scan: %w", err)
	}

	c.mu.Lock()
	stats.Roots, stats.Marked = c.mark(roots)
	c.mu.Unlock()

	if c.afterMark != nil {
		c.afterMark()
	}

	c.mu.Lock()
	batch := c.sweep(epoch, &stats)
	c.mu.Unlock()

	reclaimed, err := c.finalizeBatch(ctx, batch)

	c.mu.Lock()
	for _, e := range batch {
		c.table.Free(e.h.index)
	}
	c.cycles++
	c.lastSwept = len(batch)
	c.totalSwept += uint64(len(batch))
	stats.Cycle = c.cycles
	stats.Live = int(c.table.Live())
	c.mu.Unlock()

	stats.Swept = len(batch)
	stats.BytesReclaimed = reclaimed

	c.log.WithCycle(stats.Cycle).LogCollect(ctx, stats, err)
	return stats, err
}

// mark runs the mark phase and returns the number of live roots and marked
// slots. Callers hold c.mu.
func (c *Collector) mark(roots []Handle) (int, int) {
	c.marks.Grow(uint(c.table.Len()))
	c.marks.ResetAll()

	stack := make([]uint32, 0, len(roots))
	push := func(h Handle) {
		if c.liveSlot(h) == nil {
			return
		}
		if c.marks.Mark(h.index) {
			stack = append(stack, h.index)
		}
	}

	live := 0
	for _, h := range roots {
		if c.liveSlot(h) != nil {
			live++
		}
		push(h)
	}

	// Pinned slots are implicit roots.
	c.table.ForEachLive(func(idx uint32, s *slots.Slot) bool {
		if s.Pins > 0 && c.marks.Mark(idx) {
			stack = append(stack, idx)
		}
		return true
	})

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if tr, ok := c.table.At(idx).Obj.(Tracer); ok {
			tr.TraceReferences(push)
		}
	}

	return live, int(c.marks.Count())
}

// sweep condemns unmarked slots, drains the pending queue and detaches the
// payloads so they no longer resolve. Callers hold c.mu.
func (c *Collector) sweep(epoch uint64, stats *CollectionStats) []condemned {
	c.table.ForEachLive(func(idx uint32, s *slots.Slot) bool {
		if c.marks.IsMarked(idx) {
			return true
		}
		switch {
		case s.Pins > 0:
			// Pinned after the mark phase: the pin wins.
			stats.PinnedRetained++
		case s.Born >= epoch:
			stats.BornRetained++
		default:
			c.pending.Enqueue(idx)
		}
		return true
	})

	drained := c.pending.Drain()
	batch := make([]condemned, 0, len(drained))
	for _, idx := range drained {
		s := c.table.At(idx)
		e := condemned{
			h:    Handle{index: idx, gen: s.Gen},
			tag:  TypeTag(s.Tag),
			size: s.Size,
		}
		c.addrs.Remove(s.Addr, idx)
		e.obj, _ = c.table.Detach(idx)
		batch = append(batch, e)
	}
	return batch
}

func (c *Collector) finalizeBatch(ctx context.Context, batch []condemned) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	fctx := withFinalizing(context.WithoutCancel(ctx))
	before := c.reentrant.Load()

	var (
		reclaimed atomic.Int64
		mu        sync.Mutex
		errs      []error
	)
	run := func(e condemned) {
		n, err := c.finalizeOne(fctx, e)
		reclaimed.Add(n)
		if err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	workers := c.FinalizerWorkers()
	if workers <= 1 || len(batch) <= workers {
		for _, e := range batch {
			run(e)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, e := range batch {
			g.Go(func() error {
				run(e)
				return nil
			})
		}
		_ = g.Wait()
	}

	if c.reentrant.Load() > before {
		errs = append(errs, ErrReentrantFinalize)
	}
	return reclaimed.Load(), errors.Join(errs...)
}

func (c *Collector) finalizeOne(ctx context.Context, e condemned) (n int64, err error) {
	defer c.rc.ReleaseMemory(e.size)

	if err = c.rc.AcquireFinalizer(ctx); err != nil {
		return 0, err
	}
	defer c.rc.ReleaseFinalizer()

	if err = c.rc.WaitFinalize(ctx); err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &FinalizerPanicError{Handle: e.h, Tag: e.tag, Value: r}
		}
		c.metrics.RecordFinalize(time.Since(start), err)
		if err != nil {
			c.log.LogFinalize(ctx, e.h, e.tag, err)
		}
	}()

	if c.opts.finalize != nil {
		return c.opts.finalize(ctx, e.obj, e.tag)
	}
	if f, ok := e.obj.(Finalizer); ok {
		f.Finalize(ctx)
	}
	return e.size, nil
}

// SetFinalizerWorkers sets how many goroutines may run one cycle's finalizers.
func (c *Collector) SetFinalizerWorkers(n int) {
	n = min(max(n, 1), math.MaxInt32)
	c.workers.Store(int32(n)) //nolint:gosec // clamped above
}

// FinalizerWorkers returns the finalizer fan-out.
func (c *Collector) FinalizerWorkers() int {
	return int(c.workers.Load())
}

// Stats returns a snapshot of collector-wide counters.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		TotalObjects: int(c.table.Live()),
		LastSwept:    c.lastSwept,
		TotalSwept:   c.totalSwept,
		Cycles:       c.cycles,
		Capacity:     c.table.Cap(),
		Slots:        c.table.Len(),
		FreeSlots:    c.table.FreeCount(),
		MemoryUsage:  c.rc.MemoryUsage(),
		Collecting:   c.collecting.Load(),
	}
}

// releaseLeaked drops the pin of a Strong that was garbage collected by the
// Go runtime without being released.
func (c *Collector) releaseLeaked(h Handle) {
	if err := c.Unpin(h); err == nil {
		c.log.Debug("strong handle dropped without Release", "handle", h.String())
	}
}
