// Package resource implements the Controller that governs what a collector may
// consume while it registers and finalizes objects.
//
// The Controller manages three resources:
//
//   - Memory: a byte budget for registered objects (non-blocking, fail-fast)
//   - Finalizers: a worker limit shared by every collector using the controller
//   - Finalize rate: a token bucket bounding finalizations per second
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                         Controller                          │
//	├─────────────────┬─────────────────┬─────────────────────────┤
//	│  Byte Budget    │  Finalizer      │  Finalize Rate          │
//	│  (fail-fast)    │  Workers (sem)  │  (token bucket)         │
//	├─────────────────┼─────────────────┼─────────────────────────┤
//	│  AcquireMemory  │  AcquireFinal-  │  WaitFinalize           │
//	│  ReleaseMemory  │  izer           │  TryFinalize            │
//	│  MemoryUsage    │  TryAcquire...  │                         │
//	│                 │  Release...     │                         │
//	└─────────────────┴─────────────────┴─────────────────────────┘
//
// # Byte Budget
//
// AcquireMemory never blocks. When the budget would be exceeded it returns
// ErrMemoryLimitExceeded and the caller decides whether to collect and retry:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 64 << 20,
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    // collect, then retry once
//	}
//	defer rc.ReleaseMemory(size)
//
// # Finalizer Workers
//
// The worker semaphore caps concurrent finalizer goroutines across all
// collectors sharing the controller:
//
//	if err := rc.AcquireFinalizer(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFinalizer()
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
package resource
