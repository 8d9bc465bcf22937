package tracegc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting collector metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordRegister is called after each registration attempt.
	RecordRegister(duration time.Duration, err error)

	// RecordCollect is called after each Collect call, including aborted ones.
	RecordCollect(stats CollectionStats, err error)

	// RecordFinalize is called after each finalizer invocation.
	RecordFinalize(duration time.Duration, err error)

	// RecordResolve is called on each weak dereference. hit is false when the
	// handle had expired.
	RecordResolve(hit bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRegister(time.Duration, error)  {}
func (NoopMetricsCollector) RecordCollect(CollectionStats, error) {}
func (NoopMetricsCollector) RecordFinalize(time.Duration, error)  {}
func (NoopMetricsCollector) RecordResolve(bool)                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	RegisterCount      atomic.Int64
	RegisterErrors     atomic.Int64
	RegisterTotalNanos atomic.Int64
	CollectCount       atomic.Int64
	CollectErrors      atomic.Int64
	CollectTotalNanos  atomic.Int64
	Swept              atomic.Int64
	BytesReclaimed     atomic.Int64
	FinalizeCount      atomic.Int64
	FinalizeErrors     atomic.Int64
	FinalizeTotalNanos atomic.Int64
	ResolveHits        atomic.Int64
	ResolveMisses      atomic.Int64
}

// RecordRegister implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRegister(duration time.Duration, err error) {
	b.RegisterCount.Add(1)
	b.RegisterTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RegisterErrors.Add(1)
	}
}

// RecordCollect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollect(stats CollectionStats, err error) {
	b.CollectCount.Add(1)
	b.CollectTotalNanos.Add(stats.Duration.Nanoseconds())
	b.Swept.Add(int64(stats.Swept))
	b.BytesReclaimed.Add(stats.BytesReclaimed)
	if err != nil {
		b.CollectErrors.Add(1)
	}
}

// RecordFinalize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFinalize(duration time.Duration, err error) {
	b.FinalizeCount.Add(1)
	b.FinalizeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FinalizeErrors.Add(1)
	}
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(hit bool) {
	if hit {
		b.ResolveHits.Add(1)
	} else {
		b.ResolveMisses.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RegisterCount:    b.RegisterCount.Load(),
		RegisterErrors:   b.RegisterErrors.Load(),
		RegisterAvgNanos: avg(b.RegisterTotalNanos.Load(), b.RegisterCount.Load()),
		CollectCount:     b.CollectCount.Load(),
		CollectErrors:    b.CollectErrors.Load(),
		CollectAvgNanos:  avg(b.CollectTotalNanos.Load(), b.CollectCount.Load()),
		Swept:            b.Swept.Load(),
		BytesReclaimed:   b.BytesReclaimed.Load(),
		FinalizeCount:    b.FinalizeCount.Load(),
		FinalizeErrors:   b.FinalizeErrors.Load(),
		FinalizeAvgNanos: avg(b.FinalizeTotalNanos.Load(), b.FinalizeCount.Load()),
		ResolveHits:      b.ResolveHits.Load(),
		ResolveMisses:    b.ResolveMisses.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RegisterCount    int64
	RegisterErrors   int64
	RegisterAvgNanos int64
	CollectCount     int64
	CollectErrors    int64
	CollectAvgNanos  int64
	Swept            int64
	BytesReclaimed   int64
	FinalizeCount    int64
	FinalizeErrors   int64
	FinalizeAvgNanos int64
	ResolveHits      int64
	ResolveMisses    int64
}
