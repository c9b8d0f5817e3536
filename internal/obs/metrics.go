package obs

import (
	"context"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline's counters/histograms, built once per Telemetry
// instance and threaded explicitly into the components that record them —
// the reference architecture's MetricsHolder is a process-wide singleton;
// this module keeps the same instruments but as an owned value instead.
type Metrics struct {
	CacheHits         metric.Int64Counter
	CacheMisses       metric.Int64Counter
	CircuitState      metric.Int64ObservableGauge
	OpportunitiesFound metric.Int64Counter
	ScanDuration      metric.Float64Histogram
	OptimizerIters    metric.Int64Histogram
	CyclesExplored    metric.Int64Counter
	CyclesPruned      metric.Int64Counter
}

// NewMetrics creates every instrument used by the pipeline against the given
// meter. Errors from instrument creation are swallowed into no-op
// instruments, mirroring pkg/telemetry/metrics.go's tolerant style — a
// metrics wiring mistake should never fail a scan.
func NewMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}
	m.CacheHits, _ = meter.Int64Counter("gateway_cache_hits_total")
	m.CacheMisses, _ = meter.Int64Counter("gateway_cache_misses_total")
	m.OpportunitiesFound, _ = meter.Int64Counter("opportunities_found_total")
	m.ScanDuration, _ = meter.Float64Histogram("scan_duration_seconds")
	m.OptimizerIters, _ = meter.Int64Histogram("optimizer_iterations")
	m.CyclesExplored, _ = meter.Int64Counter("cycles_explored_total")
	m.CyclesPruned, _ = meter.Int64Counter("cycles_pruned_total")
	return m
}

// RecordCacheHit increments the gateway cache hit counter for one source.
func (m *Metrics) RecordCacheHit(ctx context.Context, source string) {
	if m == nil || m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(sourceAttr(source)))
}

// RecordCacheMiss increments the gateway cache miss counter for one source.
func (m *Metrics) RecordCacheMiss(ctx context.Context, source string) {
	if m == nil || m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(sourceAttr(source)))
}

// RecordOpportunities adds to the per-strategy opportunities-found counter.
func (m *Metrics) RecordOpportunities(ctx context.Context, strategy string, n int) {
	if m == nil || m.OpportunitiesFound == nil || n == 0 {
		return
	}
	m.OpportunitiesFound.Add(ctx, int64(n), metric.WithAttributes(strategyAttr(strategy)))
}

// RecordScanDuration observes one end-to-end orchestrator run's wall time.
func (m *Metrics) RecordScanDuration(ctx context.Context, seconds float64) {
	if m == nil || m.ScanDuration == nil {
		return
	}
	m.ScanDuration.Record(ctx, seconds)
}
