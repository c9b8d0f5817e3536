// Package scan implements the Scanner Orchestrator (C8): it pins a
// snapshot, fans the six detectors out concurrently with per-detector
// deadlines and a shared cancellation signal, then drives the result
// through the Normalizer, Ranker, and Portfolio Optimizer, grounded on
// the per-unit lifecycle pattern in
// internal/trading/orchestrator/orchestrator.go. BuildSnapshot's gateway
// reads use an errgroup (see snapshot.go), the same soft batch pattern
// PortfolioController.executeBatch uses; Scanner.Run itself fans the six
// detectors out over a raw channel rather than an errgroup, since it
// needs to keep whatever detectors finished within the deadline instead
// of aborting the whole batch on the first slow one.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"arbfind/internal/detect/basis"
	"arbfind/internal/detect/crossfiat"
	"arbfind/internal/detect/funding"
	"arbfind/internal/detect/spotp2p"
	"arbfind/internal/detect/statarb"
	"arbfind/internal/detect/triangle"
	"arbfind/internal/normalize"
	"arbfind/internal/obs"
	"arbfind/internal/portfolio"
	"arbfind/internal/ports"
	"arbfind/internal/rank"
)

// Result is the orchestrator's top-level output (spec §4.8 step 5).
type Result struct {
	ScanID        string
	Opportunities []ports.Opportunity
	Ranked        []ports.Opportunity
	Portfolio     ports.Portfolio
	Diagnostics   []string
	Status        ports.ScanStatus
}

// Request bundles the per-call parameters the exposed scan() port takes
// (spec §6.2): the capital to allocate, the ranking policy applied after
// normalization, and how many ranked results to keep.
type Request struct {
	Snapshot   ports.Snapshot
	Capital    decimal.Decimal
	Policy     ports.RankPolicy
	RankLimit  int
}

// Scanner drives one end-to-end scan against a pinned snapshot. It holds
// no state across calls: two Run calls against the same Request and
// config produce the same output modulo optimizer convergence tolerance.
type Scanner struct {
	cfg     ports.ConfigProvider
	pool    *pond.WorkerPool
	logger  obs.Logger
	metrics *obs.Metrics
}

func NewScanner(cfg ports.ConfigProvider, pool *pond.WorkerPool, logger obs.Logger, metrics *obs.Metrics) *Scanner {
	if logger == nil {
		logger = obs.NewNop()
	}
	return &Scanner{cfg: cfg, pool: pool, logger: logger, metrics: metrics}
}

type detectorJob struct {
	name string
	run  func() []ports.Opportunity
}

// Run fans the six detectors out concurrently, each bounded by
// scanCfg.PerDetectorDeadline, collects partial results and diagnostics
// on timeout, then pipes the merged list through Normalize -> Rank ->
// Optimize. Cancelling ctx before the scan-total deadline discards
// partial results entirely, per spec §5's cancellation semantics.
func (s *Scanner) Run(ctx context.Context, req Request) Result {
	scanID := uuid.NewString()
	startedAt := time.Now()
	scanCfg := s.cfg.ScanConfig()
	strategyCfg := s.cfg.StrategyConfig()

	scanDeadline := scanCfg.ScanDeadline
	if scanDeadline <= 0 {
		scanDeadline = 15 * time.Second
	}
	scanCtx, cancel := context.WithTimeout(ctx, scanDeadline)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return Result{ScanID: scanID, Status: ports.ScanInfeasible, Diagnostics: []string{"scan_cancelled"}}
	}

	jobs := []detectorJob{
		{"funding", func() []ports.Opportunity { return funding.Scan(req.Snapshot, strategyCfg) }},
		{"statarb", func() []ports.Opportunity { return statarb.Scan(req.Snapshot, strategyCfg) }},
		{"basis", func() []ports.Opportunity { return basis.Scan(req.Snapshot, strategyCfg) }},
		{"triangle", func() []ports.Opportunity { return triangle.Scan(req.Snapshot, strategyCfg, s.pool) }},
		{"spotp2p", func() []ports.Opportunity { return spotp2p.Scan(req.Snapshot, strategyCfg) }},
		{"crossfiat", func() []ports.Opportunity { return crossfiat.Scan(req.Snapshot, strategyCfg, s.pool) }},
	}

	perDetectorDeadline := scanCfg.PerDetectorDeadline
	if perDetectorDeadline <= 0 {
		perDetectorDeadline = 10 * time.Second
	}

	var merged []ports.Opportunity
	var diagnostics []string
	partial := false

	type jobResult struct {
		name string
		opps []ports.Opportunity
	}
	results := make(chan jobResult, len(jobs))

	for _, job := range jobs {
		job := job
		go func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("detector panic recovered", "detector", job.name, "panic", r)
					results <- jobResult{name: job.name, opps: nil}
				}
			}()
			results <- jobResult{name: job.name, opps: job.run()}
		}()
	}

	detectorCtx, detectorCancel := context.WithTimeout(scanCtx, perDetectorDeadline)
	defer detectorCancel()

	remaining := len(jobs)
	for remaining > 0 {
		select {
		case r := <-results:
			merged = append(merged, r.opps...)
			remaining--
		case <-detectorCtx.Done():
			diagnostics = append(diagnostics, fmt.Sprintf("detector_timeout: %d of %d detectors did not complete within %s", remaining, len(jobs), perDetectorDeadline))
			partial = true
			remaining = 0
		case <-scanCtx.Done():
			diagnostics = append(diagnostics, "scan_cancelled")
			return Result{ScanID: scanID, Status: ports.ScanInfeasible, Diagnostics: diagnostics}
		}
	}

	if len(merged) == 0 {
		s.metrics.RecordScanDuration(ctx, time.Since(startedAt).Seconds())
		return Result{ScanID: scanID, Status: ports.ScanEmpty, Diagnostics: diagnostics}
	}

	byStrategy := make(map[ports.Strategy]int)
	for _, o := range merged {
		byStrategy[o.Strategy]++
	}
	for strategy, n := range byStrategy {
		s.metrics.RecordOpportunities(ctx, string(strategy), n)
	}

	normalized := normalize.Normalize(merged, s.cfg.NormalizerConfig())
	ranked := rank.Rank(normalized, req.Policy, req.RankLimit)

	port := portfolio.Optimize(ranked, s.cfg.OptimizerConfig(), s.cfg.RiskConfig(), req.Capital,
		scanCfg.MinReturn, scanCfg.MaxRiskScore, scanCfg.MinConfidence)

	status := ports.ScanOK
	if partial {
		status = ports.ScanPartial
	}
	if port.Tier == ports.TierInfeasible {
		status = ports.ScanInfeasible
	}

	s.metrics.RecordScanDuration(ctx, time.Since(startedAt).Seconds())

	return Result{
		ScanID:        scanID,
		Opportunities: normalized,
		Ranked:        ranked,
		Portfolio:     port,
		Diagnostics:   diagnostics,
		Status:        status,
	}
}
