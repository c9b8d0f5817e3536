package scan

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/graph"
	"arbfind/internal/obs"
	"arbfind/internal/ports"
)

type fakeConfig struct {
	scan       ports.ScanConfig
	strategy   ports.StrategyConfig
	risk       ports.RiskConfig
	optimizer  ports.OptimizerConfig
	normalizer ports.NormalizerConfig
	gatewayCfg ports.GatewayConfig
}

func (c fakeConfig) ScanConfig() ports.ScanConfig             { return c.scan }
func (c fakeConfig) StrategyConfig() ports.StrategyConfig     { return c.strategy }
func (c fakeConfig) RiskConfig() ports.RiskConfig             { return c.risk }
func (c fakeConfig) OptimizerConfig() ports.OptimizerConfig   { return c.optimizer }
func (c fakeConfig) NormalizerConfig() ports.NormalizerConfig { return c.normalizer }
func (c fakeConfig) GatewayConfig() ports.GatewayConfig       { return c.gatewayCfg }

func fundingSnapshot() ports.Snapshot {
	now := time.Now()
	return ports.Snapshot{
		PinnedAt: now,
		Tickers: map[string]ports.SpotTicker{
			"BTCUSDT": {Symbol: "BTCUSDT", Bid: decimal.NewFromInt(59990), Ask: decimal.NewFromInt(60000), Timestamp: now},
		},
		FundingRates: map[string]ports.FundingRateSample{
			"BTCUSDT-PERP": {Symbol: "BTCUSDT-PERP", FundingRate: decimal.NewFromFloat(0.0006), NextFundingTime: now.Add(8 * time.Hour), Timestamp: now},
		},
	}
}

func baseStrategyConfig() ports.StrategyConfig {
	return ports.StrategyConfig{
		FundingMinAPY:        0.01,
		TakerFee:             0.0004,
		ExpectedSlippage:     0.0005,
		FundingIntervalHours: 8,
		TriangleStartAssets:  []string{"USDT"},
		TriangleMaxHops:      4,
	}
}

func TestScanner_Run_ProducesOKStatusWithOpportunities(t *testing.T) {
	pool := graph.NewCyclePool(2, 64, obs.NewNop())
	defer pool.StopAndWait()

	cfg := fakeConfig{
		scan:     ports.ScanConfig{ScanDeadline: 5 * time.Second, PerDetectorDeadline: 2 * time.Second},
		strategy: baseStrategyConfig(),
	}
	scanner := NewScanner(cfg, pool, obs.NewNop(), nil)

	result := scanner.Run(context.Background(), Request{
		Snapshot:  fundingSnapshot(),
		Capital:   decimal.NewFromInt(100_000),
		Policy:    ports.RankByScore,
		RankLimit: 10,
	})

	require.NotEmpty(t, result.Opportunities)
	assert.Equal(t, ports.ScanOK, result.Status)
	assert.NotEmpty(t, result.ScanID)
	assert.NotEmpty(t, result.Ranked)
}

func TestScanner_Run_EmptySnapshotYieldsEmptyStatus(t *testing.T) {
	pool := graph.NewCyclePool(2, 64, obs.NewNop())
	defer pool.StopAndWait()

	cfg := fakeConfig{
		scan:     ports.ScanConfig{ScanDeadline: 5 * time.Second, PerDetectorDeadline: 2 * time.Second},
		strategy: baseStrategyConfig(),
	}
	scanner := NewScanner(cfg, pool, obs.NewNop(), nil)

	result := scanner.Run(context.Background(), Request{
		Snapshot:  ports.Snapshot{},
		Capital:   decimal.NewFromInt(100_000),
		Policy:    ports.RankByScore,
		RankLimit: 10,
	})

	assert.Equal(t, ports.ScanEmpty, result.Status)
	assert.Empty(t, result.Opportunities)
}

func TestScanner_Run_CancelledContextYieldsNoPortfolio(t *testing.T) {
	pool := graph.NewCyclePool(2, 64, obs.NewNop())
	defer pool.StopAndWait()

	cfg := fakeConfig{
		scan:     ports.ScanConfig{ScanDeadline: 5 * time.Second, PerDetectorDeadline: 2 * time.Second},
		strategy: baseStrategyConfig(),
	}
	scanner := NewScanner(cfg, pool, obs.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := scanner.Run(ctx, Request{
		Snapshot:  fundingSnapshot(),
		Capital:   decimal.NewFromInt(100_000),
		Policy:    ports.RankByScore,
		RankLimit: 10,
	})

	assert.Equal(t, ports.ScanInfeasible, result.Status)
	assert.Empty(t, result.Portfolio.Allocations)
	assert.Contains(t, result.Diagnostics, "scan_cancelled")
}

func TestScanner_Run_IsDeterministicForThePinnedSnapshot(t *testing.T) {
	pool := graph.NewCyclePool(2, 64, obs.NewNop())
	defer pool.StopAndWait()

	cfg := fakeConfig{
		scan:     ports.ScanConfig{ScanDeadline: 5 * time.Second, PerDetectorDeadline: 2 * time.Second},
		strategy: baseStrategyConfig(),
	}
	scanner := NewScanner(cfg, pool, obs.NewNop(), nil)
	snap := fundingSnapshot()

	first := scanner.Run(context.Background(), Request{Snapshot: snap, Capital: decimal.NewFromInt(100_000), Policy: ports.RankByScore, RankLimit: 10})
	second := scanner.Run(context.Background(), Request{Snapshot: snap, Capital: decimal.NewFromInt(100_000), Policy: ports.RankByScore, RankLimit: 10})

	require.Len(t, second.Opportunities, len(first.Opportunities))
	for i := range first.Opportunities {
		assert.Equal(t, first.Opportunities[i].Fingerprint, second.Opportunities[i].Fingerprint)
		assert.True(t, first.Opportunities[i].Score.Equal(second.Opportunities[i].Score))
	}
}
