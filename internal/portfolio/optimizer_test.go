package portfolio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func candidateSet() []ports.Opportunity {
	return []ports.Opportunity{
		{ID: "a", Strategy: ports.StrategyFunding, ExpectedReturn: decimal.NewFromFloat(0.08), RiskScore: decimal.NewFromFloat(20), Confidence: decimal.NewFromFloat(80), LiquidityUSD: decimal.NewFromFloat(2_000_000)},
		{ID: "b", Strategy: ports.StrategyDeltaNeutral, ExpectedReturn: decimal.NewFromFloat(0.06), RiskScore: decimal.NewFromFloat(25), Confidence: decimal.NewFromFloat(75), LiquidityUSD: decimal.NewFromFloat(1_500_000)},
		{ID: "c", Strategy: ports.StrategyTriangle, ExpectedReturn: decimal.NewFromFloat(0.04), RiskScore: decimal.NewFromFloat(35), Confidence: decimal.NewFromFloat(60), LiquidityUSD: decimal.NewFromFloat(800_000)},
	}
}

func TestOptimize_WeightsSumToOne(t *testing.T) {
	portfolio := Optimize(candidateSet(), ports.OptimizerConfig{}, ports.RiskConfig{}, decimal.NewFromInt(100_000), 0, 100, 0)
	require.NotEmpty(t, portfolio.Allocations)
	var sum decimal.Decimal
	for _, a := range portfolio.Allocations {
		sum = sum.Add(a.Weight)
	}
	assert.InDelta(t, 1.0, mustFloat(sum), 1e-6)
}

func TestOptimize_ExcludesSpotP2PByDefault(t *testing.T) {
	opps := append(candidateSet(), ports.Opportunity{
		ID: "p2p", Strategy: ports.StrategySpotP2P, ExpectedReturn: decimal.NewFromFloat(0.1),
		RiskScore: decimal.NewFromFloat(10), Confidence: decimal.NewFromFloat(90), LiquidityUSD: decimal.NewFromFloat(100_000),
	})
	portfolio := Optimize(opps, ports.OptimizerConfig{}, ports.RiskConfig{}, decimal.NewFromInt(100_000), 0, 100, 0)
	for _, a := range portfolio.Allocations {
		assert.NotEqual(t, "p2p", a.OpportunityID)
	}
}

func TestOptimize_IncludesSpotP2PWhenToggled(t *testing.T) {
	opps := append(candidateSet(), ports.Opportunity{
		ID: "p2p", Strategy: ports.StrategySpotP2P, ExpectedReturn: decimal.NewFromFloat(0.5),
		RiskScore: decimal.NewFromFloat(5), Confidence: decimal.NewFromFloat(95), LiquidityUSD: decimal.NewFromFloat(5_000_000),
	})
	portfolio := Optimize(opps, ports.OptimizerConfig{IncludeSpotP2P: true}, ports.RiskConfig{}, decimal.NewFromInt(100_000), 0, 100, 0)
	found := false
	for _, a := range portfolio.Allocations {
		if a.OpportunityID == "p2p" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestOptimize_NoCandidatesYieldsInfeasible(t *testing.T) {
	portfolio := Optimize(nil, ports.OptimizerConfig{}, ports.RiskConfig{}, decimal.NewFromInt(100_000), 0, 100, 0)
	assert.Equal(t, ports.TierInfeasible, portfolio.Tier)
	assert.Empty(t, portfolio.Allocations)
}

func TestOptimize_CapsAtMaxPositions(t *testing.T) {
	opps := make([]ports.Opportunity, 0, 10)
	for i := 0; i < 10; i++ {
		opps = append(opps, ports.Opportunity{
			ID: string(rune('a' + i)), Strategy: ports.StrategyFunding,
			ExpectedReturn: decimal.NewFromFloat(0.05 + float64(i)*0.001),
			RiskScore:      decimal.NewFromFloat(20),
			Confidence:     decimal.NewFromFloat(70),
			LiquidityUSD:   decimal.NewFromFloat(1_000_000),
		})
	}
	portfolio := Optimize(opps, ports.OptimizerConfig{MaxPositions: 3, MinWeight: 0}, ports.RiskConfig{}, decimal.NewFromInt(100_000), 0, 100, 0)
	assert.LessOrEqual(t, len(portfolio.Allocations), 3)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
