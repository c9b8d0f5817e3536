package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func sampleOpps() []ports.Opportunity {
	return []ports.Opportunity{
		{ID: "a", Strategy: ports.StrategyFunding, ExpectedReturn: decimal.NewFromFloat(0.05), LiquidityUSD: decimal.NewFromFloat(1_000_000)},
		{ID: "b", Strategy: ports.StrategyTriangle, ExpectedReturn: decimal.NewFromFloat(0.03), LiquidityUSD: decimal.NewFromFloat(500_000)},
	}
}

func TestPortfolioVariance_DiagonalOnlyEqualsWeightedSumOfSquares(t *testing.T) {
	weights := []float64{0.6, 0.4}
	sigmas := []float64{0.1, 0.2}
	corr := [][]float64{{1, 0}, {0, 1}}
	v := PortfolioVariance(weights, sigmas, corr)
	expected := 0.6*0.6*0.1*0.1 + 0.4*0.4*0.2*0.2
	assert.InDelta(t, expected, v, 1e-9)
}

func TestHerfindahl_ConcentratedPortfolioIsHigh(t *testing.T) {
	assert.InDelta(t, 1.0, Herfindahl([]float64{1.0}), 1e-9)
	assert.InDelta(t, 0.5, Herfindahl([]float64{0.5, 0.5}), 1e-9)
}

func TestAnalyze_ReturnsPopulatedRiskAndFourStressResults(t *testing.T) {
	a := NewAnalyzer(ports.RiskConfig{})
	opps := sampleOpps()
	weights := []float64{0.5, 0.5}
	pr, stress := a.Analyze(opps, weights, decimal.NewFromInt(100_000))

	assert.True(t, pr.SigmaPortfolio >= 0)
	assert.True(t, pr.VaR95.GreaterThanOrEqual(decimal.Zero))
	assert.True(t, pr.VaR99.GreaterThanOrEqual(pr.VaR95))
	require.Len(t, stress, 4)
	scenarios := map[ports.StressScenario]bool{}
	for _, s := range stress {
		scenarios[s.Scenario] = true
	}
	assert.True(t, scenarios[ports.StressMarketCrash])
	assert.True(t, scenarios[ports.StressLiquidityCrisis])
	assert.True(t, scenarios[ports.StressFundingReversal])
	assert.True(t, scenarios[ports.StressWorstCase])
}

func TestCheckLimits_FlagsOverConcentratedStrategyAllocation(t *testing.T) {
	a := NewAnalyzer(ports.RiskConfig{MaxStrategyAllocation: 0.4})
	opps := []ports.Opportunity{
		{ID: "a", Strategy: ports.StrategyFunding, ExpectedReturn: decimal.NewFromFloat(0.05), LiquidityUSD: decimal.NewFromFloat(1_000_000)},
	}
	weights := []float64{0.9}
	pr, _ := a.Analyze(opps, weights, decimal.NewFromInt(100_000))
	violations := a.CheckLimits(pr, opps, weights)
	assert.Contains(t, violations, "max_strategy_allocation")
}

func TestKellySize_ZeroConfiguredVolatilityYieldsNonNegativeWeight(t *testing.T) {
	a := NewAnalyzer(ports.RiskConfig{BaseVolatility: map[ports.Strategy]float64{ports.StrategyFunding: 0}})
	o := ports.Opportunity{Strategy: ports.StrategyFunding, ExpectedReturn: decimal.NewFromFloat(0.1), LiquidityUSD: decimal.NewFromFloat(1_000_000)}
	w := a.KellySize(o, decimal.NewFromInt(100_000))
	assert.True(t, w.GreaterThanOrEqual(decimal.Zero))
}

func TestStressFundingReversal_InvertsOnlyFundingStrategy(t *testing.T) {
	opps := []ports.Opportunity{
		{ID: "funding-1", Strategy: ports.StrategyFunding, ExpectedReturn: decimal.NewFromFloat(0.05)},
		{ID: "triangle-1", Strategy: ports.StrategyTriangle, ExpectedReturn: decimal.NewFromFloat(0.02)},
	}
	weights := []float64{0.5, 0.5}
	result := stressFundingReversal(opps, weights, decimal.NewFromInt(100_000))
	expectedPnL := 0.5*(-0.05)*100_000 + 0.5*0.02*100_000
	pnlF, _ := result.PnLUSD.Float64()
	assert.InDelta(t, expectedPnL, pnlF, 1e-6)
}
