package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func baseOpp() ports.Opportunity {
	return ports.Opportunity{
		Strategy:       ports.StrategyFunding,
		ExpectedReturn: decimal.NewFromFloat(0.02),
		FeesEst:        decimal.NewFromFloat(0.004),
		SlippageEst:    decimal.NewFromFloat(0.001),
		RiskScore:      decimal.NewFromFloat(20),
		Confidence:     decimal.NewFromFloat(80),
		LiquidityUSD:   decimal.NewFromFloat(500_000),
		Legs: []ports.Leg{
			{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: "BTCUSDT", Size: decimal.NewFromInt(1), Price: decimal.NewFromInt(60000)},
		},
	}
}

func TestNormalize_NetsFeesAndSlippage(t *testing.T) {
	out := Normalize([]ports.Opportunity{baseOpp()}, ports.NormalizerConfig{})
	require.Len(t, out, 1)
	assert.True(t, out[0].ExpectedReturn.Equal(decimal.NewFromFloat(0.015)))
}

func TestNormalize_HighReturnHighConfidenceYieldsBuy(t *testing.T) {
	o := baseOpp()
	o.ExpectedReturn = decimal.NewFromFloat(2)
	o.FeesEst = decimal.Zero
	o.SlippageEst = decimal.Zero
	o.RiskScore = decimal.NewFromFloat(5)
	o.Confidence = decimal.NewFromFloat(95)
	o.LiquidityUSD = decimal.NewFromFloat(20_000_000)
	sharpe := decimal.NewFromFloat(3)
	o.Sharpe = &sharpe

	out := Normalize([]ports.Opportunity{o}, ports.NormalizerConfig{})
	require.Len(t, out, 1)
	assert.True(t, out[0].Score.GreaterThanOrEqual(decimal.NewFromInt(60)))
	assert.Equal(t, ports.RecommendBuy, out[0].Recommendation)
	assert.Equal(t, ports.PriorityHigh, out[0].Priority)
}

func TestNormalize_LowScoreYieldsAvoid(t *testing.T) {
	o := baseOpp()
	o.ExpectedReturn = decimal.NewFromFloat(-0.1)
	o.FeesEst = decimal.Zero
	o.SlippageEst = decimal.Zero
	o.RiskScore = decimal.NewFromFloat(95)
	o.Confidence = decimal.NewFromFloat(10)
	o.LiquidityUSD = decimal.NewFromFloat(100)

	out := Normalize([]ports.Opportunity{o}, ports.NormalizerConfig{})
	require.Len(t, out, 1)
	assert.Equal(t, ports.RecommendAvoid, out[0].Recommendation)
	assert.Equal(t, ports.PriorityLow, out[0].Priority)
}

func TestNormalize_FingerprintStableAndOrderIndependent(t *testing.T) {
	o := baseOpp()
	o.Legs = []ports.Leg{
		{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: "A", Size: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)},
		{Venue: ports.VenuePerp, Action: ports.ActionSell, Symbol: "B", Size: decimal.NewFromInt(1), Price: decimal.NewFromInt(200)},
	}
	reversed := o
	reversed.Legs = []ports.Leg{o.Legs[1], o.Legs[0]}

	outA := Normalize([]ports.Opportunity{o}, ports.NormalizerConfig{})
	outB := Normalize([]ports.Opportunity{reversed}, ports.NormalizerConfig{})
	assert.Equal(t, outA[0].Fingerprint, outB[0].Fingerprint)
	assert.NotZero(t, outA[0].Fingerprint)
}

func TestNormalize_DefaultConfidenceWhenZeroAndNoHistory(t *testing.T) {
	o := baseOpp()
	o.Confidence = decimal.Zero
	o.Diagnostics = nil

	out := Normalize([]ports.Opportunity{o}, ports.NormalizerConfig{})
	assert.True(t, out[0].Confidence.Equal(decimal.NewFromInt(50)))
}
