package triangle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func TestScan_TriangularArbitrageFromFiatRates(t *testing.T) {
	now := time.Now()
	snap := ports.Snapshot{
		PinnedAt: now,
		FiatRates: map[string]ports.FiatRate{
			"USDT|COP": {Base: "USDT", Quote: "COP", Rate: decimal.NewFromFloat(4000)},
			"COP|VES":  {Base: "COP", Quote: "VES", Rate: decimal.NewFromFloat(0.009)},
			"VES|USDT": {Base: "VES", Quote: "USDT", Rate: decimal.NewFromFloat(0.028)},
		},
	}
	cfg := ports.StrategyConfig{TriangleMaxHops: 4, TriangleStartAssets: []string{"USDT"}}

	opps := Scan(snap, cfg, nil)
	require.NotEmpty(t, opps)
	for _, o := range opps {
		assert.Equal(t, ports.StrategyTriangle, o.Strategy)
		assert.True(t, o.Score.GreaterThanOrEqual(decimal.Zero))
		assert.True(t, o.Score.LessThanOrEqual(decimal.NewFromInt(100)))
	}
}

func TestScan_NoArbitrageYieldsNoOpportunities(t *testing.T) {
	snap := ports.Snapshot{
		FiatRates: map[string]ports.FiatRate{
			"USDT|COP": {Base: "USDT", Quote: "COP", Rate: decimal.NewFromFloat(4096)},
			"COP|VES":  {Base: "COP", Quote: "VES", Rate: decimal.NewFromFloat(0.0078125)},
			"VES|USDT": {Base: "VES", Quote: "USDT", Rate: decimal.NewFromFloat(0.03125)},
		},
	}
	cfg := ports.StrategyConfig{TriangleMaxHops: 4, TriangleStartAssets: []string{"USDT"}}

	opps := Scan(snap, cfg, nil)
	assert.Empty(t, opps)
}

func TestScan_EmptySnapshotYieldsNoOpportunities(t *testing.T) {
	opps := Scan(ports.Snapshot{}, ports.StrategyConfig{}, nil)
	assert.Empty(t, opps)
}
