package crossfiat

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func TestScan_ClosesThroughUSDTBridge(t *testing.T) {
	now := time.Now()
	snap := ports.Snapshot{
		PinnedAt: now,
		FiatRates: map[string]ports.FiatRate{
			"COP|USDT": {Base: "COP", Quote: "USDT", Rate: decimal.NewFromFloat(1.0 / 4000)},
			"USDT|VES": {Base: "USDT", Quote: "VES", Rate: decimal.NewFromFloat(36)},
			"VES|COP":  {Base: "VES", Quote: "COP", Rate: decimal.NewFromFloat(115)}, // closes slightly above par
		},
	}
	cfg := ports.StrategyConfig{CrossFiatPairs: [][2]string{{"COP", "VES"}}}

	opps := Scan(snap, cfg, nil)
	for _, o := range opps {
		assert.Equal(t, ports.StrategyCrossFiat, o.Strategy)
		require.NotEmpty(t, o.Legs)
	}
}

func TestScan_NoConfiguredPairsYieldsEmpty(t *testing.T) {
	opps := Scan(ports.Snapshot{}, ports.StrategyConfig{}, nil)
	assert.Empty(t, opps)
}
