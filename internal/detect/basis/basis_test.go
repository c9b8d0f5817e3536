package basis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func TestScan_ContangoPerpProducesLongSpotShortFutures(t *testing.T) {
	now := time.Now()
	snap := ports.Snapshot{
		PinnedAt: now,
		Basis: map[string]ports.FuturesBasis{
			"BTCUSDT": {
				Symbol:       "BTCUSDT",
				SpotPrice:    decimal.NewFromInt(60000),
				FuturesPrice: decimal.NewFromInt(60600),
				ExpiryOrPerp: "PERP",
				Basis:        decimal.NewFromFloat(0.01),
				Timestamp:    now,
			},
		},
		FundingRates: map[string]ports.FundingRateSample{
			"BTCUSDT": {Symbol: "BTCUSDT", FundingRate: decimal.NewFromFloat(0.0001)},
		},
	}
	cfg := ports.StrategyConfig{DeltaNeutralMinBasis: 0.002, TakerFee: 0.0004, FundingIntervalHours: 8}

	opps := Scan(snap, cfg)
	require.Len(t, opps, 1)
	o := opps[0]
	assert.Equal(t, ports.StrategyDeltaNeutral, o.Strategy)
	require.Len(t, o.Legs, 2)
	assert.Equal(t, ports.ActionBuy, o.Legs[0].Action)
	assert.Equal(t, ports.VenueSpot, o.Legs[0].Venue)
	assert.Equal(t, ports.ActionSell, o.Legs[1].Action)
	assert.Equal(t, ports.VenuePerp, o.Legs[1].Venue)
}

func TestScan_BackwardationFlagsDirectionRisk(t *testing.T) {
	now := time.Now()
	snap := ports.Snapshot{
		PinnedAt: now,
		Basis: map[string]ports.FuturesBasis{
			"ETHUSDT": {
				Symbol:       "ETHUSDT",
				SpotPrice:    decimal.NewFromInt(3000),
				FuturesPrice: decimal.NewFromInt(2940),
				ExpiryOrPerp: "PERP",
				Basis:        decimal.NewFromFloat(-0.02),
				Timestamp:    now,
			},
		},
	}
	cfg := ports.StrategyConfig{DeltaNeutralMinBasis: 0.002, TakerFee: 0.0004}

	opps := Scan(snap, cfg)
	require.Len(t, opps, 1)
	assert.Contains(t, opps[0].Diagnostics, "backwardation_direction_risk")
	assert.Equal(t, ports.ActionBuy, opps[0].Legs[0].Action)
	assert.Equal(t, ports.VenuePerp, opps[0].Legs[0].Venue)
}

func TestScan_BelowMinBasisThresholdIsSkipped(t *testing.T) {
	now := time.Now()
	snap := ports.Snapshot{
		Basis: map[string]ports.FuturesBasis{
			"BTCUSDT": {Symbol: "BTCUSDT", Basis: decimal.NewFromFloat(0.0005), Timestamp: now},
		},
	}
	cfg := ports.StrategyConfig{DeltaNeutralMinBasis: 0.002}

	opps := Scan(snap, cfg)
	assert.Empty(t, opps)
}

func TestScan_DatedFutureUsesDaysToExpiry(t *testing.T) {
	now := time.Now()
	expiry := now.Add(30 * 24 * time.Hour)
	snap := ports.Snapshot{
		PinnedAt: now,
		Basis: map[string]ports.FuturesBasis{
			"BTCUSDT-0930": {
				Symbol:       "BTCUSDT-0930",
				SpotPrice:    decimal.NewFromInt(60000),
				FuturesPrice: decimal.NewFromInt(61200),
				ExpiryOrPerp: expiry.Format(time.RFC3339),
				Basis:        decimal.NewFromFloat(0.02),
				Timestamp:    now,
			},
		},
	}
	cfg := ports.StrategyConfig{DeltaNeutralMinBasis: 0.002, TakerFee: 0.0004}

	opps := Scan(snap, cfg)
	require.Len(t, opps, 1)
	assert.Equal(t, time.Duration(15*24)*time.Hour, opps[0].Horizon) // ceil(30*0.5)=15 days
}
