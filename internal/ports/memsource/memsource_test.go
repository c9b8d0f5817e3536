package memsource

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/ports"
)

func TestSource_SpotTicker(t *testing.T) {
	src := New("test").WithTicker(ports.SpotTicker{
		Symbol: "BTCUSDT",
		Bid:    decimal.NewFromInt(59999),
		Ask:    decimal.NewFromInt(60000),
	})

	got, err := src.SpotTicker(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, got.Ask.GreaterThan(got.Bid))
}

func TestSource_MissingReturnsNotFound(t *testing.T) {
	src := New("test")
	_, err := src.SpotTicker(context.Background(), "ETHUSDT")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestSource_ExplicitMissingOverridesPresence(t *testing.T) {
	src := New("test").
		WithTicker(ports.SpotTicker{Symbol: "BTCUSDT"}).
		WithMissing("BTCUSDT")
	_, err := src.SpotTicker(context.Background(), "BTCUSDT")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestSource_PriceHistoryWindow(t *testing.T) {
	var pts []ports.PricePoint
	for i := 0; i < 10; i++ {
		pts = append(pts, ports.PricePoint{Symbol: "ETHUSDT", Close: decimal.NewFromInt(int64(i)), Timestamp: time.Unix(int64(i), 0)})
	}
	src := New("test").WithHistory("ETHUSDT", pts)

	got, err := src.PriceHistory(context.Background(), "ETHUSDT", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "7", got[0].Close.String())
}

func TestSource_FundingRatesSortedBySymbol(t *testing.T) {
	src := New("test").
		WithFunding(ports.FundingRateSample{Symbol: "ETHUSDT-PERP"}).
		WithFunding(ports.FundingRateSample{Symbol: "BTCUSDT-PERP"})

	got, err := src.FundingRates(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "BTCUSDT-PERP", got[0].Symbol)
}
