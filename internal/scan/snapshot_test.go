package scan

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"arbfind/internal/gateway"
	"arbfind/internal/obs"
	"arbfind/internal/ports"
	"arbfind/internal/ports/memsource"
)

func noopMeter() metric.Meter { return noop.NewMeterProvider().Meter("test") }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestBuildSnapshot_PopulatesFromGatewayReads(t *testing.T) {
	now := time.Now()
	src := memsource.New("test-exchange").
		WithTicker(ports.SpotTicker{Symbol: "BTCUSDT", Bid: decimal.NewFromInt(59990), Ask: decimal.NewFromInt(60000), Timestamp: now}).
		WithFunding(ports.FundingRateSample{Symbol: "BTCUSDT-PERP", FundingRate: decimal.NewFromFloat(0.0001), Timestamp: now}).
		WithFiat(ports.FiatRate{Base: "USDT", Quote: "COP", Rate: decimal.NewFromInt(4000), Timestamp: now})

	gatewayCfg := ports.GatewayConfig{SpotTTL: time.Minute, OrderBookTTL: time.Minute, FundingTTL: time.Minute, BasisTTL: time.Minute, P2PTTL: time.Minute, FiatTTL: time.Minute, StalenessMultiplier: 3}
	gw := gateway.New(src, []ports.MarketDataSource{src}, gatewayCfg, fixedClock{now}, obs.NewNop(), obs.NewMetrics(noopMeter()))

	snap, diagnostics := BuildSnapshot(context.Background(), gw, fixedClock{now}, Universe{
		SpotSymbols: []string{"BTCUSDT"},
		FiatPairs:   [][2]string{{"USDT", "COP"}},
	})

	require.Contains(t, snap.Tickers, "BTCUSDT")
	assert.Contains(t, snap.FundingRates, "BTCUSDT-PERP")
	assert.Contains(t, snap.FiatRates, "USDT|COP")
	foundOrderBookDiagnostic := false
	for _, d := range diagnostics {
		if strings.HasPrefix(d, "orderbook BTCUSDT:") {
			foundOrderBookDiagnostic = true
		}
	}
	assert.True(t, foundOrderBookDiagnostic, "expected a diagnostic for the missing order book, got %v", diagnostics)
}

func TestBuildSnapshot_MissingSourceDataYieldsDiagnosticNotError(t *testing.T) {
	now := time.Now()
	src := memsource.New("test-exchange")
	gatewayCfg := ports.GatewayConfig{SpotTTL: time.Minute, OrderBookTTL: time.Minute, FundingTTL: time.Minute, BasisTTL: time.Minute, P2PTTL: time.Minute, FiatTTL: time.Minute, StalenessMultiplier: 3}
	gw := gateway.New(src, nil, gatewayCfg, fixedClock{now}, obs.NewNop(), obs.NewMetrics(noopMeter()))

	snap, diagnostics := BuildSnapshot(context.Background(), gw, fixedClock{now}, Universe{
		SpotSymbols: []string{"ETHUSDT"},
	})

	assert.Empty(t, snap.Tickers)
	assert.NotEmpty(t, diagnostics)
}
