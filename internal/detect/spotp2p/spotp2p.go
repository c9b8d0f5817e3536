// Package spotp2p implements the Spot-to-P2P Detector (C3.5): buy an
// asset at spot near USD par and sell it into the best peer-to-peer bid
// in local fiat, grounded on the reference architecture's
// internal/trading/arbitrage/analyzer.go leg construction.
package spotp2p

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

const p2pFee = 0.001 // payment-rail friction assumed on the P2P leg

// Scan finds, for every configured (asset, fiat) pair, the best
// reputation-filtered P2P bid and emits an opportunity when its
// effective rate beats the official spot/fiat conversion by the
// configured margin.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig) []ports.Opportunity {
	var out []ports.Opportunity
	for _, pair := range cfg.SpotP2PPairs {
		asset, fiat := pair[0], pair[1]
		ticker, ok := snap.Tickers[asset+"USDT"]
		if !ok {
			continue
		}
		fiatRate, ok := snap.FiatRates["USDT|"+fiat]
		if !ok {
			continue
		}
		ads := snap.P2PAds[asset+"|"+fiat]
		best, ok := bestBid(ads, cfg.SpotP2PMerchantMinScore)
		if !ok {
			continue
		}
		minMargin := marginFor(fiat, cfg)
		opp, ok := build(asset, fiat, ticker, fiatRate, best, minMargin, snap.PinnedAt)
		if !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

func bestBid(ads []ports.P2PAd, minScore float64) (ports.P2PAd, bool) {
	var best ports.P2PAd
	found := false
	for _, ad := range ads {
		if ad.Side != ports.P2PBuy { // merchant buys asset from us at this price
			continue
		}
		score, _ := ad.MerchantScore.Float64()
		if score < minScore {
			continue
		}
		if !found || ad.Price.GreaterThan(best.Price) {
			best = ad
			found = true
		}
	}
	return best, found
}

func marginFor(fiat string, cfg ports.StrategyConfig) float64 {
	switch fiat {
	case "COP":
		if cfg.SpotP2PMinMarginCOP > 0 {
			return cfg.SpotP2PMinMarginCOP
		}
		return 0.025
	case "VES":
		if cfg.SpotP2PMinMarginVES > 0 {
			return cfg.SpotP2PMinMarginVES
		}
		return 0.03
	default:
		return 0.02
	}
}

func build(asset, fiat string, ticker ports.SpotTicker, fiatRate ports.FiatRate, ad ports.P2PAd, minMargin float64, pinnedAt time.Time) (ports.Opportunity, bool) {
	localPricePerAsset := ad.Price.Mul(decimal.NewFromFloat(1 - p2pFee))
	official := ticker.Ask.Mul(fiatRate.Rate)
	if official.IsZero() {
		return ports.Opportunity{}, false
	}
	profitPct := localPricePerAsset.Div(official).Sub(decimal.NewFromInt(1))
	profitF, _ := profitPct.Float64()
	if profitF < minMargin {
		return ports.Opportunity{}, false
	}

	size := ad.MaxQty
	if size.IsZero() {
		size = decimal.NewFromInt(1)
	}

	legs := []ports.Leg{
		{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: asset + "USDT", Size: size, Price: ticker.Ask},
		{Venue: ports.VenueP2P, Action: ports.ActionSell, Symbol: asset + "/" + fiat, Size: size, Price: ad.Price, Notes: "execution: semi-manual"},
	}

	liquidityUSD := ad.MaxQty.Mul(ad.Price).Div(fiatRate.Rate)
	score, _ := ad.MerchantScore.Float64()

	return ports.Opportunity{
		ID:             fmt.Sprintf("spotp2p:%s-%s", asset, fiat),
		Strategy:       ports.StrategySpotP2P,
		Legs:           legs,
		ExpectedReturn: profitPct,
		RiskScore:      decimal.NewFromFloat(100 - score),
		Confidence:     decimal.NewFromFloat(score),
		LiquidityUSD:   liquidityUSD,
		SemiManual:     true,
		CreatedAt:      pinnedAt,
		TTL:            15 * time.Minute,
		Diagnostics:    []string{fmt.Sprintf("merchant_score=%.1f completed_trades=%d", score, ad.CompletedTrades)},
	}, true
}
