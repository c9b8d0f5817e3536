package graph

import (
	"strings"

	"arbfind/internal/ports"
)

// BuildFromSnapshot constructs a Graph from a pinned Snapshot: one edge pair
// per spot symbol (split on a known quote-asset suffix), one edge pair per
// fiat rate, and one asset/fiat edge per P2P key from the best ad in its
// list (a BUY ad gives asset -> fiat, a SELL ad fiat -> asset); a list that
// mixes sides still yields a single edge. Symbols that do not end in any of
// quoteAssets are skipped rather than guessed at.
func BuildFromSnapshot(snap ports.Snapshot, quoteAssets []string, takerFee, expectedSlippage float64) *Graph {
	g := New()

	for symbol, t := range snap.Tickers {
		base, quote, ok := splitSymbol(symbol, quoteAssets)
		if !ok || t.Ask.IsZero() || t.Bid.IsZero() {
			continue
		}
		liq := liquidityUSD(t)
		askF, _ := t.Ask.Float64()
		bidF, _ := t.Bid.Float64()
		if askF <= 0 || bidF <= 0 {
			continue
		}
		g.AddEdge(base, quote, bidF, takerFee, expectedSlippage, liq) // sell base, receive quote
		g.AddEdge(quote, base, 1/askF, takerFee, expectedSlippage, liq) // buy base with quote
	}

	for _, r := range snap.FiatRates {
		rateF, _ := r.Rate.Float64()
		if rateF <= 0 {
			continue
		}
		liq := 1e9 // fiat rails are not liquidity-constrained the way order books are
		g.AddEdge(r.Base, r.Quote, rateF, 0, 0, liq)
		g.AddEdge(r.Quote, r.Base, 1/rateF, 0, 0, liq)
	}

	for key, ads := range snap.P2PAds {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 {
			continue
		}
		asset, fiat := parts[0], parts[1]
		best, liq, ok := bestAd(ads)
		if !ok {
			continue
		}
		priceF, _ := best.Price.Float64()
		if priceF <= 0 {
			continue
		}
		switch best.Side {
		case ports.P2PBuy: // merchant buys asset with fiat => we can sell asset for fiat
			g.AddEdge(asset, fiat, priceF, 0, expectedSlippage, liq)
		case ports.P2PSell: // merchant sells asset for fiat => we can buy asset with fiat
			g.AddEdge(fiat, asset, 1/priceF, 0, expectedSlippage, liq)
		}
	}

	return g
}

func splitSymbol(symbol string, quoteAssets []string) (base, quote string, ok bool) {
	for _, q := range quoteAssets {
		if strings.HasSuffix(symbol, q) && len(symbol) > len(q) {
			return symbol[:len(symbol)-len(q)], q, true
		}
	}
	return "", "", false
}

func liquidityUSD(t ports.SpotTicker) float64 {
	vol, _ := t.Volume24h.Float64()
	last, _ := t.Last.Float64()
	if last == 0 {
		last, _ = t.Ask.Float64()
	}
	return vol * last
}

func bestAd(ads []ports.P2PAd) (ports.P2PAd, float64, bool) {
	if len(ads) == 0 {
		return ports.P2PAd{}, 0, false
	}
	best := ads[0]
	for _, ad := range ads[1:] {
		if ad.Side == ports.P2PBuy && ad.Price.GreaterThan(best.Price) {
			best = ad
		}
		if ad.Side == ports.P2PSell && ad.Price.LessThan(best.Price) {
			best = ad
		}
	}
	maxQty, _ := best.MaxQty.Float64()
	price, _ := best.Price.Float64()
	return best, maxQty * price, true
}
