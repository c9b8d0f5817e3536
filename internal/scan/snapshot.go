package scan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"arbfind/internal/gateway"
	"arbfind/internal/ports"
)

// Universe names the symbols, pairs, and history windows one scan should
// pull through the gateway before pinning a Snapshot (spec §4.8 step 1).
type Universe struct {
	SpotSymbols    []string
	BasisSymbols   []string
	StatArbPairs   [][2]string // (symbolA, symbolB), history only
	P2PPairs       [][2]string // (asset, fiat)
	FiatPairs      [][2]string // (base, quote)
	HistoryWindow  int
	OrderBookDepth int
}

// BuildSnapshot assembles a pinned Snapshot from the gateway's per-kind
// reads, fanned out with an errgroup the way the reference architecture's
// PortfolioController.executeBatch runs a soft batch: every goroutine
// always returns nil, so one source failing never cancels its siblings. A
// failed read becomes a diagnostic string instead, same as a detector
// timing out in the orchestrator.
func BuildSnapshot(ctx context.Context, gw *gateway.Gateway, clock ports.Clock, u Universe) (ports.Snapshot, []string) {
	snap := ports.Snapshot{
		PinnedAt:     clock.Now(),
		Tickers:      make(map[string]ports.SpotTicker),
		Books:        make(map[string]ports.OrderBookLevel2),
		FundingRates: make(map[string]ports.FundingRateSample),
		FundingHist:  make(map[string][]ports.FundingRateSample),
		Basis:        make(map[string]ports.FuturesBasis),
		BasisHist:    make(map[string][]ports.FuturesBasis),
		P2PAds:       make(map[string][]ports.P2PAd),
		FiatRates:    make(map[string]ports.FiatRate),
		PriceHistory: make(map[string][]ports.PricePoint),
	}

	var mu sync.Mutex
	var diagnostics []string
	note := func(format string, args ...interface{}) {
		mu.Lock()
		diagnostics = append(diagnostics, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	var g errgroup.Group

	for _, symbol := range u.SpotSymbols {
		symbol := symbol
		g.Go(func() error {
			if t, err := gw.GetSpot(ctx, symbol); err != nil {
				note("spot %s: %v", symbol, err)
			} else {
				mu.Lock()
				snap.Tickers[symbol] = t
				mu.Unlock()
			}
			depth := u.OrderBookDepth
			if depth <= 0 {
				depth = 10
			}
			if b, err := gw.GetOrderBook(ctx, symbol, depth); err != nil {
				note("orderbook %s: %v", symbol, err)
			} else {
				mu.Lock()
				snap.Books[symbol] = b
				mu.Unlock()
			}
			if u.HistoryWindow > 0 {
				if h, err := gw.GetPriceHistory(ctx, symbol, u.HistoryWindow); err != nil {
					note("price_history %s: %v", symbol, err)
				} else {
					mu.Lock()
					snap.PriceHistory[symbol] = h
					mu.Unlock()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		samples, err := gw.GetFundingRates(ctx)
		if err != nil {
			note("funding_rates: %v", err)
			return nil
		}
		mu.Lock()
		for _, s := range samples {
			snap.FundingRates[s.Symbol] = s
			snap.FundingHist[s.Symbol] = append(snap.FundingHist[s.Symbol], s)
		}
		mu.Unlock()
		return nil
	})

	for _, symbol := range u.BasisSymbols {
		symbol := symbol
		g.Go(func() error {
			b, err := gw.GetBasis(ctx, symbol)
			if err != nil {
				note("basis %s: %v", symbol, err)
				return nil
			}
			mu.Lock()
			snap.Basis[symbol] = b
			snap.BasisHist[symbol] = append(snap.BasisHist[symbol], b)
			mu.Unlock()
			return nil
		})
	}

	for _, pair := range u.StatArbPairs {
		if u.HistoryWindow <= 0 {
			continue
		}
		for _, symbol := range pair {
			symbol := symbol
			g.Go(func() error {
				h, err := gw.GetPriceHistory(ctx, symbol, u.HistoryWindow)
				if err != nil {
					note("price_history %s: %v", symbol, err)
					return nil
				}
				mu.Lock()
				snap.PriceHistory[symbol] = h
				mu.Unlock()
				return nil
			})
		}
	}

	for _, pair := range u.P2PPairs {
		asset, fiat := pair[0], pair[1]
		g.Go(func() error {
			ads, err := gw.GetP2P(ctx, asset, fiat, ports.P2PBuy)
			if err != nil {
				note("p2p %s/%s: %v", asset, fiat, err)
				return nil
			}
			mu.Lock()
			snap.P2PAds[asset+"|"+fiat] = ads
			mu.Unlock()
			return nil
		})
	}

	for _, pair := range u.FiatPairs {
		base, quote := pair[0], pair[1]
		g.Go(func() error {
			r, err := gw.GetFiat(ctx, base, quote)
			if err != nil {
				note("fiat %s/%s: %v", base, quote, err)
				return nil
			}
			mu.Lock()
			snap.FiatRates[base+"|"+quote] = r
			mu.Unlock()
			return nil
		})
	}

	g.Wait()
	return snap, diagnostics
}
