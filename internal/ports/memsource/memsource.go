// Package memsource provides a deterministic in-memory MarketDataSource,
// the test and demonstration analogue of the reference architecture's
// internal/mock/exchange.go.
package memsource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"arbfind/internal/ports"
)

// Source is a fixed, in-memory MarketDataSource. All reads are served from
// maps populated ahead of time; nothing is ever stale or rate-limited,
// which makes it suitable for deterministic pipeline tests.
type Source struct {
	mu       sync.RWMutex
	name     string
	tickers  map[string]ports.SpotTicker
	books    map[string]ports.OrderBookLevel2
	funding  []ports.FundingRateSample
	basis    map[string]ports.FuturesBasis
	p2p      map[string][]ports.P2PAd
	fiat     map[string]ports.FiatRate
	history  map[string][]ports.PricePoint

	missing map[string]bool // keys that should return ErrNotFound
}

// New returns an empty Source; use the With* builders to populate it.
func New(name string) *Source {
	return &Source{
		name:    name,
		tickers: map[string]ports.SpotTicker{},
		books:   map[string]ports.OrderBookLevel2{},
		basis:   map[string]ports.FuturesBasis{},
		p2p:     map[string][]ports.P2PAd{},
		fiat:    map[string]ports.FiatRate{},
		history: map[string][]ports.PricePoint{},
		missing: map[string]bool{},
	}
}

func (s *Source) Name() string { return s.name }

func (s *Source) WithTicker(t ports.SpotTicker) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers[t.Symbol] = t
	return s
}

func (s *Source) WithBook(b ports.OrderBookLevel2) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.Symbol] = b
	return s
}

func (s *Source) WithFunding(f ports.FundingRateSample) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funding = append(s.funding, f)
	return s
}

func (s *Source) WithBasis(b ports.FuturesBasis) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basis[b.Symbol] = b
	return s
}

func (s *Source) WithP2PAd(ad ports.P2PAd) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := p2pKey(ad.Asset, ad.Fiat, ad.Side)
	s.p2p[key] = append(s.p2p[key], ad)
	return s
}

func (s *Source) WithFiat(r ports.FiatRate) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fiat[fiatKey(r.Base, r.Quote)] = r
	return s
}

func (s *Source) WithHistory(symbol string, points []ports.PricePoint) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[symbol] = points
	return s
}

// WithMissing marks symbol as absent: SpotTicker reads for it return
// ports.ErrNotFound. The other reads do not consult this mark.
func (s *Source) WithMissing(symbol string) *Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.missing[symbol] = true
	return s
}

func p2pKey(asset, fiat string, side ports.P2PSide) string {
	return fmt.Sprintf("%s|%s|%s", asset, fiat, side)
}

func fiatKey(base, quote string) string { return base + "|" + quote }

func (s *Source) SpotTicker(_ context.Context, symbol string) (ports.SpotTicker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.missing[symbol] {
		return ports.SpotTicker{}, fmt.Errorf("%s: %w", symbol, ports.ErrNotFound)
	}
	t, ok := s.tickers[symbol]
	if !ok {
		return ports.SpotTicker{}, fmt.Errorf("%s: %w", symbol, ports.ErrNotFound)
	}
	return t, nil
}

func (s *Source) OrderBook(_ context.Context, symbol string, depth int) (ports.OrderBookLevel2, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[symbol]
	if !ok {
		return ports.OrderBookLevel2{}, fmt.Errorf("%s: %w", symbol, ports.ErrNotFound)
	}
	if depth > 0 && depth < len(b.Bids) {
		b.Bids = b.Bids[:depth]
	}
	if depth > 0 && depth < len(b.Asks) {
		b.Asks = b.Asks[:depth]
	}
	return b, nil
}

func (s *Source) FundingRates(_ context.Context) ([]ports.FundingRateSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.FundingRateSample, len(s.funding))
	copy(out, s.funding)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Source) FuturesBasis(_ context.Context, symbol string) (ports.FuturesBasis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.basis[symbol]
	if !ok {
		return ports.FuturesBasis{}, fmt.Errorf("%s: %w", symbol, ports.ErrNotFound)
	}
	return b, nil
}

func (s *Source) P2PAds(_ context.Context, asset, fiat string, side ports.P2PSide) ([]ports.P2PAd, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ads := s.p2p[p2pKey(asset, fiat, side)]
	out := make([]ports.P2PAd, len(ads))
	copy(out, ads)
	return out, nil
}

func (s *Source) FiatRate(_ context.Context, base, quote string) (ports.FiatRate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.fiat[fiatKey(base, quote)]
	if !ok {
		return ports.FiatRate{}, fmt.Errorf("%s/%s: %w", base, quote, ports.ErrNotFound)
	}
	return r, nil
}

func (s *Source) PriceHistory(_ context.Context, symbol string, window int) ([]ports.PricePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[symbol]
	if len(h) == 0 {
		return nil, nil
	}
	if window > 0 && window < len(h) {
		h = h[len(h)-window:]
	}
	out := make([]ports.PricePoint, len(h))
	copy(out, h)
	return out, nil
}

var _ ports.MarketDataSource = (*Source)(nil)
