// Package gateway implements the Market Data Gateway (C1): a pull-based
// read interface over venue data that hides I/O behind a per-(source,key)
// TTL cache, a single-flight fill discipline, and a per-source circuit
// breaker, grounded on the reference architecture's pkg/http/client.go
// resilience pipeline.
package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"arbfind/internal/obs"
	"arbfind/internal/ports"
)

// Gateway is the single owned instance the orchestrator passes explicitly
// to every detector — no process-wide provider singleton, per spec §9's
// redesign note on module-level global state.
type Gateway struct {
	primary     ports.MarketDataSource
	fiatSources []ports.MarketDataSource // priority order: official, provider, ...

	cfg    ports.GatewayConfig
	clock  ports.Clock
	logger obs.Logger
	metrics *obs.Metrics

	cache   *ttlCache
	sf      *singleflight.Group
	health  *healthTracker
	pipelines map[string]*sourcePipeline
}

// New builds a Gateway. fiatSources should list at least two independent
// sources when cross-source divergence checking (§4.1) is desired; a single
// source is accepted and simply skips the divergence check.
func New(primary ports.MarketDataSource, fiatSources []ports.MarketDataSource, cfg ports.GatewayConfig, clock ports.Clock, logger obs.Logger, metrics *obs.Metrics) *Gateway {
	g := &Gateway{
		primary:     primary,
		fiatSources: fiatSources,
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
		metrics:     metrics,
		cache:       newTTLCache(),
		sf:          &singleflight.Group{},
		health:      newHealthTracker(),
		pipelines:   make(map[string]*sourcePipeline),
	}
	g.pipelineFor(primary.Name())
	for _, s := range fiatSources {
		g.pipelineFor(s.Name())
	}
	return g
}

func (g *Gateway) pipelineFor(source string) *sourcePipeline {
	sp, ok := g.pipelines[source]
	if !ok {
		sp = newSourcePipeline(g.cfg, source, g.health)
		g.pipelines[source] = sp
	}
	return sp
}

// HealthOf returns the current CLOSED/OPEN/HALF_OPEN status for one source
// without touching it (SPEC_FULL.md supplemented feature #1).
func (g *Gateway) HealthOf(source string) SourceHealth { return g.health.Status(source) }

// Health returns the status of every source this Gateway has called.
func (g *Gateway) Health() []SourceHealth { return g.health.All() }

// fetch is the shared TTL-cache + single-flight + circuit-breaker path every
// operation below funnels through. key is the fingerprint; ttl and source
// select the cache policy and resilience pipeline.
func (g *Gateway) fetch(ctx context.Context, source ports.MarketDataSource, key string, ttl time.Duration, fn func(context.Context) (any, error)) (any, bool, error) {
	now := g.clock.Now()

	if entry, fresh := g.cache.get(key, now); fresh {
		g.metrics.RecordCacheHit(ctx, source.Name())
		return entry.value, false, nil
	}
	g.metrics.RecordCacheMiss(ctx, source.Name())

	sp := g.pipelineFor(source.Name())

	v, err, _ := g.sf.Do(key, func() (any, error) {
		result, execErr := sp.execute(ctx, source.Name(), g.health, fn)
		if execErr != nil {
			return nil, execErr
		}
		g.cache.set(key, result, g.clock.Now(), ttl, g.cfg.StalenessMultiplier)
		return result, nil
	})
	if err != nil {
		if stale, ok := g.cache.getStale(key, now); ok {
			g.logger.Warn("gateway: serving stale value after fill failure", "source", source.Name(), "key", key, "error", err)
			return stale.value, true, nil
		}
		return nil, false, fmt.Errorf("%s: %w", key, ports.ErrDataUnavailable)
	}
	return v, false, nil
}

func fingerprint(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "|"
		}
		out += p
	}
	return out
}

// GetSpot implements the gateway's get_spot operation.
func (g *Gateway) GetSpot(ctx context.Context, symbol string) (ports.SpotTicker, error) {
	key := fingerprint("spot", symbol)
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.SpotTTL, func(ctx context.Context) (any, error) {
		return g.primary.SpotTicker(ctx, symbol)
	})
	if err != nil {
		return ports.SpotTicker{}, err
	}
	return v.(ports.SpotTicker), nil
}

// GetOrderBook implements the gateway's get_orderbook operation.
func (g *Gateway) GetOrderBook(ctx context.Context, symbol string, depth int) (ports.OrderBookLevel2, error) {
	key := fingerprint("book", symbol, fmt.Sprint(depth))
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.OrderBookTTL, func(ctx context.Context) (any, error) {
		return g.primary.OrderBook(ctx, symbol, depth)
	})
	if err != nil {
		return ports.OrderBookLevel2{}, err
	}
	return v.(ports.OrderBookLevel2), nil
}

// GetFundingRates implements the gateway's get_funding_rates operation.
func (g *Gateway) GetFundingRates(ctx context.Context) ([]ports.FundingRateSample, error) {
	key := fingerprint("funding")
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.FundingTTL, func(ctx context.Context) (any, error) {
		return g.primary.FundingRates(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ports.FundingRateSample), nil
}

// GetBasis implements the gateway's get_basis operation.
func (g *Gateway) GetBasis(ctx context.Context, symbol string) (ports.FuturesBasis, error) {
	key := fingerprint("basis", symbol)
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.BasisTTL, func(ctx context.Context) (any, error) {
		return g.primary.FuturesBasis(ctx, symbol)
	})
	if err != nil {
		return ports.FuturesBasis{}, err
	}
	return v.(ports.FuturesBasis), nil
}

// GetP2P implements the gateway's get_p2p operation.
func (g *Gateway) GetP2P(ctx context.Context, asset, fiat string, side ports.P2PSide) ([]ports.P2PAd, error) {
	key := fingerprint("p2p", asset, fiat, string(side))
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.P2PTTL, func(ctx context.Context) (any, error) {
		return g.primary.P2PAds(ctx, asset, fiat, side)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ports.P2PAd), nil
}

// PrimeSpot writes a spot ticker into the cache directly, bypassing the
// resilience pipeline. Used by the optional streaming cache warmer
// (internal/gateway/wsfeed) so a push update is immediately visible to the
// next pull-based GetSpot call.
func (g *Gateway) PrimeSpot(symbol string, ticker ports.SpotTicker) {
	key := fingerprint("spot", symbol)
	g.cache.set(key, ticker, g.clock.Now(), g.cfg.SpotTTL, g.cfg.StalenessMultiplier)
}

// GetPriceHistory implements the gateway's get_price_history operation.
func (g *Gateway) GetPriceHistory(ctx context.Context, symbol string, window int) ([]ports.PricePoint, error) {
	key := fingerprint("history", symbol, fmt.Sprint(window))
	v, _, err := g.fetch(ctx, g.primary, key, g.cfg.P2PTTL, func(ctx context.Context) (any, error) {
		return g.primary.PriceHistory(ctx, symbol, window)
	})
	if err != nil {
		return nil, err
	}
	return v.([]ports.PricePoint), nil
}
