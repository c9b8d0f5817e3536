package gateway

import (
	"context"
	"fmt"
	"math"

	"arbfind/internal/ports"
)

// GetFiat implements the gateway's get_fiat operation: sources are queried
// in priority order (official, then market data provider, then cached
// fallback); when at least two independent sources answer, a divergence
// greater than the configured threshold raises a non-fatal Anomaly
// annotation on the returned rate rather than failing the call (§4.1).
func (g *Gateway) GetFiat(ctx context.Context, base, quote string) (ports.FiatRate, error) {
	key := fingerprint("fiat", base, quote)

	if entry, fresh := g.cache.get(key, g.clock.Now()); fresh {
		g.metrics.RecordCacheHit(ctx, "fiat")
		return entry.value.(ports.FiatRate), nil
	}
	g.metrics.RecordCacheMiss(ctx, "fiat")

	if len(g.fiatSources) == 0 {
		return ports.FiatRate{}, fmt.Errorf("%s/%s: %w", base, quote, ports.ErrDataUnavailable)
	}

	var rates []ports.FiatRate
	var lastErr error
	for _, src := range g.fiatSources {
		sp := g.pipelineFor(src.Name())
		v, err := sp.execute(ctx, src.Name(), g.health, func(ctx context.Context) (any, error) {
			return src.FiatRate(ctx, base, quote)
		})
		if err != nil {
			lastErr = err
			continue
		}
		rates = append(rates, v.(ports.FiatRate))
	}

	if len(rates) == 0 {
		if stale, ok := g.cache.getStale(key, g.clock.Now()); ok {
			return stale.value.(ports.FiatRate), nil
		}
		return ports.FiatRate{}, fmt.Errorf("%s/%s: %w: %v", base, quote, ports.ErrDataUnavailable, lastErr)
	}

	result := rates[0]
	if len(rates) >= 2 {
		if divergent(rates, g.cfg.FiatDivergencePct) {
			result.Anomalous = true
			g.logger.Warn("gateway: fiat source divergence exceeds threshold",
				"base", base, "quote", quote, "threshold", g.cfg.FiatDivergencePct)
		}
	}

	g.cache.set(key, result, g.clock.Now(), g.cfg.FiatTTL, g.cfg.StalenessMultiplier)
	return result, nil
}

// divergent reports whether any two of the given rates differ by more than
// pct of their mean.
func divergent(rates []ports.FiatRate, pct float64) bool {
	for i := 0; i < len(rates); i++ {
		for j := i + 1; j < len(rates); j++ {
			a, _ := rates[i].Rate.Float64()
			b, _ := rates[j].Rate.Float64()
			if a == 0 && b == 0 {
				continue
			}
			mean := (a + b) / 2
			if mean == 0 {
				continue
			}
			if math.Abs(a-b)/mean > pct {
				return true
			}
		}
	}
	return false
}
