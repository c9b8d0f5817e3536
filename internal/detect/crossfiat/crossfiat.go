// Package crossfiat implements the Cross-Fiat Triangle Detector (C3.6):
// the same cycle-search mechanics as the multi-hop triangle detector, but
// restricted to a configured fiat pair bridged through USDT, grounded on
// the reference architecture's concurrent cycle-search pool in
// internal/trading/arbitrage/graph.go.
package crossfiat

import (
	"fmt"
	"math"
	"time"

	"github.com/alitto/pond"
	"github.com/shopspring/decimal"

	"arbfind/internal/graph"
	"arbfind/internal/ports"
)

const bridgeAsset = "USDT"

// Scan restricts cycle search to each configured (fiat_A, fiat_B) pair:
// it keeps the USDT-rooted simple cycles that stay within {USDT, fiat_A,
// fiat_B} and touch both fiats, i.e. USDT -> fiat_A -> fiat_B -> USDT and
// its reverse, which need a direct fiat_A/fiat_B rate. A route that passes
// through USDT twice (fiat_A -> USDT -> fiat_B -> USDT -> fiat_A) is not
// searched, since cycles never revisit a node.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig, pool *pond.WorkerPool) []ports.Opportunity {
	if len(cfg.CrossFiatPairs) == 0 {
		return nil
	}

	g := graph.BuildFromSnapshot(snap, []string{"USDT", "USDC"}, cfg.TakerFee, cfg.ExpectedSlippage)

	var out []ports.Opportunity
	for _, pair := range cfg.CrossFiatPairs {
		fiatA, fiatB := pair[0], pair[1]
		nodeSet := map[string]bool{bridgeAsset: true, fiatA: true, fiatB: true}
		for _, c := range graph.EnumerateCycles(g, pool, bridgeAsset, 4, cfg.TriangleMinEdgeLiquidity) {
			if !restrictedTo(c, nodeSet) {
				continue
			}
			if !touches(c, fiatA) || !touches(c, fiatB) {
				continue
			}
			out = append(out, toOpportunity(c, fiatA, fiatB, snap.PinnedAt))
		}
	}
	return out
}

func restrictedTo(c graph.Cycle, nodeSet map[string]bool) bool {
	for _, n := range c.Path {
		if !nodeSet[n] {
			return false
		}
	}
	return true
}

func touches(c graph.Cycle, asset string) bool {
	for _, n := range c.Path {
		if n == asset {
			return true
		}
	}
	return false
}

func toOpportunity(c graph.Cycle, fiatA, fiatB string, pinnedAt time.Time) ports.Opportunity {
	roi := c.ROI()
	riskScore := math.Min(100, float64(c.Hops)*12)

	legs := make([]ports.Leg, 0, len(c.Edges))
	for _, e := range c.Edges {
		legs = append(legs, ports.Leg{
			Venue:  ports.VenueFiatRail,
			Action: ports.ActionTransfer,
			Symbol: fmt.Sprintf("%s/%s", e.From, e.To),
			Price:  decimal.NewFromFloat(e.Rate),
			Notes:  fmt.Sprintf("liquidity_usd=%.2f", e.LiquidityUSD),
		})
	}

	return ports.Opportunity{
		ID:             fmt.Sprintf("crossfiat:%s-%s:%v", fiatA, fiatB, c.Path),
		Strategy:       ports.StrategyCrossFiat,
		Legs:           legs,
		ExpectedReturn: decimal.NewFromFloat(roi),
		RiskScore:      decimal.NewFromFloat(riskScore),
		Confidence:     decimal.NewFromInt(50),
		LiquidityUSD:   decimal.NewFromFloat(c.MinLiquidity),
		CreatedAt:      pinnedAt,
		TTL:            time.Minute,
		Diagnostics:    []string{fmt.Sprintf("hops=%d fiat_pair=%s/%s", c.Hops, fiatA, fiatB)},
	}
}
