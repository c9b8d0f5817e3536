// Package triangle implements the Advanced Triangle / Multi-hop Cycle
// Detector (C3.4): currency cycles whose product of effective rates
// exceeds 1, grounded on the reference architecture's concurrent
// cycle-search pool in internal/trading/arbitrage/graph.go.
package triangle

import (
	"fmt"
	"math"
	"time"

	"github.com/alitto/pond"
	"github.com/shopspring/decimal"

	"arbfind/internal/graph"
	"arbfind/internal/ports"
)

// defaultQuoteAssets are the symbols treated as quote currencies when
// splitting spot ticker symbols into graph edges.
var defaultQuoteAssets = []string{"USDT", "USDC", "BTC", "ETH"}

// Scan enumerates cycles from each configured starting asset and returns
// one opportunity per surviving cycle, scored by the composite formula.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig, pool *pond.WorkerPool) []ports.Opportunity {
	g := graph.BuildFromSnapshot(snap, defaultQuoteAssets, cfg.TakerFee, cfg.ExpectedSlippage)
	maxHops := cfg.TriangleMaxHops
	if maxHops <= 0 {
		maxHops = 4
	}
	minLiquidity := cfg.TriangleMinEdgeLiquidity

	starts := cfg.TriangleStartAssets
	if len(starts) == 0 {
		starts = []string{"USDT"}
	}

	var allCycles []graph.Cycle
	seen := map[string]bool{}
	for _, start := range starts {
		for _, c := range graph.EnumerateCycles(g, pool, start, maxHops, minLiquidity) {
			key := fmt.Sprintf("%v", c.Path)
			if seen[key] {
				continue
			}
			seen[key] = true
			allCycles = append(allCycles, c)
		}
	}
	if len(allCycles) == 0 {
		return nil
	}

	maxROI := 0.0
	maxLiquidity := 0.0
	for _, c := range allCycles {
		if r := c.ROI(); r > maxROI {
			maxROI = r
		}
		if c.MinLiquidity > maxLiquidity {
			maxLiquidity = c.MinLiquidity
		}
	}

	out := make([]ports.Opportunity, 0, len(allCycles))
	for _, c := range allCycles {
		out = append(out, toOpportunity(c, maxROI, maxLiquidity, snap.PinnedAt))
	}
	return out
}

func toOpportunity(c graph.Cycle, maxROI, maxLiquidity float64, pinnedAt time.Time) ports.Opportunity {
	roi := c.ROI()
	normalizedROI := normalize(roi, maxROI)
	normalizedLiquidity := normalize(c.MinLiquidity, maxLiquidity)
	riskScore := riskScoreFor(c)
	hopPenalty := math.Min(100, float64(c.Hops)*8) // k=8 per hop

	composite := 0.4*normalizedROI*100 + 0.3*normalizedLiquidity*100 + 0.2*(100-riskScore) + 0.1*(100-hopPenalty)
	composite = math.Max(0, math.Min(100, composite))

	legs := make([]ports.Leg, 0, len(c.Edges))
	for _, e := range c.Edges {
		legs = append(legs, ports.Leg{
			Venue:  ports.VenueSpot,
			Action: ports.ActionBuy,
			Symbol: fmt.Sprintf("%s/%s", e.From, e.To),
			Price:  decimal.NewFromFloat(e.Rate),
			Notes:  fmt.Sprintf("liquidity_usd=%.2f", e.LiquidityUSD),
		})
	}

	return ports.Opportunity{
		ID:             fmt.Sprintf("triangle:%v", c.Path),
		Strategy:       ports.StrategyTriangle,
		Legs:           legs,
		ExpectedReturn: decimal.NewFromFloat(roi),
		RiskScore:      decimal.NewFromFloat(riskScore),
		Confidence:     decimal.NewFromFloat(50 + normalizedROI*30),
		LiquidityUSD:   decimal.NewFromFloat(c.MinLiquidity),
		Score:          decimal.NewFromFloat(composite),
		CreatedAt:      pinnedAt,
		TTL:            time.Minute,
		Diagnostics:    []string{fmt.Sprintf("hops=%d composite=%.2f", c.Hops, composite)},
	}
}

func riskScoreFor(c graph.Cycle) float64 {
	base := math.Min(100, float64(c.Hops)*15)
	if c.MinLiquidity < 10000 {
		base += 20
	}
	return math.Min(100, base)
}

func normalize(x, max float64) float64 {
	if max <= 0 {
		return 0
	}
	v := x / max
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
