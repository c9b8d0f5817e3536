// Package normalize projects every detector's native opportunity record
// onto the unified Opportunity shape and computes its composite score,
// grounded on the reference architecture's PortfolioOpportunity wrapping
// pattern in internal/trading/portfolio/types.go.
package normalize

import (
	"fmt"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

// defaultRiskWeights maps each strategy's native risk units onto the
// unified 0..100 scale when the configuration table omits an entry.
var defaultRiskWeights = map[ports.Strategy]float64{
	ports.StrategyFunding:      1.0,
	ports.StrategyStatArb:      1.0,
	ports.StrategyDeltaNeutral: 1.0,
	ports.StrategyTriangle:     1.0,
	ports.StrategySpotP2P:      1.0,
	ports.StrategyCrossFiat:    1.0,
}

// Normalize nets fees/slippage out of every gross ExpectedReturn, maps
// strategy-native risk units through the configured weight table, fills
// missing defaults, computes the composite score, and assigns priority,
// recommendation, and fingerprint. Input opportunities are not mutated.
func Normalize(opps []ports.Opportunity, cfg ports.NormalizerConfig) []ports.Opportunity {
	out := make([]ports.Opportunity, len(opps))
	for i, o := range opps {
		out[i] = normalizeOne(o, cfg)
	}
	return out
}

func normalizeOne(o ports.Opportunity, cfg ports.NormalizerConfig) ports.Opportunity {
	o.ExpectedReturn = o.ExpectedReturn.Sub(o.FeesEst).Sub(o.SlippageEst)

	weight := 1.0
	if cfg.RiskWeights != nil {
		if w, ok := cfg.RiskWeights[o.Strategy]; ok {
			weight = w
		} else if w, ok := defaultRiskWeights[o.Strategy]; ok {
			weight = w
		}
	} else if w, ok := defaultRiskWeights[o.Strategy]; ok {
		weight = w
	}
	riskF, _ := o.RiskScore.Float64()
	riskF = clamp(riskF*weight, 0, 100)
	o.RiskScore = decimal.NewFromFloat(riskF)

	if o.Confidence.IsZero() && len(o.Diagnostics) == 0 {
		o.Confidence = decimal.NewFromInt(50)
	}

	o.Score = decimal.NewFromFloat(compositeScore(o, cfg))
	o.Priority = priorityFor(o.Score)
	o.Recommendation = recommendationFor(o.Score, o.RiskScore, o.Confidence)
	o.Fingerprint = fingerprint(o)

	return o
}

func compositeScore(o ports.Opportunity, cfg ports.NormalizerConfig) float64 {
	wr, wl, wc, wk, ws := weights(cfg)
	returnRef := cfg.ReturnRef
	if returnRef <= 0 {
		returnRef = 0.1
	}
	liquidityRef := cfg.LiquidityRef
	if liquidityRef <= 0 {
		liquidityRef = 1_000_000
	}
	sharpeCap := cfg.SharpeCap
	if sharpeCap <= 0 {
		sharpeCap = 3
	}

	returnF, _ := o.ExpectedReturn.Float64()
	liquidityF, _ := o.LiquidityUSD.Float64()
	confidenceF, _ := o.Confidence.Float64()
	riskF, _ := o.RiskScore.Float64()

	sharpeTerm := 0.0
	if o.Sharpe != nil {
		s, _ := o.Sharpe.Float64()
		sharpeTerm = clamp(s, 0, sharpeCap) / sharpeCap
	}

	score := 100 * (wr*saturate(returnF/returnRef) +
		wl*saturate(liquidityF/liquidityRef) +
		wc*(confidenceF/100) -
		wk*(riskF/100) +
		ws*sharpeTerm)
	return clamp(score, 0, 100)
}

func weights(cfg ports.NormalizerConfig) (wr, wl, wc, wk, ws float64) {
	wr, wl, wc, wk, ws = cfg.WeightReturn, cfg.WeightLiquidity, cfg.WeightConfidence, cfg.WeightRisk, cfg.WeightSharpe
	if wr == 0 && wl == 0 && wc == 0 && wk == 0 && ws == 0 {
		return 0.35, 0.20, 0.15, 0.20, 0.10
	}
	return wr, wl, wc, wk, ws
}

// saturate is the bounded mapping x -> x/(1+|x|), keeping any ratio in (-1,1).
func saturate(x float64) float64 {
	return x / (1 + math.Abs(x))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func priorityFor(score decimal.Decimal) ports.Priority {
	s, _ := score.Float64()
	switch {
	case s >= 75:
		return ports.PriorityHigh
	case s >= 50:
		return ports.PriorityMed
	default:
		return ports.PriorityLow
	}
}

func recommendationFor(score, riskScore, confidence decimal.Decimal) ports.Recommendation {
	s, _ := score.Float64()
	r, _ := riskScore.Float64()
	c, _ := confidence.Float64()
	switch {
	case s >= 80 && c >= 70 && r <= 40:
		return ports.RecommendStrongBuy
	case s >= 60:
		return ports.RecommendBuy
	case s >= 40:
		return ports.RecommendHold
	default:
		return ports.RecommendAvoid
	}
}

// fingerprint is a stable hash over (strategy, normalized leg tuple,
// rounded notional bucket) so duplicate opportunities surfaced across
// overlapping scans collapse to the same identity.
func fingerprint(o ports.Opportunity) uint64 {
	legs := make([]string, len(o.Legs))
	for i, l := range o.Legs {
		bucket := notionalBucket(l.Size.Mul(l.Price))
		legs[i] = fmt.Sprintf("%s:%s:%s:%d", l.Venue, l.Action, l.Symbol, bucket)
	}
	sort.Strings(legs)

	h := xxhash.New()
	_, _ = h.WriteString(string(o.Strategy))
	for _, l := range legs {
		_, _ = h.WriteString("|")
		_, _ = h.WriteString(l)
	}
	return h.Sum64()
}

// notionalBucket rounds a notional to the nearest $100 bucket so minor
// price drift between overlapping scans still collapses to one identity.
func notionalBucket(notional decimal.Decimal) int64 {
	f, _ := notional.Float64()
	return int64(math.Round(f/100) * 100)
}
