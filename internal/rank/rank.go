// Package rank orders a normalized opportunity set by a selectable
// policy after deduplicating by fingerprint, grounded on the reference
// architecture's ranking helpers in internal/trading/portfolio/rank.go.
package rank

import (
	"sort"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

// Rank dedups opps by Fingerprint (the higher-scoring duplicate wins),
// sorts the survivors by policy with the uniform tie-break (higher
// liquidity_usd, then shorter horizon, then earlier created_at), and
// truncates to at most k results. k <= 0 means unbounded.
func Rank(opps []ports.Opportunity, policy ports.RankPolicy, k int) []ports.Opportunity {
	deduped := dedup(opps)
	sort.SliceStable(deduped, func(i, j int) bool {
		if less, ok := byPolicy(policy, deduped[i], deduped[j]); ok {
			return less
		}
		return tieBreak(deduped[i], deduped[j])
	})
	if k > 0 && len(deduped) > k {
		deduped = deduped[:k]
	}
	return deduped
}

func dedup(opps []ports.Opportunity) []ports.Opportunity {
	best := make(map[uint64]ports.Opportunity, len(opps))
	order := make([]uint64, 0, len(opps))
	for _, o := range opps {
		existing, ok := best[o.Fingerprint]
		if !ok {
			best[o.Fingerprint] = o
			order = append(order, o.Fingerprint)
			continue
		}
		if o.Score.GreaterThan(existing.Score) {
			best[o.Fingerprint] = o
		}
	}
	out := make([]ports.Opportunity, 0, len(order))
	for _, fp := range order {
		out = append(out, best[fp])
	}
	return out
}

// byPolicy returns (less, decisive). decisive is false when the policy's
// key compares equal and the caller should fall through to the tie-break.
func byPolicy(policy ports.RankPolicy, a, b ports.Opportunity) (bool, bool) {
	switch policy {
	case ports.RankByReturn:
		if !a.ExpectedReturn.Equal(b.ExpectedReturn) {
			return a.ExpectedReturn.GreaterThan(b.ExpectedReturn), true
		}
	case ports.RankByRiskAdjusted:
		ra := riskAdjusted(a)
		rb := riskAdjusted(b)
		if !ra.Equal(rb) {
			return ra.GreaterThan(rb), true
		}
	case ports.RankBySharpe:
		switch {
		case a.Sharpe == nil && b.Sharpe == nil:
		case a.Sharpe == nil:
			return false, true // nulls last
		case b.Sharpe == nil:
			return true, true
		case !a.Sharpe.Equal(*b.Sharpe):
			return a.Sharpe.GreaterThan(*b.Sharpe), true
		}
	case ports.RankByScore:
		if !a.Score.Equal(b.Score) {
			return a.Score.GreaterThan(b.Score), true
		}
	}
	return false, false
}

var epsilon = decimal.NewFromFloat(1e-9)

func riskAdjusted(o ports.Opportunity) decimal.Decimal {
	denom := o.RiskScore.Div(decimal.NewFromInt(100))
	if denom.LessThan(epsilon) {
		denom = epsilon
	}
	return o.ExpectedReturn.Div(denom)
}

func tieBreak(a, b ports.Opportunity) bool {
	if !a.LiquidityUSD.Equal(b.LiquidityUSD) {
		return a.LiquidityUSD.GreaterThan(b.LiquidityUSD)
	}
	if a.Horizon != b.Horizon {
		return a.Horizon < b.Horizon
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
