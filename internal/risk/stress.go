package risk

import (
	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

// RunStressSuite applies the closed set of stress scenarios (spec.md
// §4.6) to the given allocation and returns one StressResult per
// scenario plus WORST_CASE, a copy of whichever of the first three has the
// lowest PnL; positions are not combined elementwise across scenarios.
func RunStressSuite(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) []ports.StressResult {
	marketCrash := stressMarketCrash(opps, weights, totalCapital)
	liquidityCrisis := stressLiquidityCrisis(opps, weights, totalCapital)
	fundingReversal := stressFundingReversal(opps, weights, totalCapital)
	worst := worstCase(marketCrash, liquidityCrisis, fundingReversal)

	return []ports.StressResult{marketCrash, liquidityCrisis, fundingReversal, worst}
}

// stressMarketCrash subtracts 20% from every position's return, then
// recomputes the weighted PnL. The PnL sum takes no correlation input, so
// no correlation matrix is applied or forced to 1.
func stressMarketCrash(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) ports.StressResult {
	const shock = -0.20
	pnlUSD, worstLeg := weightedPnL(opps, weights, totalCapital, func(o ports.Opportunity) float64 {
		r, _ := o.ExpectedReturn.Float64()
		return r + shock
	})
	return finalizeStress(ports.StressMarketCrash, pnlUSD, totalCapital, worstLeg)
}

// stressLiquidityCrisis adds +5% slippage to every leg before recomputing.
func stressLiquidityCrisis(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) ports.StressResult {
	const extraSlippage = 0.05
	pnlUSD, worstLeg := weightedPnL(opps, weights, totalCapital, func(o ports.Opportunity) float64 {
		r, _ := o.ExpectedReturn.Float64()
		return r - extraSlippage
	})
	return finalizeStress(ports.StressLiquidityCrisis, pnlUSD, totalCapital, worstLeg)
}

// stressFundingReversal inverts the funding sign on FUNDING opportunities
// (positive carry becomes negative and vice versa); other strategies are
// unaffected.
func stressFundingReversal(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) ports.StressResult {
	pnlUSD, worstLeg := weightedPnL(opps, weights, totalCapital, func(o ports.Opportunity) float64 {
		r, _ := o.ExpectedReturn.Float64()
		if o.Strategy == ports.StrategyFunding {
			return -r
		}
		return r
	})
	return finalizeStress(ports.StressFundingReversal, pnlUSD, totalCapital, worstLeg)
}

func worstCase(results ...ports.StressResult) ports.StressResult {
	worst := results[0]
	for _, r := range results[1:] {
		if r.PnLUSD.LessThan(worst.PnLUSD) {
			worst = r
		}
	}
	return ports.StressResult{
		Scenario: ports.StressWorstCase,
		PnLUSD:   worst.PnLUSD,
		PnLPct:   worst.PnLPct,
		WorstLeg: worst.WorstLeg,
	}
}

func weightedPnL(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal, shocked func(ports.Opportunity) float64) (decimal.Decimal, string) {
	capitalF, _ := totalCapital.Float64()
	var pnl float64
	worstLeg := ""
	worstReturn := 0.0
	first := true
	for i, o := range opps {
		r := shocked(o)
		contribution := weights[i] * r * capitalF
		pnl += contribution
		if first || r < worstReturn {
			worstReturn = r
			worstLeg = o.ID
			first = false
		}
	}
	return decimal.NewFromFloat(pnl), worstLeg
}

func finalizeStress(scenario ports.StressScenario, pnlUSD decimal.Decimal, totalCapital decimal.Decimal, worstLeg string) ports.StressResult {
	capitalF, _ := totalCapital.Float64()
	pnlF, _ := pnlUSD.Float64()
	pct := 0.0
	if capitalF != 0 {
		pct = pnlF / capitalF
	}
	return ports.StressResult{
		Scenario: scenario,
		PnLUSD:   pnlUSD,
		PnLPct:   decimal.NewFromFloat(pct),
		WorstLeg: worstLeg,
	}
}
