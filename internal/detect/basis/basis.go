// Package basis implements the Delta-Neutral (Basis) Detector (C3.3):
// spot/futures basis convergence provides a carry independent of
// direction, grounded on the reference architecture's basis/spread
// helpers in internal/trading/arbitrage/spread.go.
package basis

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

const (
	defaultHoldingDays  = 7
	defaultCaptureTarget = 0.5
)

// Scan emits a carry opportunity for every instrument whose spot/futures
// basis reading reaches DeltaNeutralMinBasis in absolute value and whose
// carry nets a positive return; order-book depth is not checked.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig) []ports.Opportunity {
	var out []ports.Opportunity
	for symbol, b := range snap.Basis {
		basisF, _ := b.Basis.Float64()
		if math.Abs(basisF) < cfg.DeltaNeutralMinBasis {
			continue
		}
		funding := snap.FundingRates[symbol]
		opp, ok := build(symbol, b, funding, snap.BasisHist[symbol], cfg, snap.PinnedAt)
		if !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

func build(symbol string, b ports.FuturesBasis, funding ports.FundingRateSample, hist []ports.FuturesBasis, cfg ports.StrategyConfig, pinnedAt time.Time) (ports.Opportunity, bool) {
	basisF, _ := b.Basis.Float64()
	fundingRate, _ := funding.FundingRate.Float64()

	roundtripFees := 2 * cfg.TakerFee
	basisCapture := math.Abs(basisF)
	fundingCarry := 0.0
	intervalHours := cfg.FundingIntervalHours
	if intervalHours <= 0 {
		intervalHours = 8
	}
	holdingDays := holdingDaysFor(b, hist)
	if fundingRate != 0 {
		fundingsOverHold := holdingDays * 24 / intervalHours
		fundingCarry = fundingRate * fundingsOverHold
	}

	netReturn := basisCapture + fundingCarry - roundtripFees - cfg.ExpectedSlippage
	if netReturn <= 0 {
		return ports.Opportunity{}, false
	}

	isPerp := b.ExpiryOrPerp == "PERP" || b.ExpiryOrPerp == ""
	var legs []ports.Leg
	var diagnostics []string
	if basisF > 0 {
		// contango: futures trade above spot -> long spot, short futures
		legs = []ports.Leg{
			{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: symbol, Price: b.SpotPrice},
			{Venue: ports.VenuePerp, Action: ports.ActionSell, Symbol: symbol, Price: b.FuturesPrice},
		}
	} else {
		// backwardation: futures trade below spot -> long futures, explicit direction risk
		legs = []ports.Leg{
			{Venue: ports.VenuePerp, Action: ports.ActionBuy, Symbol: symbol, Price: b.FuturesPrice, Notes: "backwardation: directional risk not fully hedged"},
			{Venue: ports.VenueSpot, Action: ports.ActionSell, Symbol: symbol, Price: b.SpotPrice},
		}
		diagnostics = append(diagnostics, "backwardation_direction_risk")
	}
	if isPerp {
		diagnostics = append(diagnostics, fmt.Sprintf("perp_half_life_holding_days=%.1f", holdingDays))
	} else {
		diagnostics = append(diagnostics, fmt.Sprintf("dated_future_holding_days=%.1f", holdingDays))
	}

	apy := netReturn * (365.0 / math.Max(1, holdingDays))
	apyDec := decimal.NewFromFloat(apy)

	return ports.Opportunity{
		ID:             fmt.Sprintf("basis:%s", symbol),
		Strategy:       ports.StrategyDeltaNeutral,
		Legs:           legs,
		ExpectedReturn: decimal.NewFromFloat(basisCapture + fundingCarry), // gross; normalizer nets fees/slippage
		ExpectedAPY:    &apyDec,
		Horizon:        time.Duration(holdingDays*24) * time.Hour,
		RiskScore:      riskScoreFor(basisF, isPerp),
		Confidence:     confidenceFor(hist),
		FeesEst:        decimal.NewFromFloat(roundtripFees),
		SlippageEst:    decimal.NewFromFloat(cfg.ExpectedSlippage),
		CreatedAt:      pinnedAt,
		TTL:            time.Duration(intervalHours) * time.Hour,
		Diagnostics:    diagnostics,
	}, true
}

// holdingDaysFor estimates the optimal holding period: for a dated future,
// proportional to days-to-expiry; for a perp, the mean-reversion half-life
// estimated from basis autocorrelation when history is available.
func holdingDaysFor(b ports.FuturesBasis, hist []ports.FuturesBasis) float64 {
	if b.ExpiryOrPerp != "" && b.ExpiryOrPerp != "PERP" {
		expiry, err := time.Parse(time.RFC3339, b.ExpiryOrPerp)
		if err == nil {
			daysToExpiry := math.Max(0, expiry.Sub(b.Timestamp).Hours()/24)
			return math.Ceil(daysToExpiry * defaultCaptureTarget)
		}
	}
	if hl, ok := halfLifeFromAutocorrelation(hist); ok {
		return hl
	}
	return defaultHoldingDays
}

// halfLifeFromAutocorrelation fits a simple AR(1) to historical basis
// values and converts its lag-1 coefficient to a half-life in days.
func halfLifeFromAutocorrelation(hist []ports.FuturesBasis) (float64, bool) {
	if len(hist) < 10 {
		return 0, false
	}
	xs := make([]float64, len(hist))
	for i, h := range hist {
		xs[i], _ = h.Basis.Float64()
	}
	mean := meanOf(xs)
	var num, den float64
	for i := 1; i < len(xs); i++ {
		num += (xs[i] - mean) * (xs[i-1] - mean)
		den += (xs[i-1] - mean) * (xs[i-1] - mean)
	}
	if den == 0 {
		return 0, false
	}
	phi := num / den
	if phi <= 0 || phi >= 1 {
		return 0, false
	}
	halfLife := math.Log(0.5) / math.Log(phi)
	if halfLife <= 0 || math.IsNaN(halfLife) || math.IsInf(halfLife, 0) {
		return 0, false
	}
	return math.Ceil(halfLife), true
}

func riskScoreFor(basisF float64, isPerp bool) decimal.Decimal {
	score := math.Min(100, math.Abs(basisF)*200)
	if !isPerp {
		score *= 0.8 // dated futures converge to par at expiry: lower direction risk
	} else {
		score *= 1.1 // perps carry open-ended funding-reversal risk
	}
	return decimal.NewFromFloat(math.Min(100, score))
}

func confidenceFor(hist []ports.FuturesBasis) decimal.Decimal {
	if len(hist) == 0 {
		return decimal.NewFromInt(50)
	}
	n := math.Min(100, float64(len(hist))*4)
	return decimal.NewFromFloat(n)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
