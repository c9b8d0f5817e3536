// Package statarb implements the Statistical (Pairs) Detector (C3.2):
// cointegrated price series mean-revert around a hedge-ratio-weighted
// spread, grounded on the reference architecture's
// internal/trading/arbitrage/analyzer.go regression and z-score helpers.
package statarb

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

const (
	defaultWindow  = 60
	defaultZEntry  = 2.0
	defaultZExit   = 0.5
	adfCritical5pc = -2.86 // Engle-Granger residual ADF critical value, 5%
)

// Scan tests every configured pair for cointegration and emits an
// opportunity when the current spread z-score has crossed the entry
// threshold. Pairs with too little overlapping history are skipped.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig) []ports.Opportunity {
	var out []ports.Opportunity
	for _, pair := range cfg.StatArbPairs {
		symA, symB := pair[0], pair[1]
		histA := snap.PriceHistory[symA]
		histB := snap.PriceHistory[symB]
		if len(histA) == 0 || len(histB) == 0 {
			continue // spec §8.2: zero historical samples -> skip
		}
		opp, ok := evaluate(symA, symB, histA, histB, cfg, snap.PinnedAt)
		if !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

func evaluate(symA, symB string, histA, histB []ports.PricePoint, cfg ports.StrategyConfig, pinnedAt time.Time) (ports.Opportunity, bool) {
	a, b := alignClose(histA, histB)
	window := cfg.StatArbWindow
	if window <= 0 {
		window = defaultWindow
	}
	if len(a) < window || len(a) < 2 {
		return ports.Opportunity{}, false
	}

	alpha, beta := ols(a, b)
	residuals := make([]float64, len(a))
	for i := range a {
		residuals[i] = a[i] - (alpha + beta*b[i])
	}
	tStat, pValue := adfTStat(residuals)
	if tStat > adfCritical5pc {
		return ports.Opportunity{}, false // unit root not rejected: not cointegrated
	}

	spread := make([]float64, len(a))
	for i := range a {
		spread[i] = a[i] - beta*b[i]
	}
	w := spread[len(spread)-window:]
	mu := meanOf(w)
	sigma := stdDevOf(w, mu)
	if sigma == 0 {
		return ports.Opportunity{}, false
	}
	last := spread[len(spread)-1]
	z := (last - mu) / sigma

	zEntry := cfg.StatArbZEntry
	if zEntry <= 0 {
		zEntry = defaultZEntry
	}
	zExit := cfg.StatArbZExit
	if zExit <= 0 {
		zExit = defaultZExit
	}
	_ = zExit // close-signal evaluation belongs to live position management, not discovery

	if math.Abs(z) < zEntry {
		return ports.Opportunity{}, false
	}

	lastA := decimal.NewFromFloat(a[len(a)-1])
	lastB := decimal.NewFromFloat(b[len(b)-1])
	hedgeRatio := decimal.NewFromFloat(beta)
	sizeB := decimal.NewFromInt(1)
	sizeA := sizeB.Mul(hedgeRatio)

	var legs []ports.Leg
	if z > 0 {
		// spread rich: A overperformed B -> short A, long B
		legs = []ports.Leg{
			{Venue: ports.VenueSpot, Action: ports.ActionSell, Symbol: symA, Size: sizeA, Price: lastA},
			{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: symB, Size: sizeB, Price: lastB, Notes: fmt.Sprintf("hedge_ratio=%s", hedgeRatio.StringFixed(4))},
		}
	} else {
		legs = []ports.Leg{
			{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: symA, Size: sizeA, Price: lastA},
			{Venue: ports.VenueSpot, Action: ports.ActionSell, Symbol: symB, Size: sizeB, Price: lastB, Notes: fmt.Sprintf("hedge_ratio=%s", hedgeRatio.StringFixed(4))},
		}
	}

	confidence := confidenceFor(z, zEntry, pValue)
	expectedReturn := decimal.NewFromFloat(math.Abs(z) * sigma / math.Abs(mu+1e-9))

	return ports.Opportunity{
		ID:             fmt.Sprintf("statarb:%s-%s", symA, symB),
		Strategy:       ports.StrategyStatArb,
		Legs:           legs,
		ExpectedReturn: expectedReturn,
		RiskScore:      riskScoreFor(pValue),
		Confidence:     confidence,
		LiquidityUSD:   decimal.Zero, // discovered from legs at normalization; pairs trade spot depth unknown here
		CreatedAt:      pinnedAt,
		TTL:            time.Hour,
		Diagnostics:    []string{fmt.Sprintf("z=%.4f adf_t=%.4f p~%.4f hedge_ratio=%.4f", z, tStat, pValue, beta)},
	}, true
}

// alignClose truncates both histories to their shared overlapping length,
// taking the most recent len(a) observations from each.
func alignClose(histA, histB []ports.PricePoint) (a, b []float64) {
	n := len(histA)
	if len(histB) < n {
		n = len(histB)
	}
	a = make([]float64, n)
	b = make([]float64, n)
	offA := len(histA) - n
	offB := len(histB) - n
	for i := 0; i < n; i++ {
		v, _ := histA[offA+i].Close.Float64()
		a[i] = v
		v, _ = histB[offB+i].Close.Float64()
		b[i] = v
	}
	return a, b
}

// ols fits A_t = alpha + beta*B_t + e_t by simple linear regression.
func ols(a, b []float64) (alpha, beta float64) {
	meanA := meanOf(a)
	meanB := meanOf(b)
	var cov, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varB += db * db
	}
	if varB == 0 {
		return meanA, 0
	}
	beta = cov / varB
	alpha = meanA - beta*meanB
	return alpha, beta
}

// adfTStat is a simplified augmented Dickey-Fuller statistic on the
// residual series: regress Δe_t on e_{t-1} with no lag terms and report
// the t-statistic of the slope, along with an approximate p-value derived
// from a logistic mapping around the 5% critical value.
func adfTStat(residuals []float64) (tStat, pValue float64) {
	if len(residuals) < 3 {
		return 0, 1
	}
	lagged := residuals[:len(residuals)-1]
	delta := make([]float64, len(lagged))
	for i := range lagged {
		delta[i] = residuals[i+1] - residuals[i]
	}
	_, rho := ols(delta, lagged)
	meanLag := meanOf(lagged)
	var ssXX, ssRes float64
	for i := range lagged {
		d := lagged[i] - meanLag
		ssXX += d * d
	}
	if ssXX == 0 {
		return 0, 1
	}
	for i := range delta {
		pred := rho * (lagged[i] - meanLag)
		residErr := delta[i] - pred
		ssRes += residErr * residErr
	}
	n := float64(len(delta))
	if n < 3 {
		return 0, 1
	}
	sigma2 := ssRes / (n - 2)
	seRho := math.Sqrt(sigma2 / ssXX)
	if seRho == 0 {
		return 0, 1
	}
	tStat = rho / seRho
	pValue = 1 / (1 + math.Exp(-(tStat-adfCritical5pc)))
	return tStat, pValue
}

func confidenceFor(z, zEntry, pValue float64) decimal.Decimal {
	excess := math.Abs(z) - zEntry
	base := 50 + excess*15 + (1-pValue)*20
	return decimal.NewFromFloat(math.Max(0, math.Min(100, base)))
}

func riskScoreFor(pValue float64) decimal.Decimal {
	return decimal.NewFromFloat(math.Max(0, math.Min(100, pValue*100)))
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

func stdDevOf(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}
