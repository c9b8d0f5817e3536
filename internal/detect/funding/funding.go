// Package funding implements the Funding-Rate Detector (C3.1): a perpetual
// with a non-zero funding rate funds a delta-neutral long-spot/short-perp
// (or inverse) leg pair, grounded on the reference architecture's
// internal/trading/arbitrage/analyzer.go (annualization, Sharpe, momentum)
// and spread.go (annualize helper).
package funding

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

const perpSuffix = "-PERP"

// Scan produces one Opportunity per perpetual with a matching spot pair and
// a non-zero funding rate. Detectors are pure with respect to snap: calling
// Scan twice with the same (snap, cfg) yields identical output.
func Scan(snap ports.Snapshot, cfg ports.StrategyConfig) []ports.Opportunity {
	var out []ports.Opportunity
	for perpSymbol, sample := range snap.FundingRates {
		if sample.FundingRate.IsZero() {
			continue // spec §8.2: funding rate = 0 -> no opportunity
		}
		spotSymbol := strings.TrimSuffix(perpSymbol, perpSuffix)
		if spotSymbol == perpSymbol {
			continue // not a recognized perp symbol
		}
		ticker, ok := snap.Tickers[spotSymbol]
		if !ok {
			continue
		}
		book, hasBook := snap.Books[spotSymbol]
		perpBook, hasPerpBook := snap.Books[perpSymbol]

		opp, ok := build(perpSymbol, spotSymbol, sample, ticker, book, hasBook, perpBook, hasPerpBook, snap.FundingHist[perpSymbol], cfg, snap.PinnedAt)
		if !ok {
			continue
		}
		out = append(out, opp)
	}
	return out
}

func build(perpSymbol, spotSymbol string, sample ports.FundingRateSample, ticker ports.SpotTicker,
	book ports.OrderBookLevel2, hasBook bool, perpBook ports.OrderBookLevel2, hasPerpBook bool,
	history []ports.FundingRateSample, cfg ports.StrategyConfig, pinnedAt time.Time) (ports.Opportunity, bool) {

	intervalHours := cfg.FundingIntervalHours
	if intervalHours <= 0 {
		intervalHours = 8
	}
	fundingsPerYear := 365 * 24 / intervalHours

	fundingRate, _ := sample.FundingRate.Float64()
	apy := fundingRate * fundingsPerYear
	if math.Abs(apy) < cfg.FundingMinAPY {
		return ports.Opportunity{}, false
	}

	var sharpe *decimal.Decimal
	if len(history) >= 20 {
		s := computeSharpe(history)
		sd := decimal.NewFromFloat(s)
		sharpe = &sd
	}

	takerFee := cfg.TakerFee
	entryCost := 2*takerFee + cfg.ExpectedSlippage // spot_taker + perp_taker + expected_slippage
	fundingPerInterval := math.Abs(fundingRate)
	breakEven := 0
	if fundingPerInterval > 0 {
		breakEven = int(math.Ceil(entryCost / fundingPerInterval))
	}

	size := maxOpportunitySize(ticker, book, hasBook, perpBook, hasPerpBook, cfg.CapitalPerOpportunity)
	if size.IsZero() {
		return ports.Opportunity{}, false
	}

	legs := legsFor(fundingRate, spotSymbol, perpSymbol, size, ticker)

	// ExpectedReturn is reported gross; the normalizer nets out FeesEst and
	// SlippageEst uniformly across every strategy.
	grossReturn := decimal.NewFromFloat(fundingPerInterval)
	feesEst := decimal.NewFromFloat(2 * takerFee)
	slippageEst := decimal.NewFromFloat(cfg.ExpectedSlippage)

	liquidity := minLiquidity(ticker, book, hasBook, perpBook, hasPerpBook)
	apyDec := decimal.NewFromFloat(apy)

	return ports.Opportunity{
		ID:             fmt.Sprintf("funding:%s", perpSymbol),
		Strategy:       ports.StrategyFunding,
		Legs:           legs,
		ExpectedReturn: grossReturn,
		ExpectedAPY:    &apyDec,
		Horizon:        time.Duration(breakEven) * time.Duration(intervalHours) * time.Hour,
		RiskScore:      riskScore(history, fundingRate),
		Confidence:     confidence(history),
		Sharpe:         sharpe,
		LiquidityUSD:   liquidity,
		SlippageEst:    slippageEst,
		FeesEst:        feesEst,
		CreatedAt:      pinnedAt,
		TTL:            time.Duration(intervalHours) * time.Hour,
	}, true
}

func legsFor(fundingRate float64, spotSymbol, perpSymbol string, size decimal.Decimal, ticker ports.SpotTicker) []ports.Leg {
	if fundingRate > 0 {
		// longs pay shorts: long spot, short perp captures the carry.
		return []ports.Leg{
			{Venue: ports.VenueSpot, Action: ports.ActionBuy, Symbol: spotSymbol, Size: size, Price: ticker.Ask},
			{Venue: ports.VenuePerp, Action: ports.ActionSell, Symbol: perpSymbol, Size: size, Price: ticker.Bid},
		}
	}
	return []ports.Leg{
		{Venue: ports.VenueSpot, Action: ports.ActionSell, Symbol: spotSymbol, Size: size, Price: ticker.Bid},
		{Venue: ports.VenuePerp, Action: ports.ActionBuy, Symbol: perpSymbol, Size: size, Price: ticker.Ask},
	}
}

// maxOpportunitySize caps notional at min(spot depth, perp depth, configured
// cap), per spec §4.3.1 step 5.
func maxOpportunitySize(ticker ports.SpotTicker, book ports.OrderBookLevel2, hasBook bool,
	perpBook ports.OrderBookLevel2, hasPerpBook bool, capitalCap float64) decimal.Decimal {
	capBound := decimal.NewFromFloat(capitalCap)
	if capitalCap <= 0 {
		capBound = decimal.NewFromInt(1_000_000_000)
	}
	if hasBook {
		if d := depthNotional(book); d.LessThan(capBound) {
			capBound = d
		}
	}
	if hasPerpBook {
		if d := depthNotional(perpBook); d.LessThan(capBound) {
			capBound = d
		}
	}
	if ticker.Ask.IsZero() {
		return decimal.Zero
	}
	return capBound.Div(ticker.Ask)
}

func depthNotional(book ports.OrderBookLevel2) decimal.Decimal {
	total := decimal.Zero
	for _, l := range book.Bids {
		total = total.Add(l.Price.Mul(l.Size))
	}
	for _, l := range book.Asks {
		total = total.Add(l.Price.Mul(l.Size))
	}
	return total
}

func minLiquidity(ticker ports.SpotTicker, book ports.OrderBookLevel2, hasBook bool, perpBook ports.OrderBookLevel2, hasPerpBook bool) decimal.Decimal {
	min := decimal.NewFromInt(1_000_000_000)
	if hasBook {
		if d := depthNotional(book); d.LessThan(min) {
			min = d
		}
	}
	if hasPerpBook {
		if d := depthNotional(perpBook); d.LessThan(min) {
			min = d
		}
	}
	return min
}

// computeSharpe is the Sharpe ratio of historical funding rates, the
// reference architecture's float64-internal statistics convention.
func computeSharpe(history []ports.FundingRateSample) float64 {
	rates := make([]float64, len(history))
	for i, h := range history {
		rates[i], _ = h.FundingRate.Float64()
	}
	mean := meanOf(rates)
	sd := stdDevOf(rates, mean)
	if sd == 0 {
		return 0
	}
	return mean / sd
}

func riskScore(history []ports.FundingRateSample, currentRate float64) decimal.Decimal {
	rates := make([]float64, len(history))
	for i, h := range history {
		rates[i], _ = h.FundingRate.Float64()
	}
	volatility := stdDevOf(rates, meanOf(rates))
	score := math.Min(100, volatility*10000) // scale fractional stdDev into 0..100
	if score == 0 {
		score = 20 // baseline uncertainty with no history
	}
	return decimal.NewFromFloat(score)
}

func confidence(history []ports.FundingRateSample) decimal.Decimal {
	if len(history) == 0 {
		return decimal.NewFromInt(50) // spec §4.4: confidence = 50 when no history
	}
	n := math.Min(100, float64(len(history))*5)
	return decimal.NewFromFloat(n)
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
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
