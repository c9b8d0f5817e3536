// Package risk implements the Risk Analyzer (C6): per-position and
// portfolio-level risk metrics, half-Kelly position sizing, stress
// scenarios, and limit checks, grounded on the reference architecture's
// internal/risk/monitor.go and circuit_breaker.go state-exposure pattern
// (VaR/Herfindahl/Kelly math itself has no teacher analogue and is new).
package risk

import (
	"math"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
)

// z-scores for the parametric-normal VaR calculation.
const (
	z95 = 1.645
	z99 = 2.326
)

// Analyzer evaluates candidate allocation vectors against a configured
// risk model.
type Analyzer struct {
	cfg ports.RiskConfig
}

func NewAnalyzer(cfg ports.RiskConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// PositionVolatility is sigma_i = base_vol_strategy(i) * leverage(i) *
// liquidity_penalty(i). Leverage is assumed 1 (every detector hedges
// legs 1:1 notional); thin liquidity inflates the penalty.
func (a *Analyzer) PositionVolatility(o ports.Opportunity) float64 {
	base, ok := a.cfg.BaseVolatility[o.Strategy]
	if !ok || base <= 0 {
		base = 0.15
	}
	liquidityF, _ := o.LiquidityUSD.Float64()
	penalty := 1.0
	if liquidityF > 0 {
		penalty = clamp(1_000_000/liquidityF, 1, 5)
	} else {
		penalty = 5
	}
	return base * penalty
}

// CorrelationMatrix returns the pairwise strategy-correlation matrix: 1
// on the diagonal, 0.6 between two opportunities of the same strategy, and
// the configured off-diagonal default (0.2 when unset) elsewhere. No
// empirical strategy-PnL series is tracked by this core, so the default
// table is always used (spec.md §4.6 empirical branch does not apply).
func (a *Analyzer) CorrelationMatrix(opps []ports.Opportunity) [][]float64 {
	n := len(opps)
	c := make([][]float64, n)
	off := a.cfg.CorrelationOffDiagonal
	if off == 0 {
		off = 0.2
	}
	for i := range c {
		c[i] = make([]float64, n)
		for j := range c[i] {
			switch {
			case i == j:
				c[i][j] = 1
			case opps[i].Strategy == opps[j].Strategy:
				c[i][j] = 0.6 // same strategy, different legs: higher co-movement
			default:
				c[i][j] = off
			}
		}
	}
	return c
}

// Analyze computes the full PortfolioRisk summary for a weight vector
// over opps, plus the closed-set stress suite.
func (a *Analyzer) Analyze(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) (ports.PortfolioRisk, []ports.StressResult) {
	sigmas := make([]float64, len(opps))
	for i, o := range opps {
		sigmas[i] = a.PositionVolatility(o)
	}
	corr := a.CorrelationMatrix(opps)
	sigmaP := PortfolioVariance(weights, sigmas, corr)
	sigmaPSqrt := math.Sqrt(math.Max(0, sigmaP))

	capitalF, _ := totalCapital.Float64()
	var95 := z95 * sigmaPSqrt * capitalF
	var99 := z99 * sigmaPSqrt * capitalF

	concentration := Herfindahl(weights)
	diversification := DiversificationRatio(weights, sigmas, sigmaPSqrt)
	riskParity := RiskParityScore(weights, sigmas, corr)

	pr := ports.PortfolioRisk{
		SigmaPortfolio:       sigmaPSqrt,
		VaR95:                decimal.NewFromFloat(var95),
		VaR99:                decimal.NewFromFloat(var99),
		Concentration:        concentration,
		DiversificationRatio: diversification,
		CorrMatrix:           corr,
		RiskParityScore:      riskParity,
		Sharpe:               portfolioSharpe(opps, weights, sigmaPSqrt, a.cfg.RiskFreeRate),
	}

	stress := RunStressSuite(opps, weights, totalCapital)
	return pr, stress
}

// PortfolioVariance computes sigma_p^2 = x^T (diag(sigma) C diag(sigma)) x.
func PortfolioVariance(weights, sigmas []float64, corr [][]float64) float64 {
	n := len(weights)
	var variance float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			variance += weights[i] * weights[j] * sigmas[i] * sigmas[j] * corr[i][j]
		}
	}
	return variance
}

// Herfindahl is the concentration index H = sum(x_i^2).
func Herfindahl(weights []float64) float64 {
	var h float64
	for _, w := range weights {
		h += w * w
	}
	return h
}

// DiversificationRatio is (sum x_i sigma_i) / sigma_p.
func DiversificationRatio(weights, sigmas []float64, sigmaP float64) float64 {
	if sigmaP == 0 {
		return 1
	}
	var weighted float64
	for i := range weights {
		weighted += weights[i] * sigmas[i]
	}
	return weighted / sigmaP
}

// RiskParityScore is 1 - stdev(marginal_risk)/mean(marginal_risk), with
// marginal_risk_i = x_i * (C*sigma)_i.
func RiskParityScore(weights, sigmas []float64, corr [][]float64) float64 {
	n := len(weights)
	marginal := make([]float64, n)
	for i := 0; i < n; i++ {
		var csigma float64
		for j := 0; j < n; j++ {
			csigma += corr[i][j] * sigmas[j]
		}
		marginal[i] = weights[i] * csigma
	}
	mean := meanOf(marginal)
	if mean == 0 {
		return 1
	}
	sd := stdDevOf(marginal, mean)
	return 1 - sd/mean
}

// KellySize returns the half-Kelly weight for one opportunity: f* =
// (mu - r_f) / sigma^2, capped at f_max, then halved and bounded by the
// per-strategy cap and the leg's liquidity cap.
func (a *Analyzer) KellySize(o ports.Opportunity, totalCapital decimal.Decimal) decimal.Decimal {
	sigma := a.PositionVolatility(o)
	if sigma == 0 {
		return decimal.Zero
	}
	muF, _ := o.ExpectedReturn.Float64()
	fStar := (muF - a.cfg.RiskFreeRate) / (sigma * sigma)

	kellyCap := a.cfg.KellyCap
	if kellyCap <= 0 {
		kellyCap = 0.25
	}
	fStar = clamp(fStar, -kellyCap, kellyCap)
	half := fStar / 2

	perStrategyCap := a.cfg.MaxStrategyAllocation
	if perStrategyCap <= 0 {
		perStrategyCap = 0.40
	}

	liquidityCap := a.LiquidityCap(o, totalCapital)

	w := math.Min(half, perStrategyCap)
	w = math.Min(w, liquidityCap)
	if w < 0 {
		w = 0
	}
	return decimal.NewFromFloat(w)
}

// LiquidityCap is min_leg_liquidity_i / total_capital * liq_factor
// (default factor 0.1): never consume more than 10% of a leg's depth.
func (a *Analyzer) LiquidityCap(o ports.Opportunity, totalCapital decimal.Decimal) float64 {
	capitalF, _ := totalCapital.Float64()
	if capitalF <= 0 {
		return 0
	}
	liquidityF, _ := o.LiquidityUSD.Float64()
	factor := a.cfg.LiquidityFactor
	if factor <= 0 {
		factor = 0.1
	}
	return (liquidityF / capitalF) * factor
}

// CheckLimits evaluates the §4.6 limit set and returns a diagnostic per
// breach; an empty slice means every limit is satisfied.
func (a *Analyzer) CheckLimits(pr ports.PortfolioRisk, opps []ports.Opportunity, weights []float64) []string {
	var violations []string

	maxVar := a.cfg.MaxPortfolioVarPct
	if maxVar <= 0 {
		maxVar = 0.10
	}
	if pr.SigmaPortfolio > maxVar {
		violations = append(violations, "max_portfolio_var_pct")
	}

	maxStrategy := a.cfg.MaxStrategyAllocation
	if maxStrategy <= 0 {
		maxStrategy = 0.40
	}
	byStrategy := map[ports.Strategy]float64{}
	for i, o := range opps {
		byStrategy[o.Strategy] += weights[i]
	}
	for _, w := range byStrategy {
		if w > maxStrategy {
			violations = append(violations, "max_strategy_allocation")
			break
		}
	}

	minDiversification := a.cfg.MinDiversificationRatio
	if minDiversification <= 0 {
		minDiversification = 1.2
	}
	if pr.DiversificationRatio < minDiversification {
		violations = append(violations, "min_diversification_ratio")
	}

	maxConcentration := a.cfg.MaxConcentration
	if maxConcentration <= 0 {
		maxConcentration = 60
	}
	if pr.Concentration*100 > maxConcentration {
		violations = append(violations, "max_concentration")
	}

	return violations
}

func portfolioSharpe(opps []ports.Opportunity, weights []float64, sigmaP, riskFree float64) float64 {
	if sigmaP == 0 {
		return 0
	}
	var mu float64
	for i, o := range opps {
		r, _ := o.ExpectedReturn.Float64()
		mu += weights[i] * r
	}
	return (mu - riskFree) / sigmaP
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
