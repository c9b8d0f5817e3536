// Package portfolio implements the Portfolio Optimizer (C7): a
// quadratic-utility allocator over a ranked opportunity set, subject to
// the Risk Analyzer's limit set, grounded on the reference architecture's
// internal/trading/portfolio/manager.go, allocator.go, and types.go.
package portfolio

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"arbfind/internal/ports"
	"arbfind/internal/risk"
)

const (
	defaultLambda          = 0.5
	defaultMinWeight       = 0.02
	defaultMaxPositions    = 5
	defaultMaxCandidates   = 20
	defaultSolverTolerance = 1e-4
	defaultSolverMaxIters  = 500
	maxRebalanceIterations = 5
)

// Optimize filters, solves, prunes, and caps a ranked opportunity set
// into a capital-constrained Portfolio.
func Optimize(ranked []ports.Opportunity, cfg ports.OptimizerConfig, riskCfg ports.RiskConfig, totalCapital decimal.Decimal, minReturn, maxRisk, minConfidence float64) ports.Portfolio {
	candidates := filter(ranked, cfg, minReturn, maxRisk, minConfidence)
	maxCandidates := cfg.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = defaultMaxCandidates
	}
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	if len(candidates) == 0 {
		return ports.Portfolio{Tier: ports.TierInfeasible, TotalCapital: totalCapital}
	}

	analyzer := risk.NewAnalyzer(riskCfg)
	sigmas := make([]float64, len(candidates))
	mu := make([]float64, len(candidates))
	for i, o := range candidates {
		sigmas[i] = analyzer.PositionVolatility(o)
		mu[i], _ = o.ExpectedReturn.Float64()
	}
	corr := analyzer.CorrelationMatrix(candidates)

	lambda := cfg.RiskAversionLambda
	if lambda <= 0 {
		lambda = defaultLambda
	}
	weights := solve(mu, sigmas, corr, lambda, cfg)

	candidates, weights = pruneAndCap(candidates, weights, cfg)
	if len(candidates) == 0 {
		return ports.Portfolio{Tier: ports.TierInfeasible, TotalCapital: totalCapital}
	}

	candidates, weights, infeasible := enforceLimits(analyzer, candidates, weights, totalCapital)

	pr, stress := analyzer.Analyze(candidates, weights, totalCapital)
	allocations := toAllocations(candidates, weights, totalCapital)

	maxDrawdown := maxDrawdownEst(stress)
	avgRisk := averageRiskScore(candidates)
	rating := Rate(pr.Sharpe, maxDrawdown, pr.SigmaPortfolio, avgRisk)
	slack := limitSlack(analyzer, pr, candidates, weights)
	tier := TierFor(pr.Sharpe, pr.DiversificationRatio, slack, infeasible)
	if infeasible {
		rating = ports.RatingF
	}

	return ports.Portfolio{
		Allocations:  allocations,
		Risk:         pr,
		Stress:       stress,
		Rating:       rating,
		Tier:         tier,
		TotalCapital: totalCapital,
	}
}

func filter(opps []ports.Opportunity, cfg ports.OptimizerConfig, minReturn, maxRisk, minConfidence float64) []ports.Opportunity {
	out := make([]ports.Opportunity, 0, len(opps))
	for _, o := range opps {
		if !cfg.IncludeSpotP2P && o.Strategy == ports.StrategySpotP2P {
			continue
		}
		ret, _ := o.ExpectedReturn.Float64()
		riskScore, _ := o.RiskScore.Float64()
		confidence, _ := o.Confidence.Float64()
		if ret < minReturn || riskScore > maxRisk || confidence < minConfidence {
			continue
		}
		out = append(out, o)
	}
	return out
}

// solve runs a projected-gradient ascent on U(x) = mu^T x - lambda *
// sigma_p(x)^2 over the simplex {x >= 0, sum x = 1}, stopping early once
// the step size falls below the configured tolerance.
func solve(mu, sigmas []float64, corr [][]float64, lambda float64, cfg ports.OptimizerConfig) []float64 {
	n := len(mu)
	x := make([]float64, n)
	for i := range x {
		x[i] = 1.0 / float64(n)
	}

	tolerance := cfg.SolverTolerance
	if tolerance <= 0 {
		tolerance = defaultSolverTolerance
	}
	maxIters := cfg.SolverMaxIters
	if maxIters <= 0 {
		maxIters = defaultSolverMaxIters
	}

	sigmaMat := make([][]float64, n)
	for i := 0; i < n; i++ {
		sigmaMat[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			sigmaMat[i][j] = sigmas[i] * sigmas[j] * corr[i][j]
		}
	}

	step := 0.05
	for iter := 0; iter < maxIters; iter++ {
		grad := make([]float64, n)
		for i := 0; i < n; i++ {
			var sigmaX float64
			for j := 0; j < n; j++ {
				sigmaX += sigmaMat[i][j] * x[j]
			}
			grad[i] = mu[i] - 2*lambda*sigmaX
		}
		next := make([]float64, n)
		var delta float64
		for i := range x {
			next[i] = x[i] + step*grad[i]
		}
		projectSimplex(next)
		for i := range x {
			d := next[i] - x[i]
			delta += d * d
		}
		x = next
		if math.Sqrt(delta) < tolerance {
			break
		}
	}
	return x
}

// projectSimplex projects x onto {x >= 0, sum x = 1} in place using the
// standard sort-and-threshold algorithm.
func projectSimplex(x []float64) {
	n := len(x)
	sorted := append([]float64(nil), x...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	var cumsum float64
	rho := -1
	theta := 0.0
	for i := 0; i < n; i++ {
		cumsum += sorted[i]
		t := (cumsum - 1) / float64(i+1)
		if sorted[i]-t > 0 {
			rho = i
			theta = t
		}
	}
	if rho < 0 {
		theta = (cumsum - 1) / float64(n)
	}
	for i := range x {
		v := x[i] - theta
		if v < 0 {
			v = 0
		}
		x[i] = v
	}
}

// pruneAndCap removes positions below min_weight, renormalizes, then
// keeps at most max_positions by marginal weight, renormalizing again.
func pruneAndCap(opps []ports.Opportunity, weights []float64, cfg ports.OptimizerConfig) ([]ports.Opportunity, []float64) {
	minWeight := cfg.MinWeight
	if minWeight <= 0 {
		minWeight = defaultMinWeight
	}
	var keptOpps []ports.Opportunity
	var keptWeights []float64
	for i, w := range weights {
		if w >= minWeight {
			keptOpps = append(keptOpps, opps[i])
			keptWeights = append(keptWeights, w)
		}
	}
	renormalize(keptWeights)

	maxPositions := cfg.MaxPositions
	if maxPositions <= 0 {
		maxPositions = defaultMaxPositions
	}
	if len(keptOpps) > maxPositions {
		idx := make([]int, len(keptOpps))
		for i := range idx {
			idx[i] = i
		}
		sort.Slice(idx, func(a, b int) bool { return keptWeights[idx[a]] > keptWeights[idx[b]] })
		idx = idx[:maxPositions]
		sort.Ints(idx)

		finalOpps := make([]ports.Opportunity, len(idx))
		finalWeights := make([]float64, len(idx))
		for i, k := range idx {
			finalOpps[i] = keptOpps[k]
			finalWeights[i] = keptWeights[k]
		}
		keptOpps, keptWeights = finalOpps, finalWeights
		renormalize(keptWeights)
	}
	return keptOpps, keptWeights
}

func renormalize(weights []float64) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum == 0 {
		return
	}
	for i := range weights {
		weights[i] /= sum
	}
}

// enforceLimits re-runs the §4.6 checks; on failure it reduces the
// highest-risk position by 20% and renormalizes, up to 5 iterations,
// marking the portfolio infeasible if limits still fail.
func enforceLimits(analyzer *risk.Analyzer, opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) ([]ports.Opportunity, []float64, bool) {
	for iter := 0; iter < maxRebalanceIterations; iter++ {
		pr, _ := analyzer.Analyze(opps, weights, totalCapital)
		violations := analyzer.CheckLimits(pr, opps, weights)
		if len(violations) == 0 {
			return opps, weights, false
		}
		worst := highestRiskIndex(opps, weights, analyzer)
		weights[worst] *= 0.80
		renormalize(weights)
	}
	pr, _ := analyzer.Analyze(opps, weights, totalCapital)
	if len(analyzer.CheckLimits(pr, opps, weights)) > 0 {
		return opps, weights, true
	}
	return opps, weights, false
}

func highestRiskIndex(opps []ports.Opportunity, weights []float64, analyzer *risk.Analyzer) int {
	worst := 0
	worstRisk := -1.0
	for i, o := range opps {
		contribution := weights[i] * analyzer.PositionVolatility(o)
		if contribution > worstRisk {
			worstRisk = contribution
			worst = i
		}
	}
	return worst
}

func toAllocations(opps []ports.Opportunity, weights []float64, totalCapital decimal.Decimal) []ports.Allocation {
	out := make([]ports.Allocation, len(opps))
	for i, o := range opps {
		w := decimal.NewFromFloat(weights[i])
		out[i] = ports.Allocation{
			OpportunityID:  o.ID,
			Weight:         w,
			CapitalUSD:     w.Mul(totalCapital),
			ExpectedReturn: o.ExpectedReturn,
			MarginalRisk:   o.RiskScore.Mul(w),
		}
	}
	return out
}

func maxDrawdownEst(stress []ports.StressResult) float64 {
	worst := 0.0
	for _, s := range stress {
		pct, _ := s.PnLPct.Float64()
		if pct < worst {
			worst = pct
		}
	}
	return -worst
}

func averageRiskScore(opps []ports.Opportunity) float64 {
	if len(opps) == 0 {
		return 0
	}
	var sum float64
	for _, o := range opps {
		r, _ := o.RiskScore.Float64()
		sum += r
	}
	return sum / float64(len(opps))
}

// limitSlack is a 0..1 measure of remaining headroom against the §4.6
// limit set: 1 means no limit is close to breach, 0 means at the edge.
func limitSlack(analyzer *risk.Analyzer, pr ports.PortfolioRisk, opps []ports.Opportunity, weights []float64) float64 {
	if len(analyzer.CheckLimits(pr, opps, weights)) > 0 {
		return 0
	}
	return math.Max(0, 1-pr.Concentration)
}
