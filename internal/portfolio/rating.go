package portfolio

import "arbfind/internal/ports"

// Rate assigns the fixed A..F band for the chosen portfolio. Bands are
// not specified numerically by the source specification (Open Question
// resolution #5 in the grounding ledger); these thresholds are this
// module's own fixed table on (sharpe, maxDrawdownEst, sigmaP, riskScore).
func Rate(sharpe, maxDrawdownEst, sigmaP, avgRiskScore float64) ports.Rating {
	switch {
	case sharpe >= 2.0 && maxDrawdownEst <= 0.10 && sigmaP <= 0.08 && avgRiskScore <= 30:
		return ports.RatingA
	case sharpe >= 1.2 && maxDrawdownEst <= 0.20 && sigmaP <= 0.15 && avgRiskScore <= 45:
		return ports.RatingB
	case sharpe >= 0.6 && maxDrawdownEst <= 0.35 && sigmaP <= 0.25 && avgRiskScore <= 60:
		return ports.RatingC
	case sharpe >= 0 && maxDrawdownEst <= 0.50 && avgRiskScore <= 80:
		return ports.RatingD
	default:
		return ports.RatingF
	}
}

// TierFor derives the human-actionable recommendation tier from sharpe,
// the diversification ratio, and how much slack the candidate has left
// against the §4.6 limit set (1.0 = no slack used, <=0 = limits breached).
func TierFor(sharpe, diversificationRatio, limitSlack float64, infeasible bool) ports.PortfolioTier {
	if infeasible || limitSlack <= 0 {
		return ports.TierInfeasible
	}
	switch {
	case sharpe >= 1.5 && diversificationRatio >= 1.5 && limitSlack >= 0.5:
		return ports.TierExcellent
	case sharpe >= 0.8 && diversificationRatio >= 1.2 && limitSlack >= 0.2:
		return ports.TierGood
	default:
		return ports.TierMarginal
	}
}
