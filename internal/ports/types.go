package ports

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpotTicker is a best bid/ask/last snapshot for a spot symbol.
type SpotTicker struct {
	Symbol    string
	Bid       decimal.Decimal
	Ask       decimal.Decimal
	Last      decimal.Decimal
	Volume24h decimal.Decimal
	Timestamp time.Time
}

// BookLevel is one (price, size) rung of an order book side.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBookLevel2 holds bids (descending price) and asks (ascending price).
type OrderBookLevel2 struct {
	Symbol    string
	Bids      []BookLevel
	Asks      []BookLevel
	Timestamp time.Time
}

// FundingRateSample is one perpetual-futures funding observation.
type FundingRateSample struct {
	Symbol          string
	FundingRate     decimal.Decimal
	NextFundingTime time.Time
	MarkPrice       decimal.Decimal
	IndexPrice      decimal.Decimal
	Timestamp       time.Time
}

// FuturesBasis is the spot/futures spread for one instrument.
type FuturesBasis struct {
	Symbol        string
	SpotPrice     decimal.Decimal
	FuturesPrice  decimal.Decimal
	ExpiryOrPerp  string // RFC3339 expiry, or "PERP"
	Basis         decimal.Decimal
	Timestamp     time.Time
}

// P2PSide is the direction of a peer-to-peer ad.
type P2PSide string

const (
	P2PBuy  P2PSide = "BUY"
	P2PSell P2PSide = "SELL"
)

// P2PAd is one peer-to-peer market maker's quote.
type P2PAd struct {
	Asset           string
	Fiat            string
	Side            P2PSide
	Price           decimal.Decimal
	MinQty          decimal.Decimal
	MaxQty          decimal.Decimal
	MerchantScore   decimal.Decimal // 0..100
	CompletedTrades int
	PaymentMethods  []string
	Timestamp       time.Time
}

// FiatRate is one fiat/fiat or fiat/stablecoin conversion rate.
type FiatRate struct {
	Base      string
	Quote     string
	Rate      decimal.Decimal
	Source    string
	Timestamp time.Time
	Anomalous bool // set when cross-source divergence exceeded threshold
}

// PricePoint is one close in a symbol's rolling price history.
type PricePoint struct {
	Symbol    string
	Close     decimal.Decimal
	Timestamp time.Time
}

// Strategy discriminates the six opportunity families.
type Strategy string

const (
	StrategyFunding      Strategy = "FUNDING"
	StrategyStatArb      Strategy = "STAT_ARB"
	StrategyDeltaNeutral Strategy = "DELTA_NEUTRAL"
	StrategyTriangle     Strategy = "TRIANGLE"
	StrategySpotP2P      Strategy = "SPOT_P2P"
	StrategyCrossFiat    Strategy = "CROSS_FIAT"
)

// Venue is where a leg executes.
type Venue string

const (
	VenueSpot     Venue = "SPOT"
	VenuePerp     Venue = "PERP"
	VenueP2P      Venue = "P2P"
	VenueFiatRail Venue = "FIAT_RAIL"
)

// LegAction is the side of one execution-plan leg.
type LegAction string

const (
	ActionBuy      LegAction = "BUY"
	ActionSell     LegAction = "SELL"
	ActionBorrow   LegAction = "BORROW"
	ActionRepay    LegAction = "REPAY"
	ActionTransfer LegAction = "TRANSFER"
)

// Leg is one step of an opportunity's execution plan.
type Leg struct {
	Venue  Venue
	Action LegAction
	Symbol string
	Size   decimal.Decimal
	Price  decimal.Decimal
	Notes  string
}

// Priority buckets an Opportunity by composite score.
type Priority string

const (
	PriorityHigh Priority = "HIGH"
	PriorityMed  Priority = "MED"
	PriorityLow  Priority = "LOW"
)

// Recommendation is the normalizer's deterministic call to action.
type Recommendation string

const (
	RecommendStrongBuy Recommendation = "STRONG_BUY"
	RecommendBuy       Recommendation = "BUY"
	RecommendHold      Recommendation = "HOLD"
	RecommendAvoid     Recommendation = "AVOID"
)

// Opportunity is the unified record every detector output is normalized into.
type Opportunity struct {
	ID             string
	Strategy       Strategy
	Legs           []Leg
	ExpectedReturn decimal.Decimal // net of fees+slippage, as a fraction
	ExpectedAPY    *decimal.Decimal
	Horizon        time.Duration
	RiskScore      decimal.Decimal // 0..100
	Confidence     decimal.Decimal // 0..100
	Sharpe         *decimal.Decimal
	LiquidityUSD   decimal.Decimal
	SlippageEst    decimal.Decimal
	FeesEst        decimal.Decimal
	Score          decimal.Decimal // 0..100 composite
	Priority       Priority
	Recommendation Recommendation
	Fingerprint    uint64
	CreatedAt      time.Time
	TTL            time.Duration
	SemiManual     bool // P2P: no automated execution path
	Anomalous      bool
	Diagnostics    []string
}

// Allocation is one position in a proposed portfolio.
type Allocation struct {
	OpportunityID  string
	Weight         decimal.Decimal
	CapitalUSD     decimal.Decimal
	ExpectedReturn decimal.Decimal
	MarginalRisk   decimal.Decimal
}

// PortfolioRisk is the portfolio-level risk summary for an allocation set.
type PortfolioRisk struct {
	SigmaPortfolio       float64
	VaR95                decimal.Decimal
	VaR99                decimal.Decimal
	Concentration        float64 // Herfindahl
	DiversificationRatio float64
	CorrMatrix           [][]float64
	RiskParityScore      float64
	Sharpe               float64
}

// StressScenario names one of the closed set of stress tests.
type StressScenario string

const (
	StressMarketCrash     StressScenario = "MARKET_CRASH"
	StressLiquidityCrisis StressScenario = "LIQUIDITY_CRISIS"
	StressFundingReversal StressScenario = "FUNDING_REVERSAL"
	StressWorstCase       StressScenario = "WORST_CASE"
)

// StressResult is the outcome of applying one stress scenario to a portfolio.
type StressResult struct {
	Scenario StressScenario
	PnLUSD   decimal.Decimal
	PnLPct   decimal.Decimal
	WorstLeg string
}

// Rating is the fixed A..F band assigned to a chosen portfolio.
type Rating string

const (
	RatingA Rating = "A"
	RatingB Rating = "B"
	RatingC Rating = "C"
	RatingD Rating = "D"
	RatingF Rating = "F"
)

// PortfolioTier is the optimizer's human-actionable recommendation tier.
type PortfolioTier string

const (
	TierExcellent  PortfolioTier = "EXCELLENT"
	TierGood       PortfolioTier = "GOOD"
	TierMarginal   PortfolioTier = "MARGINAL"
	TierInfeasible PortfolioTier = "INFEASIBLE"
)

// Portfolio is the optimizer's output: a weighted allocation plus its risk.
type Portfolio struct {
	Allocations []Allocation
	Risk        PortfolioRisk
	Stress      []StressResult
	Rating      Rating
	Tier        PortfolioTier
	TotalCapital decimal.Decimal
}

// RankPolicy selects the sort order the ranker applies.
type RankPolicy string

const (
	RankByReturn       RankPolicy = "BY_RETURN"
	RankByRiskAdjusted RankPolicy = "BY_RISK_ADJUSTED"
	RankBySharpe       RankPolicy = "BY_SHARPE"
	RankByScore        RankPolicy = "BY_SCORE"
)

// ScanStatus is the top-level status a scan reports.
type ScanStatus string

const (
	ScanOK         ScanStatus = "OK"
	ScanPartial    ScanStatus = "PARTIAL"
	ScanInfeasible ScanStatus = "INFEASIBLE"
	ScanEmpty      ScanStatus = "EMPTY"
)

// Snapshot is the pinned view of market data one scan reads from. Every
// detector invoked for a single scan reads the same Snapshot value.
type Snapshot struct {
	PinnedAt      time.Time
	Tickers       map[string]SpotTicker
	Books         map[string]OrderBookLevel2
	FundingRates  map[string]FundingRateSample
	FundingHist   map[string][]FundingRateSample // symbol -> history, newest last
	Basis         map[string]FuturesBasis
	BasisHist     map[string][]FuturesBasis
	P2PAds        map[string][]P2PAd // key: asset|fiat
	FiatRates     map[string]FiatRate // key: base|quote
	PriceHistory  map[string][]PricePoint
}
