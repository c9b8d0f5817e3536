package ports

import (
	"context"
	"time"
)

// MarketDataSource is the capability set the Market Data Gateway wraps. Every
// operation is an idempotent read with a deadline carried on ctx; errors are
// one of ErrNotFound, ErrDataUnavailable, ErrRateLimited, ErrInvalidInput.
type MarketDataSource interface {
	Name() string
	SpotTicker(ctx context.Context, symbol string) (SpotTicker, error)
	OrderBook(ctx context.Context, symbol string, depth int) (OrderBookLevel2, error)
	FundingRates(ctx context.Context) ([]FundingRateSample, error)
	FuturesBasis(ctx context.Context, symbol string) (FuturesBasis, error)
	P2PAds(ctx context.Context, asset, fiat string, side P2PSide) ([]P2PAd, error)
	FiatRate(ctx context.Context, base, quote string) (FiatRate, error)
	PriceHistory(ctx context.Context, symbol string, window int) ([]PricePoint, error)
}

// Clock is a monotonic time source, injected so scans are reproducible in
// tests without depending on the wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ConfigProvider yields the recognized configuration surface (§6.3).
// internal/config.Config implements this.
type ConfigProvider interface {
	ScanConfig() ScanConfig
	StrategyConfig() StrategyConfig
	RiskConfig() RiskConfig
	OptimizerConfig() OptimizerConfig
	NormalizerConfig() NormalizerConfig
	GatewayConfig() GatewayConfig
}

// MLPrediction is the optional oracle's output for one feature vector.
type MLPrediction struct {
	Value      float64
	Confidence float64 // 0..1
}

// MLOracle may supplement detectors with short-horizon spread/timing
// predictions. Absent oracle means detectors proceed with defaults; no hard
// dependency on this interface exists anywhere in the pipeline.
type MLOracle interface {
	Predict(ctx context.Context, features map[string]float64) (MLPrediction, error)
}

// ScanConfig bounds the orchestrator and the pre-ranking candidate filter.
type ScanConfig struct {
	MinReturn           float64
	MaxRiskScore        float64
	MinConfidence       float64
	MinLiquidityUSD     float64
	MaxCandidates       int
	PerDetectorDeadline time.Duration
	ScanDeadline        time.Duration
	PerGatewayDeadline  time.Duration
}

// StrategyConfig holds the per-detector tunables named in spec §6.3.
type StrategyConfig struct {
	FundingMinAPY          float64
	StatArbZEntry          float64
	StatArbZExit           float64
	StatArbWindow          int
	StatArbPairs           [][2]string
	DeltaNeutralMinBasis   float64
	TriangleMaxHops        int
	TriangleMinEdgeLiquidity float64
	TriangleStartAssets    []string
	SpotP2PMinMarginCOP    float64
	SpotP2PMinMarginVES    float64
	SpotP2PMerchantMinScore float64
	SpotP2PPairs           [][2]string // (asset, fiat)
	CrossFiatPairs         [][2]string // (fiatA, fiatB), bridged via USDT
	TakerFee               float64
	ExpectedSlippage       float64
	FundingIntervalHours   float64
	CapitalPerOpportunity  float64
}

// RiskConfig holds §4.6's limits and sizing parameters.
type RiskConfig struct {
	RiskFreeRate            float64
	VarConfidence           float64 // e.g. 0.95
	MaxPortfolioVarPct      float64
	MaxStrategyAllocation   float64
	MinDiversificationRatio float64
	MaxConcentration        float64
	KellyCap                float64
	LiquidityFactor         float64
	BaseVolatility          map[Strategy]float64
	Beta                    map[Strategy]float64
	CorrelationOffDiagonal  float64
}

// OptimizerConfig holds §4.7's solver tunables.
type OptimizerConfig struct {
	RiskAversionLambda float64
	MinWeight          float64
	MaxPositions       int
	MaxCandidates      int
	SolverTolerance    float64
	SolverMaxIters     int
	IncludeSpotP2P     bool
}

// NormalizerConfig holds §4.4's composite-score weights and reference scales.
type NormalizerConfig struct {
	WeightReturn     float64
	WeightLiquidity  float64
	WeightConfidence float64
	WeightRisk       float64
	WeightSharpe     float64
	ReturnRef        float64
	LiquidityRef     float64
	SharpeCap        float64
	RiskWeights      map[Strategy]float64
}

// GatewayConfig holds per-source TTLs, staleness bound, and breaker thresholds.
type GatewayConfig struct {
	SpotTTL              time.Duration
	OrderBookTTL         time.Duration
	FundingTTL           time.Duration
	BasisTTL             time.Duration
	P2PTTL               time.Duration
	FiatTTL              time.Duration
	StalenessMultiplier  float64 // default 3x TTL
	BreakerFailThreshold int
	BreakerOpenDuration  time.Duration
	RequestsPerSecond    float64
	FiatDivergencePct    float64
}
