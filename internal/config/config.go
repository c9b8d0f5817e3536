// Package config loads and validates the engine's YAML configuration,
// covering the full surface spec §6.3 names: scanning, per-strategy
// tunables, risk limits, optimizer parameters, normalizer weights, and
// gateway TTLs/circuit-breaker thresholds.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"arbfind/internal/ports"
)

// Config is the root configuration document. It implements
// ports.ConfigProvider by projecting each YAML section onto the
// corresponding ports.*Config struct.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Scanning ScanningConfig `yaml:"scanning"`
	Strategy StrategyYAML   `yaml:"strategy"`
	Risk     RiskYAML       `yaml:"risk"`
	Optimizer OptimizerYAML `yaml:"optimizer"`
	Normalizer NormalizerYAML `yaml:"normalizer"`
	Gateway  GatewayYAML    `yaml:"gateway"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	MLOracle MLOracleConfig `yaml:"ml_oracle"`
}

// AppConfig carries process-level settings.
type AppConfig struct {
	LogLevel string `yaml:"log_level" validate:"oneof=DEBUG INFO WARN ERROR"`
}

// TelemetryConfig mirrors the reference architecture's telemetry section.
type TelemetryConfig struct {
	ServiceName   string `yaml:"service_name"`
	EnableMetrics bool   `yaml:"enable_metrics"`
}

// MLOracleConfig holds the optional oracle's endpoint and credential.
type MLOracleConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  Secret `yaml:"api_key"`
}

// ScanningConfig mirrors spec §6.3 "Scanning".
type ScanningConfig struct {
	MinReturn             float64 `yaml:"min_return"`
	MaxRiskScore          float64 `yaml:"max_risk_score"`
	MinConfidence         float64 `yaml:"min_confidence"`
	MinLiquidityUSD       float64 `yaml:"min_liquidity_usd"`
	MaxCandidates         int     `yaml:"max_candidates"`
	PerDetectorDeadlineMs int     `yaml:"per_detector_deadline_ms"`
	ScanDeadlineMs        int     `yaml:"scan_deadline_ms"`
	PerGatewayDeadlineMs  int     `yaml:"per_gateway_deadline_ms"`
}

// StrategyYAML mirrors spec §6.3 "Strategy-specific".
type StrategyYAML struct {
	FundingMinAPY            float64    `yaml:"funding_min_apy"`
	StatArbZEntry            float64    `yaml:"stat_arb_z_entry"`
	StatArbZExit             float64    `yaml:"stat_arb_z_exit"`
	StatArbWindow            int        `yaml:"stat_arb_window"`
	StatArbPairs             [][2]string `yaml:"stat_arb_pairs"`
	DeltaNeutralMinBasis     float64    `yaml:"delta_neutral_min_basis"`
	TriangleMaxHops          int        `yaml:"triangle_max_hops"`
	TriangleMinEdgeLiquidity float64    `yaml:"triangle_min_edge_liquidity"`
	TriangleStartAssets      []string   `yaml:"triangle_start_assets"`
	SpotP2PMinMarginCOP      float64    `yaml:"spot_p2p_min_margin_cop"`
	SpotP2PMinMarginVES      float64    `yaml:"spot_p2p_min_margin_ves"`
	SpotP2PMerchantMinScore  float64    `yaml:"spot_p2p_merchant_min_score"`
	SpotP2PPairs             [][2]string `yaml:"spot_p2p_pairs"`
	CrossFiatPairs           [][2]string `yaml:"cross_fiat_pairs"`
	TakerFee                 float64    `yaml:"taker_fee"`
	ExpectedSlippage         float64    `yaml:"expected_slippage"`
	FundingIntervalHours     float64    `yaml:"funding_interval_hours"`
	CapitalPerOpportunity    float64    `yaml:"capital_per_opportunity"`
}

// RiskYAML mirrors spec §6.3 "Risk".
type RiskYAML struct {
	RiskFreeRate            float64            `yaml:"risk_free_rate"`
	VarConfidence           float64            `yaml:"var_confidence"`
	MaxPortfolioVarPct      float64            `yaml:"max_portfolio_var_pct"`
	MaxStrategyAllocation   float64            `yaml:"max_strategy_allocation"`
	MinDiversificationRatio float64            `yaml:"min_diversification_ratio"`
	MaxConcentration        float64            `yaml:"max_concentration"`
	KellyCap                float64            `yaml:"kelly_cap"`
	LiquidityFactor         float64            `yaml:"liquidity_factor"`
	BaseVolatility          map[string]float64 `yaml:"base_volatility"`
	Beta                    map[string]float64 `yaml:"beta"`
	CorrelationOffDiagonal  float64            `yaml:"correlation_off_diagonal"`
}

// OptimizerYAML mirrors spec §6.3 "Optimizer".
type OptimizerYAML struct {
	RiskAversionLambda float64 `yaml:"risk_aversion_lambda"`
	MinWeight          float64 `yaml:"min_weight"`
	MaxPositions       int     `yaml:"max_positions"`
	MaxCandidates      int     `yaml:"max_candidates"`
	SolverTolerance    float64 `yaml:"solver_tolerance"`
	SolverMaxIters     int     `yaml:"solver_max_iters"`
	IncludeSpotP2P     bool    `yaml:"include_spot_p2p"`
}

// NormalizerYAML mirrors spec §6.3 "Normalizer weights and reference scales".
type NormalizerYAML struct {
	WeightReturn     float64            `yaml:"weight_return"`
	WeightLiquidity  float64            `yaml:"weight_liquidity"`
	WeightConfidence float64            `yaml:"weight_confidence"`
	WeightRisk       float64            `yaml:"weight_risk"`
	WeightSharpe     float64            `yaml:"weight_sharpe"`
	ReturnRef        float64            `yaml:"return_ref"`
	LiquidityRef     float64            `yaml:"liquidity_ref"`
	SharpeCap        float64            `yaml:"sharpe_cap"`
	RiskWeights      map[string]float64 `yaml:"risk_weights"`
}

// GatewayYAML mirrors spec §6.3 "Gateway TTLs per source and circuit-breaker
// thresholds".
type GatewayYAML struct {
	SpotTTLSec              int     `yaml:"spot_ttl_sec"`
	OrderBookTTLSec         int     `yaml:"order_book_ttl_sec"`
	FundingTTLSec           int     `yaml:"funding_ttl_sec"`
	BasisTTLSec             int     `yaml:"basis_ttl_sec"`
	P2PTTLSec               int     `yaml:"p2p_ttl_sec"`
	FiatTTLSec              int     `yaml:"fiat_ttl_sec"`
	StalenessMultiplier     float64 `yaml:"staleness_multiplier"`
	BreakerFailThreshold    int     `yaml:"breaker_fail_threshold"`
	BreakerOpenDurationSec  int     `yaml:"breaker_open_duration_sec"`
	RequestsPerSecond       float64 `yaml:"requests_per_second"`
	FiatDivergencePct       float64 `yaml:"fiat_divergence_pct"`
}

// LoadConfig reads filename, expands ${ENV_VAR} references, unmarshals into
// Config and validates it — the same read → expand → unmarshal → validate
// pipeline the reference architecture's internal/config/config.go runs.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrInvalidInput, err.Error())
	}
	return &cfg, nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

// Validate performs structural validation of the loaded document. It
// accumulates every problem found rather than stopping at the first, the
// way the reference architecture's Config.Validate does.
func (c *Config) Validate() error {
	var problems []string

	switch strings.ToUpper(c.App.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR", "":
	default:
		problems = append(problems, fmt.Sprintf("app.log_level: invalid value %q", c.App.LogLevel))
	}
	if c.Scanning.MaxCandidates < 0 {
		problems = append(problems, "scanning.max_candidates must be >= 0")
	}
	if c.Risk.VarConfidence <= 0 || c.Risk.VarConfidence >= 1 {
		problems = append(problems, "risk.var_confidence must be in (0,1)")
	}
	if c.Optimizer.MaxPositions < 0 {
		problems = append(problems, "optimizer.max_positions must be >= 0")
	}
	sumW := c.Normalizer.WeightReturn + c.Normalizer.WeightLiquidity + c.Normalizer.WeightConfidence +
		c.Normalizer.WeightRisk + c.Normalizer.WeightSharpe
	if sumW <= 0 {
		problems = append(problems, "normalizer weights must sum to a positive value")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// applyDefaults fills the spec's documented defaults for any field left at
// its YAML zero value.
func (c *Config) applyDefaults() {
	if c.Scanning.MaxCandidates == 0 {
		c.Scanning.MaxCandidates = 20
	}
	if c.Scanning.PerDetectorDeadlineMs == 0 {
		c.Scanning.PerDetectorDeadlineMs = 10_000
	}
	if c.Scanning.ScanDeadlineMs == 0 {
		c.Scanning.ScanDeadlineMs = 15_000
	}
	if c.Scanning.PerGatewayDeadlineMs == 0 {
		c.Scanning.PerGatewayDeadlineMs = 3_000
	}
	if c.Strategy.TriangleMaxHops == 0 {
		c.Strategy.TriangleMaxHops = 5
	}
	if c.Strategy.StatArbWindow == 0 {
		c.Strategy.StatArbWindow = 60
	}
	if c.Strategy.StatArbZEntry == 0 {
		c.Strategy.StatArbZEntry = 2.0
	}
	if c.Strategy.StatArbZExit == 0 {
		c.Strategy.StatArbZExit = 0.5
	}
	if c.Strategy.FundingIntervalHours == 0 {
		c.Strategy.FundingIntervalHours = 8
	}
	if c.Strategy.SpotP2PMinMarginCOP == 0 {
		c.Strategy.SpotP2PMinMarginCOP = 0.025
	}
	if c.Strategy.SpotP2PMinMarginVES == 0 {
		c.Strategy.SpotP2PMinMarginVES = 0.03
	}
	if c.Risk.KellyCap == 0 {
		c.Risk.KellyCap = 0.25
	}
	if c.Risk.LiquidityFactor == 0 {
		c.Risk.LiquidityFactor = 0.1
	}
	if c.Risk.VarConfidence == 0 {
		c.Risk.VarConfidence = 0.95
	}
	if c.Risk.MaxPortfolioVarPct == 0 {
		c.Risk.MaxPortfolioVarPct = 0.10
	}
	if c.Risk.MaxStrategyAllocation == 0 {
		c.Risk.MaxStrategyAllocation = 0.40
	}
	if c.Risk.MinDiversificationRatio == 0 {
		c.Risk.MinDiversificationRatio = 1.2
	}
	if c.Risk.MaxConcentration == 0 {
		c.Risk.MaxConcentration = 60
	}
	if c.Risk.CorrelationOffDiagonal == 0 {
		c.Risk.CorrelationOffDiagonal = 0.2
	}
	if c.Optimizer.RiskAversionLambda == 0 {
		c.Optimizer.RiskAversionLambda = 0.5
	}
	if c.Optimizer.MinWeight == 0 {
		c.Optimizer.MinWeight = 0.02
	}
	if c.Optimizer.MaxPositions == 0 {
		c.Optimizer.MaxPositions = 5
	}
	if c.Optimizer.MaxCandidates == 0 {
		c.Optimizer.MaxCandidates = 20
	}
	if c.Optimizer.SolverTolerance == 0 {
		c.Optimizer.SolverTolerance = 1e-4
	}
	if c.Optimizer.SolverMaxIters == 0 {
		c.Optimizer.SolverMaxIters = 500
	}
	if c.Normalizer.WeightReturn == 0 && c.Normalizer.WeightLiquidity == 0 &&
		c.Normalizer.WeightConfidence == 0 && c.Normalizer.WeightRisk == 0 && c.Normalizer.WeightSharpe == 0 {
		c.Normalizer.WeightReturn = 0.35
		c.Normalizer.WeightLiquidity = 0.20
		c.Normalizer.WeightConfidence = 0.15
		c.Normalizer.WeightRisk = 0.20
		c.Normalizer.WeightSharpe = 0.10
	}
	if c.Normalizer.ReturnRef == 0 {
		c.Normalizer.ReturnRef = 0.1
	}
	if c.Normalizer.LiquidityRef == 0 {
		c.Normalizer.LiquidityRef = 1_000_000
	}
	if c.Normalizer.SharpeCap == 0 {
		c.Normalizer.SharpeCap = 3.0
	}
	if c.Gateway.SpotTTLSec == 0 {
		c.Gateway.SpotTTLSec = 10
	}
	if c.Gateway.OrderBookTTLSec == 0 {
		c.Gateway.OrderBookTTLSec = 5
	}
	if c.Gateway.FundingTTLSec == 0 {
		c.Gateway.FundingTTLSec = 60
	}
	if c.Gateway.BasisTTLSec == 0 {
		c.Gateway.BasisTTLSec = 30
	}
	if c.Gateway.P2PTTLSec == 0 {
		c.Gateway.P2PTTLSec = 15
	}
	if c.Gateway.FiatTTLSec == 0 {
		c.Gateway.FiatTTLSec = 300
	}
	if c.Gateway.StalenessMultiplier == 0 {
		c.Gateway.StalenessMultiplier = 3.0
	}
	if c.Gateway.BreakerFailThreshold == 0 {
		c.Gateway.BreakerFailThreshold = 5
	}
	if c.Gateway.BreakerOpenDurationSec == 0 {
		c.Gateway.BreakerOpenDurationSec = 60
	}
	if c.Gateway.RequestsPerSecond == 0 {
		c.Gateway.RequestsPerSecond = 10
	}
	if c.Gateway.FiatDivergencePct == 0 {
		c.Gateway.FiatDivergencePct = 0.02
	}
}

// Default returns a Config populated entirely with spec-documented defaults,
// suitable for tests that do not need a YAML fixture.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func strategyMap(m map[string]float64) map[ports.Strategy]float64 {
	out := make(map[ports.Strategy]float64, len(m))
	for k, v := range m {
		out[ports.Strategy(k)] = v
	}
	return out
}

// ScanConfig implements ports.ConfigProvider.
func (c *Config) ScanConfig() ports.ScanConfig {
	return ports.ScanConfig{
		MinReturn:           c.Scanning.MinReturn,
		MaxRiskScore:        c.Scanning.MaxRiskScore,
		MinConfidence:       c.Scanning.MinConfidence,
		MinLiquidityUSD:     c.Scanning.MinLiquidityUSD,
		MaxCandidates:       c.Scanning.MaxCandidates,
		PerDetectorDeadline: time.Duration(c.Scanning.PerDetectorDeadlineMs) * time.Millisecond,
		ScanDeadline:        time.Duration(c.Scanning.ScanDeadlineMs) * time.Millisecond,
		PerGatewayDeadline:  time.Duration(c.Scanning.PerGatewayDeadlineMs) * time.Millisecond,
	}
}

// StrategyConfig implements ports.ConfigProvider.
func (c *Config) StrategyConfig() ports.StrategyConfig {
	s := c.Strategy
	return ports.StrategyConfig{
		FundingMinAPY:            s.FundingMinAPY,
		StatArbZEntry:            s.StatArbZEntry,
		StatArbZExit:             s.StatArbZExit,
		StatArbWindow:            s.StatArbWindow,
		StatArbPairs:             s.StatArbPairs,
		DeltaNeutralMinBasis:     s.DeltaNeutralMinBasis,
		TriangleMaxHops:          s.TriangleMaxHops,
		TriangleMinEdgeLiquidity: s.TriangleMinEdgeLiquidity,
		TriangleStartAssets:      s.TriangleStartAssets,
		SpotP2PMinMarginCOP:      s.SpotP2PMinMarginCOP,
		SpotP2PMinMarginVES:      s.SpotP2PMinMarginVES,
		SpotP2PMerchantMinScore:  s.SpotP2PMerchantMinScore,
		SpotP2PPairs:             s.SpotP2PPairs,
		CrossFiatPairs:           s.CrossFiatPairs,
		TakerFee:                 s.TakerFee,
		ExpectedSlippage:         s.ExpectedSlippage,
		FundingIntervalHours:     s.FundingIntervalHours,
		CapitalPerOpportunity:    s.CapitalPerOpportunity,
	}
}

// RiskConfig implements ports.ConfigProvider.
func (c *Config) RiskConfig() ports.RiskConfig {
	r := c.Risk
	return ports.RiskConfig{
		RiskFreeRate:            r.RiskFreeRate,
		VarConfidence:           r.VarConfidence,
		MaxPortfolioVarPct:      r.MaxPortfolioVarPct,
		MaxStrategyAllocation:   r.MaxStrategyAllocation,
		MinDiversificationRatio: r.MinDiversificationRatio,
		MaxConcentration:        r.MaxConcentration,
		KellyCap:                r.KellyCap,
		LiquidityFactor:         r.LiquidityFactor,
		BaseVolatility:          strategyMap(r.BaseVolatility),
		Beta:                    strategyMap(r.Beta),
		CorrelationOffDiagonal:  r.CorrelationOffDiagonal,
	}
}

// OptimizerConfig implements ports.ConfigProvider.
func (c *Config) OptimizerConfig() ports.OptimizerConfig {
	o := c.Optimizer
	return ports.OptimizerConfig{
		RiskAversionLambda: o.RiskAversionLambda,
		MinWeight:          o.MinWeight,
		MaxPositions:       o.MaxPositions,
		MaxCandidates:      o.MaxCandidates,
		SolverTolerance:    o.SolverTolerance,
		SolverMaxIters:     o.SolverMaxIters,
		IncludeSpotP2P:     o.IncludeSpotP2P,
	}
}

// NormalizerConfig implements ports.ConfigProvider.
func (c *Config) NormalizerConfig() ports.NormalizerConfig {
	n := c.Normalizer
	return ports.NormalizerConfig{
		WeightReturn:     n.WeightReturn,
		WeightLiquidity:  n.WeightLiquidity,
		WeightConfidence: n.WeightConfidence,
		WeightRisk:       n.WeightRisk,
		WeightSharpe:     n.WeightSharpe,
		ReturnRef:        n.ReturnRef,
		LiquidityRef:     n.LiquidityRef,
		SharpeCap:        n.SharpeCap,
		RiskWeights:      strategyMap(n.RiskWeights),
	}
}

// GatewayConfig implements ports.ConfigProvider.
func (c *Config) GatewayConfig() ports.GatewayConfig {
	g := c.Gateway
	return ports.GatewayConfig{
		SpotTTL:              time.Duration(g.SpotTTLSec) * time.Second,
		OrderBookTTL:         time.Duration(g.OrderBookTTLSec) * time.Second,
		FundingTTL:           time.Duration(g.FundingTTLSec) * time.Second,
		BasisTTL:             time.Duration(g.BasisTTLSec) * time.Second,
		P2PTTL:               time.Duration(g.P2PTTLSec) * time.Second,
		FiatTTL:              time.Duration(g.FiatTTLSec) * time.Second,
		StalenessMultiplier:  g.StalenessMultiplier,
		BreakerFailThreshold: g.BreakerFailThreshold,
		BreakerOpenDuration:  time.Duration(g.BreakerOpenDurationSec) * time.Second,
		RequestsPerSecond:    g.RequestsPerSecond,
		FiatDivergencePct:    g.FiatDivergencePct,
	}
}

var _ ports.ConfigProvider = (*Config)(nil)
