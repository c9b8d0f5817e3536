package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  log_level: INFO\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Scanning.MaxCandidates)
	assert.Equal(t, 5, cfg.Strategy.TriangleMaxHops)
	assert.Equal(t, 0.25, cfg.Risk.KellyCap)
	assert.Equal(t, 0.5, cfg.Optimizer.RiskAversionLambda)
	assert.InDelta(t, 1.0, cfg.Normalizer.WeightReturn+cfg.Normalizer.WeightLiquidity+
		cfg.Normalizer.WeightConfidence+cfg.Normalizer.WeightRisk+cfg.Normalizer.WeightSharpe, 1e-9)
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	t.Setenv("ARBFIND_ML_KEY", "topsecret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ml_oracle:\n  api_key: ${ARBFIND_ML_KEY}\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Secret("topsecret"), cfg.MLOracle.APIKey)
	assert.Equal(t, "[REDACTED]", cfg.MLOracle.APIKey.String())
}

func TestValidate_RejectsBadVarConfidence(t *testing.T) {
	cfg := Default()
	cfg.Risk.VarConfidence = 1.5
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "var_confidence")
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	cfg := Default()
	cfg.App.LogLevel = "VERBOSE"
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestGatewayConfig_TTLsConvertToDuration(t *testing.T) {
	cfg := Default()
	gw := cfg.GatewayConfig()
	assert.Equal(t, 10_000_000_000, int(gw.SpotTTL))
	assert.Equal(t, 3.0, gw.StalenessMultiplier)
}
