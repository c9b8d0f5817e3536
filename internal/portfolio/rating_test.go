package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"arbfind/internal/ports"
)

func TestRate_ExcellentMetricsYieldA(t *testing.T) {
	assert.Equal(t, ports.RatingA, Rate(2.5, 0.05, 0.05, 15))
}

func TestRate_PoorMetricsYieldF(t *testing.T) {
	assert.Equal(t, ports.RatingF, Rate(-1.0, 0.9, 0.5, 95))
}

func TestTierFor_InfeasibleWhenFlagged(t *testing.T) {
	assert.Equal(t, ports.TierInfeasible, TierFor(2.0, 2.0, 1.0, true))
}

func TestTierFor_InfeasibleWhenNoSlack(t *testing.T) {
	assert.Equal(t, ports.TierInfeasible, TierFor(2.0, 2.0, 0, false))
}

func TestTierFor_ExcellentWithStrongMetrics(t *testing.T) {
	assert.Equal(t, ports.TierExcellent, TierFor(1.8, 1.6, 0.6, false))
}
