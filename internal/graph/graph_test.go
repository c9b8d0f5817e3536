package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfind/internal/obs"
)

func TestEnumerateCycles_TriangularArbitrage(t *testing.T) {
	g := New()
	// USDT -> COP -> VES -> USDT, product = 4000 * 0.009 * 0.028 = 1.008
	g.AddEdge("USDT", "COP", 4000, 0, 0, 1_000_000)
	g.AddEdge("COP", "VES", 0.009, 0, 0, 1_000_000)
	g.AddEdge("VES", "USDT", 0.028, 0, 0, 1_000_000)
	// a dead-end edge that should never appear in any cycle
	g.AddEdge("USDT", "EUR", 0.9, 0, 0, 1_000_000)

	cycles := EnumerateCycles(g, nil, "USDT", 5, 0)
	require.Len(t, cycles, 1)
	c := cycles[0]
	assert.Equal(t, 3, c.Hops)
	assert.InDelta(t, 0.008, c.ROI(), 1e-6)
	assert.Equal(t, []string{"USDT", "COP", "VES", "USDT"}, c.Path)
}

func TestEnumerateCycles_NoArbitrageYieldsEmpty(t *testing.T) {
	g := New()
	g.AddEdge("USDT", "COP", 4000, 0, 0, 1_000_000)
	g.AddEdge("COP", "VES", 0.009, 0, 0, 1_000_000)
	g.AddEdge("VES", "USDT", 0.0277, 0, 0, 1_000_000) // product = 0.9972, no arbitrage

	cycles := EnumerateCycles(g, nil, "USDT", 5, 0)
	assert.Empty(t, cycles)
}

func TestEnumerateCycles_IsolatedStartYieldsEmpty(t *testing.T) {
	g := New()
	g.AddEdge("COP", "VES", 0.009, 0, 0, 1_000_000)

	cycles := EnumerateCycles(g, nil, "USDT", 5, 0)
	assert.Empty(t, cycles)
}

func TestEnumerateCycles_PrunesBelowMinLiquidity(t *testing.T) {
	g := New()
	g.AddEdge("USDT", "COP", 4000, 0, 0, 100) // below min liquidity
	g.AddEdge("COP", "VES", 0.009, 0, 0, 1_000_000)
	g.AddEdge("VES", "USDT", 0.028, 0, 0, 1_000_000)

	cycles := EnumerateCycles(g, nil, "USDT", 5, 1000)
	assert.Empty(t, cycles)
}

func TestEnumerateCycles_ConcurrentPoolMatchesSequential(t *testing.T) {
	g := New()
	g.AddEdge("USDT", "COP", 4000, 0, 0, 1_000_000)
	g.AddEdge("COP", "VES", 0.009, 0, 0, 1_000_000)
	g.AddEdge("VES", "USDT", 0.028, 0, 0, 1_000_000)
	g.AddEdge("USDT", "BRL", 5.5, 0, 0, 1_000_000)
	g.AddEdge("BRL", "VES", 0.0052, 0, 0, 1_000_000)

	pool := NewCyclePool(4, 64, obs.NewNop())
	defer pool.StopAndWait()

	seq := EnumerateCycles(g, nil, "USDT", 5, 0)
	par := EnumerateCycles(g, pool, "USDT", 5, 0)
	assert.Equal(t, len(seq), len(par))
}
