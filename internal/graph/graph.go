// Package graph builds the directed price graph used by the cycle
// detectors (C2): log-rate edge weights so that a negative-sum cycle is
// exactly an arbitrage opportunity, annotated with per-edge liquidity.
package graph

import (
	"math"
	"sort"
	"sync"

	"github.com/alitto/pond"
)

// Edge is one directed, fee-and-slippage-adjusted conversion.
type Edge struct {
	From         string
	To           string
	Rate         float64 // raw, unrounded conversion rate
	Effective    float64 // Rate * (1 - fee - slippage)
	Weight       float64 // -ln(Effective)
	LiquidityUSD float64
}

// Graph is a directed multigraph over assets and fiats.
type Graph struct {
	adj map[string][]Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{adj: make(map[string][]Edge)}
}

// AddEdge inserts one directed edge. rate is the raw conversion rate (units
// of `to` per unit of `from`); fee and slippage are fractions subtracted
// from the rate before taking the log, per spec §4.2.
func (g *Graph) AddEdge(from, to string, rate, takerFee, expectedSlippage, liquidityUSD float64) {
	if rate <= 0 {
		return
	}
	effective := rate * (1 - takerFee - expectedSlippage)
	if effective <= 0 {
		return
	}
	g.adj[from] = append(g.adj[from], Edge{
		From: from, To: to, Rate: rate, Effective: effective,
		Weight: -math.Log(effective), LiquidityUSD: liquidityUSD,
	})
}

// Nodes returns every node with at least one outgoing edge.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.adj))
	for n := range g.adj {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Cycle is one simple cycle starting and ending at the same node, with a
// strictly negative cumulative log-weight (i.e. product of effective rates
// exceeds 1 — an arbitrage loop).
type Cycle struct {
	Path         []string // node sequence, length = hops+1, Path[0] == Path[len-1]
	Edges        []Edge
	Weight       float64 // sum of edge weights; negative means profitable
	MinLiquidity float64
	Hops         int
}

// ROI is the cycle's return on investment using the unrounded rates, per
// spec §4.3.4 step 2: exp(-Σw) - 1.
func (c Cycle) ROI() float64 {
	return math.Exp(-c.Weight) - 1
}

// EnumerateCycles performs a bounded depth-first search from start,
// yielding simple cycles of hop count in [3, maxHops], pruning edges below
// minLiquidity and any branch whose cumulative weight already reaches zero
// or above (the "negative-cycle implies arbitrage" identity only holds
// while the running sum stays negative; a non-negative running sum can
// never recover since the best possible contribution of the remaining
// unexplored edges is treated as zero, per spec §4.2). If start has no
// surviving edges after pruning, it returns an empty slice and never
// errors.
//
// When pool is non-nil, the first hop out of start is fanned out across the
// pool (spec §4.3.4 step 5, "concurrent path analysis"); the recursive
// search below the first hop remains sequential per branch since its
// visited-set is branch-local.
func EnumerateCycles(g *Graph, pool *pond.WorkerPool, start string, maxHops int, minLiquidity float64) []Cycle {
	firstEdges := filterLiquid(g.adj[start], minLiquidity)
	if len(firstEdges) == 0 {
		return nil
	}

	var mu sync.Mutex
	var cycles []Cycle
	collect := func(found []Cycle) {
		if len(found) == 0 {
			return
		}
		mu.Lock()
		cycles = append(cycles, found...)
		mu.Unlock()
	}

	if pool == nil {
		for _, e := range firstEdges {
			collect(searchBranch(g, start, e, maxHops, minLiquidity))
		}
	} else {
		var wg sync.WaitGroup
		for _, e := range firstEdges {
			e := e
			wg.Add(1)
			pool.Submit(func() {
				defer wg.Done()
				collect(searchBranch(g, start, e, maxHops, minLiquidity))
			})
		}
		wg.Wait()
	}

	sortCycles(cycles)
	return cycles
}

func searchBranch(g *Graph, start string, first Edge, maxHops int, minLiquidity float64) []Cycle {
	visited := map[string]bool{start: true, first.To: true}
	path := []string{start, first.To}
	edges := []Edge{first}
	var out []Cycle
	dfs(g, start, first.To, maxHops, minLiquidity, visited, path, edges, first.Weight, &out)
	return out
}

func dfs(g *Graph, start, current string, maxHops int, minLiquidity float64, visited map[string]bool, path []string, edges []Edge, weight float64, out *[]Cycle) {
	if weight >= 0 {
		return // no arbitrage possible from here; best-case remaining contribution is 0
	}
	hops := len(edges)
	if hops >= 2 && hops+1 <= maxHops {
		if closeEdge, ok := findEdge(g.adj[current], start, minLiquidity); ok {
			total := weight + closeEdge.Weight
			if total < 0 {
				fullEdges := append(append([]Edge{}, edges...), closeEdge)
				fullPath := append(append([]string{}, path...), start)
				*out = append(*out, Cycle{
					Path: fullPath, Edges: fullEdges, Weight: total,
					MinLiquidity: minEdgeLiquidity(fullEdges), Hops: hops + 1,
				})
			}
		}
	}
	if hops+1 >= maxHops {
		return
	}
	for _, e := range filterLiquid(g.adj[current], minLiquidity) {
		if visited[e.To] || e.To == start {
			continue
		}
		visited[e.To] = true
		dfs(g, start, e.To, maxHops, minLiquidity, visited,
			append(path, e.To), append(edges, e), weight+e.Weight, out)
		delete(visited, e.To)
	}
}

func findEdge(edges []Edge, to string, minLiquidity float64) (Edge, bool) {
	for _, e := range edges {
		if e.To == to && e.LiquidityUSD >= minLiquidity {
			return e, true
		}
	}
	return Edge{}, false
}

func filterLiquid(edges []Edge, minLiquidity float64) []Edge {
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		if e.LiquidityUSD >= minLiquidity {
			out = append(out, e)
		}
	}
	return out
}

func minEdgeLiquidity(edges []Edge) float64 {
	min := math.Inf(1)
	for _, e := range edges {
		if e.LiquidityUSD < min {
			min = e.LiquidityUSD
		}
	}
	return min
}

// sortCycles applies spec §4.2's tie-break: higher minimum-leg liquidity,
// then fewer hops.
func sortCycles(cycles []Cycle) {
	sort.SliceStable(cycles, func(i, j int) bool {
		if cycles[i].MinLiquidity != cycles[j].MinLiquidity {
			return cycles[i].MinLiquidity > cycles[j].MinLiquidity
		}
		return cycles[i].Hops < cycles[j].Hops
	})
}
