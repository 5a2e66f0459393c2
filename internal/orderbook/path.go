package orderbook

import (
	"github.com/tidalswap/engine/internal/pool"
	"github.com/tidalswap/engine/pkg/natmath"
)

// Path is a synthetic multi-hop route between two tokens that have no
// direct pool, expressed as the ordered list of pool ids to traverse and
// the token ids entered at each hop.
type Path struct {
	PoolIDs []uint32
	Tokens  []uint32 // len(Tokens) == len(PoolIDs)+1
}

// PathIndex is a breadth-first index over the pool graph, rebuilt whenever
// a pool is added or removed (§4.12: "maintained incrementally when a pair
// is added/removed" — this implementation recomputes the whole index on
// each rebuild call, which is cheap at the pool counts this engine expects
// and avoids the bookkeeping of an incremental edge-diff).
type PathIndex struct {
	maxHops int
	paths   map[[2]uint32]Path
}

func NewPathIndex(maxHops int) *PathIndex {
	return &PathIndex{maxHops: maxHops, paths: make(map[[2]uint32]Path)}
}

// Rebuild recomputes every shortest synthetic path (by hop count) up to
// maxHops from the current pool graph.
func (pi *PathIndex) Rebuild(pools []pool.Pool) {
	adj := make(map[uint32][]struct {
		to     uint32
		poolID uint32
	})
	for _, p := range pools {
		if p.IsRemoved {
			continue
		}
		adj[p.TokenID0] = append(adj[p.TokenID0], struct {
			to     uint32
			poolID uint32
		}{p.TokenID1, p.ID})
		adj[p.TokenID1] = append(adj[p.TokenID1], struct {
			to     uint32
			poolID uint32
		}{p.TokenID0, p.ID})
	}

	paths := make(map[[2]uint32]Path)
	for src := range adj {
		type frontierEntry struct {
			token   uint32
			poolIDs []uint32
			tokens  []uint32
		}
		visited := map[uint32]bool{src: true}
		frontier := []frontierEntry{{token: src, tokens: []uint32{src}}}
		for hop := 0; hop < pi.maxHops && len(frontier) > 0; hop++ {
			var next []frontierEntry
			for _, f := range frontier {
				for _, edge := range adj[f.token] {
					if visited[edge.to] {
						continue
					}
					visited[edge.to] = true
					poolIDs := append(append([]uint32{}, f.poolIDs...), edge.poolID)
					tokens := append(append([]uint32{}, f.tokens...), edge.to)
					key := pairKey(src, edge.to)
					if _, ok := paths[key]; !ok {
						paths[key] = Path{PoolIDs: poolIDs, Tokens: tokens}
					}
					next = append(next, frontierEntry{token: edge.to, poolIDs: poolIDs, tokens: tokens})
				}
			}
			frontier = next
		}
	}
	pi.paths = paths
}

func pairKey(a, b uint32) [2]uint32 {
	if a > b {
		a, b = b, a
	}
	return [2]uint32{a, b}
}

// Lookup returns the indexed synthetic path between token0 and token1, if
// one was found within the configured hop limit.
func (pi *PathIndex) Lookup(token0, token1 uint32) (Path, bool) {
	p, ok := pi.paths[pairKey(token0, token1)]
	return p, ok
}

// Quote walks a synthetic path end to end using each pool's own
// QuoteSwap, composing the implied mark price as a Rational (output per
// unit input) without mutating any pool.
func Quote(pools *pool.Registry, path Path, amountIn natmath.Nat) (natmath.Nat, error) {
	amount := amountIn
	for i, poolID := range path.PoolIDs {
		tokenIn := path.Tokens[i]
		tokenOut := path.Tokens[i+1]
		hopOut, err := pools.QuoteSwap(poolID, tokenIn, tokenOut, amount)
		if err != nil {
			return natmath.Zero(), err
		}
		amount = hopOut
	}
	return amount, nil
}
