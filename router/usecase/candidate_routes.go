package usecase

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/router/usecase/pools"
	"github.com/batchswap/sor/router/usecase/route"
)

// maxBoostedDepth bounds phantom-BPT chains: linear wrap, boosted hop,
// linear unwrap, plus one spare hop.
const maxBoostedDepth = 4

// poolGraph indexes the snapshot for path discovery. Edges hold the single
// most liquid routable view per ordered token pair; direct routes bypass the
// best-edge restriction and consider every pool.
type poolGraph struct {
	timestamp int64

	// records by ordered pair key.
	edges map[common.Address]map[common.Address]edgeEntry

	// neighbors lists each token's counterparties in snapshot order, so
	// path discovery walks edges deterministically and equal-price routes
	// keep a stable tie-break.
	neighbors map[common.Address][]common.Address

	// bptTokens marks pool-owned tokens usable as boosted-chain
	// intermediates.
	bptTokens map[common.Address]struct{}

	records []*domain.PoolRecord
}

type edgeEntry struct {
	pool      domain.RoutablePool
	record    *domain.PoolRecord
	liquidity osmomath.Dec
}

// buildPoolGraph filters the snapshot and indexes the best edge per pair.
func buildPoolGraph(records []*domain.PoolRecord, opts domain.SwapOptions) *poolGraph {
	g := &poolGraph{
		timestamp: opts.Timestamp,
		edges:     make(map[common.Address]map[common.Address]edgeEntry),
		neighbors: make(map[common.Address][]common.Address),
		bptTokens: make(map[common.Address]struct{}),
	}

	for _, record := range records {
		if !record.SwapEnabled || record.Type == domain.Unknown {
			continue
		}
		if !typeAllowed(record.Type, opts.PoolTypeFilter) {
			continue
		}
		g.records = append(g.records, record)

		if record.Type == domain.Linear || record.Type == domain.ComposableStable {
			if record.BptIndex >= 0 && record.BptIndex < len(record.Tokens) {
				g.bptTokens[record.Tokens[record.BptIndex].Address] = struct{}{}
			}
		}

		for _, from := range record.Tokens {
			for _, to := range record.Tokens {
				if from.Address == to.Address {
					continue
				}
				g.addEdge(record, from.Address, to.Address)
			}
		}
	}
	return g
}

func typeAllowed(t domain.PoolType, filter []domain.PoolType) bool {
	if len(filter) == 0 {
		return true
	}
	for _, allowed := range filter {
		if t == allowed {
			return true
		}
	}
	return false
}

// addEdge keeps the most liquid constructible view for the pair. Factory
// rejections (invalid linear pairs, schedule-gated pools) simply leave the
// edge out.
func (g *poolGraph) addEdge(record *domain.PoolRecord, from, to common.Address) {
	view, err := pools.NewRoutablePool(record, from, to, g.timestamp)
	if err != nil {
		return
	}
	liquidity := view.NormalizedLiquidity()

	byTo, ok := g.edges[from]
	if !ok {
		byTo = make(map[common.Address]edgeEntry)
		g.edges[from] = byTo
	}
	current, ok := byTo[to]
	if !ok {
		g.neighbors[from] = append(g.neighbors[from], to)
	}
	if ok && current.liquidity.GTE(liquidity) {
		return
	}
	byTo[to] = edgeEntry{pool: view, record: record, liquidity: liquidity}
}

func (g *poolGraph) bestEdge(from, to common.Address) (edgeEntry, bool) {
	byTo, ok := g.edges[from]
	if !ok {
		return edgeEntry{}, false
	}
	entry, ok := byTo[to]
	return entry, ok
}

// candidateRoutes enumerates direct routes, two-hop routes through every
// intermediate token, and phantom-BPT boosted chains up to depth four. Each
// returned route holds freshly cloned working copies.
func (g *poolGraph) candidateRoutes(tokenIn, tokenOut common.Address) []route.RouteImpl {
	var routes []route.RouteImpl
	seenPoolSets := make(map[string]struct{})

	record := func(r route.RouteImpl) {
		key := r.String()
		if _, ok := seenPoolSets[key]; ok {
			return
		}
		seenPoolSets[key] = struct{}{}
		routes = append(routes, r)
	}

	// Direct: every pool holding the pair, not just the most liquid one.
	for _, rec := range g.records {
		view, err := pools.NewRoutablePool(rec, tokenIn, tokenOut, g.timestamp)
		if err != nil {
			continue
		}
		record(route.NewRoute(view))
	}

	// Two-hop through each intermediate, best pool per side.
	for _, mid := range g.neighbors[tokenIn] {
		if mid == tokenOut || mid == tokenIn {
			continue
		}
		first, ok := g.bestEdge(tokenIn, mid)
		if !ok {
			continue
		}
		second, ok := g.bestEdge(mid, tokenOut)
		if !ok || second.record.ID == first.record.ID {
			continue
		}
		record(route.NewRoute(first.pool.Clone(), second.pool.Clone()))
	}

	// Boosted chains: deeper paths whose intermediates are all phantom BPT
	// tokens.
	g.boostedChains(tokenIn, tokenOut, record)

	return routes
}

// boostedChains walks the graph from tokenIn with every intermediate
// restricted to a BPT token, up to maxBoostedDepth hops.
func (g *poolGraph) boostedChains(tokenIn, tokenOut common.Address, record func(route.RouteImpl)) {
	type frame struct {
		token common.Address
		hops  []edgeEntry
	}

	stack := []frame{{token: tokenIn}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if len(current.hops) >= maxBoostedDepth {
			continue
		}
		for _, next := range g.neighbors[current.token] {
			if next == tokenIn {
				continue
			}
			entry := g.edges[current.token][next]
			if poolUsed(current.hops, entry.record.ID) {
				continue
			}
			if next == tokenOut {
				// Depth-three-plus chains only; shallower shapes are
				// covered by the direct and two-hop passes.
				if len(current.hops) >= 2 {
					hops := append(append([]edgeEntry{}, current.hops...), entry)
					poolsInRoute := make([]domain.RoutablePool, len(hops))
					for i, hop := range hops {
						poolsInRoute[i] = hop.pool.Clone()
					}
					record(route.NewRoute(poolsInRoute...))
				}
				continue
			}
			if _, isBpt := g.bptTokens[next]; !isBpt {
				continue
			}
			if tokenVisited(current.hops, next) {
				continue
			}
			stack = append(stack, frame{
				token: next,
				hops:  append(append([]edgeEntry{}, current.hops...), entry),
			})
		}
	}
}

func poolUsed(hops []edgeEntry, id string) bool {
	for _, hop := range hops {
		if hop.record.ID == id {
			return true
		}
	}
	return false
}

func tokenVisited(hops []edgeEntry, token common.Address) bool {
	for _, hop := range hops {
		if hop.pool.GetTokenOut() == token || hop.pool.GetTokenIn() == token {
			return true
		}
	}
	return false
}
