package usecase

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/router/usecase/route"
)

// rankedRoute is a candidate path annotated with its zero-size spot price
// and its path-level trade limit in path units.
type rankedRoute struct {
	route     route.RouteImpl
	spotPrice osmomath.Dec
	limit     *big.Int
}

// splitSolution is the outcome of one frontier evaluation: the per-route
// allocations in path units and the exact total on the other side.
type splitSolution struct {
	routes  []route.RouteImpl
	amounts []*big.Int
	// total is the exact output for ExactIn, the exact input for ExactOut.
	total *big.Int
	// netTotal folds the per-route gas cost in: subtracted from the output
	// for ExactIn, added to the input for ExactOut.
	netTotal *big.Int
}

// derivativeFloor replaces vanishing curve slopes so the linearized update
// stays finite on locally flat curves.
var derivativeFloor = osmomath.MustNewDecFromStr("0.000000000001")

// rankRoutes annotates and sorts candidates by ascending spot price; ties
// keep discovery order. Routes with a zero limit are dropped.
func rankRoutes(candidates []route.RouteImpl, kind domain.SwapTypes) []rankedRoute {
	ranked := make([]rankedRoute, 0, len(candidates))
	for _, candidate := range candidates {
		sp, err := candidate.SpotPrice()
		if err != nil {
			continue
		}
		limit := candidate.LimitAmount(kind)
		if limit.Sign() <= 0 {
			continue
		}
		ranked = append(ranked, rankedRoute{route: candidate, spotPrice: sp, limit: limit})
	}

	// Insertion sort keeps ties stable; candidate sets are small.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].spotPrice.LT(ranked[j-1].spotPrice); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked
}

// equalizeMarginalPrices allocates the total across the given routes so
// their after-swap marginal prices converge, by iterating a linearized
// price-target update. Allocations are clamped to [0, limit]; routes pinned
// at a bound are frozen out of subsequent rounds. Returns nil allocations
// when the frontier's aggregate limit cannot absorb the total.
func equalizeMarginalPrices(routes []rankedRoute, total *big.Int, kind domain.SwapTypes, maxIterations int) ([]osmomath.Dec, error) {
	n := len(routes)
	totalDec := osmomath.NewDecFromBigIntWithPrec(total, 18)

	limits := make([]osmomath.Dec, n)
	limitSum := osmomath.ZeroDec()
	for i, r := range routes {
		limits[i] = osmomath.NewDecFromBigIntWithPrec(r.limit, 18)
		limitSum = limitSum.Add(limits[i])
	}
	if totalDec.GT(limitSum) {
		return nil, nil
	}

	amounts := make([]osmomath.Dec, n)
	share := totalDec.Quo(osmomath.NewDec(int64(n)))
	for i := range amounts {
		amounts[i] = share
		if amounts[i].GT(limits[i]) {
			amounts[i] = limits[i]
		}
	}

	frozen := make([]bool, n)
	for iteration := 0; iteration < maxIterations; iteration++ {
		prices := make([]osmomath.Dec, n)
		derivatives := make([]osmomath.Dec, n)
		sumFree := osmomath.ZeroDec()
		sumFrozen := osmomath.ZeroDec()
		sumInverse := osmomath.ZeroDec()
		sumPriceOverD := osmomath.ZeroDec()

		for i := range routes {
			if frozen[i] {
				sumFrozen = sumFrozen.Add(amounts[i])
				continue
			}
			price, err := routes[i].route.SpotPriceAfterSwap(amounts[i], kind)
			if err != nil {
				return nil, err
			}
			derivative, err := routes[i].route.DerivativeSpotPriceAfterSwap(amounts[i], kind)
			if err != nil {
				return nil, err
			}
			if derivative.LT(derivativeFloor) {
				derivative = derivativeFloor
			}
			prices[i] = price
			derivatives[i] = derivative
			sumFree = sumFree.Add(amounts[i])
			sumInverse = sumInverse.Add(osmomath.OneDec().Quo(derivative))
			sumPriceOverD = sumPriceOverD.Add(price.Quo(derivative))
		}
		if sumInverse.IsZero() {
			break
		}

		// Solve sum(a_i + (target - price_i)/d_i) = total - frozen for the
		// shared target price.
		want := totalDec.Sub(sumFrozen)
		target := want.Sub(sumFree).Add(sumPriceOverD).Quo(sumInverse)

		converged := true
		for i := range routes {
			if frozen[i] {
				continue
			}
			step := target.Sub(prices[i]).Quo(derivatives[i])
			next := amounts[i].Add(step)
			if next.IsNegative() {
				next = osmomath.ZeroDec()
			}
			if next.GT(limits[i]) {
				next = limits[i]
				frozen[i] = true
			}
			if step.Abs().GT(osmomath.MustNewDecFromStr("0.000001")) {
				converged = false
			}
			amounts[i] = next
		}
		if converged {
			break
		}
	}

	// Rebalance any drift so the amounts conserve the requested total
	// exactly without pushing any path past its limit. A positive drift is
	// poured into whichever path has the most headroom; a negative drift is
	// drained from the largest allocation. Each pass either absorbs the
	// drift or saturates a path, so both loops terminate within n passes.
	sum := osmomath.ZeroDec()
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	drift := totalDec.Sub(sum)
	for drift.IsPositive() {
		target := -1
		headroom := osmomath.ZeroDec()
		for i := range amounts {
			h := limits[i].Sub(amounts[i])
			if h.GT(headroom) {
				headroom = h
				target = i
			}
		}
		if target < 0 {
			return nil, nil
		}
		step := drift
		if step.GT(headroom) {
			step = headroom
		}
		amounts[target] = amounts[target].Add(step)
		drift = drift.Sub(step)
	}
	for drift.IsNegative() {
		largest := 0
		for i := range amounts {
			if amounts[i].GT(amounts[largest]) {
				largest = i
			}
		}
		if !amounts[largest].IsPositive() {
			break
		}
		take := drift.Neg()
		if take.GT(amounts[largest]) {
			take = amounts[largest]
		}
		amounts[largest] = amounts[largest].Sub(take)
		drift = drift.Add(take)
	}
	return amounts, nil
}

// evaluateSplit converts decimal allocations to scaled integers, spreads the
// truncation residual across paths with limit headroom, and prices every
// route with the exact fixed-point math.
func evaluateSplit(routes []rankedRoute, allocations []osmomath.Dec, total *big.Int, kind domain.SwapTypes) (*splitSolution, error) {
	n := len(routes)
	amounts := make([]*big.Int, n)
	allocated := new(big.Int)
	for i, a := range allocations {
		amounts[i] = a.BigInt()
		if amounts[i].Sign() < 0 {
			amounts[i] = big.NewInt(0)
		}
		if amounts[i].Cmp(routes[i].limit) > 0 {
			amounts[i] = new(big.Int).Set(routes[i].limit)
		}
		allocated.Add(allocated, amounts[i])
	}
	// Exact conservation of the requested amount, still bounded by each
	// path's limit.
	residual := new(big.Int).Sub(total, allocated)
	for residual.Sign() > 0 {
		target := -1
		headroom := new(big.Int)
		for i := range amounts {
			h := new(big.Int).Sub(routes[i].limit, amounts[i])
			if h.Cmp(headroom) > 0 {
				headroom = h
				target = i
			}
		}
		if target < 0 {
			return nil, nil
		}
		step := residual
		if step.Cmp(headroom) > 0 {
			step = headroom
		}
		amounts[target] = new(big.Int).Add(amounts[target], step)
		residual = new(big.Int).Sub(residual, step)
	}
	for residual.Sign() < 0 {
		largest := 0
		for i := range amounts {
			if amounts[i].Cmp(amounts[largest]) > 0 {
				largest = i
			}
		}
		if amounts[largest].Sign() <= 0 {
			return nil, nil
		}
		take := new(big.Int).Neg(residual)
		if take.Cmp(amounts[largest]) > 0 {
			take = amounts[largest]
		}
		amounts[largest] = new(big.Int).Sub(amounts[largest], take)
		residual = new(big.Int).Add(residual, take)
	}

	solution := &splitSolution{total: new(big.Int)}
	for i, r := range routes {
		if amounts[i].Sign() == 0 {
			continue
		}
		var converted *big.Int
		var err error
		if kind == domain.SwapExactOut {
			converted, err = r.route.CalcInGivenOut(amounts[i])
		} else {
			converted, err = r.route.CalcOutGivenIn(amounts[i])
		}
		if err != nil {
			return nil, nil
		}
		solution.routes = append(solution.routes, r.route)
		solution.amounts = append(solution.amounts, amounts[i])
		solution.total.Add(solution.total, converted)
	}
	if len(solution.routes) == 0 {
		return nil, nil
	}
	return solution, nil
}

// optimizeSplit sweeps route-count frontiers from one to maxPools routes,
// equalizing marginal prices within each frontier, and keeps the frontier
// with the best exact total net of gas. A wider frontier is admitted only
// when it beats the incumbent after paying for its extra hops.
func optimizeSplit(
	ranked []rankedRoute,
	total *big.Int,
	kind domain.SwapTypes,
	cfg domain.RouterConfig,
	gasCost func(route.RouteImpl) *big.Int,
) (*splitSolution, error) {
	maxRoutes := cfg.MaxPools
	if maxRoutes > len(ranked) {
		maxRoutes = len(ranked)
	}

	var best *splitSolution
	for frontier := 1; frontier <= maxRoutes; frontier++ {
		subset := ranked[:frontier]

		poolCount := 0
		for _, r := range subset {
			poolCount += len(r.route.Pools)
		}
		if poolCount > cfg.MaxPools {
			break
		}

		allocations, err := equalizeMarginalPrices(subset, total, kind, cfg.MaxSplitIterations)
		if err != nil || allocations == nil {
			continue
		}
		solution, err := evaluateSplit(subset, allocations, total, kind)
		if err != nil || solution == nil {
			continue
		}

		gas := new(big.Int)
		for _, r := range solution.routes {
			gas.Add(gas, gasCost(r))
		}
		if kind == domain.SwapExactOut {
			solution.netTotal = new(big.Int).Add(solution.total, gas)
			if best == nil || solution.netTotal.Cmp(best.netTotal) < 0 {
				best = solution
			}
		} else {
			solution.netTotal = new(big.Int).Sub(solution.total, gas)
			if best == nil || solution.netTotal.Cmp(best.netTotal) > 0 {
				best = solution
			}
		}
	}
	return best, nil
}
