package usecase

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/router/usecase/route"
)

// emptySwapInfo is the well-formed "no route found" outcome.
func emptySwapInfo(tokenIn, tokenOut common.Address, swapAmount *big.Int) domain.SwapInfo {
	return domain.SwapInfo{
		Swaps:                       []domain.Swap{},
		TokenAddresses:              []common.Address{},
		TokenIn:                     tokenIn,
		TokenOut:                    tokenOut,
		SwapAmount:                  swapAmount,
		ReturnAmount:                big.NewInt(0),
		ReturnAmountConsideringFees: big.NewInt(0),
		MarketSP:                    osmomath.ZeroDec(),
	}
}

// buildSwapInfo renders the optimizer's solution into the settlement
// instruction list. Path allocations are converted to native decimals
// rounding down, with the truncation residual assigned to the largest path
// so the native amounts sum exactly to the requested swap amount.
func buildSwapInfo(
	solution *splitSolution,
	tokenIn, tokenOut common.Address,
	kind domain.SwapTypes,
	swapAmountNative *big.Int,
) domain.SwapInfo {
	info := emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
	if solution == nil || len(solution.routes) == 0 {
		return info
	}

	// Native per-path allocations with exact conservation. Each path also
	// carries a native-unit cap derived from its limit so the residual never
	// pushes an allocation over it.
	nativeAmounts := make([]*big.Int, len(solution.routes))
	nativeLimits := make([]*big.Int, len(solution.routes))
	allocated := new(big.Int)
	for i, r := range solution.routes {
		factor := allocationScalingFactor(r, kind)
		native, err := fixpoint.DownscaleDown(solution.amounts[i], factor)
		if err != nil {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		limit, err := fixpoint.DownscaleDown(r.LimitAmount(kind), factor)
		if err != nil {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		if native.Cmp(limit) > 0 {
			native = limit
		}
		nativeAmounts[i] = native
		nativeLimits[i] = limit
		allocated.Add(allocated, native)
	}
	residual := new(big.Int).Sub(swapAmountNative, allocated)
	for residual.Sign() > 0 {
		target := -1
		headroom := new(big.Int)
		for i := range nativeAmounts {
			h := new(big.Int).Sub(nativeLimits[i], nativeAmounts[i])
			if h.Cmp(headroom) > 0 {
				headroom = h
				target = i
			}
		}
		if target < 0 {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		step := residual
		if step.Cmp(headroom) > 0 {
			step = headroom
		}
		nativeAmounts[target] = new(big.Int).Add(nativeAmounts[target], step)
		residual = new(big.Int).Sub(residual, step)
	}
	for residual.Sign() < 0 {
		largest := 0
		for i := range nativeAmounts {
			if nativeAmounts[i].Cmp(nativeAmounts[largest]) > 0 {
				largest = i
			}
		}
		if nativeAmounts[largest].Sign() <= 0 {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		take := new(big.Int).Neg(residual)
		if take.Cmp(nativeAmounts[largest]) > 0 {
			take = nativeAmounts[largest]
		}
		nativeAmounts[largest] = new(big.Int).Sub(nativeAmounts[largest], take)
		residual = new(big.Int).Add(residual, take)
	}

	assetIndex := make(map[common.Address]int)
	indexOf := func(token common.Address) int {
		if idx, ok := assetIndex[token]; ok {
			return idx
		}
		idx := len(info.TokenAddresses)
		assetIndex[token] = idx
		info.TokenAddresses = append(info.TokenAddresses, token)
		return idx
	}

	for i, r := range solution.routes {
		info.Swaps = append(info.Swaps, routeSwaps(r, kind, nativeAmounts[i], indexOf)...)
	}

	// Return amounts round against the caller: down for the output of an
	// exact-in trade, up for the input of an exact-out trade.
	returnFactor := returnScalingFactor(solution.routes[0], kind)
	var returnAmount, netReturnAmount *big.Int
	var err error
	if kind == domain.SwapExactOut {
		returnAmount, err = fixpoint.DownscaleUp(solution.total, returnFactor)
		if err != nil {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		netReturnAmount, err = fixpoint.DownscaleUp(solution.netTotal, returnFactor)
	} else {
		returnAmount, err = fixpoint.DownscaleDown(solution.total, returnFactor)
		if err != nil {
			return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
		}
		net := solution.netTotal
		if net.Sign() < 0 {
			net = big.NewInt(0)
		}
		netReturnAmount, err = fixpoint.DownscaleDown(net, returnFactor)
	}
	if err != nil {
		return emptySwapInfo(tokenIn, tokenOut, swapAmountNative)
	}
	info.ReturnAmount = returnAmount
	info.ReturnAmountConsideringFees = netReturnAmount
	info.MarketSP = marketSpotPrice(solution)

	return info
}

// routeSwaps renders one path. Exact-in paths chain forward; exact-out
// paths list hops in reverse so the first entry pins the requested output.
// Either way every entry after the first carries a zero amount, meaning
// "the full amount from the adjacent swap".
func routeSwaps(r route.RouteImpl, kind domain.SwapTypes, nativeAmount *big.Int, indexOf func(common.Address) int) []domain.Swap {
	swaps := make([]domain.Swap, 0, len(r.Pools))

	appendHop := func(pool domain.RoutablePool, first bool) {
		amount := "0"
		if first {
			amount = nativeAmount.String()
		}
		swaps = append(swaps, domain.Swap{
			PoolID:        pool.GetID(),
			AssetInIndex:  indexOf(pool.GetTokenIn()),
			AssetOutIndex: indexOf(pool.GetTokenOut()),
			Amount:        amount,
			UserData:      "0x",
		})
	}

	if kind == domain.SwapExactOut {
		for i := len(r.Pools) - 1; i >= 0; i-- {
			appendHop(r.Pools[i], i == len(r.Pools)-1)
		}
		return swaps
	}
	for i, pool := range r.Pools {
		appendHop(pool, i == 0)
	}
	return swaps
}

// allocationScalingFactor is the native-decimal factor of the side the
// allocation is denominated in.
func allocationScalingFactor(r route.RouteImpl, kind domain.SwapTypes) *big.Int {
	if kind == domain.SwapExactOut {
		return r.Pools[len(r.Pools)-1].GetScalingFactorOut()
	}
	return r.Pools[0].GetScalingFactorIn()
}

// returnScalingFactor is the factor of the opposite side.
func returnScalingFactor(r route.RouteImpl, kind domain.SwapTypes) *big.Int {
	if kind == domain.SwapExactOut {
		return r.Pools[0].GetScalingFactorIn()
	}
	return r.Pools[len(r.Pools)-1].GetScalingFactorOut()
}

// marketSpotPrice is the allocation-weighted average of the route spot
// prices, informational only.
func marketSpotPrice(solution *splitSolution) osmomath.Dec {
	totalWeight := osmomath.ZeroDec()
	weighted := osmomath.ZeroDec()
	for i, r := range solution.routes {
		sp, err := r.SpotPrice()
		if err != nil {
			continue
		}
		weight := osmomath.NewDecFromBigIntWithPrec(solution.amounts[i], 18)
		weighted = weighted.Add(sp.Mul(weight))
		totalWeight = totalWeight.Add(weight)
	}
	if totalWeight.IsZero() {
		return osmomath.ZeroDec()
	}
	return weighted.Quo(totalWeight)
}
