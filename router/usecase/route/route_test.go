package route_test

import (
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/router/usecase/pools"
	"github.com/batchswap/sor/router/usecase/route"
)

var (
	tokenA = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB = common.HexToAddress("0x000000000000000000000000000000000000000b")
	tokenC = common.HexToAddress("0x000000000000000000000000000000000000000c")
)

func fix(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number: " + s)
	}
	return v
}

func weightedPool(t *testing.T, id string, tokenIn, tokenOut common.Address, balIn, balOut string) domain.RoutablePool {
	t.Helper()
	record := &domain.PoolRecord{
		ID:          id,
		Type:        domain.Weighted,
		SwapFee:     fix("3000000000000000"), // 0.3%
		SwapEnabled: true,
		Tokens: []domain.TokenRecord{
			{Address: tokenIn, Balance: fix(balIn), Decimals: 18, Weight: fix("500000000000000000")},
			{Address: tokenOut, Balance: fix(balOut), Decimals: 18, Weight: fix("500000000000000000")},
		},
	}
	pool, err := pools.NewRoutablePool(record, tokenIn, tokenOut, 0)
	assert.NoError(t, err)
	return pool
}

func twoHopRoute(t *testing.T) route.RouteImpl {
	t.Helper()
	return route.NewRoute(
		weightedPool(t, "p1", tokenA, tokenB, "1000000000000000000000", "2000000000000000000000"),
		weightedPool(t, "p2", tokenB, tokenC, "3000000000000000000000", "1500000000000000000000"),
	)
}

func TestCalcOutGivenInChains(t *testing.T) {
	r := twoHopRoute(t)

	amountIn := fix("10000000000000000000")
	firstOut, err := r.Pools[0].CalcOutGivenIn(amountIn)
	assert.NoError(t, err)
	secondOut, err := r.Pools[1].CalcOutGivenIn(firstOut)
	assert.NoError(t, err)

	total, err := r.CalcOutGivenIn(amountIn)
	assert.NoError(t, err)
	assert.Equal(t, 0, total.Cmp(secondOut))
}

func TestCalcInGivenOutIsApproximateInverse(t *testing.T) {
	r := twoHopRoute(t)

	amountOut := fix("5000000000000000000")
	in, err := r.CalcInGivenOut(amountOut)
	assert.NoError(t, err)

	back, err := r.CalcOutGivenIn(in)
	assert.NoError(t, err)
	assert.True(t, back.Cmp(amountOut) >= 0, "exact-out quote must buy the requested output")

	diff := new(big.Int).Sub(back, amountOut)
	assert.True(t, diff.Cmp(fix("10000000")) < 0, "diff=%s", diff)
}

func TestSpotPriceIsProductOfHops(t *testing.T) {
	r := twoHopRoute(t)

	p1, err := r.Pools[0].SpotPrice()
	assert.NoError(t, err)
	p2, err := r.Pools[1].SpotPrice()
	assert.NoError(t, err)

	total, err := r.SpotPrice()
	assert.NoError(t, err)
	assert.True(t, total.Equal(p1.Mul(p2)))
}

func TestSpotPriceAfterSwapWorsensWithSize(t *testing.T) {
	r := twoHopRoute(t)

	small, err := r.SpotPriceAfterSwap(osmomath.NewDec(1), domain.SwapExactIn)
	assert.NoError(t, err)
	large, err := r.SpotPriceAfterSwap(osmomath.NewDec(100), domain.SwapExactIn)
	assert.NoError(t, err)
	assert.True(t, large.GT(small))

	d, err := r.DerivativeSpotPriceAfterSwap(osmomath.NewDec(10), domain.SwapExactIn)
	assert.NoError(t, err)
	assert.True(t, d.IsPositive())
}

func TestLimitAmountTakesTightestHop(t *testing.T) {
	// Second hop is shallow: its 30% cap binds the whole path.
	r := route.NewRoute(
		weightedPool(t, "deep", tokenA, tokenB, "100000000000000000000000", "100000000000000000000000"),
		weightedPool(t, "shallow", tokenB, tokenC, "1000000000000000000000", "1000000000000000000000"),
	)

	limit := r.LimitAmount(domain.SwapExactIn)

	// The shallow hop caps its input at 300; converted back through the
	// deep hop that is a bit above 300 of path input.
	assert.True(t, limit.Cmp(fix("300000000000000000000")) > 0)
	assert.True(t, limit.Cmp(fix("310000000000000000000")) < 0, "limit=%s", limit)

	// Swapping within the limit succeeds end to end.
	_, err := r.CalcOutGivenIn(limit)
	assert.NoError(t, err)
}

func TestApplySwapMutatesOnlyClone(t *testing.T) {
	r := twoHopRoute(t)
	clone := r.Clone()

	before, err := r.SpotPrice()
	assert.NoError(t, err)

	err = clone.ApplySwap(fix("10000000000000000000"))
	assert.NoError(t, err)

	after, err := r.SpotPrice()
	assert.NoError(t, err)
	assert.True(t, before.Equal(after))

	cloneSp, err := clone.SpotPrice()
	assert.NoError(t, err)
	assert.True(t, cloneSp.GT(before))
}

func TestRouteString(t *testing.T) {
	r := twoHopRoute(t)
	assert.Equal(t, "p1 -> p2", r.String())
}
