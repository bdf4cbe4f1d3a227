package stable_test

import (
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/batchswap/sor/math/stable"
)

func amp(a int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(a), stable.AmpPrecision)
}

func fix(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number: " + s)
	}
	return v
}

func TestCalculateInvariantBalanced(t *testing.T) {
	// At proportional balances the invariant equals the balance sum for any
	// amplification.
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	for _, a := range []int64{1, 100, 5000} {
		inv, err := stable.CalculateInvariant(amp(a), balances)
		assert.NoError(t, err)

		sum := fix("2000000000000000000000")
		diff := new(big.Int).Sub(inv, sum)
		assert.True(t, diff.CmpAbs(big.NewInt(2)) <= 0, "amp=%d invariant=%s", a, inv)
	}
}

func TestCalculateInvariantSkewed(t *testing.T) {
	// Away from balance the invariant sits strictly between the constant-sum
	// and constant-product extremes.
	balances := []*big.Int{
		fix("100000000000000000000"),
		fix("900000000000000000000"),
	}
	inv, err := stable.CalculateInvariant(amp(100), balances)
	assert.NoError(t, err)

	sum := fix("1000000000000000000000")
	assert.True(t, inv.Cmp(sum) < 0)
	// 2*sqrt(xy) = 600e18 for these balances
	productFloor := fix("600000000000000000000")
	assert.True(t, inv.Cmp(productFloor) > 0)
}

func TestCalculateInvariantZeroBalances(t *testing.T) {
	balances := []*big.Int{big.NewInt(0), big.NewInt(0)}
	_, err := stable.CalculateInvariant(amp(100), balances)
	assert.IsError(t, err, stable.ErrZeroBalances)
}

func TestTokenBalanceSolverRoundTrips(t *testing.T) {
	balances := []*big.Int{
		fix("400000000000000000000"),
		fix("600000000000000000000"),
		fix("500000000000000000000"),
	}
	a := amp(200)
	inv, err := stable.CalculateInvariant(a, balances)
	assert.NoError(t, err)

	// Solving for a balance already consistent with the invariant recovers
	// it to within the solver's rounding slack, a few thousand base units
	// on 1e20-scale balances.
	for i := range balances {
		solved, err := stable.GetTokenBalanceGivenInvariantAndAllOtherBalances(a, balances, inv, i)
		assert.NoError(t, err)
		diff := new(big.Int).Sub(solved, balances[i])
		assert.True(t, diff.CmpAbs(big.NewInt(5000)) <= 0, "token %d solved=%s want=%s", i, solved, balances[i])
	}
}

func TestCalcOutGivenInNearParity(t *testing.T) {
	// A deep, balanced, highly amplified pool trades near 1:1.
	balances := []*big.Int{
		fix("1000000000000000000000000"),
		fix("1000000000000000000000000"),
	}
	amountIn := fix("1000000000000000000")

	out, err := stable.CalcOutGivenIn(amp(5000), balances, 0, 1, amountIn)
	assert.NoError(t, err)

	assert.True(t, out.Cmp(amountIn) < 0, "output must not exceed input at parity")
	// within 0.01% of parity
	floor := fix("999900000000000000")
	assert.True(t, out.Cmp(floor) > 0, "out=%s", out)
}

func TestCalcOutGivenInLowAmpIsConvex(t *testing.T) {
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	a := amp(1)

	small, err := stable.CalcOutGivenIn(a, balances, 0, 1, fix("10000000000000000000"))
	assert.NoError(t, err)
	large, err := stable.CalcOutGivenIn(a, balances, 0, 1, fix("100000000000000000000"))
	assert.NoError(t, err)

	// Average price degrades with size.
	smallRate := new(big.Int).Div(new(big.Int).Mul(small, big.NewInt(1e9)), fix("10000000000000000000"))
	largeRate := new(big.Int).Div(new(big.Int).Mul(large, big.NewInt(1e9)), fix("100000000000000000000"))
	assert.True(t, largeRate.Cmp(smallRate) < 0)
}

func TestCalcInGivenOutInverse(t *testing.T) {
	balances := []*big.Int{
		fix("500000000000000000000000"),
		fix("700000000000000000000000"),
	}
	a := amp(300)
	amountOut := fix("2500000000000000000000")

	in, err := stable.CalcInGivenOut(a, balances, 0, 1, amountOut)
	assert.NoError(t, err)

	// Feeding the computed input back must buy at least the requested
	// output minus iteration slack.
	back, err := stable.CalcOutGivenIn(a, balances, 0, 1, in)
	assert.NoError(t, err)

	diff := new(big.Int).Sub(back, amountOut)
	assert.True(t, diff.CmpAbs(big.NewInt(100)) <= 0, "back=%s want=%s", back, amountOut)
}

func TestCalcInGivenOutRejectsDrain(t *testing.T) {
	balances := []*big.Int{
		fix("500000000000000000000"),
		fix("500000000000000000000"),
	}
	_, err := stable.CalcInGivenOut(amp(100), balances, 0, 1, fix("500000000000000000000"))
	assert.Error(t, err)
}

func TestBptOutGivenExactTokenIn(t *testing.T) {
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	supply := fix("2000000000000000000000")
	fee := fix("1000000000000000") // 0.1%

	bptOut, err := stable.CalcBptOutGivenExactTokenIn(amp(100), balances, 0, fix("10000000000000000000"), supply, fee)
	assert.NoError(t, err)

	assert.True(t, bptOut.Sign() > 0)
	// Single-sided join of 10 into a 2000-supply pool mints slightly less
	// than 10 BPT due to fee and imbalance.
	assert.True(t, bptOut.Cmp(fix("10000000000000000000")) < 0)
	assert.True(t, bptOut.Cmp(fix("9900000000000000000")) > 0, "bptOut=%s", bptOut)
}

func TestBptRoundTripExit(t *testing.T) {
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	supply := fix("2000000000000000000000")
	fee := fix("1000000000000000")
	a := amp(100)

	bptIn := fix("10000000000000000000")
	tokenOut, err := stable.CalcTokenOutGivenExactBptIn(a, balances, 0, bptIn, supply, fee)
	assert.NoError(t, err)
	assert.True(t, tokenOut.Sign() > 0)
	assert.True(t, tokenOut.Cmp(fix("10100000000000000000")) < 0, "tokenOut=%s", tokenOut)

	// Burning BPT for tokens and then rebuying that BPT with the proceeds
	// must not profit.
	bptBack, err := stable.CalcBptOutGivenExactTokenIn(a, balances, 0, tokenOut, supply, fee)
	assert.NoError(t, err)
	assert.True(t, bptBack.Cmp(bptIn) <= 0)
}

func TestTokenInGivenExactBptOutRoundsAgainstCaller(t *testing.T) {
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	supply := fix("2000000000000000000000")
	fee := fix("1000000000000000")
	a := amp(100)

	bptOut := fix("10000000000000000000")
	tokenIn, err := stable.CalcTokenInGivenExactBptOut(a, balances, 0, bptOut, supply, fee)
	assert.NoError(t, err)

	// Buying BPT must cost at least what selling the same BPT yields.
	tokenBack, err := stable.CalcTokenOutGivenExactBptIn(a, balances, 0, bptOut, supply, fee)
	assert.NoError(t, err)
	assert.True(t, tokenIn.Cmp(tokenBack) >= 0)
}

func TestBptInGivenExactTokenOut(t *testing.T) {
	balances := []*big.Int{
		fix("1000000000000000000000"),
		fix("1000000000000000000000"),
	}
	supply := fix("2000000000000000000000")
	fee := fix("1000000000000000")
	a := amp(100)

	tokenOut := fix("10000000000000000000")
	bptIn, err := stable.CalcBptInGivenExactTokenOut(a, balances, 0, tokenOut, supply, fee)
	assert.NoError(t, err)

	// The BPT burned must cover at least the BPT the same tokens would buy.
	bptMinted, err := stable.CalcBptOutGivenExactTokenIn(a, balances, 0, tokenOut, supply, fee)
	assert.NoError(t, err)
	assert.True(t, bptIn.Cmp(bptMinted) >= 0)
}
