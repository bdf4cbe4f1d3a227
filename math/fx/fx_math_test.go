package fx_test

import (
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/batchswap/sor/math/fx"
)

func fix(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad number: " + s)
	}
	return v
}

func params() fx.Params {
	return fx.Params{
		Alpha:  fix("300000000000000000"), // halt at weight 0.2
		Beta:   fix("100000000000000000"), // parity band down to weight 0.4
		Delta:  fix("500000000000000000"),
		Lambda: fix("1000000000000000000"),
	}
}

var (
	rateUSDC = fix("1000000000000000000") // 1.00
	rateEURS = fix("1100000000000000000") // 1.10
)

func TestParityInsideBetaBand(t *testing.T) {
	balanceIn := fix("1000000000000000000000")
	balanceOut := fix("1000000000000000000000")

	amountIn := fix("11000000000000000000") // 11 EURS worth 12.1 USDC
	out, err := fx.CalcOutGivenIn(balanceIn, balanceOut, rateEURS, rateUSDC, amountIn, params())
	assert.NoError(t, err)

	// Exact oracle conversion: 11 * 1.1 / 1.0 = 12.1.
	assert.Equal(t, "12100000000000000000", out.String())
}

func TestPenaltyOutsideBetaBand(t *testing.T) {
	balanceIn := fix("1000000000000000000000")
	balanceOut := fix("1000000000000000000000")

	// Pull roughly a third of the out side; post-swap out weight drops
	// below 0.4 but stays above the 0.2 halt floor.
	amountIn := fix("350000000000000000000")
	out, err := fx.CalcOutGivenIn(balanceIn, balanceOut, rateUSDC, rateUSDC, amountIn, params())
	assert.NoError(t, err)

	assert.True(t, out.Cmp(amountIn) < 0, "penalized swap must fill below parity")
	// Penalty is a few percent at most here.
	floor := fix("330000000000000000000")
	assert.True(t, out.Cmp(floor) > 0, "out=%s", out)
}

func TestHaltBeyondAlpha(t *testing.T) {
	balanceIn := fix("1000000000000000000000")
	balanceOut := fix("1000000000000000000000")

	// Moving 700 of 2000 total value leaves the out weight at 0.15,
	// beyond the 0.2 halt floor.
	_, err := fx.CalcOutGivenIn(balanceIn, balanceOut, rateUSDC, rateUSDC, fix("700000000000000000000"), params())
	assert.IsError(t, err, fx.ErrSwapHalted)

	_, err = fx.CalcInGivenOut(balanceIn, balanceOut, rateUSDC, rateUSDC, fix("700000000000000000000"), params())
	assert.IsError(t, err, fx.ErrSwapHalted)
}

func TestCalcInGivenOutGrossesUp(t *testing.T) {
	balanceIn := fix("1000000000000000000000")
	balanceOut := fix("1000000000000000000000")
	p := params()

	amountOut := fix("350000000000000000000")
	in, err := fx.CalcInGivenOut(balanceIn, balanceOut, rateUSDC, rateUSDC, amountOut, p)
	assert.NoError(t, err)
	assert.True(t, in.Cmp(amountOut) > 0, "exact-out through the penalty region must cost above parity")

	// The two quoting directions agree to within the penalty slope times
	// the moved-value gap; 1% is a loose bound at this trade size.
	back, err := fx.CalcOutGivenIn(balanceIn, balanceOut, rateUSDC, rateUSDC, in, p)
	assert.NoError(t, err)
	diff := new(big.Int).Sub(back, amountOut)
	tolerance := fix("3500000000000000000")
	assert.True(t, diff.CmpAbs(tolerance) <= 0, "back=%s want=%s", back, amountOut)
}

func TestMaxSwapValue(t *testing.T) {
	balanceIn := fix("1000000000000000000000")
	balanceOut := fix("1000000000000000000000")
	p := params()

	maxValue, err := fx.MaxSwapValue(balanceIn, balanceOut, rateUSDC, rateUSDC, p)
	assert.NoError(t, err)
	// valueOut 1000, total 2000, halt floor weight 0.2 -> 400 must stay.
	assert.Equal(t, "600000000000000000000", maxValue.String())

	// A swap moving exactly the max value still executes.
	_, err = fx.CalcOutGivenIn(balanceIn, balanceOut, rateUSDC, rateUSDC, maxValue, p)
	assert.NoError(t, err)
}
