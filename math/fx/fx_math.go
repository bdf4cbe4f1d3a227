// Package fx implements a reduced form of the oracle-anchored FX curve.
// Balances are valued in a common numeraire through per-token oracle rates;
// swaps execute at oracle parity while the post-swap balance weights stay
// inside the beta band, pay a delta-and-lambda sloped penalty between beta
// and alpha, and halt entirely beyond alpha.
package fx

import (
	"errors"
	"math/big"

	"github.com/batchswap/sor/fixpoint"
)

var ErrSwapHalted = errors.New("fx: swap would exceed the halt boundary")

// Params carries the curve parameters, all 18-decimal scaled fractions.
// Alpha and Beta are deviations from the ideal half weight, with
// 0 < Beta < Alpha < 0.5; Delta is the penalty slope and Lambda its
// dampening factor.
type Params struct {
	Alpha  *big.Int
	Beta   *big.Int
	Delta  *big.Int
	Lambda *big.Int
}

var half = new(big.Int).Quo(fixpoint.ONE, big.NewInt(2))

// weightAfter returns the value weight of the out-side token after removing
// outValue from it, with the total pool value held constant by the matching
// in-side deposit.
func weightAfter(valueOut, totalValue, movedValue *big.Int) (*big.Int, error) {
	remaining := new(big.Int).Sub(valueOut, movedValue)
	if remaining.Sign() < 0 {
		return nil, ErrSwapHalted
	}
	return fixpoint.DivDown(remaining, totalValue)
}

// penalty returns the fractional haircut for an out-side weight w. Zero
// inside the beta band, delta*lambda sloped in (beta, alpha].
func penalty(w *big.Int, p Params) (*big.Int, error) {
	bandFloor := new(big.Int).Sub(half, p.Beta)
	if w.Cmp(bandFloor) >= 0 {
		return big.NewInt(0), nil
	}
	haltFloor := new(big.Int).Sub(half, p.Alpha)
	if w.Cmp(haltFloor) < 0 {
		return nil, ErrSwapHalted
	}
	excess := new(big.Int).Sub(bandFloor, w)
	slope, err := fixpoint.MulDown(p.Delta, p.Lambda)
	if err != nil {
		return nil, err
	}
	return fixpoint.MulDown(excess, slope)
}

// CalcOutGivenIn converts amountIn (net of fee) through the oracle rates and
// applies the band penalty. rateIn and rateOut are numeraire prices.
func CalcOutGivenIn(balanceIn, balanceOut, rateIn, rateOut, amountIn *big.Int, p Params) (*big.Int, error) {
	valueIn, err := fixpoint.MulDown(balanceIn, rateIn)
	if err != nil {
		return nil, err
	}
	valueOut, err := fixpoint.MulDown(balanceOut, rateOut)
	if err != nil {
		return nil, err
	}
	totalValue := new(big.Int).Add(valueIn, valueOut)

	movedValue, err := fixpoint.MulDown(amountIn, rateIn)
	if err != nil {
		return nil, err
	}

	w, err := weightAfter(valueOut, totalValue, movedValue)
	if err != nil {
		return nil, err
	}
	haircut, err := penalty(w, p)
	if err != nil {
		return nil, err
	}

	parityOut, err := fixpoint.DivDown(movedValue, rateOut)
	if err != nil {
		return nil, err
	}
	return fixpoint.MulDown(parityOut, fixpoint.Complement(haircut))
}

// CalcInGivenOut is the exact-out inverse, grossing the parity input up by
// the band penalty.
func CalcInGivenOut(balanceIn, balanceOut, rateIn, rateOut, amountOut *big.Int, p Params) (*big.Int, error) {
	valueIn, err := fixpoint.MulDown(balanceIn, rateIn)
	if err != nil {
		return nil, err
	}
	valueOut, err := fixpoint.MulDown(balanceOut, rateOut)
	if err != nil {
		return nil, err
	}
	totalValue := new(big.Int).Add(valueIn, valueOut)

	movedValue, err := fixpoint.MulUp(amountOut, rateOut)
	if err != nil {
		return nil, err
	}

	w, err := weightAfter(valueOut, totalValue, movedValue)
	if err != nil {
		return nil, err
	}
	haircut, err := penalty(w, p)
	if err != nil {
		return nil, err
	}

	parityIn, err := fixpoint.DivUp(movedValue, rateIn)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivUp(parityIn, fixpoint.Complement(haircut))
}

// MaxSwapValue returns the largest numeraire value that can leave the out
// side before the halt boundary, used to derive swap limits.
func MaxSwapValue(balanceIn, balanceOut, rateIn, rateOut *big.Int, p Params) (*big.Int, error) {
	valueIn, err := fixpoint.MulDown(balanceIn, rateIn)
	if err != nil {
		return nil, err
	}
	valueOut, err := fixpoint.MulDown(balanceOut, rateOut)
	if err != nil {
		return nil, err
	}
	totalValue := new(big.Int).Add(valueIn, valueOut)

	haltFloor := new(big.Int).Sub(half, p.Alpha)
	floorValue, err := fixpoint.MulUp(totalValue, haltFloor)
	if err != nil {
		return nil, err
	}
	maxValue := new(big.Int).Sub(valueOut, floorValue)
	if maxValue.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return maxValue, nil
}
