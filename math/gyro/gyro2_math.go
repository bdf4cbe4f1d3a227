// Package gyro implements the concentrated-liquidity two-asset math. The
// pool confines prices to [alpha, beta] by trading constant-product on
// virtual reserves offset from the real balances by the invariant.
package gyro

import (
	"errors"
	"math/big"

	"github.com/batchswap/sor/fixpoint"
)

var ErrAssetBoundsExceeded = errors.New("gyro: swap exceeds available real reserves")

// CalculateInvariant solves L from the quadratic
//
//	(1 - sqrtAlpha/sqrtBeta) L^2 - (y/sqrtBeta + x sqrtAlpha) L - x y = 0
//
// taking the positive root. x and y are the scaled real balances.
func CalculateInvariant(x, y, sqrtAlpha, sqrtBeta *big.Int) (*big.Int, error) {
	ratio, err := fixpoint.DivDown(sqrtAlpha, sqrtBeta)
	if err != nil {
		return nil, err
	}
	a := fixpoint.Complement(ratio)

	yOverSqrtBeta, err := fixpoint.DivDown(y, sqrtBeta)
	if err != nil {
		return nil, err
	}
	xTimesSqrtAlpha, err := fixpoint.MulDown(x, sqrtAlpha)
	if err != nil {
		return nil, err
	}
	b := new(big.Int).Add(yOverSqrtBeta, xTimesSqrtAlpha)

	c, err := fixpoint.MulDown(x, y)
	if err != nil {
		return nil, err
	}

	// discriminant = b^2 + 4 a c, computed in raw units to keep the square
	// root exact: all fixed-point operands carry 1e18 so b^2 and 4ac are
	// 1e36-scaled raw integers.
	disc := new(big.Int).Mul(b, b)
	fourAC := new(big.Int).Mul(a, c)
	fourAC.Mul(fourAC, big.NewInt(4))
	disc.Add(disc, fourAC)

	sqrtDisc := new(big.Int).Sqrt(disc)

	numerator := new(big.Int).Add(b, sqrtDisc)
	denominator := new(big.Int).Mul(a, big.NewInt(2))
	numerator.Mul(numerator, fixpoint.ONE)
	return numerator.Quo(numerator, denominator), nil
}

// VirtualReserves returns the virtual offsets added to the real balances:
// virtualX = L / sqrtBeta, virtualY = L * sqrtAlpha.
func VirtualReserves(invariant, sqrtAlpha, sqrtBeta *big.Int) (virtualX, virtualY *big.Int, err error) {
	virtualX, err = fixpoint.DivDown(invariant, sqrtBeta)
	if err != nil {
		return nil, nil, err
	}
	virtualY, err = fixpoint.MulDown(invariant, sqrtAlpha)
	if err != nil {
		return nil, nil, err
	}
	return virtualX, virtualY, nil
}

// CalcOutGivenIn trades on the virtual constant product. balanceIn and
// balanceOut are real balances, virtualIn and virtualOut the corresponding
// offsets; amountIn is net of fee.
func CalcOutGivenIn(balanceIn, balanceOut, virtualIn, virtualOut, amountIn *big.Int) (*big.Int, error) {
	effectiveIn := new(big.Int).Add(balanceIn, virtualIn)
	effectiveOut := new(big.Int).Add(balanceOut, virtualOut)

	denominator := new(big.Int).Add(effectiveIn, amountIn)
	numerator, err := fixpoint.MulDown(effectiveOut, amountIn)
	if err != nil {
		return nil, err
	}
	amountOut, err := fixpoint.DivDown(numerator, denominator)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) > 0 {
		return nil, ErrAssetBoundsExceeded
	}
	return amountOut, nil
}

// CalcInGivenOut is the exact-out inverse, rounding the required input up.
func CalcInGivenOut(balanceIn, balanceOut, virtualIn, virtualOut, amountOut *big.Int) (*big.Int, error) {
	if amountOut.Cmp(balanceOut) > 0 {
		return nil, ErrAssetBoundsExceeded
	}
	effectiveIn := new(big.Int).Add(balanceIn, virtualIn)
	effectiveOut := new(big.Int).Add(balanceOut, virtualOut)

	denominator := new(big.Int).Sub(effectiveOut, amountOut)
	numerator, err := fixpoint.MulUp(effectiveIn, amountOut)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivUp(numerator, denominator)
}
