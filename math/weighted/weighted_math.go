// Package weighted implements the weighted-pool invariant math: closed-form
// power functions over the fixpoint primitives. Amount-out calculations round
// down and amount-in calculations round up; the asymmetry always favors the
// pool and is load-bearing for economic safety.
package weighted

import (
	"errors"
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/fixpoint"
)

var (
	// MaxInRatio and MaxOutRatio cap a single swap at 30% of the respective
	// balance, matching the vault's safety bound.
	MaxInRatio  = big.NewInt(300000000000000000)
	MaxOutRatio = big.NewInt(300000000000000000)

	ErrMaxInRatio  = errors.New("weighted: amount in exceeds max in ratio")
	ErrMaxOutRatio = errors.New("weighted: amount out exceeds max out ratio")

	maxRatioDec = osmomath.MustNewDecFromStr("0.3")
)

// CalcOutGivenIn computes amountOut = balanceOut * (1 - (balanceIn /
// (balanceIn + amountIn*(1-fee)))^(weightIn/weightOut)). All arguments are
// 18-decimal scaled.
func CalcOutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee *big.Int) (*big.Int, error) {
	feeAmount, err := fixpoint.MulUp(amountIn, swapFee)
	if err != nil {
		return nil, err
	}
	amountInAfterFee, err := fixpoint.Sub(amountIn, feeAmount)
	if err != nil {
		return nil, err
	}

	maxIn, err := fixpoint.MulDown(balanceIn, MaxInRatio)
	if err != nil {
		return nil, err
	}
	if amountInAfterFee.Cmp(maxIn) > 0 {
		return nil, ErrMaxInRatio
	}

	denominator, err := fixpoint.Add(balanceIn, amountInAfterFee)
	if err != nil {
		return nil, err
	}
	base, err := fixpoint.DivUp(balanceIn, denominator)
	if err != nil {
		return nil, err
	}
	exponent, err := fixpoint.DivDown(weightIn, weightOut)
	if err != nil {
		return nil, err
	}
	power, err := fixpoint.PowUp(base, exponent)
	if err != nil {
		return nil, err
	}

	return fixpoint.MulDown(balanceOut, fixpoint.Complement(power))
}

// CalcInGivenOut computes the input required for an exact output, gross of
// fee: amountIn = balanceIn * ((balanceOut/(balanceOut-amountOut))^
// (weightOut/weightIn) - 1) / (1 - fee), rounded up.
func CalcInGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee *big.Int) (*big.Int, error) {
	maxOut, err := fixpoint.MulDown(balanceOut, MaxOutRatio)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(maxOut) > 0 {
		return nil, ErrMaxOutRatio
	}

	remaining, err := fixpoint.Sub(balanceOut, amountOut)
	if err != nil {
		return nil, err
	}
	base, err := fixpoint.DivUp(balanceOut, remaining)
	if err != nil {
		return nil, err
	}
	exponent, err := fixpoint.DivUp(weightOut, weightIn)
	if err != nil {
		return nil, err
	}
	power, err := fixpoint.PowUp(base, exponent)
	if err != nil {
		return nil, err
	}

	ratio, err := fixpoint.Sub(power, fixpoint.ONE)
	if err != nil {
		return nil, err
	}
	amountInNoFee, err := fixpoint.MulUp(balanceIn, ratio)
	if err != nil {
		return nil, err
	}

	return fixpoint.DivUp(amountInNoFee, fixpoint.Complement(swapFee))
}

// CalcOutGivenInLegacy is the lower-precision tier retained for the
// liquidity-bootstrapping subtype, which historically evaluated the power
// function through decimal approximation rather than the vault's integer
// log/exp. Both tiers are preserved and selected by the pool-type tag.
func CalcOutGivenInLegacy(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee osmomath.Dec) (osmomath.Dec, error) {
	if !amountIn.IsPositive() {
		return osmomath.ZeroDec(), nil
	}
	amountInAfterFee := amountIn.Mul(osmomath.OneDec().Sub(swapFee))
	if amountInAfterFee.GT(balanceIn.Mul(maxRatioDec)) {
		return osmomath.Dec{}, ErrMaxInRatio
	}

	ratio := balanceIn.Quo(balanceIn.Add(amountInAfterFee))
	exponent := weightIn.Quo(weightOut)

	power := osmomath.Pow(ratio, exponent)
	return balanceOut.Mul(osmomath.OneDec().Sub(power)), nil
}

// CalcInGivenOutLegacy is the legacy-tier inverse of CalcOutGivenInLegacy.
func CalcInGivenOutLegacy(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee osmomath.Dec) (osmomath.Dec, error) {
	if !amountOut.IsPositive() {
		return osmomath.ZeroDec(), nil
	}
	if amountOut.GT(balanceOut.Mul(maxRatioDec)) {
		return osmomath.Dec{}, ErrMaxOutRatio
	}

	ratio := balanceOut.Quo(balanceOut.Sub(amountOut))
	exponent := weightOut.Quo(weightIn)

	power := osmomath.Pow(ratio, exponent)
	amountInNoFee := balanceIn.Mul(power.Sub(osmomath.OneDec()))
	return amountInNoFee.Quo(osmomath.OneDec().Sub(swapFee)), nil
}

// SpotPrice returns the zero-size marginal price (tokenIn per tokenOut)
// gross of fee: (balanceIn/weightIn)/(balanceOut/weightOut) / (1-fee).
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee osmomath.Dec) osmomath.Dec {
	numerator := balanceIn.Quo(weightIn)
	denominator := balanceOut.Quo(weightOut)
	return numerator.Quo(denominator).Quo(osmomath.OneDec().Sub(swapFee))
}

// SpotPriceAfterSwapExactIn is the marginal price (tokenIn per tokenOut)
// after swapping amountIn in. With k = weightIn/weightOut and c = 1-fee:
//
//	price(a) = balanceIn * ((balanceIn + a*c)/balanceIn)^(k+1) / (balanceOut * k * c)
//
// The power is evaluated in ratio form; the growth ratio stays within the
// max-in bound, well inside osmomath.Pow's base domain.
func SpotPriceAfterSwapExactIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee osmomath.Dec) osmomath.Dec {
	k := weightIn.Quo(weightOut)
	c := osmomath.OneDec().Sub(swapFee)

	growth := balanceIn.Add(amountIn.Mul(c)).Quo(balanceIn)
	numerator := balanceIn.Mul(osmomath.Pow(growth, k.Add(osmomath.OneDec())))
	denominator := balanceOut.Mul(k).Mul(c)
	return numerator.Quo(denominator)
}

// DerivativeSpotPriceAfterSwapExactIn is d(price)/d(amountIn):
// price * (k+1) * c / (balanceIn + a*c).
func DerivativeSpotPriceAfterSwapExactIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee osmomath.Dec) osmomath.Dec {
	k := weightIn.Quo(weightOut)
	c := osmomath.OneDec().Sub(swapFee)

	price := SpotPriceAfterSwapExactIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee)
	return price.Mul(k.Add(osmomath.OneDec())).Mul(c).Quo(balanceIn.Add(amountIn.Mul(c)))
}

// SpotPriceAfterSwapExactOut is the marginal price after buying amountOut
// out. With m = weightOut/weightIn and c = 1-fee:
//
//	price(o) = balanceIn * m * (balanceOut/(balanceOut - o))^(m+1) / (c * balanceOut)
//
// As above, the power is kept in ratio form; the depletion ratio is bounded
// by the max-out cap.
func SpotPriceAfterSwapExactOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee osmomath.Dec) osmomath.Dec {
	m := weightOut.Quo(weightIn)
	c := osmomath.OneDec().Sub(swapFee)

	depletion := balanceOut.Quo(balanceOut.Sub(amountOut))
	numerator := balanceIn.Mul(m).Mul(osmomath.Pow(depletion, m.Add(osmomath.OneDec())))
	denominator := c.Mul(balanceOut)
	return numerator.Quo(denominator)
}

// DerivativeSpotPriceAfterSwapExactOut is d(price)/d(amountOut):
// price * (m+1) / (balanceOut - o).
func DerivativeSpotPriceAfterSwapExactOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee osmomath.Dec) osmomath.Dec {
	m := weightOut.Quo(weightIn)

	price := SpotPriceAfterSwapExactOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee)
	return price.Mul(m.Add(osmomath.OneDec())).Quo(balanceOut.Sub(amountOut))
}

// NormalizedLiquidity ranks the pool's depth for a hop token:
// balanceOut * weightIn / (weightIn + weightOut).
func NormalizedLiquidity(balanceOut, weightIn, weightOut osmomath.Dec) osmomath.Dec {
	return balanceOut.Mul(weightIn).Quo(weightIn.Add(weightOut))
}
