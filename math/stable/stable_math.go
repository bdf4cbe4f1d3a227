// Package stable implements the stableswap invariant math: the invariant D
// and the unknown-balance solver are fixed-point Newton-style iterations over
// raw 18-decimal-scaled integers. Iteration failure is reported as a
// convergence error and treated by the router as "this pool offers no route",
// never as a fatal condition.
package stable

import (
	"errors"
	"math/big"

	"github.com/batchswap/sor/fixpoint"
)

// AmpPrecision is the scaling applied to the amplification parameter on
// chain; PoolRecord.Amp already carries it.
var AmpPrecision = big.NewInt(1000)

var (
	ErrInvariantDidNotConverge = errors.New("stable: invariant did not converge")
	ErrBalanceDidNotConverge   = errors.New("stable: token balance did not converge")
	ErrZeroBalances            = errors.New("stable: all balances are zero")
)

var (
	one = big.NewInt(1)
	two = big.NewInt(2)
)

// raw ceil division; the stable invariant math operates on plain integers,
// not 1e18 fixed-point products.
func divUpRaw(a, b *big.Int) *big.Int {
	res := new(big.Int).Add(a, b)
	res.Sub(res, one)
	return res.Quo(res, b)
}

// CalculateInvariant computes D for the given amplification and scaled
// balances by iterating the invariant-preserving recurrence to a one-unit
// fixed point, at most 255 rounds.
func CalculateInvariant(amp *big.Int, balances []*big.Int) (*big.Int, error) {
	numTokens := big.NewInt(int64(len(balances)))

	sum := new(big.Int)
	for _, balance := range balances {
		sum.Add(sum, balance)
	}
	if sum.Sign() == 0 {
		return nil, ErrZeroBalances
	}

	invariant := new(big.Int).Set(sum)
	ampTimesTotal := new(big.Int).Mul(amp, numTokens)

	for i := 0; i < 255; i++ {
		pD := new(big.Int).Mul(balances[0], numTokens)
		for j := 1; j < len(balances); j++ {
			pD.Mul(pD, balances[j])
			pD.Mul(pD, numTokens)
			pD.Quo(pD, invariant)
		}

		previous := new(big.Int).Set(invariant)

		// invariant = (n*D*D + (A*n^n*S*P/ampPrec)) / ((n+1)*D + ((A*n^n - ampPrec)*P/ampPrec))
		numerator := new(big.Int).Mul(numTokens, invariant)
		numerator.Mul(numerator, invariant)
		ampTerm := new(big.Int).Mul(ampTimesTotal, sum)
		ampTerm.Mul(ampTerm, pD)
		ampTerm.Quo(ampTerm, AmpPrecision)
		numerator.Add(numerator, ampTerm)

		denominator := new(big.Int).Add(numTokens, one)
		denominator.Mul(denominator, invariant)
		ampTerm = new(big.Int).Sub(ampTimesTotal, AmpPrecision)
		ampTerm.Mul(ampTerm, pD)
		ampTerm.Quo(ampTerm, AmpPrecision)
		denominator.Add(denominator, ampTerm)

		invariant = numerator.Quo(numerator, denominator)

		diff := new(big.Int).Sub(invariant, previous)
		if diff.CmpAbs(one) <= 0 {
			return invariant, nil
		}
	}

	return nil, ErrInvariantDidNotConverge
}

// GetTokenBalanceGivenInvariantAndAllOtherBalances solves the invariant for
// the balance at tokenIndex, holding every other balance fixed. Rounds up
// (overestimates the required balance, favoring the pool).
func GetTokenBalanceGivenInvariantAndAllOtherBalances(amp *big.Int, balances []*big.Int, invariant *big.Int, tokenIndex int) (*big.Int, error) {
	numTokens := big.NewInt(int64(len(balances)))
	ampTimesTotal := new(big.Int).Mul(amp, numTokens)

	sum := new(big.Int).Set(balances[0])
	pD := new(big.Int).Mul(balances[0], numTokens)
	for j := 1; j < len(balances); j++ {
		pD.Mul(pD, balances[j])
		pD.Mul(pD, numTokens)
		pD.Quo(pD, invariant)
		sum.Add(sum, balances[j])
	}
	sum.Sub(sum, balances[tokenIndex])

	inv2 := new(big.Int).Mul(invariant, invariant)

	// c = divUp(inv2, ampTimesTotal * P_D) * ampPrecision * balances[tokenIndex]
	c := divUpRaw(inv2, new(big.Int).Mul(ampTimesTotal, pD))
	c.Mul(c, AmpPrecision)
	c.Mul(c, balances[tokenIndex])

	// b = sum + (invariant / ampTimesTotal) * ampPrecision
	b := new(big.Int).Quo(invariant, ampTimesTotal)
	b.Mul(b, AmpPrecision)
	b.Add(b, sum)

	tokenBalance := divUpRaw(new(big.Int).Add(inv2, c), new(big.Int).Add(invariant, b))

	for i := 0; i < 255; i++ {
		previous := new(big.Int).Set(tokenBalance)

		// tokenBalance = (tokenBalance^2 + c) / (2*tokenBalance + b - invariant)
		numerator := new(big.Int).Mul(tokenBalance, tokenBalance)
		numerator.Add(numerator, c)
		denominator := new(big.Int).Mul(tokenBalance, two)
		denominator.Add(denominator, b)
		denominator.Sub(denominator, invariant)

		tokenBalance = divUpRaw(numerator, denominator)

		diff := new(big.Int).Sub(tokenBalance, previous)
		if diff.CmpAbs(one) <= 0 {
			return tokenBalance, nil
		}
	}

	return nil, ErrBalanceDidNotConverge
}

// CalcOutGivenIn computes the scaled output for a scaled input net of fee
// (the caller subtracts the swap fee first). The final -1 favors the pool.
func CalcOutGivenIn(amp *big.Int, balances []*big.Int, indexIn, indexOut int, amountIn *big.Int) (*big.Int, error) {
	invariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	updated := make([]*big.Int, len(balances))
	for i := range balances {
		updated[i] = new(big.Int).Set(balances[i])
	}
	updated[indexIn].Add(updated[indexIn], amountIn)

	finalBalanceOut, err := GetTokenBalanceGivenInvariantAndAllOtherBalances(amp, updated, invariant, indexOut)
	if err != nil {
		return nil, err
	}

	amountOut := new(big.Int).Sub(balances[indexOut], finalBalanceOut)
	amountOut.Sub(amountOut, one)
	if amountOut.Sign() < 0 {
		return big.NewInt(0), nil
	}
	return amountOut, nil
}

// CalcInGivenOut computes the scaled input (gross of fee is applied by the
// caller afterwards) for an exact scaled output. The final +1 favors the
// pool.
func CalcInGivenOut(amp *big.Int, balances []*big.Int, indexIn, indexOut int, amountOut *big.Int) (*big.Int, error) {
	invariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	updated := make([]*big.Int, len(balances))
	for i := range balances {
		updated[i] = new(big.Int).Set(balances[i])
	}
	updated[indexOut].Sub(updated[indexOut], amountOut)
	if updated[indexOut].Sign() <= 0 {
		return nil, fixpoint.ErrSubUnderflow
	}

	finalBalanceIn, err := GetTokenBalanceGivenInvariantAndAllOtherBalances(amp, updated, invariant, indexIn)
	if err != nil {
		return nil, err
	}

	amountIn := new(big.Int).Sub(finalBalanceIn, balances[indexIn])
	return amountIn.Add(amountIn, one), nil
}

// CalcBptOutGivenExactTokenIn prices a single-sided join as a swap into the
// pool's own BPT: the swap fee applies only to the portion of the deposit
// that moves the pool away from proportional balance.
func CalcBptOutGivenExactTokenIn(amp *big.Int, balances []*big.Int, tokenIndex int, amountIn, bptTotalSupply, swapFee *big.Int) (*big.Int, error) {
	currentInvariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	sum := new(big.Int)
	for _, balance := range balances {
		sum.Add(sum, balance)
	}

	// invariantRatioWithFees approximates the post-join invariant growth if
	// no fee were charged.
	withFee, err := fixpoint.DivDown(new(big.Int).Add(balances[tokenIndex], amountIn), balances[tokenIndex])
	if err != nil {
		return nil, err
	}
	weight, err := fixpoint.DivDown(balances[tokenIndex], sum)
	if err != nil {
		return nil, err
	}
	growth, err := fixpoint.MulDown(new(big.Int).Sub(withFee, fixpoint.ONE), weight)
	if err != nil {
		return nil, err
	}
	invariantRatioWithFees := new(big.Int).Add(fixpoint.ONE, growth)

	amountInAfterFee := new(big.Int).Set(amountIn)
	if withFee.Cmp(invariantRatioWithFees) > 0 {
		nonTaxable, err := fixpoint.MulDown(balances[tokenIndex], new(big.Int).Sub(invariantRatioWithFees, fixpoint.ONE))
		if err != nil {
			return nil, err
		}
		taxable := new(big.Int).Sub(amountIn, nonTaxable)
		taxableAfterFee, err := fixpoint.MulDown(taxable, fixpoint.Complement(swapFee))
		if err != nil {
			return nil, err
		}
		amountInAfterFee = new(big.Int).Add(nonTaxable, taxableAfterFee)
	}

	updated := make([]*big.Int, len(balances))
	for i := range balances {
		updated[i] = new(big.Int).Set(balances[i])
	}
	updated[tokenIndex].Add(updated[tokenIndex], amountInAfterFee)

	newInvariant, err := CalculateInvariant(amp, updated)
	if err != nil {
		return nil, err
	}

	invariantRatio, err := fixpoint.DivDown(newInvariant, currentInvariant)
	if err != nil {
		return nil, err
	}
	if invariantRatio.Cmp(fixpoint.ONE) <= 0 {
		return big.NewInt(0), nil
	}
	return fixpoint.MulDown(bptTotalSupply, new(big.Int).Sub(invariantRatio, fixpoint.ONE))
}

// CalcTokenOutGivenExactBptIn prices a single-sided exit as a swap out of
// the pool's BPT.
func CalcTokenOutGivenExactBptIn(amp *big.Int, balances []*big.Int, tokenIndex int, bptAmountIn, bptTotalSupply, swapFee *big.Int) (*big.Int, error) {
	currentInvariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	supplyRatio, err := fixpoint.DivUp(new(big.Int).Sub(bptTotalSupply, bptAmountIn), bptTotalSupply)
	if err != nil {
		return nil, err
	}
	newInvariant, err := fixpoint.MulUp(supplyRatio, currentInvariant)
	if err != nil {
		return nil, err
	}

	newBalance, err := GetTokenBalanceGivenInvariantAndAllOtherBalances(amp, balances, newInvariant, tokenIndex)
	if err != nil {
		return nil, err
	}
	amountOutNoFee := new(big.Int).Sub(balances[tokenIndex], newBalance)
	if amountOutNoFee.Sign() < 0 {
		return big.NewInt(0), nil
	}

	sum := new(big.Int)
	for _, balance := range balances {
		sum.Add(sum, balance)
	}
	weight, err := fixpoint.DivDown(balances[tokenIndex], sum)
	if err != nil {
		return nil, err
	}
	taxablePercentage := fixpoint.Complement(weight)
	taxable, err := fixpoint.MulUp(amountOutNoFee, taxablePercentage)
	if err != nil {
		return nil, err
	}
	nonTaxable := new(big.Int).Sub(amountOutNoFee, taxable)
	taxableAfterFee, err := fixpoint.MulDown(taxable, fixpoint.Complement(swapFee))
	if err != nil {
		return nil, err
	}

	return nonTaxable.Add(nonTaxable, taxableAfterFee), nil
}

// CalcTokenInGivenExactBptOut prices an exact BPT purchase with a single
// token, rounding the required input up.
func CalcTokenInGivenExactBptOut(amp *big.Int, balances []*big.Int, tokenIndex int, bptAmountOut, bptTotalSupply, swapFee *big.Int) (*big.Int, error) {
	currentInvariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	supplyRatio, err := fixpoint.DivUp(new(big.Int).Add(bptTotalSupply, bptAmountOut), bptTotalSupply)
	if err != nil {
		return nil, err
	}
	newInvariant, err := fixpoint.MulUp(supplyRatio, currentInvariant)
	if err != nil {
		return nil, err
	}

	newBalance, err := GetTokenBalanceGivenInvariantAndAllOtherBalances(amp, balances, newInvariant, tokenIndex)
	if err != nil {
		return nil, err
	}
	amountInNoFee := new(big.Int).Sub(newBalance, balances[tokenIndex])
	if amountInNoFee.Sign() < 0 {
		return big.NewInt(0), nil
	}

	sum := new(big.Int)
	for _, balance := range balances {
		sum.Add(sum, balance)
	}
	weight, err := fixpoint.DivDown(balances[tokenIndex], sum)
	if err != nil {
		return nil, err
	}
	taxablePercentage := fixpoint.Complement(weight)
	taxable, err := fixpoint.MulUp(amountInNoFee, taxablePercentage)
	if err != nil {
		return nil, err
	}
	nonTaxable := new(big.Int).Sub(amountInNoFee, taxable)
	taxableGross, err := fixpoint.DivUp(taxable, fixpoint.Complement(swapFee))
	if err != nil {
		return nil, err
	}

	return nonTaxable.Add(nonTaxable, taxableGross), nil
}

// CalcBptInGivenExactTokenOut prices an exact single-token withdrawal in
// BPT, rounding the BPT burned up.
func CalcBptInGivenExactTokenOut(amp *big.Int, balances []*big.Int, tokenIndex int, amountOut, bptTotalSupply, swapFee *big.Int) (*big.Int, error) {
	currentInvariant, err := CalculateInvariant(amp, balances)
	if err != nil {
		return nil, err
	}

	sum := new(big.Int)
	for _, balance := range balances {
		sum.Add(sum, balance)
	}

	withoutFee, err := fixpoint.DivUp(new(big.Int).Sub(balances[tokenIndex], amountOut), balances[tokenIndex])
	if err != nil {
		return nil, err
	}
	weight, err := fixpoint.DivDown(balances[tokenIndex], sum)
	if err != nil {
		return nil, err
	}
	shrink, err := fixpoint.MulDown(new(big.Int).Sub(fixpoint.ONE, withoutFee), weight)
	if err != nil {
		return nil, err
	}
	invariantRatioWithoutFees := new(big.Int).Sub(fixpoint.ONE, shrink)

	// Fee applies to the portion of the withdrawal beyond proportional.
	amountOutWithFee := new(big.Int).Set(amountOut)
	if invariantRatioWithoutFees.Cmp(withoutFee) > 0 {
		nonTaxable, err := fixpoint.MulDown(balances[tokenIndex], fixpoint.Complement(invariantRatioWithoutFees))
		if err != nil {
			return nil, err
		}
		taxable := new(big.Int).Sub(amountOut, nonTaxable)
		taxableGross, err := fixpoint.DivUp(taxable, fixpoint.Complement(swapFee))
		if err != nil {
			return nil, err
		}
		amountOutWithFee = new(big.Int).Add(nonTaxable, taxableGross)
	}

	updated := make([]*big.Int, len(balances))
	for i := range balances {
		updated[i] = new(big.Int).Set(balances[i])
	}
	updated[tokenIndex].Sub(updated[tokenIndex], amountOutWithFee)
	if updated[tokenIndex].Sign() <= 0 {
		return nil, fixpoint.ErrSubUnderflow
	}

	newInvariant, err := CalculateInvariant(amp, updated)
	if err != nil {
		return nil, err
	}
	invariantRatio, err := fixpoint.DivUp(newInvariant, currentInvariant)
	if err != nil {
		return nil, err
	}
	if invariantRatio.Cmp(fixpoint.ONE) >= 0 {
		return big.NewInt(0), nil
	}
	return fixpoint.MulUp(bptTotalSupply, fixpoint.Complement(invariantRatio))
}
