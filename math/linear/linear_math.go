// Package linear implements the linear-pool math. The pool holds a main
// token, its wrapped yield-bearing form, and its own BPT; swaps are priced
// against a nominal main balance that folds the fee curve in, so the
// conversions below never apply a separate swap fee.
package linear

import (
	"math/big"

	"github.com/batchswap/sor/fixpoint"
)

// Params carries the pool's fee rate and the target band within which main
// token swaps are free of fees.
type Params struct {
	Fee         *big.Int
	LowerTarget *big.Int
	UpperTarget *big.Int
}

// toNominal converts a real main balance to its nominal form. Below the
// lower target the balance is grossed up, above the upper target it is
// haircut, inside the band it passes through shifted by the lower fee
// credit.
func toNominal(real *big.Int, p Params) (*big.Int, error) {
	feeLower, err := fixpoint.MulUp(p.LowerTarget, p.Fee)
	if err != nil {
		return nil, err
	}
	if real.Cmp(p.LowerTarget) < 0 {
		fees, err := fixpoint.MulDown(real, p.Fee)
		if err != nil {
			return nil, err
		}
		return new(big.Int).Sub(real, fees), nil
	}
	if real.Cmp(p.UpperTarget) <= 0 {
		return new(big.Int).Sub(real, feeLower), nil
	}
	excess := new(big.Int).Sub(real, p.UpperTarget)
	feesOverUpper, err := fixpoint.MulDown(excess, p.Fee)
	if err != nil {
		return nil, err
	}
	res := new(big.Int).Sub(real, feeLower)
	return res.Sub(res, feesOverUpper), nil
}

// fromNominal inverts toNominal.
func fromNominal(nominal *big.Int, p Params) (*big.Int, error) {
	onePlusFee := new(big.Int).Add(fixpoint.ONE, p.Fee)
	oneMinusFee := fixpoint.Complement(p.Fee)

	feeLower, err := fixpoint.MulUp(p.LowerTarget, p.Fee)
	if err != nil {
		return nil, err
	}
	lowerBound, err := fixpoint.MulDown(p.LowerTarget, oneMinusFee)
	if err != nil {
		return nil, err
	}
	if nominal.Cmp(lowerBound) < 0 {
		return fixpoint.DivDown(nominal, oneMinusFee)
	}

	upperBound := new(big.Int).Sub(p.UpperTarget, feeLower)
	if nominal.Cmp(upperBound) <= 0 {
		return new(big.Int).Add(nominal, feeLower), nil
	}

	feeUpper, err := fixpoint.MulUp(p.UpperTarget, p.Fee)
	if err != nil {
		return nil, err
	}
	numerator := new(big.Int).Add(nominal, feeLower)
	numerator.Add(numerator, feeUpper)
	return fixpoint.DivDown(numerator, onePlusFee)
}

// CalcInvariant returns nominalMain + wrappedBalance, the pool's value in
// main-token terms (wrapped balances arrive pre-scaled by their rate).
func CalcInvariant(nominalMain, wrappedBalance *big.Int) *big.Int {
	return new(big.Int).Add(nominalMain, wrappedBalance)
}

// CalcBptOutPerMainIn prices a main-token deposit in BPT.
func CalcBptOutPerMainIn(mainIn, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	if bptSupply.Sign() == 0 {
		return toNominal(mainIn, p)
	}

	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain, err := toNominal(new(big.Int).Add(mainBalance, mainIn), p)
	if err != nil {
		return nil, err
	}
	deltaNominalMain := new(big.Int).Sub(afterNominalMain, previousNominalMain)
	invariant := CalcInvariant(previousNominalMain, wrappedBalance)

	numerator, err := fixpoint.MulDown(bptSupply, deltaNominalMain)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivDown(numerator, invariant)
}

// CalcBptInPerMainOut prices an exact main-token withdrawal in BPT burned.
func CalcBptInPerMainOut(mainOut, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain, err := toNominal(new(big.Int).Sub(mainBalance, mainOut), p)
	if err != nil {
		return nil, err
	}
	deltaNominalMain := new(big.Int).Sub(previousNominalMain, afterNominalMain)
	invariant := CalcInvariant(previousNominalMain, wrappedBalance)

	numerator, err := fixpoint.MulUp(bptSupply, deltaNominalMain)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivUp(numerator, invariant)
}

// CalcWrappedOutPerMainIn swaps main for wrapped at nominal parity.
func CalcWrappedOutPerMainIn(mainIn, mainBalance *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain, err := toNominal(new(big.Int).Add(mainBalance, mainIn), p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(afterNominalMain, previousNominalMain), nil
}

// CalcWrappedInPerMainOut swaps wrapped for an exact main amount.
func CalcWrappedInPerMainOut(mainOut, mainBalance *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain, err := toNominal(new(big.Int).Sub(mainBalance, mainOut), p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(previousNominalMain, afterNominalMain), nil
}

// CalcMainOutPerWrappedIn swaps wrapped for main.
func CalcMainOutPerWrappedIn(wrappedIn, mainBalance *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain := new(big.Int).Sub(previousNominalMain, wrappedIn)
	newMainBalance, err := fromNominal(afterNominalMain, p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(mainBalance, newMainBalance), nil
}

// CalcMainInPerWrappedOut swaps main for an exact wrapped amount.
func CalcMainInPerWrappedOut(wrappedOut, mainBalance *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	afterNominalMain := new(big.Int).Add(previousNominalMain, wrappedOut)
	newMainBalance, err := fromNominal(afterNominalMain, p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(newMainBalance, mainBalance), nil
}

// CalcBptOutPerWrappedIn prices a wrapped-token deposit in BPT. The wrapped
// side is already nominal, so the invariant moves one-for-one.
func CalcBptOutPerWrappedIn(wrappedIn, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	if bptSupply.Sign() == 0 {
		return new(big.Int).Set(wrappedIn), nil
	}

	nominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(nominalMain, wrappedBalance)

	numerator, err := fixpoint.MulDown(bptSupply, wrappedIn)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivDown(numerator, invariant)
}

// CalcBptInPerWrappedOut prices an exact wrapped withdrawal in BPT burned.
func CalcBptInPerWrappedOut(wrappedOut, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	nominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(nominalMain, wrappedBalance)

	numerator, err := fixpoint.MulUp(bptSupply, wrappedOut)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivUp(numerator, invariant)
}

// CalcWrappedOutPerBptIn redeems BPT for wrapped tokens.
func CalcWrappedOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	nominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(nominalMain, wrappedBalance)

	numerator, err := fixpoint.MulDown(bptIn, invariant)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivDown(numerator, bptSupply)
}

// CalcWrappedInPerBptOut mints an exact BPT amount from wrapped tokens.
func CalcWrappedInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	if bptSupply.Sign() == 0 {
		return new(big.Int).Set(bptOut), nil
	}

	nominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(nominalMain, wrappedBalance)

	numerator, err := fixpoint.MulUp(bptOut, invariant)
	if err != nil {
		return nil, err
	}
	return fixpoint.DivUp(numerator, bptSupply)
}

// CalcMainOutPerBptIn redeems BPT for main tokens.
func CalcMainOutPerBptIn(bptIn, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(previousNominalMain, wrappedBalance)

	deltaNominalMain, err := fixpoint.MulDown(bptIn, invariant)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err = fixpoint.DivDown(deltaNominalMain, bptSupply)
	if err != nil {
		return nil, err
	}
	afterNominalMain := new(big.Int).Sub(previousNominalMain, deltaNominalMain)
	newMainBalance, err := fromNominal(afterNominalMain, p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(mainBalance, newMainBalance), nil
}

// CalcMainInPerBptOut mints an exact BPT amount from main tokens.
func CalcMainInPerBptOut(bptOut, mainBalance, wrappedBalance, bptSupply *big.Int, p Params) (*big.Int, error) {
	if bptSupply.Sign() == 0 {
		return fromNominal(bptOut, p)
	}

	previousNominalMain, err := toNominal(mainBalance, p)
	if err != nil {
		return nil, err
	}
	invariant := CalcInvariant(previousNominalMain, wrappedBalance)

	deltaNominalMain, err := fixpoint.MulUp(bptOut, invariant)
	if err != nil {
		return nil, err
	}
	deltaNominalMain, err = fixpoint.DivUp(deltaNominalMain, bptSupply)
	if err != nil {
		return nil, err
	}
	afterNominalMain := new(big.Int).Add(previousNominalMain, deltaNominalMain)
	newMainBalance, err := fromNominal(afterNominalMain, p)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(newMainBalance, mainBalance), nil
}

// CalcTokensOutGivenExactBptIn computes a proportional exit across the
// non-BPT tokens. balances excludes nothing; bptIndex marks the pool's own
// token, which receives no payout.
func CalcTokensOutGivenExactBptIn(balances []*big.Int, bptIn, bptSupply *big.Int, bptIndex int) ([]*big.Int, error) {
	ratio, err := fixpoint.DivDown(bptIn, bptSupply)
	if err != nil {
		return nil, err
	}
	out := make([]*big.Int, len(balances))
	for i, balance := range balances {
		if i == bptIndex {
			out[i] = big.NewInt(0)
			continue
		}
		amount, err := fixpoint.MulDown(balance, ratio)
		if err != nil {
			return nil, err
		}
		out[i] = amount
	}
	return out, nil
}
