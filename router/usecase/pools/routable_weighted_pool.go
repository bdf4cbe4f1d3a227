package pools

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/math/weighted"
)

// routableWeightedPool covers the weighted family: Weighted, Investment and
// LiquidityBootstrapping. The bootstrapping subtype prices through the
// legacy decimal power tier; the others use the exact integer tier.
type routableWeightedPool struct {
	poolBase

	balanceIn  *big.Int
	balanceOut *big.Int
	weightIn   *big.Int
	weightOut  *big.Int

	legacyTier bool
}

var _ domain.RoutablePool = &routableWeightedPool{}

func (p *routableWeightedPool) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	if p.legacyTier {
		out, err := weighted.CalcOutGivenInLegacy(
			decFromFix(p.balanceIn), decFromFix(p.weightIn),
			decFromFix(p.balanceOut), decFromFix(p.weightOut),
			decFromFix(amountIn), decFromFix(p.swapFee),
		)
		if err != nil {
			return nil, err
		}
		return fixFromDec(out), nil
	}
	return weighted.CalcOutGivenIn(p.balanceIn, p.weightIn, p.balanceOut, p.weightOut, amountIn, p.swapFee)
}

func (p *routableWeightedPool) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	if p.legacyTier {
		in, err := weighted.CalcInGivenOutLegacy(
			decFromFix(p.balanceIn), decFromFix(p.weightIn),
			decFromFix(p.balanceOut), decFromFix(p.weightOut),
			decFromFix(amountOut), decFromFix(p.swapFee),
		)
		if err != nil {
			return nil, err
		}
		return fixFromDec(in), nil
	}
	return weighted.CalcInGivenOut(p.balanceIn, p.weightIn, p.balanceOut, p.weightOut, amountOut, p.swapFee)
}

func (p *routableWeightedPool) SpotPrice() (osmomath.Dec, error) {
	return weighted.SpotPrice(
		decFromFix(p.balanceIn), decFromFix(p.weightIn),
		decFromFix(p.balanceOut), decFromFix(p.weightOut),
		decFromFix(p.swapFee),
	), nil
}

func (p *routableWeightedPool) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	bI, wI := decFromFix(p.balanceIn), decFromFix(p.weightIn)
	bO, wO := decFromFix(p.balanceOut), decFromFix(p.weightOut)
	fee := decFromFix(p.swapFee)
	if kind == domain.SwapExactOut {
		return weighted.SpotPriceAfterSwapExactOut(bI, wI, bO, wO, amount, fee), nil
	}
	return weighted.SpotPriceAfterSwapExactIn(bI, wI, bO, wO, amount, fee), nil
}

func (p *routableWeightedPool) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	bI, wI := decFromFix(p.balanceIn), decFromFix(p.weightIn)
	bO, wO := decFromFix(p.balanceOut), decFromFix(p.weightOut)
	fee := decFromFix(p.swapFee)
	if kind == domain.SwapExactOut {
		return weighted.DerivativeSpotPriceAfterSwapExactOut(bI, wI, bO, wO, amount, fee), nil
	}
	return weighted.DerivativeSpotPriceAfterSwapExactIn(bI, wI, bO, wO, amount, fee), nil
}

func (p *routableWeightedPool) LimitAmount(kind domain.SwapTypes) *big.Int {
	if kind == domain.SwapExactOut {
		return ratioLimit(p.balanceOut)
	}
	return ratioLimit(p.balanceIn)
}

func (p *routableWeightedPool) NormalizedLiquidity() osmomath.Dec {
	return weighted.NormalizedLiquidity(decFromFix(p.balanceOut), decFromFix(p.weightIn), decFromFix(p.weightOut))
}

func (p *routableWeightedPool) ApplySwap(amountIn, amountOut *big.Int) error {
	p.balanceIn = new(big.Int).Add(p.balanceIn, amountIn)
	next := new(big.Int).Sub(p.balanceOut, amountOut)
	if next.Sign() < 0 {
		return ErrBalanceDepleted
	}
	p.balanceOut = next
	return nil
}

func (p *routableWeightedPool) Clone() domain.RoutablePool {
	clone := *p
	clone.balanceIn = new(big.Int).Set(p.balanceIn)
	clone.balanceOut = new(big.Int).Set(p.balanceOut)
	return &clone
}
