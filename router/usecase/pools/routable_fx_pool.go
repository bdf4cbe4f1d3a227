package pools

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/math/fx"
)

// routableFxPool adapts the oracle-anchored FX curve. Oracle rates come in
// through the token price rates; the halt boundary doubles as the swap
// limit.
type routableFxPool struct {
	poolBase

	balanceIn  *big.Int
	balanceOut *big.Int
	rateIn     *big.Int
	rateOut    *big.Int

	params fx.Params
}

var _ domain.RoutablePool = &routableFxPool{}

func (p *routableFxPool) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	netIn, err := p.subtractFee(amountIn)
	if err != nil {
		return nil, err
	}
	return fx.CalcOutGivenIn(p.balanceIn, p.balanceOut, p.rateIn, p.rateOut, netIn, p.params)
}

func (p *routableFxPool) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	netIn, err := fx.CalcInGivenOut(p.balanceIn, p.balanceOut, p.rateIn, p.rateOut, amountOut, p.params)
	if err != nil {
		return nil, err
	}
	return p.addFee(netIn)
}

func (p *routableFxPool) referenceStep() *big.Int {
	step := new(big.Int).Quo(p.balanceOut, big.NewInt(1_000_000))
	if step.Sign() == 0 {
		step = big.NewInt(1)
	}
	return step
}

func (p *routableFxPool) priceAround(amount *big.Int) (osmomath.Dec, error) {
	h := p.referenceStep()

	outLo, err := p.CalcOutGivenIn(amount)
	if err != nil {
		return osmomath.Dec{}, err
	}
	outHi, err := p.CalcOutGivenIn(new(big.Int).Add(amount, h))
	if err != nil {
		return osmomath.Dec{}, err
	}

	dOut := new(big.Int).Sub(outHi, outLo)
	if dOut.Sign() <= 0 {
		return decFromFix(p.balanceIn), nil
	}
	return decFromFix(h).Quo(decFromFix(dOut)), nil
}

func (p *routableFxPool) SpotPrice() (osmomath.Dec, error) {
	return p.priceAround(big.NewInt(0))
}

func (p *routableFxPool) exactOutToIn(amount osmomath.Dec, kind domain.SwapTypes) (*big.Int, error) {
	if kind != domain.SwapExactOut {
		return fixFromDec(amount), nil
	}
	return p.CalcInGivenOut(fixFromDec(amount))
}

func (p *routableFxPool) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	in, err := p.exactOutToIn(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}
	return p.priceAround(in)
}

func (p *routableFxPool) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	in, err := p.exactOutToIn(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}
	h := p.referenceStep()

	priceLo, err := p.priceAround(in)
	if err != nil {
		return osmomath.Dec{}, err
	}
	priceHi, err := p.priceAround(new(big.Int).Add(in, h))
	if err != nil {
		return osmomath.Dec{}, err
	}
	return priceHi.Sub(priceLo).Quo(decFromFix(h)), nil
}

// LimitAmount converts the halt-boundary value headroom into token units.
func (p *routableFxPool) LimitAmount(kind domain.SwapTypes) *big.Int {
	maxValue, err := fx.MaxSwapValue(p.balanceIn, p.balanceOut, p.rateIn, p.rateOut, p.params)
	if err != nil {
		return big.NewInt(0)
	}
	rate := p.rateOut
	if kind == domain.SwapExactIn {
		rate = p.rateIn
	}
	limit, err := fixpoint.DivDown(maxValue, rate)
	if err != nil {
		return big.NewInt(0)
	}
	return limit
}

func (p *routableFxPool) NormalizedLiquidity() osmomath.Dec {
	return decFromFix(p.balanceOut)
}

func (p *routableFxPool) ApplySwap(amountIn, amountOut *big.Int) error {
	next := new(big.Int).Sub(p.balanceOut, amountOut)
	if next.Sign() < 0 {
		return ErrBalanceDepleted
	}
	p.balanceIn = new(big.Int).Add(p.balanceIn, amountIn)
	p.balanceOut = next
	return nil
}

func (p *routableFxPool) Clone() domain.RoutablePool {
	clone := *p
	clone.balanceIn = new(big.Int).Set(p.balanceIn)
	clone.balanceOut = new(big.Int).Set(p.balanceOut)
	return &clone
}
