package pools

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/math/gyro"
)

// routableGyroPool trades constant-product on virtual reserves. The virtual
// offsets are derived from the invariant at construction and held fixed
// across working-copy swaps.
type routableGyroPool struct {
	poolBase

	balanceIn  *big.Int
	balanceOut *big.Int
	virtualIn  *big.Int
	virtualOut *big.Int
}

var _ domain.RoutablePool = &routableGyroPool{}

func (p *routableGyroPool) effectiveIn() osmomath.Dec {
	return decFromFix(new(big.Int).Add(p.balanceIn, p.virtualIn))
}

func (p *routableGyroPool) effectiveOut() osmomath.Dec {
	return decFromFix(new(big.Int).Add(p.balanceOut, p.virtualOut))
}

func (p *routableGyroPool) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	netIn, err := p.subtractFee(amountIn)
	if err != nil {
		return nil, err
	}
	return gyro.CalcOutGivenIn(p.balanceIn, p.balanceOut, p.virtualIn, p.virtualOut, netIn)
}

func (p *routableGyroPool) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	netIn, err := gyro.CalcInGivenOut(p.balanceIn, p.balanceOut, p.virtualIn, p.virtualOut, amountOut)
	if err != nil {
		return nil, err
	}
	return p.addFee(netIn)
}

func (p *routableGyroPool) SpotPrice() (osmomath.Dec, error) {
	fee := osmomath.OneDec().Sub(decFromFix(p.swapFee))
	return p.effectiveIn().Quo(p.effectiveOut()).Quo(fee), nil
}

// SpotPriceAfterSwap follows the constant-product closed forms on the
// effective reserves. With x, y effective, k = x*y and c = 1-fee:
// exact-in price(a) = (x+c*a)^2 / (k*c); exact-out price(o) = k / ((y-o)^2 * c).
func (p *routableGyroPool) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	x, y := p.effectiveIn(), p.effectiveOut()
	k := x.Mul(y)
	c := osmomath.OneDec().Sub(decFromFix(p.swapFee))

	if kind == domain.SwapExactOut {
		remaining := y.Sub(amount)
		return k.Quo(remaining.Mul(remaining).Mul(c)), nil
	}
	shifted := x.Add(amount.Mul(c))
	return shifted.Mul(shifted).Quo(k.Mul(c)), nil
}

// DerivativeSpotPriceAfterSwap: exact-in 2(x+c*a)/k, exact-out 2k/((y-o)^3 * c).
func (p *routableGyroPool) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	x, y := p.effectiveIn(), p.effectiveOut()
	k := x.Mul(y)
	c := osmomath.OneDec().Sub(decFromFix(p.swapFee))
	two := osmomath.NewDec(2)

	if kind == domain.SwapExactOut {
		remaining := y.Sub(amount)
		return two.Mul(k).Quo(remaining.Mul(remaining).Mul(remaining).Mul(c)), nil
	}
	shifted := x.Add(amount.Mul(c))
	return two.Mul(shifted).Quo(k), nil
}

// LimitAmount bounds the trade by 99% of the real out-side reserve, the
// point where the price reaches the band edge.
func (p *routableGyroPool) LimitAmount(kind domain.SwapTypes) *big.Int {
	maxOut := new(big.Int).Mul(p.balanceOut, big.NewInt(99))
	maxOut.Quo(maxOut, big.NewInt(100))
	if kind == domain.SwapExactOut {
		return maxOut
	}

	// Invert the virtual product for the input that buys maxOut.
	effIn := new(big.Int).Add(p.balanceIn, p.virtualIn)
	effOut := new(big.Int).Add(p.balanceOut, p.virtualOut)
	numerator, err := fixpoint.MulDown(effIn, maxOut)
	if err != nil {
		return big.NewInt(0)
	}
	denominator := new(big.Int).Sub(effOut, maxOut)
	limit, err := fixpoint.DivDown(numerator, denominator)
	if err != nil {
		return big.NewInt(0)
	}
	return limit
}

func (p *routableGyroPool) NormalizedLiquidity() osmomath.Dec {
	// Marginal slippage is governed by the effective reserve, which far
	// exceeds the real one in a concentrated pool.
	return p.effectiveOut().Quo(osmomath.NewDec(2))
}

func (p *routableGyroPool) ApplySwap(amountIn, amountOut *big.Int) error {
	next := new(big.Int).Sub(p.balanceOut, amountOut)
	if next.Sign() < 0 {
		return ErrBalanceDepleted
	}
	p.balanceIn = new(big.Int).Add(p.balanceIn, amountIn)
	p.balanceOut = next
	return nil
}

func (p *routableGyroPool) Clone() domain.RoutablePool {
	clone := *p
	clone.balanceIn = new(big.Int).Set(p.balanceIn)
	clone.balanceOut = new(big.Int).Set(p.balanceOut)
	return &clone
}
