package pools

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/math/stable"
)

// routableStablePool covers Stable, MetaStable and ComposableStable. The
// balances slice is scaled and rate-adjusted and excludes the pool's own
// BPT; a pair involving the BPT routes through the join/exit math against
// the virtual supply instead of the swap solver.
type routableStablePool struct {
	poolBase

	amp      *big.Int
	balances []*big.Int

	indexIn  int
	indexOut int

	// Price rates bridge the plain-scaled boundary amounts and the
	// rate-adjusted invariant space. One for rate-free tokens and BPT.
	rateIn  *big.Int
	rateOut *big.Int

	// bptSupply is non-nil only for composable pools. bptIsTokenIn /
	// bptIsTokenOut mark a join or exit pair; at most one is set.
	bptSupply     *big.Int
	bptIsTokenIn  bool
	bptIsTokenOut bool
}

var _ domain.RoutablePool = &routableStablePool{}

// upRate and downRate move amounts between the plain-scaled boundary and
// the rate-adjusted invariant space, rounding against the trader.
func upRateDown(amount, rate *big.Int) (*big.Int, error)  { return fixpoint.MulDown(amount, rate) }
func upRateUp(amount, rate *big.Int) (*big.Int, error)    { return fixpoint.MulUp(amount, rate) }
func downRateDown(amount, rate *big.Int) (*big.Int, error) { return fixpoint.DivDown(amount, rate) }
func downRateUp(amount, rate *big.Int) (*big.Int, error)   { return fixpoint.DivUp(amount, rate) }

func (p *routableStablePool) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	adjustedIn, err := upRateDown(amountIn, p.rateIn)
	if err != nil {
		return nil, err
	}

	var adjustedOut *big.Int
	switch {
	case p.bptIsTokenIn:
		// Exiting: burn BPT for the out token. The exit math applies the
		// fee internally, so it takes the gross amount.
		adjustedOut, err = stable.CalcTokenOutGivenExactBptIn(p.amp, p.balances, p.indexOut, adjustedIn, p.bptSupply, p.swapFee)
	case p.bptIsTokenOut:
		adjustedOut, err = stable.CalcBptOutGivenExactTokenIn(p.amp, p.balances, p.indexIn, adjustedIn, p.bptSupply, p.swapFee)
	default:
		var netIn *big.Int
		netIn, err = p.subtractFee(adjustedIn)
		if err != nil {
			return nil, err
		}
		adjustedOut, err = stable.CalcOutGivenIn(p.amp, p.balances, p.indexIn, p.indexOut, netIn)
	}
	if err != nil {
		return nil, err
	}
	return downRateDown(adjustedOut, p.rateOut)
}

func (p *routableStablePool) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	adjustedOut, err := upRateUp(amountOut, p.rateOut)
	if err != nil {
		return nil, err
	}

	var adjustedIn *big.Int
	switch {
	case p.bptIsTokenIn:
		adjustedIn, err = stable.CalcBptInGivenExactTokenOut(p.amp, p.balances, p.indexOut, adjustedOut, p.bptSupply, p.swapFee)
	case p.bptIsTokenOut:
		adjustedIn, err = stable.CalcTokenInGivenExactBptOut(p.amp, p.balances, p.indexIn, adjustedOut, p.bptSupply, p.swapFee)
	default:
		adjustedIn, err = stable.CalcInGivenOut(p.amp, p.balances, p.indexIn, p.indexOut, adjustedOut)
		if err != nil {
			return nil, err
		}
		adjustedIn, err = p.addFee(adjustedIn)
	}
	if err != nil {
		return nil, err
	}
	return downRateUp(adjustedIn, p.rateIn)
}

// inDepth and outDepth are the effective balances backing each side of the
// pair; for BPT pairs the virtual supply stands in for the missing balance.
func (p *routableStablePool) inDepth() *big.Int {
	if p.bptIsTokenIn {
		return p.bptSupply
	}
	return p.balances[p.indexIn]
}

func (p *routableStablePool) outDepth() *big.Int {
	if p.bptIsTokenOut {
		return p.bptSupply
	}
	return p.balances[p.indexOut]
}

// referenceStep sizes the finite-difference probe for the numeric pricing
// surface: one millionth of the out-side depth.
func (p *routableStablePool) referenceStep() *big.Int {
	step := new(big.Int).Quo(p.outDepth(), big.NewInt(1_000_000))
	if step.Sign() == 0 {
		step = big.NewInt(1)
	}
	return step
}

// priceAround returns the marginal tokenIn-per-tokenOut price after trading
// amount, by central difference over the exact exact-in curve.
func (p *routableStablePool) priceAround(amount *big.Int) (osmomath.Dec, error) {
	h := p.referenceStep()

	lo := new(big.Int).Set(amount)
	hi := new(big.Int).Add(amount, h)

	outLo, err := p.CalcOutGivenIn(lo)
	if err != nil {
		return osmomath.Dec{}, err
	}
	outHi, err := p.CalcOutGivenIn(hi)
	if err != nil {
		return osmomath.Dec{}, err
	}

	dOut := new(big.Int).Sub(outHi, outLo)
	if dOut.Sign() <= 0 {
		// A flat or inverted curve at this point means the pool is
		// exhausted; report an effectively infinite price.
		return decFromFix(p.inDepth()), nil
	}
	return decFromFix(h).Quo(decFromFix(dOut)), nil
}

func (p *routableStablePool) SpotPrice() (osmomath.Dec, error) {
	return p.priceAround(big.NewInt(0))
}

// exactOutToIn maps an exact-out amount onto the exact-in curve so that both
// swap kinds share one numeric surface.
func (p *routableStablePool) exactOutToIn(amount osmomath.Dec, kind domain.SwapTypes) (*big.Int, error) {
	if kind != domain.SwapExactOut {
		return fixFromDec(amount), nil
	}
	return p.CalcInGivenOut(fixFromDec(amount))
}

func (p *routableStablePool) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	in, err := p.exactOutToIn(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}
	return p.priceAround(in)
}

func (p *routableStablePool) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
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

func (p *routableStablePool) LimitAmount(kind domain.SwapTypes) *big.Int {
	depth, rate := p.inDepth(), p.rateIn
	if kind == domain.SwapExactOut {
		depth, rate = p.outDepth(), p.rateOut
	}
	plain, err := fixpoint.DivDown(depth, rate)
	if err != nil {
		return big.NewInt(0)
	}
	return ratioLimit(plain)
}

func (p *routableStablePool) NormalizedLiquidity() osmomath.Dec {
	// Amplification flattens the curve; rank amplified pools as
	// proportionally deeper than their raw balance.
	ampFactor := decFromFix(p.amp).Quo(decFromFix(stable.AmpPrecision))
	if ampFactor.LT(osmomath.OneDec()) {
		ampFactor = osmomath.OneDec()
	}
	return decFromFix(p.outDepth()).Mul(ampFactor)
}

func (p *routableStablePool) ApplySwap(amountIn, amountOut *big.Int) error {
	amountIn, err := upRateDown(amountIn, p.rateIn)
	if err != nil {
		return err
	}
	amountOut, err = upRateDown(amountOut, p.rateOut)
	if err != nil {
		return err
	}

	balances := make([]*big.Int, len(p.balances))
	for i := range p.balances {
		balances[i] = new(big.Int).Set(p.balances[i])
	}

	switch {
	case p.bptIsTokenIn:
		// Exit: BPT burned, token leaves the pool.
		nextSupply := new(big.Int).Sub(p.bptSupply, amountIn)
		next := new(big.Int).Sub(balances[p.indexOut], amountOut)
		if next.Sign() < 0 || nextSupply.Sign() < 0 {
			return ErrBalanceDepleted
		}
		balances[p.indexOut] = next
		p.bptSupply = nextSupply
	case p.bptIsTokenOut:
		// Join: token enters the pool, BPT minted.
		balances[p.indexIn].Add(balances[p.indexIn], amountIn)
		p.bptSupply = new(big.Int).Add(p.bptSupply, amountOut)
	default:
		next := new(big.Int).Sub(balances[p.indexOut], amountOut)
		if next.Sign() < 0 {
			return ErrBalanceDepleted
		}
		balances[p.indexIn].Add(balances[p.indexIn], amountIn)
		balances[p.indexOut] = next
	}

	p.balances = balances
	return nil
}

func (p *routableStablePool) Clone() domain.RoutablePool {
	clone := *p
	clone.balances = make([]*big.Int, len(p.balances))
	for i := range p.balances {
		clone.balances[i] = new(big.Int).Set(p.balances[i])
	}
	if p.bptSupply != nil {
		clone.bptSupply = new(big.Int).Set(p.bptSupply)
	}
	return &clone
}
