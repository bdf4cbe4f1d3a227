package pools

import (
	"math/big"

	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/math/linear"
)

// linearPairKind identifies which two of (main, wrapped, BPT) a routable
// linear pool view connects.
type linearPairKind int

const (
	mainToWrapped linearPairKind = iota
	wrappedToMain
	mainToBpt
	bptToMain
	wrappedToBpt
	bptToWrapped
)

// routableLinearPool adapts the linear three-token pool. The fee curve is
// part of the nominal-balance math, so no separate swap fee is applied
// here. The wrapped balance is held rate-adjusted; boundary amounts on the
// wrapped side convert through the rate.
type routableLinearPool struct {
	poolBase

	pair linearPairKind

	mainBalance    *big.Int
	wrappedBalance *big.Int
	wrappedRate    *big.Int
	bptSupply      *big.Int

	params linear.Params
}

var _ domain.RoutablePool = &routableLinearPool{}

// wrappedSideIn and wrappedSideOut report whether the pair's in or out leg
// is the wrapped token.
func (p *routableLinearPool) wrappedSideIn() bool {
	return p.pair == wrappedToMain || p.pair == wrappedToBpt
}

func (p *routableLinearPool) wrappedSideOut() bool {
	return p.pair == mainToWrapped || p.pair == bptToWrapped
}

func (p *routableLinearPool) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	var err error
	if p.wrappedSideIn() {
		amountIn, err = fixpoint.MulDown(amountIn, p.wrappedRate)
		if err != nil {
			return nil, err
		}
	}

	var out *big.Int
	switch p.pair {
	case mainToWrapped:
		out, err = linear.CalcWrappedOutPerMainIn(amountIn, p.mainBalance, p.params)
	case wrappedToMain:
		out, err = linear.CalcMainOutPerWrappedIn(amountIn, p.mainBalance, p.params)
	case mainToBpt:
		out, err = linear.CalcBptOutPerMainIn(amountIn, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	case bptToMain:
		out, err = linear.CalcMainOutPerBptIn(amountIn, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	case wrappedToBpt:
		out, err = linear.CalcBptOutPerWrappedIn(amountIn, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	default:
		out, err = linear.CalcWrappedOutPerBptIn(amountIn, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	}
	if err != nil {
		return nil, err
	}

	if p.wrappedSideOut() {
		return fixpoint.DivDown(out, p.wrappedRate)
	}
	return out, nil
}

func (p *routableLinearPool) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	var err error
	if p.wrappedSideOut() {
		amountOut, err = fixpoint.MulUp(amountOut, p.wrappedRate)
		if err != nil {
			return nil, err
		}
	}

	var in *big.Int
	switch p.pair {
	case mainToWrapped:
		in, err = linear.CalcMainInPerWrappedOut(amountOut, p.mainBalance, p.params)
	case wrappedToMain:
		in, err = linear.CalcWrappedInPerMainOut(amountOut, p.mainBalance, p.params)
	case mainToBpt:
		in, err = linear.CalcMainInPerBptOut(amountOut, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	case bptToMain:
		in, err = linear.CalcBptInPerMainOut(amountOut, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	case wrappedToBpt:
		in, err = linear.CalcWrappedInPerBptOut(amountOut, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	default:
		in, err = linear.CalcBptInPerWrappedOut(amountOut, p.mainBalance, p.wrappedBalance, p.bptSupply, p.params)
	}
	if err != nil {
		return nil, err
	}

	if p.wrappedSideIn() {
		return fixpoint.DivUp(in, p.wrappedRate)
	}
	return in, nil
}

func (p *routableLinearPool) inDepth() *big.Int {
	switch p.pair {
	case mainToWrapped, mainToBpt:
		return p.mainBalance
	case wrappedToMain, wrappedToBpt:
		return p.wrappedBalance
	default:
		return p.bptSupply
	}
}

func (p *routableLinearPool) outDepth() *big.Int {
	switch p.pair {
	case wrappedToMain, bptToMain:
		return p.mainBalance
	case mainToWrapped, bptToWrapped:
		return p.wrappedBalance
	default:
		return p.bptSupply
	}
}

func (p *routableLinearPool) referenceStep() *big.Int {
	step := new(big.Int).Quo(p.outDepth(), big.NewInt(1_000_000))
	if step.Sign() == 0 {
		step = big.NewInt(1)
	}
	return step
}

func (p *routableLinearPool) priceAround(amount *big.Int) (osmomath.Dec, error) {
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
		return decFromFix(p.inDepth()), nil
	}
	return decFromFix(h).Quo(decFromFix(dOut)), nil
}

func (p *routableLinearPool) SpotPrice() (osmomath.Dec, error) {
	return p.priceAround(big.NewInt(0))
}

func (p *routableLinearPool) exactOutToIn(amount osmomath.Dec, kind domain.SwapTypes) (*big.Int, error) {
	if kind != domain.SwapExactOut {
		return fixFromDec(amount), nil
	}
	return p.CalcInGivenOut(fixFromDec(amount))
}

func (p *routableLinearPool) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	in, err := p.exactOutToIn(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}
	return p.priceAround(in)
}

// DerivativeSpotPriceAfterSwap is near zero away from the target kinks; the
// numeric estimate lets the optimizer treat the curve uniformly.
func (p *routableLinearPool) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
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

// plainDepth converts a rate-adjusted wrapped depth back to plain units.
func (p *routableLinearPool) plainDepth(depth *big.Int, wrappedSide bool) *big.Int {
	if !wrappedSide {
		return depth
	}
	plain, err := fixpoint.DivDown(depth, p.wrappedRate)
	if err != nil {
		return big.NewInt(0)
	}
	return plain
}

// LimitAmount allows draining almost the full out side; the piecewise curve
// has no structural ratio bound.
func (p *routableLinearPool) LimitAmount(kind domain.SwapTypes) *big.Int {
	depth := p.plainDepth(p.inDepth(), p.wrappedSideIn())
	if kind == domain.SwapExactOut {
		depth = p.plainDepth(p.outDepth(), p.wrappedSideOut())
	}
	limit := new(big.Int).Mul(depth, big.NewInt(99))
	return limit.Quo(limit, big.NewInt(100))
}

func (p *routableLinearPool) NormalizedLiquidity() osmomath.Dec {
	return decFromFix(p.outDepth())
}

func (p *routableLinearPool) ApplySwap(amountIn, amountOut *big.Int) error {
	var err error
	if p.wrappedSideIn() {
		amountIn, err = fixpoint.MulDown(amountIn, p.wrappedRate)
		if err != nil {
			return err
		}
	}
	if p.wrappedSideOut() {
		amountOut, err = fixpoint.MulDown(amountOut, p.wrappedRate)
		if err != nil {
			return err
		}
	}

	mainBalance := new(big.Int).Set(p.mainBalance)
	wrappedBalance := new(big.Int).Set(p.wrappedBalance)
	bptSupply := new(big.Int).Set(p.bptSupply)

	add := func(target *big.Int, amount *big.Int) { target.Add(target, amount) }
	sub := func(target *big.Int, amount *big.Int) bool {
		target.Sub(target, amount)
		return target.Sign() >= 0
	}

	ok := true
	switch p.pair {
	case mainToWrapped:
		add(mainBalance, amountIn)
		ok = sub(wrappedBalance, amountOut)
	case wrappedToMain:
		add(wrappedBalance, amountIn)
		ok = sub(mainBalance, amountOut)
	case mainToBpt:
		add(mainBalance, amountIn)
		add(bptSupply, amountOut)
	case bptToMain:
		ok = sub(bptSupply, amountIn) && sub(mainBalance, amountOut)
	case wrappedToBpt:
		add(wrappedBalance, amountIn)
		add(bptSupply, amountOut)
	default:
		ok = sub(bptSupply, amountIn) && sub(wrappedBalance, amountOut)
	}
	if !ok {
		return ErrBalanceDepleted
	}

	p.mainBalance = mainBalance
	p.wrappedBalance = wrappedBalance
	p.bptSupply = bptSupply
	return nil
}

func (p *routableLinearPool) Clone() domain.RoutablePool {
	clone := *p
	clone.mainBalance = new(big.Int).Set(p.mainBalance)
	clone.wrappedBalance = new(big.Int).Set(p.wrappedBalance)
	clone.bptSupply = new(big.Int).Set(p.bptSupply)
	return &clone
}
