// Package route models a multi-hop path as a composable pricing curve: the
// chained exact math, the composite marginal price, its derivative, and the
// path-level trade limit all derive from the per-hop routable pools.
package route

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
)

// RouteImpl is an ordered sequence of routable pools where each hop's out
// token is the next hop's in token.
type RouteImpl struct {
	Pools []domain.RoutablePool
}

// NewRoute validates hop token continuity.
func NewRoute(pools ...domain.RoutablePool) RouteImpl {
	return RouteImpl{Pools: pools}
}

func (r RouteImpl) TokenIn() common.Address {
	return r.Pools[0].GetTokenIn()
}

func (r RouteImpl) TokenOut() common.Address {
	return r.Pools[len(r.Pools)-1].GetTokenOut()
}

// CalcOutGivenIn chains the exact exact-in math through every hop.
func (r RouteImpl) CalcOutGivenIn(amountIn *big.Int) (*big.Int, error) {
	amount := amountIn
	for _, pool := range r.Pools {
		out, err := pool.CalcOutGivenIn(amount)
		if err != nil {
			return nil, err
		}
		amount = out
	}
	return amount, nil
}

// CalcInGivenOut chains the exact exact-out math backwards through the hops.
func (r RouteImpl) CalcInGivenOut(amountOut *big.Int) (*big.Int, error) {
	amount := amountOut
	for i := len(r.Pools) - 1; i >= 0; i-- {
		in, err := r.Pools[i].CalcInGivenOut(amount)
		if err != nil {
			return nil, err
		}
		amount = in
	}
	return amount, nil
}

// SpotPrice is the product of the per-hop zero-size marginal prices,
// tokenIn per tokenOut.
func (r RouteImpl) SpotPrice() (osmomath.Dec, error) {
	price := osmomath.OneDec()
	for _, pool := range r.Pools {
		hop, err := pool.SpotPrice()
		if err != nil {
			return osmomath.Dec{}, err
		}
		price = price.Mul(hop)
	}
	return price, nil
}

// hopAmounts returns the per-hop trade amounts induced by a path-level
// amount: the input of each hop for ExactIn, the output of each hop for
// ExactOut.
func (r RouteImpl) hopAmounts(amount osmomath.Dec, kind domain.SwapTypes) ([]osmomath.Dec, error) {
	amounts := make([]osmomath.Dec, len(r.Pools))
	if kind == domain.SwapExactOut {
		running := amount
		for i := len(r.Pools) - 1; i >= 0; i-- {
			amounts[i] = running
			if i > 0 {
				in, err := r.Pools[i].CalcInGivenOut(running.BigInt())
				if err != nil {
					return nil, err
				}
				running = osmomath.NewDecFromBigIntWithPrec(in, 18)
			}
		}
		return amounts, nil
	}

	running := amount
	for i, pool := range r.Pools {
		amounts[i] = running
		if i < len(r.Pools)-1 {
			out, err := pool.CalcOutGivenIn(running.BigInt())
			if err != nil {
				return nil, err
			}
			running = osmomath.NewDecFromBigIntWithPrec(out, 18)
		}
	}
	return amounts, nil
}

// SpotPriceAfterSwap is the composite marginal price after trading the
// path-level amount: the product of the per-hop after-swap prices at their
// induced amounts.
func (r RouteImpl) SpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	amounts, err := r.hopAmounts(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}
	price := osmomath.OneDec()
	for i, pool := range r.Pools {
		hop, err := pool.SpotPriceAfterSwap(amounts[i], kind)
		if err != nil {
			return osmomath.Dec{}, err
		}
		price = price.Mul(hop)
	}
	return price, nil
}

// DerivativeSpotPriceAfterSwap applies the chain rule across the hops: each
// hop contributes its own slope, scaled by the other hops' prices and by
// the sensitivity of its induced amount to the path amount.
func (r RouteImpl) DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind domain.SwapTypes) (osmomath.Dec, error) {
	amounts, err := r.hopAmounts(amount, kind)
	if err != nil {
		return osmomath.Dec{}, err
	}

	prices := make([]osmomath.Dec, len(r.Pools))
	total := osmomath.OneDec()
	for i, pool := range r.Pools {
		hop, err := pool.SpotPriceAfterSwap(amounts[i], kind)
		if err != nil {
			return osmomath.Dec{}, err
		}
		prices[i] = hop
		total = total.Mul(hop)
	}

	derivative := osmomath.ZeroDec()
	for i, pool := range r.Pools {
		slope, err := pool.DerivativeSpotPriceAfterSwap(amounts[i], kind)
		if err != nil {
			return osmomath.Dec{}, err
		}
		if prices[i].IsZero() {
			continue
		}
		// d(amount_i)/d(amount): for ExactIn the prefix hops convert input
		// at roughly one-over-price per hop, for ExactOut the suffix hops
		// pass the output through unchanged in marginal terms.
		sensitivity := osmomath.OneDec()
		if kind == domain.SwapExactIn {
			for k := 0; k < i; k++ {
				if !prices[k].IsZero() {
					sensitivity = sensitivity.Quo(prices[k])
				}
			}
		} else {
			for k := len(r.Pools) - 1; k > i; k-- {
				sensitivity = sensitivity.Mul(prices[k])
			}
		}
		derivative = derivative.Add(total.Quo(prices[i]).Mul(slope).Mul(sensitivity))
	}
	return derivative, nil
}

// LimitAmount converts every hop's cap into path-level units and takes the
// minimum. For ExactIn the caps are pulled back to the path input through
// the exact-out math; for ExactOut they are pushed forward to the path
// output through the exact-in math. A hop whose conversion fails
// contributes a zero limit.
func (r RouteImpl) LimitAmount(kind domain.SwapTypes) *big.Int {
	if len(r.Pools) == 0 {
		return big.NewInt(0)
	}

	var limit *big.Int
	for j, pool := range r.Pools {
		hopCap := pool.LimitAmount(kind)
		converted := new(big.Int).Set(hopCap)

		var err error
		if kind == domain.SwapExactIn {
			for i := j - 1; i >= 0 && err == nil; i-- {
				converted, err = r.Pools[i].CalcInGivenOut(converted)
			}
		} else {
			for i := j + 1; i < len(r.Pools) && err == nil; i++ {
				converted, err = r.Pools[i].CalcOutGivenIn(converted)
			}
		}
		if err != nil {
			converted = big.NewInt(0)
		}
		if limit == nil || converted.Cmp(limit) < 0 {
			limit = converted
		}
	}
	return limit
}

// ApplySwap records the executed amounts on every hop's working copy.
func (r RouteImpl) ApplySwap(amountIn *big.Int) error {
	amount := amountIn
	for _, pool := range r.Pools {
		out, err := pool.CalcOutGivenIn(amount)
		if err != nil {
			return err
		}
		if err := pool.ApplySwap(amount, out); err != nil {
			return err
		}
		amount = out
	}
	return nil
}

// Clone deep-copies every hop so optimizer runs stay independent.
func (r RouteImpl) Clone() RouteImpl {
	pools := make([]domain.RoutablePool, len(r.Pools))
	for i, pool := range r.Pools {
		pools[i] = pool.Clone()
	}
	return RouteImpl{Pools: pools}
}

// String renders the hop chain for logs.
func (r RouteImpl) String() string {
	var sb strings.Builder
	for i, pool := range r.Pools {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(pool.GetID())
	}
	return sb.String()
}
