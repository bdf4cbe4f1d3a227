// Package pools adapts each pool family's math module to the uniform
// routable-pool contract. A routable pool is a per-direction working view:
// it fixes (tokenIn, tokenOut), carries 18-decimal scaled balances, and is
// cloned before any optimizer run mutates it.
package pools

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
)

// ErrBalanceDepleted is returned by ApplySwap when the recorded swap would
// take a working-copy balance negative.
var ErrBalanceDepleted = errors.New("pools: swap depletes pool balance")

// defaultLimitRatio caps tradeable size at 30% of the relevant balance for
// families without a tighter structural bound.
var defaultLimitRatio = big.NewInt(300000000000000000)

// poolBase carries the direction-independent identity shared by every
// routable implementation.
type poolBase struct {
	id      string
	address common.Address
	typ     domain.PoolType

	tokenIn  common.Address
	tokenOut common.Address

	swapFee *big.Int

	scalingFactorIn  *big.Int
	scalingFactorOut *big.Int
}

func (p *poolBase) GetID() string                  { return p.id }
func (p *poolBase) GetAddress() common.Address     { return p.address }
func (p *poolBase) GetType() domain.PoolType       { return p.typ }
func (p *poolBase) GetTokenIn() common.Address     { return p.tokenIn }
func (p *poolBase) GetTokenOut() common.Address    { return p.tokenOut }
func (p *poolBase) GetSwapFee() *big.Int           { return p.swapFee }
func (p *poolBase) GetScalingFactorIn() *big.Int   { return p.scalingFactorIn }
func (p *poolBase) GetScalingFactorOut() *big.Int  { return p.scalingFactorOut }

// subtractFee returns amountIn net of the swap fee, rounding the fee up.
func (p *poolBase) subtractFee(amountIn *big.Int) (*big.Int, error) {
	feeAmount, err := fixpoint.MulUp(amountIn, p.swapFee)
	if err != nil {
		return nil, err
	}
	return fixpoint.Sub(amountIn, feeAmount)
}

// addFee grosses a net input up by the swap fee, rounding up.
func (p *poolBase) addFee(amountIn *big.Int) (*big.Int, error) {
	return fixpoint.DivUp(amountIn, fixpoint.Complement(p.swapFee))
}

// decFromFix converts a scaled big.Int into an osmomath decimal for the
// heuristic pricing surface.
func decFromFix(x *big.Int) osmomath.Dec {
	return osmomath.NewDecFromBigIntWithPrec(new(big.Int).Set(x), 18)
}

// fixFromDec truncates an osmomath decimal back to a scaled big.Int.
func fixFromDec(d osmomath.Dec) *big.Int {
	return d.BigInt()
}

// ratioLimit is the shared 30%-of-balance cap used by families without a
// structural drain bound.
func ratioLimit(balance *big.Int) *big.Int {
	limit, err := fixpoint.MulDown(balance, defaultLimitRatio)
	if err != nil {
		return big.NewInt(0)
	}
	return limit
}
