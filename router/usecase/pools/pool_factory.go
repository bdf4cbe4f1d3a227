package pools

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/batchswap/sor/domain"
	"github.com/batchswap/sor/fixpoint"
	"github.com/batchswap/sor/math/fx"
	"github.com/batchswap/sor/math/gyro"
	"github.com/batchswap/sor/math/linear"
)

// NewRoutablePool wraps a pool record into a per-direction routable view for
// the given pair. timestamp gates schedule-bound pools; zero skips the
// schedule check.
func NewRoutablePool(pool *domain.PoolRecord, tokenIn, tokenOut common.Address, timestamp int64) (domain.RoutablePool, error) {
	if !pool.SwapEnabled {
		return nil, domain.PoolDisabledError{PoolID: pool.ID}
	}
	if pool.Type == domain.LiquidityBootstrapping && timestamp != 0 && pool.EndTime != 0 {
		if timestamp < pool.StartTime || timestamp > pool.EndTime {
			return nil, domain.PoolDisabledError{PoolID: pool.ID}
		}
	}

	base := poolBase{
		id:       pool.ID,
		address:  pool.Address,
		typ:      pool.Type,
		tokenIn:  tokenIn,
		tokenOut: tokenOut,
		swapFee:  pool.SwapFee,
	}

	switch pool.Type {
	case domain.Weighted, domain.LiquidityBootstrapping, domain.Investment:
		return newRoutableWeightedPool(pool, base)
	case domain.Stable, domain.MetaStable, domain.ComposableStable:
		return newRoutableStablePool(pool, base)
	case domain.Linear:
		return newRoutableLinearPool(pool, base)
	case domain.Gyro2:
		return newRoutableGyroPool(pool, base)
	case domain.FX:
		return newRoutableFxPool(pool, base)
	default:
		return nil, domain.UnsupportedPoolTypeError{PoolID: pool.ID, PoolType: pool.Type.String()}
	}
}

// priceRateFor defaults a missing rate to one.
func priceRateFor(token domain.TokenRecord) *big.Int {
	if token.PriceRate == nil {
		return fixpoint.ONE
	}
	return token.PriceRate
}

// scaledBalance is the token balance in plain 18-decimal units. Amounts
// crossing the routable-pool boundary are always plain-scaled; price rates
// are applied inside the pool families that need them.
func scaledBalance(token domain.TokenRecord) (*big.Int, error) {
	return fixpoint.Upscale(token.Balance, fixpoint.ScalingFactor(token.Decimals))
}

// rateAdjustedBalance is the balance in 18-decimal units multiplied by the
// token's price rate, the form the stable and linear invariants operate on.
func rateAdjustedBalance(token domain.TokenRecord) (*big.Int, error) {
	plain, err := scaledBalance(token)
	if err != nil {
		return nil, err
	}
	return fixpoint.MulDown(plain, priceRateFor(token))
}

// pairIndices resolves the pair within the pool's token list.
func pairIndices(pool *domain.PoolRecord, base poolBase) (in, out int, err error) {
	in = pool.TokenIndex(base.tokenIn)
	out = pool.TokenIndex(base.tokenOut)
	if in == -1 || out == -1 || in == out {
		return 0, 0, domain.InvalidPoolPairError{
			PoolID:   pool.ID,
			TokenIn:  base.tokenIn.Hex(),
			TokenOut: base.tokenOut.Hex(),
		}
	}
	return in, out, nil
}

func fillScaling(pool *domain.PoolRecord, base *poolBase, in, out int) {
	base.scalingFactorIn = fixpoint.ScalingFactor(pool.Tokens[in].Decimals)
	base.scalingFactorOut = fixpoint.ScalingFactor(pool.Tokens[out].Decimals)
}

func newRoutableWeightedPool(pool *domain.PoolRecord, base poolBase) (domain.RoutablePool, error) {
	in, out, err := pairIndices(pool, base)
	if err != nil {
		return nil, err
	}
	fillScaling(pool, &base, in, out)

	balanceIn, err := scaledBalance(pool.Tokens[in])
	if err != nil {
		return nil, err
	}
	balanceOut, err := scaledBalance(pool.Tokens[out])
	if err != nil {
		return nil, err
	}

	return &routableWeightedPool{
		poolBase:   base,
		balanceIn:  balanceIn,
		balanceOut: balanceOut,
		weightIn:   pool.Tokens[in].Weight,
		weightOut:  pool.Tokens[out].Weight,
		legacyTier: pool.Type == domain.LiquidityBootstrapping,
	}, nil
}

func newRoutableStablePool(pool *domain.PoolRecord, base poolBase) (domain.RoutablePool, error) {
	// The pool's own BPT participates in composable pairs but is excluded
	// from the solver's balance set.
	bptIsTokenIn := pool.Type == domain.ComposableStable && base.tokenIn == bptAddress(pool)
	bptIsTokenOut := pool.Type == domain.ComposableStable && base.tokenOut == bptAddress(pool)

	balances := make([]*big.Int, 0, len(pool.Tokens))
	indexIn, indexOut := -1, -1
	rateIn, rateOut := fixpoint.ONE, fixpoint.ONE
	for i, token := range pool.Tokens {
		if pool.Type == domain.ComposableStable && i == pool.BptIndex {
			continue
		}
		scaled, err := rateAdjustedBalance(token)
		if err != nil {
			return nil, err
		}
		if token.Address == base.tokenIn {
			indexIn = len(balances)
			rateIn = priceRateFor(token)
		}
		if token.Address == base.tokenOut {
			indexOut = len(balances)
			rateOut = priceRateFor(token)
		}
		balances = append(balances, scaled)
	}

	if (indexIn == -1 && !bptIsTokenIn) || (indexOut == -1 && !bptIsTokenOut) {
		return nil, domain.InvalidPoolPairError{
			PoolID:   pool.ID,
			TokenIn:  base.tokenIn.Hex(),
			TokenOut: base.tokenOut.Hex(),
		}
	}

	if err := fillStableScaling(pool, &base, bptIsTokenIn, bptIsTokenOut); err != nil {
		return nil, err
	}

	var bptSupply *big.Int
	if pool.Type == domain.ComposableStable {
		bptSupply = new(big.Int).Set(pool.TotalShares)
	}

	return &routableStablePool{
		poolBase:      base,
		amp:           pool.Amp,
		balances:      balances,
		indexIn:       indexIn,
		indexOut:      indexOut,
		rateIn:        rateIn,
		rateOut:       rateOut,
		bptSupply:     bptSupply,
		bptIsTokenIn:  bptIsTokenIn,
		bptIsTokenOut: bptIsTokenOut,
	}, nil
}

// bptAddress is the pool's own token address; phantom-BPT pools list it
// among their tokens at BptIndex.
func bptAddress(pool *domain.PoolRecord) common.Address {
	if pool.BptIndex >= 0 && pool.BptIndex < len(pool.Tokens) {
		return pool.Tokens[pool.BptIndex].Address
	}
	return pool.Address
}

func fillStableScaling(pool *domain.PoolRecord, base *poolBase, bptIn, bptOut bool) error {
	resolve := func(token common.Address, isBpt bool) (*big.Int, error) {
		if isBpt {
			// BPT is an 18-decimal token.
			return fixpoint.ScalingFactor(18), nil
		}
		idx := pool.TokenIndex(token)
		if idx == -1 {
			return nil, domain.InvalidPoolPairError{PoolID: pool.ID, TokenIn: base.tokenIn.Hex(), TokenOut: base.tokenOut.Hex()}
		}
		return fixpoint.ScalingFactor(pool.Tokens[idx].Decimals), nil
	}

	var err error
	base.scalingFactorIn, err = resolve(base.tokenIn, bptIn)
	if err != nil {
		return err
	}
	base.scalingFactorOut, err = resolve(base.tokenOut, bptOut)
	return err
}

func newRoutableLinearPool(pool *domain.PoolRecord, base poolBase) (domain.RoutablePool, error) {
	mainToken := pool.Tokens[pool.MainIndex]
	wrappedToken := pool.Tokens[pool.WrappedIndex]
	bptToken := pool.Tokens[pool.BptIndex]

	kind, ok := linearPair(base.tokenIn, base.tokenOut, mainToken.Address, wrappedToken.Address, bptToken.Address)
	if !ok {
		return nil, domain.InvalidPoolPairError{
			PoolID:   pool.ID,
			TokenIn:  base.tokenIn.Hex(),
			TokenOut: base.tokenOut.Hex(),
		}
	}

	fillScaling(pool, &base, pool.TokenIndex(base.tokenIn), pool.TokenIndex(base.tokenOut))

	mainBalance, err := scaledBalance(mainToken)
	if err != nil {
		return nil, err
	}
	wrappedBalance, err := rateAdjustedBalance(wrappedToken)
	if err != nil {
		return nil, err
	}

	upscale := func(target *big.Int) (*big.Int, error) {
		return fixpoint.Upscale(target, fixpoint.ScalingFactor(mainToken.Decimals))
	}
	lowerTarget, err := upscale(pool.LowerTarget)
	if err != nil {
		return nil, err
	}
	upperTarget, err := upscale(pool.UpperTarget)
	if err != nil {
		return nil, err
	}

	return &routableLinearPool{
		poolBase:       base,
		pair:           kind,
		mainBalance:    mainBalance,
		wrappedBalance: wrappedBalance,
		wrappedRate:    priceRateFor(wrappedToken),
		bptSupply:      new(big.Int).Set(pool.TotalShares),
		params: linear.Params{
			Fee:         pool.SwapFee,
			LowerTarget: lowerTarget,
			UpperTarget: upperTarget,
		},
	}, nil
}

func linearPair(tokenIn, tokenOut, mainAddr, wrappedAddr, bptAddr common.Address) (linearPairKind, bool) {
	switch {
	case tokenIn == mainAddr && tokenOut == wrappedAddr:
		return mainToWrapped, true
	case tokenIn == wrappedAddr && tokenOut == mainAddr:
		return wrappedToMain, true
	case tokenIn == mainAddr && tokenOut == bptAddr:
		return mainToBpt, true
	case tokenIn == bptAddr && tokenOut == mainAddr:
		return bptToMain, true
	case tokenIn == wrappedAddr && tokenOut == bptAddr:
		return wrappedToBpt, true
	case tokenIn == bptAddr && tokenOut == wrappedAddr:
		return bptToWrapped, true
	default:
		return 0, false
	}
}

func newRoutableGyroPool(pool *domain.PoolRecord, base poolBase) (domain.RoutablePool, error) {
	in, out, err := pairIndices(pool, base)
	if err != nil {
		return nil, err
	}
	fillScaling(pool, &base, in, out)

	balanceIn, err := scaledBalance(pool.Tokens[in])
	if err != nil {
		return nil, err
	}
	balanceOut, err := scaledBalance(pool.Tokens[out])
	if err != nil {
		return nil, err
	}

	// The invariant and virtual offsets are defined over (x, y) in the
	// pool's canonical token order.
	x, y := balanceIn, balanceOut
	if in > out {
		x, y = balanceOut, balanceIn
	}
	invariant, err := gyro.CalculateInvariant(x, y, pool.SqrtAlpha, pool.SqrtBeta)
	if err != nil {
		return nil, err
	}
	virtualX, virtualY, err := gyro.VirtualReserves(invariant, pool.SqrtAlpha, pool.SqrtBeta)
	if err != nil {
		return nil, err
	}

	virtualIn, virtualOut := virtualX, virtualY
	if in > out {
		virtualIn, virtualOut = virtualY, virtualX
	}

	return &routableGyroPool{
		poolBase:   base,
		balanceIn:  balanceIn,
		balanceOut: balanceOut,
		virtualIn:  virtualIn,
		virtualOut: virtualOut,
	}, nil
}

func newRoutableFxPool(pool *domain.PoolRecord, base poolBase) (domain.RoutablePool, error) {
	in, out, err := pairIndices(pool, base)
	if err != nil {
		return nil, err
	}

	// FX oracle rates ride in the price-rate slot but price the curve
	// rather than scale the balances; scaling stays decimal-only.
	base.scalingFactorIn = fixpoint.ScalingFactor(pool.Tokens[in].Decimals)
	base.scalingFactorOut = fixpoint.ScalingFactor(pool.Tokens[out].Decimals)

	balanceIn, err := fixpoint.Upscale(pool.Tokens[in].Balance, base.scalingFactorIn)
	if err != nil {
		return nil, err
	}
	balanceOut, err := fixpoint.Upscale(pool.Tokens[out].Balance, base.scalingFactorOut)
	if err != nil {
		return nil, err
	}

	return &routableFxPool{
		poolBase:   base,
		balanceIn:  balanceIn,
		balanceOut: balanceOut,
		rateIn:     priceRateFor(pool.Tokens[in]),
		rateOut:    priceRateFor(pool.Tokens[out]),
		params: fx.Params{
			Alpha:  pool.Alpha,
			Beta:   pool.Beta,
			Delta:  pool.Delta,
			Lambda: pool.Lambda,
		},
	}, nil
}
