package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/osmosis-labs/osmosis/osmomath"
)

// SwapTypes determines whether the requested amount is the input
// (SwapExactIn) or the output (SwapExactOut) of the trade.
type SwapTypes int

const (
	SwapExactIn SwapTypes = iota
	SwapExactOut
)

func (s SwapTypes) String() string {
	if s == SwapExactOut {
		return "ExactOut"
	}
	return "ExactIn"
}

// Swap is one elementary pool swap within the final batch-swap instruction
// list. Asset indices reference SwapInfo.TokenAddresses. Amount is an integer
// string in the asset's native decimals; within a multi-hop path every hop
// after the first carries "0", which the settlement layer interprets as "use
// the full output of the previous hop". That convention is part of the
// on-chain contract and must be preserved.
type Swap struct {
	PoolID        string `json:"poolId"`
	AssetInIndex  int    `json:"assetInIndex"`
	AssetOutIndex int    `json:"assetOutIndex"`
	Amount        string `json:"amount"`
	UserData      string `json:"userData"`
}

// SwapInfo is the router's final result. It is output-only and immutable.
// A well-formed SwapInfo with zero swaps and a zero return amount is the
// valid "no route found" outcome, distinct from errors.
type SwapInfo struct {
	Swaps          []Swap           `json:"swaps"`
	TokenAddresses []common.Address `json:"tokenAddresses"`
	TokenIn        common.Address   `json:"tokenIn"`
	TokenOut       common.Address   `json:"tokenOut"`
	SwapAmount     *big.Int         `json:"swapAmount"`
	ReturnAmount   *big.Int         `json:"returnAmount"`
	// ReturnAmountConsideringFees nets the marginal gas cost of the chosen
	// route set out of the return amount.
	ReturnAmountConsideringFees *big.Int `json:"returnAmountConsideringFees"`
	// MarketSP is the approximate spot price of the route set, informational
	// only.
	MarketSP osmomath.Dec `json:"marketSp"`
}

// SwapOptions carries per-request routing knobs.
type SwapOptions struct {
	// GasPrice in native-asset wei used to price each additional pool hop.
	GasPrice *big.Int
	// MaxPools caps the number of distinct pools in the final route set.
	MaxPools int
	// PoolTypeFilter restricts candidate pools to the given families when
	// non-empty.
	PoolTypeFilter []PoolType
	// Timestamp for time-dependent pools (LBP weight schedules). Zero means
	// the schedule is not checked.
	Timestamp int64
}

// PoolDataService fetches the pool snapshot. A failure here is fatal to the
// current routing request but not to future ones.
type PoolDataService interface {
	GetPools(ctx context.Context) ([]*PoolRecord, error)
}

// TokenPriceService converts the fixed per-hop gas cost into output-token
// units. A failure degrades to a zero cost rather than aborting routing.
type TokenPriceService interface {
	GetNativeAssetPriceInToken(ctx context.Context, token common.Address) (osmomath.Dec, error)
}

// RoutablePool is a per-direction view of one pool, the uniform contract all
// pool math families implement. Exact settlement math operates on 18-decimal
// scaled amounts; native-decimal conversion happens only at the router
// boundary. Heuristic pricing (spot price, derivatives, liquidity ranking)
// uses osmomath decimals and never feeds settlement amounts.
type RoutablePool interface {
	GetID() string
	GetAddress() common.Address
	GetType() PoolType
	GetTokenIn() common.Address
	GetTokenOut() common.Address
	GetSwapFee() *big.Int
	GetScalingFactorIn() *big.Int
	GetScalingFactorOut() *big.Int

	// CalcOutGivenIn computes the exact scaled output for a scaled input,
	// rounding in the pool's favor (down).
	CalcOutGivenIn(amountIn *big.Int) (*big.Int, error)
	// CalcInGivenOut computes the exact scaled input for a scaled output,
	// rounding in the pool's favor (up).
	CalcInGivenOut(amountOut *big.Int) (*big.Int, error)

	// SpotPrice is the zero-size marginal price, tokenIn per tokenOut.
	SpotPrice() (osmomath.Dec, error)
	// SpotPriceAfterSwap is the marginal price after trading the given
	// scaled amount (tokenIn units for ExactIn, tokenOut for ExactOut).
	SpotPriceAfterSwap(amount osmomath.Dec, kind SwapTypes) (osmomath.Dec, error)
	// DerivativeSpotPriceAfterSwap is d(SpotPriceAfterSwap)/d(amount).
	DerivativeSpotPriceAfterSwap(amount osmomath.Dec, kind SwapTypes) (osmomath.Dec, error)

	// LimitAmount is the pool-imposed safety cap on the traded amount in
	// scaled units. Zero when the pool is disabled or paused.
	LimitAmount(kind SwapTypes) *big.Int

	// NormalizedLiquidity ranks pools sharing a hop token; higher is more
	// liquid.
	NormalizedLiquidity() osmomath.Dec

	// ApplySwap mutates the working copy's balances after a swap. Only ever
	// called on clones within a single optimizer run.
	ApplySwap(amountIn, amountOut *big.Int) error
	// Clone returns an independent working copy.
	Clone() RoutablePool
}

// RouterConfig is the router's static configuration.
type RouterConfig struct {
	// MaxPools caps the number of distinct pools across all split paths.
	MaxPools int `mapstructure:"max-pools"`
	// MaxSplitIterations bounds the marginal-price equalization loop.
	MaxSplitIterations int `mapstructure:"max-split-iterations"`
	// HopGasUnits is the fixed gas-unit estimate charged per additional
	// pool hop.
	HopGasUnits uint64 `mapstructure:"hop-gas-units"`
	// RouteCacheEnabled toggles candidate path memoization.
	RouteCacheEnabled bool `mapstructure:"route-cache-enabled"`
	// RouteCacheSize is the maximum number of cached token-pair entries.
	RouteCacheSize int `mapstructure:"route-cache-size"`
	// RouteCacheExpirySeconds is the TTL for cached candidate paths.
	RouteCacheExpirySeconds uint64 `mapstructure:"route-cache-expiry-seconds"`
}

// DefaultRouterConfig mirrors the reference deployment's defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MaxPools:                4,
		MaxSplitIterations:      10,
		HopGasUnits:             35000,
		RouteCacheEnabled:       true,
		RouteCacheSize:          512,
		RouteCacheExpirySeconds: 300,
	}
}
