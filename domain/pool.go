package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PoolType enumerates the pool families supported by the router. The zero
// value is Weighted; unrecognized tags map to Unknown and are dropped from
// candidate generation rather than failing the request.
type PoolType int

const (
	Weighted PoolType = iota
	Stable
	MetaStable
	LiquidityBootstrapping
	Investment
	Linear
	ComposableStable
	Gyro2
	GyroE
	FX
	Unknown
)

var poolTypeNames = map[PoolType]string{
	Weighted:               "Weighted",
	Stable:                 "Stable",
	MetaStable:             "MetaStable",
	LiquidityBootstrapping: "LiquidityBootstrapping",
	Investment:             "Investment",
	Linear:                 "Linear",
	ComposableStable:       "ComposableStable",
	Gyro2:                  "Gyro2",
	GyroE:                  "GyroE",
	FX:                     "FX",
	Unknown:                "Unknown",
}

func (t PoolType) String() string {
	name, ok := poolTypeNames[t]
	if !ok {
		return "Unknown"
	}
	return name
}

// ParsePoolType maps a raw pool-type tag from the data service to the closed
// enum. Linear pool variants (AaveLinear, ERC4626Linear, ...) share the
// Linear math module.
func ParsePoolType(tag string) PoolType {
	switch {
	case tag == "Weighted":
		return Weighted
	case tag == "Stable":
		return Stable
	case tag == "MetaStable":
		return MetaStable
	case tag == "LiquidityBootstrapping":
		return LiquidityBootstrapping
	case tag == "Investment" || tag == "Managed":
		return Investment
	case strings.HasSuffix(tag, "Linear"):
		return Linear
	case tag == "ComposableStable" || tag == "StablePhantom":
		return ComposableStable
	case tag == "Gyro2":
		return Gyro2
	case tag == "GyroE":
		return GyroE
	case tag == "FX":
		return FX
	default:
		return Unknown
	}
}

// TokenRecord is a single token's state within a pool snapshot. Balance is in
// the token's native decimals; Weight and PriceRate are 18-decimal fixed
// point. PriceRate defaults to one for non-rate-bearing tokens.
type TokenRecord struct {
	Address   common.Address
	Balance   *big.Int
	Decimals  uint8
	Weight    *big.Int
	PriceRate *big.Int
}

// PoolRecord is the raw, immutable pool state as fetched from the data
// service. It is replaced wholesale on every fetch cycle and never mutated by
// the router; the optimizer operates on routable-pool working copies instead.
type PoolRecord struct {
	ID          string
	Address     common.Address
	Type        PoolType
	SwapFee     *big.Int
	Tokens      []TokenRecord
	SwapEnabled bool

	// TotalShares is the BPT supply, relevant for pools whose own token
	// participates in swaps (linear, composable stable).
	TotalShares *big.Int

	// Stable family.
	Amp *big.Int

	// Linear family.
	MainIndex    int
	WrappedIndex int
	BptIndex     int
	LowerTarget  *big.Int
	UpperTarget  *big.Int

	// Gyro 2-CLP.
	SqrtAlpha *big.Int
	SqrtBeta  *big.Int

	// FX family bounds, 18-decimal.
	Alpha  *big.Int
	Beta   *big.Int
	Delta  *big.Int
	Lambda *big.Int

	// Liquidity bootstrapping schedule, unix seconds. A zero EndTime means
	// no schedule gating.
	StartTime int64
	EndTime   int64
}

// TokenIndex returns the index of the given token in the pool, or -1.
func (p *PoolRecord) TokenIndex(token common.Address) int {
	for i, t := range p.Tokens {
		if t.Address == token {
			return i
		}
	}
	return -1
}

// HasToken returns true if the pool contains the given token, including the
// pool's own BPT for phantom-BPT pools.
func (p *PoolRecord) HasToken(token common.Address) bool {
	return p.TokenIndex(token) != -1
}
