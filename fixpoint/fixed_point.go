// Package fixpoint implements 18-decimal fixed-point arithmetic over
// math/big integers, replicating the reference vault's on-chain integer
// semantics including rounding direction. Amount-affecting math throughout
// the router must go through this package; heuristic calculations use
// osmomath decimals instead.
package fixpoint

import (
	"errors"
	"math/big"
)

var (
	// ONE is the fixed-point representation of 1 (1e18).
	ONE = big.NewInt(1e18)

	// TWO and FOUR are convenience constants for invariant math.
	TWO  = new(big.Int).Mul(big.NewInt(2), ONE)
	FOUR = new(big.Int).Mul(big.NewInt(4), ONE)

	// MaxUint256 bounds all amounts, mirroring the 256-bit word on chain.
	MaxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	// maxPowRelativeError is the error tolerance granted to PowUp/PowDown
	// on top of the raw pow result.
	maxPowRelativeError = big.NewInt(10000)

	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

var (
	ErrAddOverflow   = errors.New("fixpoint: add overflow")
	ErrSubUnderflow  = errors.New("fixpoint: sub underflow")
	ErrMulOverflow   = errors.New("fixpoint: mul overflow")
	ErrZeroDivision  = errors.New("fixpoint: zero division")
	ErrDivInternal   = errors.New("fixpoint: div internal")
	ErrXOutOfBounds  = errors.New("fixpoint: x out of bounds")
	ErrYOutOfBounds  = errors.New("fixpoint: y out of bounds")
	ErrProductOutOfBounds = errors.New("fixpoint: product out of bounds")
	ErrInvalidExponent    = errors.New("fixpoint: invalid exponent")
	ErrOutOfBounds        = errors.New("fixpoint: out of bounds")
)

// Add returns a + b, failing if the result exceeds the 256-bit range.
func Add(a, b *big.Int) (*big.Int, error) {
	c := new(big.Int).Add(a, b)
	if c.Cmp(MaxUint256) > 0 {
		return nil, ErrAddOverflow
	}
	return c, nil
}

// Sub returns a - b, failing if the result would be negative. Negative
// fixed-point values are disallowed by the on-chain semantics.
func Sub(a, b *big.Int) (*big.Int, error) {
	if a.Cmp(b) < 0 {
		return nil, ErrSubUnderflow
	}
	return new(big.Int).Sub(a, b), nil
}

// MulDown returns a*b/ONE rounded towards zero.
func MulDown(a, b *big.Int) (*big.Int, error) {
	product := new(big.Int).Mul(a, b)
	if product.Cmp(new(big.Int).Mul(MaxUint256, ONE)) > 0 {
		return nil, ErrMulOverflow
	}
	return product.Quo(product, ONE), nil
}

// MulUp returns a*b/ONE rounded away from zero.
func MulUp(a, b *big.Int) (*big.Int, error) {
	product := new(big.Int).Mul(a, b)
	if product.Cmp(new(big.Int).Mul(MaxUint256, ONE)) > 0 {
		return nil, ErrMulOverflow
	}
	if product.Sign() == 0 {
		return big.NewInt(0), nil
	}
	// ((product - 1) / ONE) + 1
	product.Sub(product, one)
	product.Quo(product, ONE)
	return product.Add(product, one), nil
}

// DivDown returns a*ONE/b rounded towards zero.
func DivDown(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrZeroDivision
	}
	if a.Sign() == 0 {
		return big.NewInt(0), nil
	}
	aInflated := new(big.Int).Mul(a, ONE)
	return aInflated.Quo(aInflated, b), nil
}

// DivUp returns a*ONE/b rounded away from zero. DivUp(a,b) - DivDown(a,b)
// is at most one base unit.
func DivUp(a, b *big.Int) (*big.Int, error) {
	if b.Sign() == 0 {
		return nil, ErrZeroDivision
	}
	if a.Sign() == 0 {
		return big.NewInt(0), nil
	}
	// ((a * ONE - 1) / b) + 1
	aInflated := new(big.Int).Mul(a, ONE)
	aInflated.Sub(aInflated, one)
	aInflated.Quo(aInflated, b)
	return aInflated.Add(aInflated, one), nil
}

// Complement returns max(ONE - x, 0).
func Complement(x *big.Int) *big.Int {
	if x.Cmp(ONE) < 0 {
		return new(big.Int).Sub(ONE, x)
	}
	return big.NewInt(0)
}

// PowDown returns x^y with the pow error tolerance subtracted, flooring at
// zero. Used where the power term must favor the pool on the low side.
func PowDown(x, y *big.Int) (*big.Int, error) {
	raw, err := Pow(x, y)
	if err != nil {
		return nil, err
	}
	maxError, err := MulUp(raw, maxPowRelativeError)
	if err != nil {
		return nil, err
	}
	maxError.Add(maxError, one)

	if raw.Cmp(maxError) < 0 {
		return big.NewInt(0), nil
	}
	return raw.Sub(raw, maxError), nil
}

// PowUp returns x^y with the pow error tolerance added.
func PowUp(x, y *big.Int) (*big.Int, error) {
	raw, err := Pow(x, y)
	if err != nil {
		return nil, err
	}
	maxError, err := MulUp(raw, maxPowRelativeError)
	if err != nil {
		return nil, err
	}
	maxError.Add(maxError, one)

	return raw.Add(raw, maxError), nil
}
