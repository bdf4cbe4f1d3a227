package fixpoint

import "math/big"

var ten = big.NewInt(10)

// ScalingFactor returns the fixed-point factor that upscales a native
// token amount with the given number of decimals to 18-decimal precision.
// Tokens with more than 18 decimals are not supported by the vault.
func ScalingFactor(decimals uint8) *big.Int {
	if decimals >= 18 {
		return new(big.Int).Set(ONE)
	}
	exp := new(big.Int).Exp(ten, big.NewInt(int64(18-decimals)), nil)
	return exp.Mul(exp, ONE)
}

// Upscale converts a native amount to its 18-decimal internal representation.
// Upscaling is exact because scaling factors are powers of ten times ONE.
func Upscale(amount, scalingFactor *big.Int) (*big.Int, error) {
	return MulDown(amount, scalingFactor)
}

// DownscaleDown converts an internal amount back to native decimals,
// rounding in the pool's favor for outputs.
func DownscaleDown(amount, scalingFactor *big.Int) (*big.Int, error) {
	return DivDown(amount, scalingFactor)
}

// DownscaleUp converts an internal amount back to native decimals,
// rounding in the pool's favor for inputs.
func DownscaleUp(amount, scalingFactor *big.Int) (*big.Int, error) {
	return DivUp(amount, scalingFactor)
}
