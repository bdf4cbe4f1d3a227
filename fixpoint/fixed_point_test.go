package fixpoint_test

import (
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/batchswap/sor/fixpoint"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big int: " + s)
	}
	return v
}

func TestDivRoundingMonotonicity(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"1", "3"},
		{"1000000000000000000", "3000000000000000000"},
		{"123456789123456789", "987654321987654321"},
		{"1000000000000000000", "1000000000000000000"},
		{"7", "1000000000000000000000000"},
		{"999999999999999999999", "7"},
	}

	one := big.NewInt(1)

	for _, tc := range cases {
		down, err := fixpoint.DivDown(bi(tc.a), bi(tc.b))
		assert.NoError(t, err)
		up, err := fixpoint.DivUp(bi(tc.a), bi(tc.b))
		assert.NoError(t, err)

		// divDown <= divUp, differing by at most one base unit.
		assert.True(t, down.Cmp(up) <= 0)
		diff := new(big.Int).Sub(up, down)
		assert.True(t, diff.Cmp(one) <= 0)
	}
}

func TestDivByZero(t *testing.T) {
	_, err := fixpoint.DivDown(bi("1"), big.NewInt(0))
	assert.IsError(t, err, fixpoint.ErrZeroDivision)

	_, err = fixpoint.DivUp(bi("1"), big.NewInt(0))
	assert.IsError(t, err, fixpoint.ErrZeroDivision)
}

func TestSubUnderflow(t *testing.T) {
	_, err := fixpoint.Sub(big.NewInt(1), big.NewInt(2))
	assert.IsError(t, err, fixpoint.ErrSubUnderflow)

	res, err := fixpoint.Sub(big.NewInt(2), big.NewInt(2))
	assert.NoError(t, err)
	assert.Equal(t, 0, res.Sign())
}

func TestMulRounding(t *testing.T) {
	a := bi("333333333333333333") // 1/3
	b := bi("3000000000000000000") // 3

	down, err := fixpoint.MulDown(a, b)
	assert.NoError(t, err)
	up, err := fixpoint.MulUp(a, b)
	assert.NoError(t, err)

	assert.True(t, down.Cmp(up) <= 0)
	assert.Equal(t, "999999999999999999", down.String())
}

func TestComplement(t *testing.T) {
	assert.Equal(t, "400000000000000000", fixpoint.Complement(bi("600000000000000000")).String())
	assert.Equal(t, "0", fixpoint.Complement(bi("1600000000000000000")).String())
}

func TestExpKnownValues(t *testing.T) {
	// e^0 = 1
	res, err := fixpoint.Exp(big.NewInt(0))
	assert.NoError(t, err)
	assert.Equal(t, "1000000000000000000", res.String())

	// e^1 = 2.718281828459045235...
	res, err = fixpoint.Exp(bi("1000000000000000000"))
	assert.NoError(t, err)
	diff := new(big.Int).Sub(res, bi("2718281828459045235"))
	assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0)

	// e^2 = 7.389056098930650227...
	res, err = fixpoint.Exp(bi("2000000000000000000"))
	assert.NoError(t, err)
	diff = new(big.Int).Sub(res, bi("7389056098930650227"))
	assert.True(t, diff.CmpAbs(big.NewInt(20)) <= 0)
}

func TestExpNegative(t *testing.T) {
	// e^-1 = 0.36787944117144232...
	res, err := fixpoint.Exp(bi("-1000000000000000000"))
	assert.NoError(t, err)

	expected := bi("367879441171442321")
	diff := new(big.Int).Sub(res, expected)
	assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0)
}

func TestExpOutOfDomain(t *testing.T) {
	_, err := fixpoint.Exp(bi("131000000000000000000"))
	assert.IsError(t, err, fixpoint.ErrInvalidExponent)

	_, err = fixpoint.Exp(bi("-42000000000000000000"))
	assert.IsError(t, err, fixpoint.ErrInvalidExponent)
}

func TestLnKnownValues(t *testing.T) {
	// ln(1) = 0
	res, err := fixpoint.Ln(bi("1000000000000000000"))
	assert.NoError(t, err)
	assert.Equal(t, 0, res.Sign())

	// ln(e) = 1, within a base unit or two of series truncation.
	res, err = fixpoint.Ln(bi("2718281828459045235"))
	assert.NoError(t, err)
	diff := new(big.Int).Sub(res, bi("1000000000000000000"))
	assert.True(t, diff.CmpAbs(big.NewInt(10)) <= 0)

	_, err = fixpoint.Ln(big.NewInt(0))
	assert.IsError(t, err, fixpoint.ErrOutOfBounds)
}

func TestLnExpRoundTrip(t *testing.T) {
	for _, s := range []string{
		"500000000000000000",
		"1000000000000000000",
		"1050000000000000000",
		"2000000000000000000",
		"123456789000000000000",
	} {
		x := bi(s)
		lnX, err := fixpoint.Ln(x)
		assert.NoError(t, err)
		back, err := fixpoint.Exp(lnX)
		assert.NoError(t, err)

		diff := new(big.Int).Sub(back, x)
		// Allow drift proportional to magnitude from series truncation.
		tolerance := new(big.Int).Quo(x, big.NewInt(1_000_000_000))
		tolerance.Add(tolerance, big.NewInt(10))
		assert.True(t, diff.CmpAbs(tolerance) <= 0)
	}
}

func TestPow(t *testing.T) {
	// x^0 == ONE for any x.
	res, err := fixpoint.Pow(bi("123456789000000000000"), big.NewInt(0))
	assert.NoError(t, err)
	assert.Equal(t, "1000000000000000000", res.String())

	// 0^y == 0 for y > 0.
	res, err = fixpoint.Pow(big.NewInt(0), bi("1000000000000000000"))
	assert.NoError(t, err)
	assert.Equal(t, 0, res.Sign())

	// 2^2 = 4 within pow tolerance.
	res, err = fixpoint.Pow(bi("2000000000000000000"), bi("2000000000000000000"))
	assert.NoError(t, err)
	diff := new(big.Int).Sub(res, bi("4000000000000000000"))
	assert.True(t, diff.CmpAbs(bi("1000000")) <= 0)

	// 4^0.5 = 2 within pow tolerance.
	res, err = fixpoint.Pow(bi("4000000000000000000"), bi("500000000000000000"))
	assert.NoError(t, err)
	diff = new(big.Int).Sub(res, bi("2000000000000000000"))
	assert.True(t, diff.CmpAbs(bi("1000000")) <= 0)
}

func TestPowUpDownBracketRawResult(t *testing.T) {
	x := bi("1100000000000000000")
	y := bi("700000000000000000")

	raw, err := fixpoint.Pow(x, y)
	assert.NoError(t, err)
	down, err := fixpoint.PowDown(x, y)
	assert.NoError(t, err)
	up, err := fixpoint.PowUp(x, y)
	assert.NoError(t, err)

	assert.True(t, down.Cmp(raw) <= 0)
	assert.True(t, raw.Cmp(up) <= 0)
}

func TestPowDomainErrors(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 255)
	_, err := fixpoint.Pow(tooBig, bi("1000000000000000000"))
	assert.IsError(t, err, fixpoint.ErrXOutOfBounds)
}

func TestScaling(t *testing.T) {
	// 6-decimal token: 1.5 units.
	factor := fixpoint.ScalingFactor(6)
	up, err := fixpoint.Upscale(big.NewInt(1_500_000), factor)
	assert.NoError(t, err)
	assert.Equal(t, "1500000000000000000", up.String())

	down, err := fixpoint.DownscaleDown(up, factor)
	assert.NoError(t, err)
	assert.Equal(t, "1500000", down.String())
}
