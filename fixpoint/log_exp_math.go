package fixpoint

import "math/big"

// Natural exponentiation and logarithm over signed 18-decimal fixed point.
// This is a faithful port of the reference vault's integer log/exp routine:
// the argument is decomposed against a precomputed table of e^(2^k) factors
// and the remainder is refined with a Taylor series at 20-decimal internal
// precision (36 decimals for logarithms of arguments close to one). The
// decomposition and rounding must match the on-chain code bit-for-bit, which
// is why all division here truncates toward zero (big.Int Quo).

var (
	one18 = big.NewInt(1e18)
	one20 = new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	one36 = new(big.Int).Mul(big.NewInt(1e18), big.NewInt(1e18))

	maxNaturalExponent = new(big.Int).Mul(big.NewInt(130), one18)
	minNaturalExponent = new(big.Int).Mul(big.NewInt(-41), one18)

	ln36LowerBound = new(big.Int).Sub(one18, big.NewInt(1e17))
	ln36UpperBound = new(big.Int).Add(one18, big.NewInt(1e17))

	// mildExponentBound = 2^254 / 1e20.
	mildExponentBound = new(big.Int).Quo(new(big.Int).Lsh(big.NewInt(1), 254), one20)

	// 2^255, the signed-word boundary for the base.
	twoPow255 = new(big.Int).Lsh(big.NewInt(1), 255)

	// 18-decimal fixed-point powers of two used to decompose the exponent.
	x0, _ = new(big.Int).SetString("128000000000000000000", 10) // 2^7
	x1, _ = new(big.Int).SetString("64000000000000000000", 10)  // 2^6
	// The remaining entries are 20-decimal.
	x2, _  = new(big.Int).SetString("3200000000000000000000", 10) // 2^5
	x3, _  = new(big.Int).SetString("1600000000000000000000", 10) // 2^4
	x4, _  = new(big.Int).SetString("800000000000000000000", 10)  // 2^3
	x5, _  = new(big.Int).SetString("400000000000000000000", 10)  // 2^2
	x6, _  = new(big.Int).SetString("200000000000000000000", 10)  // 2^1
	x7, _  = new(big.Int).SetString("100000000000000000000", 10)  // 2^0
	x8, _  = new(big.Int).SetString("50000000000000000000", 10)   // 2^-1
	x9, _  = new(big.Int).SetString("25000000000000000000", 10)   // 2^-2
	x10, _ = new(big.Int).SetString("12500000000000000000", 10)   // 2^-3
	x11, _ = new(big.Int).SetString("6250000000000000000", 10)    // 2^-4

	// e^x0 and e^x1 carry no decimals; a2 onwards are 20-decimal.
	a0, _  = new(big.Int).SetString("38877084059945950922200000000000000000000000000000000000", 10)
	a1, _  = new(big.Int).SetString("6235149080811616882910000000", 10)
	a2, _  = new(big.Int).SetString("7896296018268069516100000000000000", 10)
	a3, _  = new(big.Int).SetString("888611052050787263676000000", 10)
	a4, _  = new(big.Int).SetString("298095798704172827474000", 10)
	a5, _  = new(big.Int).SetString("5459815003314423907810", 10)
	a6, _  = new(big.Int).SetString("738905609893065022723", 10)
	a7, _  = new(big.Int).SetString("271828182845904523536", 10)
	a8, _  = new(big.Int).SetString("164872127070012814685", 10)
	a9, _  = new(big.Int).SetString("128402541668774148407", 10)
	a10, _ = new(big.Int).SetString("113314845306682631683", 10)
	a11, _ = new(big.Int).SetString("106449445891785942956", 10)

	hundred = big.NewInt(100)
)

// Pow returns x^y where x and y are unsigned 18-decimal fixed-point numbers.
func Pow(x, y *big.Int) (*big.Int, error) {
	if y.Sign() == 0 {
		// x^0 == 1 for any x, including 0.
		return new(big.Int).Set(one18), nil
	}
	if x.Sign() == 0 {
		return big.NewInt(0), nil
	}

	if x.Cmp(twoPow255) >= 0 {
		return nil, ErrXOutOfBounds
	}
	if y.Cmp(mildExponentBound) >= 0 {
		return nil, ErrYOutOfBounds
	}

	var logxTimesY *big.Int
	if ln36LowerBound.Cmp(x) < 0 && x.Cmp(ln36UpperBound) < 0 {
		ln36X := ln36(x)

		// ln36X has 36 decimals; multiply by y keeping 18-decimal
		// precision without overflowing: split into the quotient and
		// remainder mod ONE.
		quotient := new(big.Int).Quo(ln36X, one18)
		remainder := new(big.Int).Rem(ln36X, one18)

		logxTimesY = quotient.Mul(quotient, y)
		remainder.Mul(remainder, y)
		remainder.Quo(remainder, one18)
		logxTimesY.Add(logxTimesY, remainder)
	} else {
		logxTimesY = lnInternal(new(big.Int).Set(x))
		logxTimesY.Mul(logxTimesY, y)
	}
	logxTimesY.Quo(logxTimesY, one18)

	if logxTimesY.Cmp(minNaturalExponent) < 0 || logxTimesY.Cmp(maxNaturalExponent) > 0 {
		return nil, ErrProductOutOfBounds
	}

	return Exp(logxTimesY)
}

// Exp returns e^x for signed 18-decimal x within the natural exponent domain.
func Exp(x *big.Int) (*big.Int, error) {
	if x.Cmp(minNaturalExponent) < 0 || x.Cmp(maxNaturalExponent) > 0 {
		return nil, ErrInvalidExponent
	}

	if x.Sign() < 0 {
		// e^(-x) is computed as 1/e^x. The inverse fits because
		// minNaturalExponent is within domain.
		posExp, err := Exp(new(big.Int).Neg(x))
		if err != nil {
			return nil, err
		}
		result := new(big.Int).Mul(one18, one18)
		return result.Quo(result, posExp), nil
	}

	x = new(big.Int).Set(x)

	// Pull out the e^(2^7) and e^(2^6) factors first; their magnitudes are
	// too large for the 20-decimal product accumulation below.
	firstAN := big.NewInt(1)
	if x.Cmp(x0) >= 0 {
		x.Sub(x, x0)
		firstAN = a0
	} else if x.Cmp(x1) >= 0 {
		x.Sub(x, x1)
		firstAN = a1
	}

	// Move to 20-decimal precision for the rest of the decomposition.
	x.Mul(x, hundred)
	product := new(big.Int).Set(one20)

	decompose := func(xn, an *big.Int) {
		if x.Cmp(xn) >= 0 {
			x.Sub(x, xn)
			product.Mul(product, an)
			product.Quo(product, one20)
		}
	}
	decompose(x2, a2)
	decompose(x3, a3)
	decompose(x4, a4)
	decompose(x5, a5)
	decompose(x6, a6)
	decompose(x7, a7)
	decompose(x8, a8)
	decompose(x9, a9)

	// Taylor series for the remainder (smaller than 2^-2): twelve terms
	// suffice at 20-decimal precision.
	seriesSum := new(big.Int).Set(one20)
	term := new(big.Int).Set(x)
	seriesSum.Add(seriesSum, term)

	for n := int64(2); n <= 12; n++ {
		term.Mul(term, x)
		term.Quo(term, one20)
		term.Quo(term, big.NewInt(n))
		seriesSum.Add(seriesSum, term)
	}

	result := new(big.Int).Mul(product, seriesSum)
	result.Quo(result, one20)
	result.Mul(result, firstAN)
	return result.Quo(result, hundred), nil
}

// Ln returns the natural logarithm of a positive 18-decimal fixed-point a.
func Ln(a *big.Int) (*big.Int, error) {
	if a.Sign() <= 0 {
		return nil, ErrOutOfBounds
	}
	if ln36LowerBound.Cmp(a) < 0 && a.Cmp(ln36UpperBound) < 0 {
		result := ln36(a)
		return result.Quo(result, one18), nil
	}
	return lnInternal(new(big.Int).Set(a)), nil
}

// Log returns log_base(arg) via the change-of-base identity, at 36-decimal
// intermediate precision.
func Log(arg, base *big.Int) (*big.Int, error) {
	var (
		logArg, logBase *big.Int
	)
	if ln36LowerBound.Cmp(arg) < 0 && arg.Cmp(ln36UpperBound) < 0 {
		logArg = ln36(arg)
	} else {
		if arg.Sign() <= 0 {
			return nil, ErrOutOfBounds
		}
		logArg = new(big.Int).Mul(lnInternal(new(big.Int).Set(arg)), one18)
	}
	if ln36LowerBound.Cmp(base) < 0 && base.Cmp(ln36UpperBound) < 0 {
		logBase = ln36(base)
	} else {
		if base.Sign() <= 0 {
			return nil, ErrOutOfBounds
		}
		logBase = new(big.Int).Mul(lnInternal(new(big.Int).Set(base)), one18)
	}

	result := new(big.Int).Mul(logArg, one18)
	return result.Quo(result, logBase), nil
}

// lnInternal computes ln(a) for 18-decimal a >= 1e-18. The argument is
// consumed.
func lnInternal(a *big.Int) *big.Int {
	if a.Cmp(one18) < 0 {
		// ln(a) = -ln(1/a) for a < 1.
		inverse := new(big.Int).Mul(one18, one18)
		inverse.Quo(inverse, a)
		return new(big.Int).Neg(lnInternal2Arg(inverse))
	}
	return lnInternal2Arg(a)
}

func lnInternal2Arg(a *big.Int) *big.Int {
	sum := big.NewInt(0)

	// a0 and a1 carry no decimals, so compare against an*ONE.
	if a.Cmp(new(big.Int).Mul(a0, one18)) >= 0 {
		a.Quo(a, a0)
		sum.Add(sum, x0)
	}
	if a.Cmp(new(big.Int).Mul(a1, one18)) >= 0 {
		a.Quo(a, a1)
		sum.Add(sum, x1)
	}

	// 20-decimal precision from here on.
	sum.Mul(sum, hundred)
	a.Mul(a, hundred)

	extract := func(xn, an *big.Int) {
		if a.Cmp(an) >= 0 {
			a.Mul(a, one20)
			a.Quo(a, an)
			sum.Add(sum, xn)
		}
	}
	extract(x2, a2)
	extract(x3, a3)
	extract(x4, a4)
	extract(x5, a5)
	extract(x6, a6)
	extract(x7, a7)
	extract(x8, a8)
	extract(x9, a9)
	extract(x10, a10)
	extract(x11, a11)

	// ln(a) for the 1 <= a < 1.0625 remainder via the atanh series:
	// ln(a) = 2 * z * (1 + z^2/3 + z^4/5 + ...), z = (a-1)/(a+1).
	z := new(big.Int).Sub(a, one20)
	z.Mul(z, one20)
	z.Quo(z, new(big.Int).Add(a, one20))

	zSquared := new(big.Int).Mul(z, z)
	zSquared.Quo(zSquared, one20)

	num := new(big.Int).Set(z)
	seriesSum := new(big.Int).Set(num)

	for n := int64(3); n <= 11; n += 2 {
		num.Mul(num, zSquared)
		num.Quo(num, one20)
		seriesSum.Add(seriesSum, new(big.Int).Quo(num, big.NewInt(n)))
	}

	seriesSum.Mul(seriesSum, big.NewInt(2))

	sum.Add(sum, seriesSum)
	return sum.Quo(sum, hundred)
}

// ln36 computes ln(x) at 36-decimal precision for x close to one, where the
// 20-decimal series would lose too much significance.
func ln36(x *big.Int) *big.Int {
	x = new(big.Int).Mul(x, one18)

	// z = (x - 1) / (x + 1) at 36 decimals.
	z := new(big.Int).Sub(x, one36)
	z.Mul(z, one36)
	z.Quo(z, new(big.Int).Add(x, one36))

	zSquared := new(big.Int).Mul(z, z)
	zSquared.Quo(zSquared, one36)

	num := new(big.Int).Set(z)
	seriesSum := new(big.Int).Set(num)

	for n := int64(3); n <= 15; n += 2 {
		num.Mul(num, zSquared)
		num.Quo(num, one36)
		seriesSum.Add(seriesSum, new(big.Int).Quo(num, big.NewInt(n)))
	}

	return seriesSum.Mul(seriesSum, big.NewInt(2))
}
