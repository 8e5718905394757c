package number

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"
)

var (
	// ErrDivisionByZero is returned by Div and Mod when the divisor is zero.
	ErrDivisionByZero = errors.New("divide by zero")

	// ErrDomain indicates an operand outside the operation's domain
	// (negative or fractional exponent, negative square root, bad base).
	ErrDomain = errors.New("domain error")

	// ErrSyntax indicates a malformed numeric literal.
	ErrSyntax = errors.New("invalid number")
)

// MaxExponent bounds the exponent accepted by Pow.
const MaxExponent = math.MaxInt32

const digitChars = "0123456789ABCDEF"

var (
	bigZero = big.NewInt(0)
	bigTen  = big.NewInt(10)
)

// Number is an immutable arbitrary-precision decimal.
// Its value is unscaled * 10^(-scale); the zero value is 0.
type Number struct {
	unscaled *big.Int
	scale    int
}

// New returns unscaled * 10^(-scale). The big.Int is copied.
func New(unscaled *big.Int, scale int) Number {
	if scale < 0 {
		scale = 0
	}
	v := new(big.Int)
	if unscaled != nil {
		v.Set(unscaled)
	}
	return Number{unscaled: v, scale: scale}
}

// FromInt64 returns an integer Number.
func FromInt64(v int64) Number {
	return Number{unscaled: big.NewInt(v)}
}

// Zero returns 0 with scale 0.
func Zero() Number { return Number{} }

// One returns 1 with scale 0.
func One() Number { return FromInt64(1) }

// Bool maps true to 1 and false to 0.
func Bool(v bool) Number {
	if v {
		return One()
	}
	return Zero()
}

// Parse reads a base-10 literal such as "12", "-3.25" or ".5".
func Parse(lit string) (Number, error) {
	return ParseBase(lit, 10)
}

// MustParse is like Parse but panics on malformed input.
func MustParse(lit string) Number {
	n, err := Parse(lit)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseBase reads a literal written in base (2-16). Digits are 0-9 and A-F;
// as in classic bc a digit keeps its value even when it is >= base.
// The scale of the result is the number of fractional digits written.
func ParseBase(lit string, base int) (Number, error) {
	if base < 2 || base > 16 {
		return Number{}, fmt.Errorf("%w: input base %d out of range", ErrDomain, base)
	}
	s := strings.TrimSpace(lit)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	intPart, fracPart, hasDot := strings.Cut(s, ".")
	if intPart == "" && fracPart == "" {
		return Number{}, fmt.Errorf("%w: %q", ErrSyntax, lit)
	}
	if hasDot && strings.Contains(fracPart, ".") {
		return Number{}, fmt.Errorf("%w: %q", ErrSyntax, lit)
	}

	b := big.NewInt(int64(base))
	whole := new(big.Int)
	for _, r := range intPart {
		d := strings.IndexRune(digitChars, r)
		if d < 0 {
			return Number{}, fmt.Errorf("%w: %q", ErrSyntax, lit)
		}
		whole.Mul(whole, b)
		whole.Add(whole, big.NewInt(int64(d)))
	}

	scale := len(fracPart)
	frac := new(big.Int)
	for _, r := range fracPart {
		d := strings.IndexRune(digitChars, r)
		if d < 0 {
			return Number{}, fmt.Errorf("%w: %q", ErrSyntax, lit)
		}
		frac.Mul(frac, b)
		frac.Add(frac, big.NewInt(int64(d)))
	}

	unscaled := new(big.Int).Mul(whole, pow10(scale))
	if scale > 0 {
		if base == 10 {
			unscaled.Add(unscaled, frac)
		} else {
			// frac / base^scale, truncated to scale decimal digits.
			f := new(big.Int).Mul(frac, pow10(scale))
			f.Quo(f, new(big.Int).Exp(b, big.NewInt(int64(scale)), nil))
			unscaled.Add(unscaled, f)
		}
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return Number{unscaled: unscaled, scale: scale}, nil
}

func pow10(n int) *big.Int {
	if n <= 0 {
		return big.NewInt(1)
	}
	return new(big.Int).Exp(bigTen, big.NewInt(int64(n)), nil)
}

func (n Number) int() *big.Int {
	if n.unscaled == nil {
		return bigZero
	}
	return n.unscaled
}

// upscale returns v * 10^by as a fresh big.Int.
func upscale(v *big.Int, by int) *big.Int {
	if by <= 0 {
		return new(big.Int).Set(v)
	}
	return new(big.Int).Mul(v, pow10(by))
}

func align(a, b Number) (*big.Int, *big.Int, int) {
	s := max(a.scale, b.scale)
	return upscale(a.int(), s-a.scale), upscale(b.int(), s-b.scale), s
}

// Scale reports the number of digits after the radix point.
func (n Number) Scale() int { return n.scale }

// Unscaled returns a copy of the signed unscaled magnitude.
func (n Number) Unscaled() *big.Int { return new(big.Int).Set(n.int()) }

// Sign returns -1, 0 or +1.
func (n Number) Sign() int { return n.int().Sign() }

// IsZero reports whether the value is zero at any scale.
func (n Number) IsZero() bool { return n.Sign() == 0 }

// IsInteger reports whether all fractional digits are zero.
func (n Number) IsInteger() bool {
	if n.scale == 0 {
		return true
	}
	return new(big.Int).Rem(n.int(), pow10(n.scale)).Sign() == 0
}

// Add returns a + b with scale max(a.scale, b.scale).
func (n Number) Add(b Number) Number {
	x, y, s := align(n, b)
	return Number{unscaled: x.Add(x, y), scale: s}
}

// Sub returns a - b with scale max(a.scale, b.scale).
func (n Number) Sub(b Number) Number {
	x, y, s := align(n, b)
	return Number{unscaled: x.Sub(x, y), scale: s}
}

// Mul returns the exact product; its scale is the sum of the operand scales.
func (n Number) Mul(b Number) Number {
	return Number{unscaled: new(big.Int).Mul(n.int(), b.int()), scale: n.scale + b.scale}
}

// Div returns n / b with exactly scale fractional digits, truncated toward zero.
func (n Number) Div(b Number, scale int) (Number, error) {
	if b.IsZero() {
		return Number{}, ErrDivisionByZero
	}
	if scale < 0 {
		scale = 0
	}
	num := upscale(n.int(), scale+b.scale)
	den := upscale(b.int(), n.scale)
	return Number{unscaled: num.Quo(num, den), scale: scale}, nil
}

// Mod returns n - (n / b) * b where the quotient is computed at scale.
// The result scale is max(scale + b.scale, n.scale).
func (n Number) Mod(b Number, scale int) (Number, error) {
	q, err := n.Div(b, scale)
	if err != nil {
		return Number{}, err
	}
	return n.Sub(q.Mul(b)), nil
}

// Pow raises n to a non-negative integer exponent. The result is exact.
func (n Number) Pow(e Number) (Number, error) {
	if !e.IsInteger() {
		return Number{}, fmt.Errorf("%w: non-integer exponent %s", ErrDomain, e)
	}
	k := new(big.Int).Quo(e.int(), pow10(e.scale))
	if k.Sign() < 0 {
		return Number{}, fmt.Errorf("%w: negative exponent %s", ErrDomain, e)
	}
	if !k.IsInt64() || k.Int64() > MaxExponent {
		return Number{}, fmt.Errorf("%w: exponent %s too large", ErrDomain, e)
	}
	exp := k.Int64()
	if int64(n.scale)*exp > MaxExponent {
		return Number{}, fmt.Errorf("%w: result scale too large", ErrDomain)
	}
	return Number{
		unscaled: new(big.Int).Exp(n.int(), k, nil),
		scale:    n.scale * int(exp),
	}, nil
}

// Sqrt returns the square root truncated to max(scale, n.scale) digits.
func (n Number) Sqrt(scale int) (Number, error) {
	if n.Sign() < 0 {
		return Number{}, fmt.Errorf("%w: square root of negative number %s", ErrDomain, n)
	}
	s := max(scale, n.scale)
	radicand := upscale(n.int(), 2*s-n.scale)
	return Number{unscaled: radicand.Sqrt(radicand), scale: s}, nil
}

// Neg returns -n.
func (n Number) Neg() Number {
	return Number{unscaled: new(big.Int).Neg(n.int()), scale: n.scale}
}

// Abs returns |n|.
func (n Number) Abs() Number {
	return Number{unscaled: new(big.Int).Abs(n.int()), scale: n.scale}
}

// Cmp compares values, ignoring scale: 1.50 and 1.5 are equal.
func (n Number) Cmp(b Number) int {
	x, y, _ := align(n, b)
	return x.Cmp(y)
}

// Equal reports whether n and b have the same value.
func (n Number) Equal(b Number) bool { return n.Cmp(b) == 0 }

// Truncate drops fractional digits beyond scale. It never adds digits.
func (n Number) Truncate(scale int) Number {
	if scale < 0 {
		scale = 0
	}
	if n.scale <= scale {
		return n
	}
	v := new(big.Int).Quo(n.int(), pow10(n.scale-scale))
	return Number{unscaled: v, scale: scale}
}

// Rescale returns n with exactly scale fractional digits, padding with zeros
// or truncating as needed.
func (n Number) Rescale(scale int) Number {
	if scale < 0 {
		scale = 0
	}
	if scale >= n.scale {
		return Number{unscaled: upscale(n.int(), scale-n.scale), scale: scale}
	}
	return n.Truncate(scale)
}

// Length is the number of significant decimal digits, as reported by bc's
// length() builtin.
func (n Number) Length() int {
	digits := len(new(big.Int).Abs(n.int()).String())
	return max(digits, n.scale)
}

// Int64 returns the integer part of n. ok is false when it does not fit.
func (n Number) Int64() (v int64, ok bool) {
	whole := new(big.Int).Quo(n.int(), pow10(n.scale))
	if !whole.IsInt64() {
		return 0, false
	}
	return whole.Int64(), true
}

// String formats n in base 10.
func (n Number) String() string { return n.Format(10) }

// Format renders n in base (2-16) using classic bc spelling: zero is "0",
// there is no leading zero before the radix point, and the fraction keeps
// its trailing zeros. Bases outside 2-16 format in base 10.
func (n Number) Format(base int) string {
	if base < 2 || base > 16 {
		base = 10
	}
	if n.IsZero() {
		return "0"
	}

	mag := new(big.Int).Abs(n.int())
	unit := pow10(n.scale)
	whole, frac := new(big.Int).QuoRem(mag, unit, new(big.Int))

	var b strings.Builder
	if n.Sign() < 0 {
		b.WriteByte('-')
	}
	if whole.Sign() != 0 {
		b.WriteString(strings.ToUpper(whole.Text(base)))
	}
	if n.scale == 0 {
		return b.String()
	}

	b.WriteByte('.')
	if base == 10 {
		digits := frac.String()
		b.WriteString(strings.Repeat("0", n.scale-len(digits)))
		b.WriteString(digits)
		return b.String()
	}

	bb := big.NewInt(int64(base))
	d := new(big.Int)
	for place := big.NewInt(1); place.Cmp(unit) < 0; place.Mul(place, bb) {
		frac.Mul(frac, bb)
		d.QuoRem(frac, unit, frac)
		b.WriteByte(digitChars[d.Int64()])
	}
	return b.String()
}

// WrapLines splits s into lines of width-1 characters, each continued with
// a trailing backslash. A width of 1 or less disables wrapping.
func WrapLines(s string, width int) string {
	if width <= 1 || len(s) < width {
		return s
	}
	step := width - 1
	var b strings.Builder
	for len(s) > step {
		b.WriteString(s[:step])
		b.WriteString("\\\n")
		s = s[step:]
	}
	b.WriteString(s)
	return b.String()
}
