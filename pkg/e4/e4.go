// Package e4 provides the fixed-point decimal arithmetic used for jog distances
// and feed rates. An E4 value carries four fractional decimal digits.
package e4

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// E4 is a signed decimal scaled by 10^4.
type E4 int64

// Scale is the number of E4 units in one whole unit.
const Scale = 10000

// MaxDecimals is the largest number of fractional digits Format can produce.
const MaxDecimals = 4

var pow10 = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000, 10000000000}

// FromInt converts a whole number to E4.
func FromInt(i int) E4 {
	return E4(int64(i) * Scale)
}

// Power10 returns 10^n. Exponents below -MaxDecimals underflow to zero.
func Power10(n int) E4 {
	exp := n + MaxDecimals
	if exp < 0 {
		return 0
	}
	if exp >= len(pow10) {
		exp = len(pow10) - 1
	}
	return E4(pow10[exp])
}

// Magnitude combines two values into their Euclidean resultant sqrt(a²+b²).
func Magnitude(a, b E4) E4 {
	return E4(math.Round(math.Hypot(float64(a), float64(b))))
}

// Abs returns the absolute value.
func (v E4) Abs() E4 {
	if v < 0 {
		return -v
	}
	return v
}

// Float returns v as a float64 in whole units.
func (v E4) Float() float64 {
	return float64(v) / Scale
}

// Format renders v with exactly decimals fractional digits, rounding half away
// from zero. decimals is clamped to [0, MaxDecimals].
func (v E4) Format(decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	if decimals > MaxDecimals {
		decimals = MaxDecimals
	}

	div := pow10[MaxDecimals-decimals]
	abs := int64(v.Abs())
	q := (abs + div/2) / div

	sign := ""
	if v < 0 && q != 0 {
		sign = "-"
	}

	if decimals == 0 {
		return sign + strconv.FormatInt(q, 10)
	}
	unit := pow10[decimals]
	return fmt.Sprintf("%s%d.%0*d", sign, q/unit, decimals, q%unit)
}

// String formats v with all four fractional digits.
func (v E4) String() string {
	return v.Format(MaxDecimals)
}

// Parse reads a plain decimal such as "-12.5" or "3". Digits past the fourth
// fractional place are rounded.
func Parse(s string) (E4, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty decimal")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	return E4(math.Round(f * Scale)), nil
}
