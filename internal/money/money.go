// Package money implements a fixed-point currency amount made of whole units and
// hundredths. No operation ever goes through binary floating point.
package money

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// HundredthsPerUnit is the number of hundredths in one whole unit.
const HundredthsPerUnit = 100

var ErrInvalidPrice = errors.New("invalid price")

var hundred = big.NewInt(HundredthsPerUnit)

// Money is an immutable non-negative amount. The zero value is 0.00.
// units is never mutated after construction and may be nil for zero.
type Money struct {
	units      *big.Int
	hundredths int64
}

// Zero returns 0.00.
func Zero() Money {
	return Money{}
}

// FromParts builds a Money, carrying any hundredths overflow into units.
func FromParts(units, hundredths int64) (Money, error) {
	if units < 0 || hundredths < 0 {
		return Money{}, fmt.Errorf("%w: negative part (%d, %d)", ErrInvalidPrice, units, hundredths)
	}
	return normalize(big.NewInt(units), big.NewInt(hundredths)), nil
}

// ParseParts builds a Money from two integer strings of any size, as they
// arrive in catalog JSON. Exponent forms such as "1e2" are accepted when they
// denote a whole number.
func ParseParts(units, hundredths string) (Money, error) {
	u, err := parseNonNegativeInt(units)
	if err != nil {
		return Money{}, fmt.Errorf("units %q: %w", units, err)
	}
	h, err := parseNonNegativeInt(hundredths)
	if err != nil {
		return Money{}, fmt.Errorf("hundredths %q: %w", hundredths, err)
	}
	return normalize(u, h), nil
}

// Parse reads an amount such as "2.40" or "7". At most two fractional digits are
// accepted; anything finer than a hundredth is rejected rather than rounded.
func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}
	if d.IsNegative() {
		return Money{}, fmt.Errorf("%w: negative amount %s", ErrInvalidPrice, s)
	}
	scaled := d.Shift(2)
	if !scaled.IsInteger() {
		return Money{}, fmt.Errorf("%w: %s has more than two decimal places", ErrInvalidPrice, s)
	}
	return normalize(big.NewInt(0), scaled.BigInt()), nil
}

func parseNonNegativeInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		d, err := decimal.NewFromString(s)
		if err != nil || !d.IsInteger() {
			return nil, fmt.Errorf("%w: not an integer", ErrInvalidPrice)
		}
		v = d.BigInt()
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative", ErrInvalidPrice)
	}
	return v, nil
}

// normalize takes ownership of both arguments.
func normalize(units, hundredths *big.Int) Money {
	carry, rest := new(big.Int).QuoRem(hundredths, hundred, new(big.Int))
	units.Add(units, carry)
	return Money{units: units, hundredths: rest.Int64()}
}

func (m Money) unitsOrZero() *big.Int {
	if m.units == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(m.units)
}

// Scale multiplies the amount by a quantity. It panics on a negative quantity.
func (m Money) Scale(quantity int) Money {
	if quantity < 0 {
		panic("money: negative quantity")
	}
	q := big.NewInt(int64(quantity))
	units := m.unitsOrZero()
	units.Mul(units, q)
	hundredths := new(big.Int).Mul(big.NewInt(m.hundredths), q)
	return normalize(units, hundredths)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	units := m.unitsOrZero()
	units.Add(units, other.unitsOrZero())
	return normalize(units, big.NewInt(m.hundredths+other.hundredths))
}

// Units returns a copy of the whole-unit part.
func (m Money) Units() *big.Int {
	return m.unitsOrZero()
}

func (m Money) Hundredths() int64 {
	return m.hundredths
}

// TotalHundredths returns units*100 + hundredths.
func (m Money) TotalHundredths() *big.Int {
	total := m.unitsOrZero()
	total.Mul(total, hundred)
	return total.Add(total, big.NewInt(m.hundredths))
}

// Equal reports whether m and other are the same amount.
func (m Money) Equal(other Money) bool {
	return m.TotalHundredths().Cmp(other.TotalHundredths()) == 0
}

// Format renders the amount as "{units}.{hundredths:02}".
func (m Money) Format() string {
	return fmt.Sprintf("%s.%02d", m.unitsOrZero().String(), m.hundredths)
}

func (m Money) String() string {
	return m.Format()
}
