package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Money is an amount of currency in cents.
type Money int64

// maxMoneyUnits keeps parsed amounts within the int64 range of cents.
const maxMoneyUnits = 9e16

func NewMoney(units float64) Money {
	if units < 0 {
		return Money(units*100 - 0.5)
	}
	return Money(units*100 + 0.5)
}

// Float returns the amount in currency units.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// String formats the amount with 2 decimals, eg: "-1234.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// ParseMoney parses a decimal amount, eg: "1234.5" or "1,234.50".
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(CleanString(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxMoneyUnits {
		return 0, errors.Errorf("invalid amount %q", s)
	}
	return NewMoney(f), nil
}

// Percent returns part/total as a percentage rounded to 1 decimal; 0 when total is 0.
func Percent(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	p := part / total * 100
	return float64(int64(p*10+0.5)) / 10
}
