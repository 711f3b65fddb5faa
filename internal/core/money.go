// Package core holds the expense domain: records, filters, period resolution,
// aggregation, budget evaluation and split allocation. Nothing in this package
// performs I/O.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxAmount bounds a single parsed amount so totals stay finite.
const MaxAmount = 1e12

// ParseAmount parses a stored or typed amount. It accepts a dot or comma
// decimal separator, a leading currency symbol and thousands grouping with the
// other separator ("1,234.50", "1.234,56"). Anything else is rejected rather
// than reinterpreted: signs, exponents, malformed grouping, values above
// MaxAmount, and a lone comma followed by exactly three digits ("1,234"),
// which could be either a grouping or a decimal separator.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("$1,200.5") -> 1200.5, nil
//	ParseAmount("1.234,56") -> 1234.56, nil
//	ParseAmount("1e3")      -> 0, ErrMalformedRecord
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£ ")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrMalformedRecord)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative amount %q", ErrMalformedRecord, s)
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return 0, fmt.Errorf("%w: amount %q is not a number", ErrMalformedRecord, s)
		}
	}

	intPart, frac, ok := splitAmount(s)
	if !ok {
		return 0, fmt.Errorf("%w: ambiguous or malformed amount %q", ErrMalformedRecord, s)
	}
	digits := intPart
	if frac != "" {
		digits += "." + frac
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil || math.IsInf(f, 0) || f > MaxAmount {
		return 0, fmt.Errorf("%w: amount %q out of range", ErrMalformedRecord, s)
	}
	return f, nil
}

// splitAmount separates the integer digits (grouping removed) from the
// fractional digits of s, which holds only digits, dots and commas.
func splitAmount(s string) (intPart, frac string, ok bool) {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	var group, dec string
	switch {
	case dots == 0 && commas == 0:
		return s, "", true
	case dots > 0 && commas > 0:
		// The separator used last is the decimal one.
		group, dec = ".", ","
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			group, dec = ",", "."
		}
		if strings.Count(s, dec) != 1 {
			return "", "", false
		}
	case dots > 1:
		group = "."
	case commas > 1:
		group = ","
	case dots == 1:
		dec = "."
	default:
		if len(s)-strings.Index(s, ",")-1 == 3 {
			return "", "", false
		}
		dec = ","
	}

	intPart = s
	if dec != "" {
		i := strings.LastIndex(s, dec)
		intPart, frac = s[:i], s[i+1:]
		if frac == "" {
			return "", "", false
		}
	}
	if group != "" {
		groups := strings.Split(intPart, group)
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return "", "", false
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return "", "", false
			}
		}
		intPart = strings.Join(groups, "")
	}
	if intPart == "" {
		intPart = "0"
	}
	return intPart, frac, true
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(f float64) float64 {
	return math.Round(f*100) / 100
}

// FormatAmount renders an amount with two decimals, as written to the store.
func FormatAmount(f float64) string {
	return strconv.FormatFloat(RoundCents(f), 'f', 2, 64)
}

// FormatCurrency prefixes the two-decimal amount with symbol ("$12.50").
func FormatCurrency(symbol string, f float64) string {
	return symbol + FormatAmount(f)
}
