package common

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SOLDecimals = 9 // SOL has 9 decimals (lamports)

	LamportsPerSOL uint64 = 1_000_000_000
)

// LamportsToSOL converts lamports to SOL string without float precision loss
func LamportsToSOL(lamports uint64) string {
	return FormatAmount(lamports, SOLDecimals)
}

// SOLToLamports converts SOL string to lamports without float precision loss
func SOLToLamports(sol string) (uint64, error) {
	return ParseAmount(sol, SOLDecimals)
}

// FormatAmount converts integer base units to a decimal string by inserting
// the decimal point.
// Example: FormatAmount(24981836, 9) = "0.024981836"
func FormatAmount(value uint64, decimals int) string {
	s := strconv.FormatUint(value, 10)
	if decimals <= 0 {
		return s
	}

	// Pad with leading zeros if needed
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	pos := len(s) - decimals
	return s[:pos] + "." + s[pos:]
}

// ParseAmount converts a decimal string to integer base units.
// Example: ParseAmount("0.024981836", 9) = 24981836
func ParseAmount(s string, decimals int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	whole, frac, hasPoint := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return 0, fmt.Errorf("invalid decimal format")
	}
	if whole == "" {
		whole = "0"
	}
	if hasPoint && frac == "" {
		return 0, fmt.Errorf("invalid decimal format")
	}

	if len(frac) > decimals {
		// Digits beyond the mint precision are only accepted as zeros.
		if strings.Trim(frac[decimals:], "0") != "" {
			return 0, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
		}
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	n, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return n, nil
}

// CompareAmounts compares two decimal string amounts without float precision loss.
// Returns: -1 if a < b, 0 if a == b, 1 if a > b, and error if parsing fails
func CompareAmounts(a, b string, decimals int) (int, error) {
	aVal, err := ParseAmount(a, decimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", a, err)
	}

	bVal, err := ParseAmount(b, decimals)
	if err != nil {
		return 0, fmt.Errorf("failed to parse amount '%s': %w", b, err)
	}

	if aVal < bVal {
		return -1, nil
	}
	if aVal > bVal {
		return 1, nil
	}
	return 0, nil
}
