package constants

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ParseUnits converts a decimal string such as "538000000" or "0.5" into its
// integer representation with the given number of decimals.
func ParseUnits(value string, decimals int) (*big.Int, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if value == "" {
		return nil, errors.New("empty amount")
	}
	if strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("negative amount %s", value)
	}

	whole, frac, _ := strings.Cut(value, ".")
	if whole+frac == "" || !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("invalid amount %s", value)
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("amount %s has more than %d decimals", value, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %s", value)
	}
	return n, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
