package identity

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrInvalidAmount indicates an amount that is not a non-negative decimal
// integer within the 256-bit wire range.
var ErrInvalidAmount = errors.New("invalid amount")

// MaxAmount is the largest amount representable on the wire (2^256 - 1).
var MaxAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseAmount parses a non-negative base-10 amount of token base units.
func ParseAmount(value string) (*big.Int, error) {
	amount, err := ParseUnboundedAmount(value)
	if err != nil {
		return nil, err
	}
	if amount.Cmp(MaxAmount) > 0 {
		return nil, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, value)
	}
	return amount, nil
}

// ParseUnboundedAmount is ParseAmount without the wire range limit. It reads
// values such as the request fee, which has no upper bound.
func ParseUnboundedAmount(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, value)
	}
	return amount, nil
}

// FormatAmount renders an amount in base 10; nil renders as "0".
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// CloneAmount returns an independent copy; nil becomes zero.
func CloneAmount(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount)
}
