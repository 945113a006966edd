// Package identity defines relay identities (20-byte addresses) and token amounts.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// AddressLength is the byte length of an address.
const AddressLength = 20

var (
	// ErrInvalidAddress indicates the input is not 20 hex-encoded bytes.
	ErrInvalidAddress = errors.New("invalid address")
	// ErrBadChecksum indicates a mixed-case address whose casing does not match
	// its EIP-55 checksum.
	ErrBadChecksum = errors.New("address checksum mismatch")
)

// Address identifies a caller, a token or the relay itself.
type Address [AddressLength]byte

// Zero is the null identity.
var Zero Address

// ParseAddress parses a 0x-prefixed or bare 40-character hex address.
// All-lowercase and all-uppercase inputs are accepted as-is; mixed case must
// carry a valid EIP-55 checksum.
func ParseAddress(value string) (Address, error) {
	value = strings.TrimSpace(value)
	digits := value
	if len(digits) >= 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}
	if len(digits) != AddressLength*2 {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAddress, value)
	}
	var addr Address
	if _, err := hex.Decode(addr[:], []byte(digits)); err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAddress, value)
	}
	if isMixedCase(digits) && addr.checksumHex() != digits {
		return Zero, fmt.Errorf("%w: %q", ErrBadChecksum, value)
	}
	return addr, nil
}

// MustParseAddress is ParseAddress for compile-time constants; it panics on error.
func MustParseAddress(value string) Address {
	addr, err := ParseAddress(value)
	if err != nil {
		panic(err)
	}
	return addr
}

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// String renders the EIP-55 checksummed 0x form.
func (a Address) String() string {
	return "0x" + a.checksumHex()
}

// Hex renders the lowercase 0x form used as a storage key.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Address) checksumHex() string {
	lower := hex.EncodeToString(a[:])
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lower))
	digest := hasher.Sum(nil)

	out := []byte(lower)
	for i := range out {
		if out[i] < 'a' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] -= 'a' - 'A'
		}
	}
	return string(out)
}

func isMixedCase(digits string) bool {
	return strings.ToLower(digits) != digits && strings.ToUpper(digits) != digits
}
