package identity

import "math/big"

// DefaultFeeToken is the fee token configured at initialization.
var DefaultFeeToken = MustParseAddress("0x5b38da6a701c568545dcfcb03fcb875f56beddc4")

// DefaultCustody is the relay's own holding address when none is configured.
var DefaultCustody = MustParseAddress("0xd9145cce52d386f254917e481eb44e9943f39138")

// DefaultFeeAmount returns the initial request fee: 10^19 base units.
func DefaultFeeAmount() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(19), nil)
}
