// Package domain implements the relay's privileged state machine: the
// owner/admin role model, the pause switches, fee parameters, the two relay
// operations and the custody withdrawal path.
package domain

import (
	"math/big"
	"sort"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// AdminSet is a presence set of admin identities.
type AdminSet map[identity.Address]struct{}

// Has reports membership.
func (s AdminSet) Has(addr identity.Address) bool {
	_, ok := s[addr]
	return ok
}

// Add inserts addr.
func (s AdminSet) Add(addr identity.Address) {
	s[addr] = struct{}{}
}

// Remove deletes addr.
func (s AdminSet) Remove(addr identity.Address) {
	delete(s, addr)
}

// Members returns the members ordered by their lowercase hex form.
func (s AdminSet) Members() []identity.Address {
	members := make([]identity.Address, 0, len(s))
	for addr := range s {
		members = append(members, addr)
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Hex() < members[j].Hex()
	})
	return members
}

// State is the whole persistent state of a relay.
type State struct {
	Owner                  identity.Address
	Admins                 AdminSet
	RequestsPaused         bool
	ResponsesPaused        bool
	AdminWithdrawalsPaused bool
	FeeAmount              *big.Int
	FeeToken               identity.Address
}

// NewState builds the initial state for a relay deployed by initializer: the
// initializer owns the relay and is its only admin, nothing is paused and the
// fee parameters carry their defaults.
func NewState(initializer identity.Address) (State, error) {
	if initializer.IsZero() {
		return State{}, invalidArgument("initializer")
	}
	return State{
		Owner:     initializer,
		Admins:    AdminSet{initializer: {}},
		FeeAmount: identity.DefaultFeeAmount(),
		FeeToken:  identity.DefaultFeeToken,
	}, nil
}

// Clone returns a deep copy that shares nothing with s.
func (s State) Clone() State {
	clone := s
	clone.Admins = make(AdminSet, len(s.Admins))
	for addr := range s.Admins {
		clone.Admins[addr] = struct{}{}
	}
	clone.FeeAmount = identity.CloneAmount(s.FeeAmount)
	return clone
}

// Validate checks the invariants a loaded state must satisfy.
func (s State) Validate() error {
	if s.Owner.IsZero() {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "owner is null", map[string]string{"Field": "owner"})
	}
	if s.FeeToken.IsZero() {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "fee token is null", map[string]string{"Field": "fee_token"})
	}
	if s.FeeAmount == nil || s.FeeAmount.Sign() < 0 {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "fee amount is negative", map[string]string{"Field": "fee"})
	}
	return nil
}
