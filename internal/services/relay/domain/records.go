package domain

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"github.com/multiformats/go-multihash"
)

// Kind names an observable record type.
type Kind string

const (
	KindConnectionRequest            Kind = "connection_request"
	KindConnectionResponse           Kind = "connection_response"
	KindRequestsPauseChanged         Kind = "requests_pause_changed"
	KindResponsesPauseChanged        Kind = "responses_pause_changed"
	KindAdminWithdrawalsPauseChanged Kind = "admin_withdrawals_pause_changed"
	KindFeeChanged                   Kind = "fee_changed"
	KindTokensWithdrawn              Kind = "tokens_withdrawn"
	KindFeeTokenChanged              Kind = "fee_token_changed"
	KindAdminAdded                   Kind = "admin_added"
	KindAdminRemoved                 Kind = "admin_removed"
	KindAdminResigned                Kind = "admin_resigned"
	KindOwnershipTransferred         Kind = "ownership_transferred"
)

var knownKinds = map[Kind]struct{}{
	KindConnectionRequest:            {},
	KindConnectionResponse:           {},
	KindRequestsPauseChanged:         {},
	KindResponsesPauseChanged:        {},
	KindAdminWithdrawalsPauseChanged: {},
	KindFeeChanged:                   {},
	KindTokensWithdrawn:              {},
	KindFeeTokenChanged:              {},
	KindAdminAdded:                   {},
	KindAdminRemoved:                 {},
	KindAdminResigned:                {},
	KindOwnershipTransferred:         {},
}

// ParseKind validates a record kind name.
func ParseKind(value string) (Kind, error) {
	kind := Kind(value)
	if _, ok := knownKinds[kind]; !ok {
		return "", invalidArgument("kind")
	}
	return kind, nil
}

// Record is one emitted audit entry. Which optional fields are set depends on
// Kind:
//
//	connection_request        Actor=sender To PublicKey Payload
//	connection_response       Actor=sender To Response
//	*_pause_changed           Actor Paused
//	fee_changed               Actor Amount=new fee
//	tokens_withdrawn          Actor Token Amount To=recipient
//	fee_token_changed         Actor Previous Subject=new token
//	admin_added/removed       Actor Subject=admin
//	admin_resigned            Actor
//	ownership_transferred     Actor Previous=old owner Subject=new owner
type Record struct {
	Seq       int64            `json:"seq,omitempty"`
	ID        string           `json:"id,omitempty"`
	Kind      Kind             `json:"kind"`
	Time      time.Time        `json:"time"`
	Actor     identity.Address `json:"actor"`
	To        identity.Address `json:"to,omitzero"`
	Subject   identity.Address `json:"subject,omitzero"`
	Previous  identity.Address `json:"previous,omitzero"`
	Token     identity.Address `json:"token,omitzero"`
	Amount    *big.Int         `json:"amount,omitempty"`
	Paused    bool             `json:"paused,omitempty"`
	PublicKey string           `json:"public_key,omitempty"`
	Payload   []byte           `json:"payload,omitempty"`
	Response  []byte           `json:"response,omitempty"`
}

// Participants returns the actor followed by the recipient and subject when
// set. A replaced owner or fee token is not a participant.
func (r Record) Participants() []identity.Address {
	out := []identity.Address{r.Actor}
	for _, addr := range []identity.Address{r.To, r.Subject} {
		if !addr.IsZero() && addr != r.Actor {
			out = append(out, addr)
		}
	}
	return out
}

// CanonicalJSON encodes the record without its Seq and ID. The encoding is
// stable: struct field order is fixed and time is normalized to UTC.
func (r Record) CanonicalJSON() ([]byte, error) {
	r.Seq = 0
	r.ID = ""
	r.Time = r.Time.UTC()
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// RecordID returns the CIDv1 (raw codec, sha2-256) of the record's canonical
// JSON. Equal records share an ID regardless of where they were sequenced.
func RecordID(r Record) (string, error) {
	data, err := r.CanonicalJSON()
	if err != nil {
		return "", err
	}
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hash record: %w", err)
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// VerifyRecordID reports whether r.ID matches its content.
func VerifyRecordID(r Record) bool {
	want, err := RecordID(r)
	return err == nil && want == r.ID
}
