// Package storage defines persistence contracts for relay state and its
// record log.
package storage

import (
	"context"
	"errors"
	"slices"

	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// ErrNotFound indicates no relay state has been initialized yet.
var ErrNotFound = errors.New("relay state not found")

// ErrAlreadyInitialized indicates InitState was called on an initialized store.
var ErrAlreadyInitialized = errors.New("relay state already initialized")

// StateStore loads and seeds the relay state.
type StateStore interface {
	LoadState(ctx context.Context) (domain.State, error)
	InitState(ctx context.Context, state domain.State) error
}

// Committer persists a state change and its record in one transaction.
type Committer interface {
	Commit(ctx context.Context, state domain.State, record domain.Record) (domain.Record, error)
}

// RecordFilter narrows a record listing. Zero values match everything.
type RecordFilter struct {
	Kinds []domain.Kind
	// Participant matches records whose actor or addressee is the identity.
	Participant identity.Address
	// Recipient matches connection records addressed to the identity.
	Recipient identity.Address
	// AfterSeq skips records at or below this sequence number.
	AfterSeq int64
}

// Matches reports whether record passes the filter. It mirrors the
// conditions stores apply when listing.
func (f RecordFilter) Matches(record domain.Record) bool {
	if record.Seq <= f.AfterSeq {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, record.Kind) {
		return false
	}
	if !f.Participant.IsZero() && !slices.Contains(record.Participants(), f.Participant) {
		return false
	}
	if !f.Recipient.IsZero() && record.To != f.Recipient {
		return false
	}
	return true
}

// RecordPage stores a page of records ordered by sequence.
type RecordPage struct {
	Records       []domain.Record
	NextPageToken string
}

// RecordStore reads the append-only record log.
type RecordStore interface {
	ListRecords(ctx context.Context, filter RecordFilter, pageSize int, pageToken string) (RecordPage, error)
}

// Store is the full relay persistence surface.
type Store interface {
	StateStore
	Committer
	RecordStore
}
