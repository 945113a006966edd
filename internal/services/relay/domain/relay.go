package domain

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/louisbranch/connect-relay/internal/services/relay/domain"

// Store persists a state together with the record that produced it.
// Commit assigns the record's sequence number.
type Store interface {
	Commit(ctx context.Context, state State, record Record) (Record, error)
}

// Publisher receives committed records.
type Publisher interface {
	Publish(record Record)
}

// Config wires a Relay to its collaborators.
type Config struct {
	Store     Store
	Tokens    TokenResolver
	Publisher Publisher
	// Custody is the relay's own identity: fees are paid to it and
	// withdrawals are paid from it.
	Custody identity.Address
	Clock   func() time.Time
}

// Relay owns the relay state. Calls are serialized; each one either commits a
// new state with exactly one record or leaves everything untouched.
type Relay struct {
	mu        sync.Mutex
	state     State
	store     Store
	tokens    TokenResolver
	publisher Publisher
	custody   identity.Address
	clock     func() time.Time
	tracer    trace.Tracer
}

// New builds a Relay over a previously initialized or loaded state.
func New(state State, cfg Config) (*Relay, error) {
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("validate state: %w", err)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Custody.IsZero() {
		return nil, fmt.Errorf("custody address is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Relay{
		state:     state.Clone(),
		store:     cfg.Store,
		tokens:    cfg.Tokens,
		publisher: cfg.Publisher,
		custody:   cfg.Custody,
		clock:     clock,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Snapshot returns a copy of the current state.
func (r *Relay) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Clone()
}

// IsOwner reports whether addr is the owner.
func (r *Relay) IsOwner(addr identity.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return IsOwner(r.state, addr)
}

// IsAdmin reports whether addr is an admin.
func (r *Relay) IsAdmin(addr identity.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return IsAdmin(r.state, addr)
}

// IsRequestsPaused reports whether connection requests are paused.
func (r *Relay) IsRequestsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.RequestsPaused
}

// IsResponsesPaused reports whether connection responses are paused.
func (r *Relay) IsResponsesPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.ResponsesPaused
}

// IsAdminWithdrawalsPaused reports whether admin withdrawals are paused.
func (r *Relay) IsAdminWithdrawalsPaused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.AdminWithdrawalsPaused
}

// RequestFee returns the current fee per connection request.
func (r *Relay) RequestFee() *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return identity.CloneAmount(r.state.FeeAmount)
}

// FeeToken returns the token fees are collected in.
func (r *Relay) FeeToken() identity.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.FeeToken
}

// Custody returns the relay's own identity.
func (r *Relay) Custody() identity.Address {
	return r.custody
}

// TransferOwnership hands the owner role to newOwner. Admin membership of
// both identities is left as it was.
func (r *Relay) TransferOwnership(ctx context.Context, caller, newOwner identity.Address) (Record, error) {
	return r.run(ctx, "TransferOwnership", caller, func(ctx context.Context) (Record, error) {
		if err := RequireOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		if newOwner.IsZero() {
			return Record{}, invalidArgument("new_owner")
		}
		next := r.state.Clone()
		next.Owner = newOwner
		return r.commit(ctx, next, Record{
			Kind:     KindOwnershipTransferred,
			Actor:    caller,
			Previous: r.state.Owner,
			Subject:  newOwner,
		})
	})
}

// AddAdmin inserts admin into the admin set.
func (r *Relay) AddAdmin(ctx context.Context, caller, admin identity.Address) (Record, error) {
	return r.run(ctx, "AddAdmin", caller, func(ctx context.Context) (Record, error) {
		if err := RequireOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		if admin.IsZero() {
			return Record{}, invalidArgument("admin")
		}
		if r.state.Admins.Has(admin) {
			return Record{}, alreadyAdmin(admin)
		}
		next := r.state.Clone()
		next.Admins.Add(admin)
		return r.commit(ctx, next, Record{Kind: KindAdminAdded, Actor: caller, Subject: admin})
	})
}

// RemoveAdmin deletes admin from the admin set.
func (r *Relay) RemoveAdmin(ctx context.Context, caller, admin identity.Address) (Record, error) {
	return r.run(ctx, "RemoveAdmin", caller, func(ctx context.Context) (Record, error) {
		if err := RequireOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		if !r.state.Admins.Has(admin) {
			return Record{}, notAdmin(admin)
		}
		next := r.state.Clone()
		next.Admins.Remove(admin)
		return r.commit(ctx, next, Record{Kind: KindAdminRemoved, Actor: caller, Subject: admin})
	})
}

// ResignAdmin removes the caller, and only the caller, from the admin set.
// An owner who resigns keeps the owner role.
func (r *Relay) ResignAdmin(ctx context.Context, caller identity.Address) (Record, error) {
	return r.run(ctx, "ResignAdmin", caller, func(ctx context.Context) (Record, error) {
		if err := RequireAdmin(r.state, caller); err != nil {
			return Record{}, err
		}
		next := r.state.Clone()
		next.Admins.Remove(caller)
		return r.commit(ctx, next, Record{Kind: KindAdminResigned, Actor: caller})
	})
}

// SetRequestsPaused turns the connection request switch on or off.
func (r *Relay) SetRequestsPaused(ctx context.Context, caller identity.Address, value bool) (Record, error) {
	return r.run(ctx, "SetRequestsPaused", caller, func(ctx context.Context) (Record, error) {
		if err := RequireAdmin(r.state, caller); err != nil {
			return Record{}, err
		}
		next := r.state.Clone()
		next.RequestsPaused = value
		return r.commit(ctx, next, Record{Kind: KindRequestsPauseChanged, Actor: caller, Paused: value})
	})
}

// SetResponsesPaused turns the connection response switch on or off.
func (r *Relay) SetResponsesPaused(ctx context.Context, caller identity.Address, value bool) (Record, error) {
	return r.run(ctx, "SetResponsesPaused", caller, func(ctx context.Context) (Record, error) {
		if err := RequireAdmin(r.state, caller); err != nil {
			return Record{}, err
		}
		next := r.state.Clone()
		next.ResponsesPaused = value
		return r.commit(ctx, next, Record{Kind: KindResponsesPauseChanged, Actor: caller, Paused: value})
	})
}

// SetAdminWithdrawalsPaused flips the withdrawal switch. It never blocks the
// owner's own withdrawals.
func (r *Relay) SetAdminWithdrawalsPaused(ctx context.Context, caller identity.Address, value bool) (Record, error) {
	return r.run(ctx, "SetAdminWithdrawalsPaused", caller, func(ctx context.Context) (Record, error) {
		if err := RequireOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		next := r.state.Clone()
		next.AdminWithdrawalsPaused = value
		return r.commit(ctx, next, Record{Kind: KindAdminWithdrawalsPauseChanged, Actor: caller, Paused: value})
	})
}

// SetRequestFee overwrites the request fee. Zero disables fee collection.
func (r *Relay) SetRequestFee(ctx context.Context, caller identity.Address, amount *big.Int) (Record, error) {
	return r.run(ctx, "SetRequestFee", caller, func(ctx context.Context) (Record, error) {
		if err := RequireAdmin(r.state, caller); err != nil {
			return Record{}, err
		}
		if amount == nil || amount.Sign() < 0 {
			return Record{}, invalidArgument("fee")
		}
		next := r.state.Clone()
		next.FeeAmount = identity.CloneAmount(amount)
		return r.commit(ctx, next, Record{Kind: KindFeeChanged, Actor: caller, Amount: identity.CloneAmount(amount)})
	})
}

// SetFeeToken changes which token fees are collected in.
func (r *Relay) SetFeeToken(ctx context.Context, caller, token identity.Address) (Record, error) {
	return r.run(ctx, "SetFeeToken", caller, func(ctx context.Context) (Record, error) {
		if err := RequireOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		if token.IsZero() {
			return Record{}, invalidArgument("fee_token")
		}
		next := r.state.Clone()
		next.FeeToken = token
		return r.commit(ctx, next, Record{
			Kind:     KindFeeTokenChanged,
			Actor:    caller,
			Previous: r.state.FeeToken,
			Subject:  token,
		})
	})
}

// SendConnectionRequest emits a connection request to to. When the fee is
// positive it is pulled from caller into custody first; the record is only
// emitted once the fee is held.
func (r *Relay) SendConnectionRequest(ctx context.Context, caller, to identity.Address, publicKey string, payload []byte) (Record, error) {
	return r.run(ctx, "SendConnectionRequest", caller, func(ctx context.Context) (Record, error) {
		if r.state.RequestsPaused {
			return Record{}, paused(operationRequests)
		}
		if err := checkRecipient(caller, to); err != nil {
			return Record{}, err
		}
		record := Record{
			Kind:      KindConnectionRequest,
			Actor:     caller,
			To:        to,
			PublicKey: publicKey,
			Payload:   append([]byte(nil), payload...),
		}
		fee := identity.CloneAmount(r.state.FeeAmount)
		if fee.Sign() == 0 {
			return r.commit(ctx, r.state.Clone(), record)
		}

		token, err := resolveToken(ctx, r.tokens, r.state.FeeToken)
		if err != nil {
			return Record{}, err
		}
		if token == nil {
			return Record{}, apperrors.WithMetadata(apperrors.CodeTransferFailed, "fee token is not registered", map[string]string{
				"Token": r.state.FeeToken.String(),
			})
		}
		ok, err := token.TransferFrom(ctx, r.custody, caller, r.custody, fee)
		if err := transferResult("collect fee", ok, err); err != nil {
			return Record{}, err
		}
		committed, err := r.commit(ctx, r.state.Clone(), record)
		if err != nil {
			r.refund(ctx, token, caller, fee)
			return Record{}, err
		}
		return committed, nil
	})
}

// SendConnectionResponse emits a response to to. There is no fee and no
// check that a matching request was ever sent.
func (r *Relay) SendConnectionResponse(ctx context.Context, caller, to identity.Address, response []byte) (Record, error) {
	return r.run(ctx, "SendConnectionResponse", caller, func(ctx context.Context) (Record, error) {
		if r.state.ResponsesPaused {
			return Record{}, paused(operationResponses)
		}
		if err := checkRecipient(caller, to); err != nil {
			return Record{}, err
		}
		return r.commit(ctx, r.state.Clone(), Record{
			Kind:     KindConnectionResponse,
			Actor:    caller,
			To:       to,
			Response: append([]byte(nil), response...),
		})
	})
}

// WithdrawTokens pays amount of any token held in custody to recipient.
// Admins are blocked while admin withdrawals are paused; the owner is not.
func (r *Relay) WithdrawTokens(ctx context.Context, caller, tokenAddr identity.Address, amount *big.Int, recipient identity.Address) (Record, error) {
	return r.run(ctx, "WithdrawTokens", caller, func(ctx context.Context) (Record, error) {
		if err := RequireAdminOrOwner(r.state, caller); err != nil {
			return Record{}, err
		}
		if err := requireWithdrawalsOpen(r.state, caller, true); err != nil {
			return Record{}, err
		}
		if recipient.IsZero() {
			return Record{}, invalidArgument("recipient")
		}
		if amount == nil || amount.Sign() <= 0 {
			return Record{}, invalidArgument("amount")
		}

		token, err := resolveToken(ctx, r.tokens, tokenAddr)
		if err != nil {
			return Record{}, err
		}
		// Custody holds nothing of an unregistered token.
		balance := new(big.Int)
		if token != nil {
			if balance, err = token.BalanceOf(ctx, r.custody); err != nil {
				return Record{}, apperrors.Wrap(apperrors.CodeTransferFailed, "query custody balance", err)
			}
		}
		if balance.Cmp(amount) < 0 {
			return Record{}, apperrors.WithMetadata(apperrors.CodeInsufficientBalance, "custody balance below amount", map[string]string{
				"Balance": identity.FormatAmount(balance),
				"Amount":  identity.FormatAmount(amount),
				"Token":   tokenAddr.String(),
			})
		}
		ok, err := token.Transfer(ctx, r.custody, recipient, amount)
		if err := transferResult("withdraw", ok, err); err != nil {
			return Record{}, err
		}
		committed, err := r.commit(ctx, r.state.Clone(), Record{
			Kind:   KindTokensWithdrawn,
			Actor:  caller,
			Token:  tokenAddr,
			Amount: identity.CloneAmount(amount),
			To:     recipient,
		})
		if err != nil {
			log.Printf("withdrawal of %s %s to %s transferred but not recorded: %v", amount, tokenAddr, recipient, err)
			return Record{}, err
		}
		return committed, nil
	})
}

func checkRecipient(caller, to identity.Address) error {
	if to.IsZero() {
		return invalidArgument("to")
	}
	if to == caller {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "recipient is the caller", map[string]string{"Field": "to"})
	}
	return nil
}

// run serializes one call and traces it.
func (r *Relay) run(ctx context.Context, op string, caller identity.Address, fn func(context.Context) (Record, error)) (Record, error) {
	ctx, span := r.tracer.Start(ctx, "relay."+op, trace.WithAttributes(
		attribute.String("relay.caller", caller.String()),
	))
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return Record{}, err
	}
	if caller.IsZero() {
		err := apperrors.New(apperrors.CodeCallerMissing, "caller is required")
		span.SetStatus(otelcodes.Error, string(apperrors.CodeCallerMissing))
		return Record{}, err
	}
	record, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, string(apperrors.CodeOf(err)))
		return Record{}, err
	}
	span.SetAttributes(
		attribute.String("relay.record.kind", string(record.Kind)),
		attribute.Int64("relay.record.seq", record.Seq),
	)
	return record, nil
}

// commit stamps, persists and publishes record, then adopts next as the
// current state. Callers hold r.mu.
func (r *Relay) commit(ctx context.Context, next State, record Record) (Record, error) {
	record.Time = r.clock().UTC()
	id, err := RecordID(record)
	if err != nil {
		return Record{}, err
	}
	record.ID = id
	committed, err := r.store.Commit(ctx, next, record)
	if err != nil {
		return Record{}, fmt.Errorf("commit %s: %w", record.Kind, err)
	}
	r.state = next
	if r.publisher != nil {
		r.publisher.Publish(committed)
	}
	return committed, nil
}

// refund returns a collected fee when its record could not be committed.
func (r *Relay) refund(ctx context.Context, token Token, payer identity.Address, fee *big.Int) {
	ok, err := token.Transfer(context.WithoutCancel(ctx), r.custody, payer, fee)
	if err := transferResult("refund fee", ok, err); err != nil {
		log.Printf("refund %s to %s: %v", fee, payer, err)
	}
}
