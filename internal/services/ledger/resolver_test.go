package ledger

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	relaysqlite "github.com/louisbranch/connect-relay/internal/services/relay/storage/sqlite"
)

// newLedgerRelay builds a relay whose default fee token is absent from the
// ledger, the way a fresh deployment without genesis starts.
func newLedgerRelay(t *testing.T) (*domain.Relay, *Ledger) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.db")
	store, err := relaysqlite.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	l, err := Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	state, err := domain.NewState(issuer)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := store.InitState(context.Background(), state); err != nil {
		t.Fatalf("init state: %v", err)
	}
	relay, err := domain.New(state, domain.Config{
		Store:   store,
		Tokens:  Resolver{Ledger: l},
		Custody: identity.DefaultCustody,
		Clock:   func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return relay, l
}

func TestResolverUnregisteredFeeTokenFailsTransfer(t *testing.T) {
	relay, _ := newLedgerRelay(t)
	_, err := relay.SendConnectionRequest(context.Background(), spender, receiver, "pk", nil)
	if !apperrors.HasCode(err, apperrors.CodeTransferFailed) {
		t.Fatalf("error = %v, want TRANSFER_FAILED", err)
	}
	if got := apperrors.MetadataOf(err)["Token"]; got != identity.DefaultFeeToken.String() {
		t.Fatalf("token metadata = %q", got)
	}
}

func TestResolverUnregisteredWithdrawIsInsufficientBalance(t *testing.T) {
	relay, _ := newLedgerRelay(t)
	_, err := relay.WithdrawTokens(context.Background(), issuer, tokenAddr, big.NewInt(1), receiver)
	if !apperrors.HasCode(err, apperrors.CodeInsufficientBalance) {
		t.Fatalf("error = %v, want INSUFFICIENT_BALANCE", err)
	}
}

func TestResolverRegisteredFeeTokenCollectsFee(t *testing.T) {
	relay, l := newLedgerRelay(t)
	ctx := context.Background()
	if _, err := l.CreateToken(ctx, identity.DefaultFeeToken, spender, identity.DefaultFeeAmount()); err != nil {
		t.Fatalf("create token: %v", err)
	}
	token, err := l.Token(ctx, identity.DefaultFeeToken)
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if ok, err := token.Approve(ctx, spender, identity.DefaultCustody, identity.DefaultFeeAmount()); err != nil || !ok {
		t.Fatalf("approve = (%v, %v)", ok, err)
	}
	if _, err := relay.SendConnectionRequest(ctx, spender, receiver, "pk", nil); err != nil {
		t.Fatalf("send request: %v", err)
	}
	held, err := token.BalanceOf(ctx, identity.DefaultCustody)
	if err != nil {
		t.Fatalf("custody balance: %v", err)
	}
	if held.Cmp(identity.DefaultFeeAmount()) != 0 {
		t.Fatalf("custody holds %s, want %s", held, identity.DefaultFeeAmount())
	}
}
