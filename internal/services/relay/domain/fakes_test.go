package domain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

var (
	ownerAddr     = identity.MustParseAddress("0x1111111111111111111111111111111111111111")
	adminAddr     = identity.MustParseAddress("0x2222222222222222222222222222222222222222")
	userAddr      = identity.MustParseAddress("0x3333333333333333333333333333333333333333")
	peerAddr      = identity.MustParseAddress("0x4444444444444444444444444444444444444444")
	custodyAddr   = identity.MustParseAddress("0x5555555555555555555555555555555555555555")
	otherTokenAdr = identity.MustParseAddress("0x6666666666666666666666666666666666666666")
	fixedTime     = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type fakeStore struct {
	commits   []Record
	states    []State
	commitErr error
}

func (s *fakeStore) Commit(_ context.Context, state State, record Record) (Record, error) {
	if s.commitErr != nil {
		return Record{}, s.commitErr
	}
	record.Seq = int64(len(s.commits) + 1)
	s.commits = append(s.commits, record)
	s.states = append(s.states, state.Clone())
	return record, nil
}

type tokenCall struct {
	method string
	from   identity.Address
	to     identity.Address
	amount *big.Int
}

type fakeToken struct {
	balances map[identity.Address]*big.Int
	calls    []tokenCall
	fail     bool
	err      error
}

func newFakeToken() *fakeToken {
	return &fakeToken{balances: map[identity.Address]*big.Int{}}
}

func (t *fakeToken) TotalSupply(context.Context) (*big.Int, error) {
	total := new(big.Int)
	for _, balance := range t.balances {
		total.Add(total, balance)
	}
	return total, nil
}

func (t *fakeToken) BalanceOf(_ context.Context, holder identity.Address) (*big.Int, error) {
	t.calls = append(t.calls, tokenCall{method: "BalanceOf", from: holder})
	if t.err != nil {
		return nil, t.err
	}
	return identity.CloneAmount(t.balances[holder]), nil
}

func (t *fakeToken) Allowance(context.Context, identity.Address, identity.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func (t *fakeToken) Transfer(_ context.Context, from, to identity.Address, amount *big.Int) (bool, error) {
	t.calls = append(t.calls, tokenCall{method: "Transfer", from: from, to: to, amount: amount})
	return t.move(from, to, amount)
}

func (t *fakeToken) Approve(context.Context, identity.Address, identity.Address, *big.Int) (bool, error) {
	return true, nil
}

func (t *fakeToken) TransferFrom(_ context.Context, _ identity.Address, from, to identity.Address, amount *big.Int) (bool, error) {
	t.calls = append(t.calls, tokenCall{method: "TransferFrom", from: from, to: to, amount: amount})
	return t.move(from, to, amount)
}

func (t *fakeToken) move(from, to identity.Address, amount *big.Int) (bool, error) {
	if t.err != nil {
		return false, t.err
	}
	if t.fail {
		return false, nil
	}
	balance := identity.CloneAmount(t.balances[from])
	if balance.Cmp(amount) < 0 {
		return false, nil
	}
	t.balances[from] = balance.Sub(balance, amount)
	t.balances[to] = new(big.Int).Add(identity.CloneAmount(t.balances[to]), amount)
	return true, nil
}

func (t *fakeToken) count(method string) int {
	n := 0
	for _, call := range t.calls {
		if call.method == method {
			n++
		}
	}
	return n
}

type fakeResolver map[identity.Address]Token

func (r fakeResolver) Token(_ context.Context, addr identity.Address) (Token, error) {
	token, ok := r[addr]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeUnknownToken, "unknown token", map[string]string{"Token": addr.String()})
	}
	return token, nil
}

type brokenResolver struct{}

func (brokenResolver) Token(context.Context, identity.Address) (Token, error) {
	return nil, errors.New("ledger unreachable")
}

type fakePublisher struct {
	records []Record
}

func (p *fakePublisher) Publish(record Record) {
	p.records = append(p.records, record)
}

type fixture struct {
	relay     *Relay
	store     *fakeStore
	feeToken  *fakeToken
	publisher *fakePublisher
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	state, err := NewState(ownerAddr)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	store := &fakeStore{}
	feeToken := newFakeToken()
	publisher := &fakePublisher{}
	relay, err := New(state, Config{
		Store:     store,
		Tokens:    fakeResolver{identity.DefaultFeeToken: feeToken},
		Publisher: publisher,
		Custody:   custodyAddr,
		Clock:     func() time.Time { return fixedTime },
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	return fixture{relay: relay, store: store, feeToken: feeToken, publisher: publisher}
}
