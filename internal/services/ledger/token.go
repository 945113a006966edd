package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// Token is one token's view of the ledger. Mutating calls return false when
// a balance or allowance cannot cover the amount or the recipient is null.
type Token struct {
	ledger *Ledger
	addr   identity.Address
}

var _ domain.Token = (*Token)(nil)

// Address returns the token's address.
func (t *Token) Address() identity.Address {
	return t.addr
}

func (t *Token) TotalSupply(ctx context.Context) (*big.Int, error) {
	amount, err := readAmount(ctx, t.ledger.sqlDB, `SELECT total_supply FROM ledger_tokens WHERE address = ?`, t.addr.Hex())
	if err != nil {
		return nil, fmt.Errorf("get total supply: %w", err)
	}
	return amount, nil
}

func (t *Token) BalanceOf(ctx context.Context, holder identity.Address) (*big.Int, error) {
	return balanceOf(ctx, t.ledger.sqlDB, t.addr, holder)
}

func (t *Token) Allowance(ctx context.Context, holder, spender identity.Address) (*big.Int, error) {
	return allowanceOf(ctx, t.ledger.sqlDB, t.addr, holder, spender)
}

// Transfer moves amount from from to to on from's behalf.
func (t *Token) Transfer(ctx context.Context, from, to identity.Address, amount *big.Int) (bool, error) {
	if err := checkAmount(amount); err != nil {
		return false, err
	}
	if from.IsZero() || to.IsZero() {
		return false, nil
	}
	moved := false
	err := t.ledger.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := move(ctx, tx, t.addr, from, to, amount)
		moved = ok
		return err
	})
	if err != nil || !moved {
		return false, err
	}
	t.ledger.notifyTransfer(TransferEvent{Token: t.addr, From: from, To: to, Amount: identity.CloneAmount(amount), Time: t.ledger.clock().UTC()})
	return true, nil
}

// Approve sets the amount spender may move out of holder's balance.
func (t *Token) Approve(ctx context.Context, holder, spender identity.Address, amount *big.Int) (bool, error) {
	if err := checkAmount(amount); err != nil {
		return false, err
	}
	if holder.IsZero() || spender.IsZero() {
		return false, nil
	}
	err := t.ledger.withTx(ctx, func(tx *sql.Tx) error {
		return putAllowance(ctx, tx, t.addr, holder, spender, amount)
	})
	if err != nil {
		return false, err
	}
	t.ledger.notifyApproval(ApprovalEvent{Token: t.addr, Holder: holder, Spender: spender, Amount: identity.CloneAmount(amount), Time: t.ledger.clock().UTC()})
	return true, nil
}

// TransferFrom moves amount from from to to using spender's allowance. An
// allowance of identity.MaxAmount is never decremented.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to identity.Address, amount *big.Int) (bool, error) {
	if err := checkAmount(amount); err != nil {
		return false, err
	}
	if spender.IsZero() || from.IsZero() || to.IsZero() {
		return false, nil
	}
	moved := false
	var remaining *big.Int
	err := t.ledger.withTx(ctx, func(tx *sql.Tx) error {
		allowance, err := allowanceOf(ctx, tx, t.addr, from, spender)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return nil
		}
		ok, err := move(ctx, tx, t.addr, from, to, amount)
		if err != nil || !ok {
			return err
		}
		moved = true
		if allowance.Cmp(identity.MaxAmount) == 0 {
			return nil
		}
		remaining = allowance.Sub(allowance, amount)
		return putAllowance(ctx, tx, t.addr, from, spender, remaining)
	})
	if err != nil || !moved {
		return false, err
	}
	now := t.ledger.clock().UTC()
	if remaining != nil {
		t.ledger.notifyApproval(ApprovalEvent{Token: t.addr, Holder: from, Spender: spender, Amount: identity.CloneAmount(remaining), Time: now})
	}
	t.ledger.notifyTransfer(TransferEvent{Token: t.addr, From: from, To: to, Amount: identity.CloneAmount(amount), Time: now})
	return true, nil
}
