// Package ledger is a SQLite-backed multi-token ledger with ERC-20 style
// semantics. It is the value-transfer collaborator the relay collects fees
// through.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	sqlitemigrate "github.com/louisbranch/connect-relay/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/connect-relay/internal/services/ledger/migrations"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	_ "modernc.org/sqlite"
)

// TransferEvent reports a committed balance movement. Mints have a zero From.
type TransferEvent struct {
	Token  identity.Address
	From   identity.Address
	To     identity.Address
	Amount *big.Int
	Time   time.Time
}

// ApprovalEvent reports a committed allowance change.
type ApprovalEvent struct {
	Token   identity.Address
	Holder  identity.Address
	Spender identity.Address
	Amount  *big.Int
	Time    time.Time
}

// Listener is notified after transfers and approvals commit.
type Listener interface {
	OnTransfer(TransferEvent)
	OnApproval(ApprovalEvent)
}

// Ledger stores balances and allowances for any number of tokens.
type Ledger struct {
	sqlDB *sql.DB
	clock func() time.Time

	mu        sync.RWMutex
	listeners []Listener
}

// Open opens the ledger tables in the SQLite file at path, applying
// embedded migrations.
func Open(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, "."); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Ledger{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (l *Ledger) Close() error {
	if l == nil || l.sqlDB == nil {
		return nil
	}
	return l.sqlDB.Close()
}

// AddListener registers l for transfer and approval notifications.
func (l *Ledger) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// CreateToken mints supply of token to issuer. It reports false without
// error when the token already exists.
func (l *Ledger) CreateToken(ctx context.Context, token, issuer identity.Address, supply *big.Int) (bool, error) {
	if token.IsZero() || issuer.IsZero() {
		return false, fmt.Errorf("token and issuer are required")
	}
	if err := checkAmount(supply); err != nil {
		return false, err
	}
	created := false
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(
			ctx,
			`INSERT INTO ledger_tokens (address, total_supply, created_at)
			 VALUES (?, ?, ?)
			 ON CONFLICT(address) DO NOTHING`,
			token.Hex(),
			supply.String(),
			l.clock().UTC().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("create token: %w", err)
		}
		if affected == 0 {
			return nil
		}
		created = true
		return putBalance(ctx, tx, token, issuer, supply)
	})
	if err != nil || !created {
		return false, err
	}
	l.notifyTransfer(TransferEvent{Token: token, To: issuer, Amount: identity.CloneAmount(supply), Time: l.clock().UTC()})
	return true, nil
}

// Token returns the handle for a known token.
func (l *Ledger) Token(ctx context.Context, addr identity.Address) (*Token, error) {
	var supply string
	err := l.sqlDB.QueryRowContext(ctx, `SELECT total_supply FROM ledger_tokens WHERE address = ?`, addr.Hex()).Scan(&supply)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, unknownToken(addr)
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &Token{ledger: l, addr: addr}, nil
}

func unknownToken(addr identity.Address) error {
	return apperrors.WithMetadata(apperrors.CodeUnknownToken, "unknown token", map[string]string{"Token": addr.String()})
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 || amount.Cmp(identity.MaxAmount) > 0 {
		return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "amount out of range", map[string]string{"Field": "amount"})
	}
	return nil
}

func (l *Ledger) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if l == nil || l.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := l.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (l *Ledger) snapshotListeners() []Listener {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Listener(nil), l.listeners...)
}

func (l *Ledger) notifyTransfer(event TransferEvent) {
	for _, listener := range l.snapshotListeners() {
		listener.OnTransfer(event)
	}
}

func (l *Ledger) notifyApproval(event ApprovalEvent) {
	for _, listener := range l.snapshotListeners() {
		listener.OnApproval(event)
	}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readAmount(ctx context.Context, q queryer, query string, args ...any) (*big.Int, error) {
	var value string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return new(big.Int), nil
		}
		return nil, err
	}
	amount, err := identity.ParseAmount(value)
	if err != nil {
		return nil, fmt.Errorf("decode stored amount: %w", err)
	}
	return amount, nil
}

func balanceOf(ctx context.Context, q queryer, token, holder identity.Address) (*big.Int, error) {
	amount, err := readAmount(ctx, q, `SELECT amount FROM ledger_balances WHERE token = ? AND holder = ?`, token.Hex(), holder.Hex())
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return amount, nil
}

func allowanceOf(ctx context.Context, q queryer, token, holder, spender identity.Address) (*big.Int, error) {
	amount, err := readAmount(ctx, q, `SELECT amount FROM ledger_allowances WHERE token = ? AND holder = ? AND spender = ?`, token.Hex(), holder.Hex(), spender.Hex())
	if err != nil {
		return nil, fmt.Errorf("get allowance: %w", err)
	}
	return amount, nil
}

func putBalance(ctx context.Context, tx *sql.Tx, token, holder identity.Address, amount *big.Int) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO ledger_balances (token, holder, amount) VALUES (?, ?, ?)
		 ON CONFLICT(token, holder) DO UPDATE SET amount = excluded.amount`,
		token.Hex(), holder.Hex(), amount.String(),
	)
	if err != nil {
		return fmt.Errorf("put balance: %w", err)
	}
	return nil
}

func putAllowance(ctx context.Context, tx *sql.Tx, token, holder, spender identity.Address, amount *big.Int) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO ledger_allowances (token, holder, spender, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(token, holder, spender) DO UPDATE SET amount = excluded.amount`,
		token.Hex(), holder.Hex(), spender.Hex(), amount.String(),
	)
	if err != nil {
		return fmt.Errorf("put allowance: %w", err)
	}
	return nil
}

// move shifts amount between balances inside tx. It reports false when from
// cannot cover amount.
func move(ctx context.Context, tx *sql.Tx, token, from, to identity.Address, amount *big.Int) (bool, error) {
	fromBalance, err := balanceOf(ctx, tx, token, from)
	if err != nil {
		return false, err
	}
	if fromBalance.Cmp(amount) < 0 {
		return false, nil
	}
	if from == to {
		return true, nil
	}
	toBalance, err := balanceOf(ctx, tx, token, to)
	if err != nil {
		return false, err
	}
	if err := putBalance(ctx, tx, token, from, fromBalance.Sub(fromBalance, amount)); err != nil {
		return false, err
	}
	if err := putBalance(ctx, tx, token, to, toBalance.Add(toBalance, amount)); err != nil {
		return false, err
	}
	return true, nil
}
