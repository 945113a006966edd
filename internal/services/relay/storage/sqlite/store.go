// Package sqlite provides a SQLite-backed relay storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/connect-relay/internal/platform/grpc/pagination"
	sqlitemigrate "github.com/louisbranch/connect-relay/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"github.com/louisbranch/connect-relay/internal/services/relay/storage"
	"github.com/louisbranch/connect-relay/internal/services/relay/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists relay state and records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// Open opens a SQLite relay store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
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
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// LoadState returns the persisted relay state or storage.ErrNotFound.
func (s *Store) LoadState(ctx context.Context) (domain.State, error) {
	if err := ctx.Err(); err != nil {
		return domain.State{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.State{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT owner, requests_paused, responses_paused, admin_withdrawals_paused, fee_amount, fee_token
		 FROM relay_state
		 WHERE id = 1`,
	)
	var (
		owner, feeAmount, feeToken               string
		requestsPaused, responsesPaused, wPaused int
	)
	if err := row.Scan(&owner, &requestsPaused, &responsesPaused, &wPaused, &feeAmount, &feeToken); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.State{}, storage.ErrNotFound
		}
		return domain.State{}, fmt.Errorf("get relay state: %w", err)
	}

	state := domain.State{
		RequestsPaused:         requestsPaused != 0,
		ResponsesPaused:        responsesPaused != 0,
		AdminWithdrawalsPaused: wPaused != 0,
		Admins:                 domain.AdminSet{},
	}
	var err error
	if state.Owner, err = identity.ParseAddress(owner); err != nil {
		return domain.State{}, fmt.Errorf("decode owner: %w", err)
	}
	if state.FeeToken, err = identity.ParseAddress(feeToken); err != nil {
		return domain.State{}, fmt.Errorf("decode fee token: %w", err)
	}
	if state.FeeAmount, err = identity.ParseUnboundedAmount(feeAmount); err != nil {
		return domain.State{}, fmt.Errorf("decode fee amount: %w", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT address FROM relay_admins`)
	if err != nil {
		return domain.State{}, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return domain.State{}, fmt.Errorf("scan admin: %w", err)
		}
		addr, err := identity.ParseAddress(value)
		if err != nil {
			return domain.State{}, fmt.Errorf("decode admin: %w", err)
		}
		state.Admins.Add(addr)
	}
	if err := rows.Err(); err != nil {
		return domain.State{}, fmt.Errorf("iterate admins: %w", err)
	}
	return state, nil
}

// InitState stores the first relay state. It fails with
// storage.ErrAlreadyInitialized when a state exists.
func (s *Store) InitState(ctx context.Context, state domain.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := state.Validate(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM relay_state`).Scan(&exists); err != nil {
		return fmt.Errorf("check relay state: %w", err)
	}
	if exists > 0 {
		return storage.ErrAlreadyInitialized
	}
	if err := writeState(ctx, tx, state, time.Now()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Commit writes state and appends record in one transaction, returning the
// record with its sequence number.
func (s *Store) Commit(ctx context.Context, state domain.State, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Record{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return domain.Record{}, fmt.Errorf("record id is required")
	}
	body, err := record.CanonicalJSON()
	if err != nil {
		return domain.Record{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := writeState(ctx, tx, state, record.Time); err != nil {
		return domain.Record{}, err
	}
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO relay_records (id, kind, actor, recipient, subject, created_at, body)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		string(record.Kind),
		record.Actor.Hex(),
		optionalHex(record.To),
		optionalHex(record.Subject),
		toMillis(record.Time),
		string(body),
	)
	if err != nil {
		return domain.Record{}, fmt.Errorf("append record: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return domain.Record{}, fmt.Errorf("record seq: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Record{}, fmt.Errorf("commit tx: %w", err)
	}
	record.Seq = seq
	return record, nil
}

// ListRecords returns one page of records matching filter, oldest first.
func (s *Store) ListRecords(ctx context.Context, filter storage.RecordFilter, pageSize int, pageToken string) (storage.RecordPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RecordPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RecordPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.RecordPage{}, fmt.Errorf("page size must be greater than zero")
	}
	after, err := pagination.DecodeSeqToken(pageToken)
	if err != nil {
		return storage.RecordPage{}, err
	}
	if filter.AfterSeq > after {
		after = filter.AfterSeq
	}

	clauses := []string{"seq > ?"}
	args := []any{after}
	if len(filter.Kinds) > 0 {
		placeholders := make([]string, 0, len(filter.Kinds))
		for _, kind := range filter.Kinds {
			placeholders = append(placeholders, "?")
			args = append(args, string(kind))
		}
		clauses = append(clauses, "kind IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.Participant.IsZero() {
		hex := filter.Participant.Hex()
		clauses = append(clauses, "(actor = ? OR recipient = ? OR subject = ?)")
		args = append(args, hex, hex, hex)
	}
	if !filter.Recipient.IsZero() {
		clauses = append(clauses, "recipient = ?")
		args = append(args, filter.Recipient.Hex())
	}
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT seq, id, body FROM relay_records
		 WHERE `+strings.Join(clauses, " AND ")+`
		 ORDER BY seq
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return storage.RecordPage{}, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	page := storage.RecordPage{
		Records: make([]domain.Record, 0, pageSize),
	}
	for rows.Next() {
		var (
			seq  int64
			id   string
			body string
		)
		if err := rows.Scan(&seq, &id, &body); err != nil {
			return storage.RecordPage{}, fmt.Errorf("scan record: %w", err)
		}
		var record domain.Record
		if err := json.Unmarshal([]byte(body), &record); err != nil {
			return storage.RecordPage{}, fmt.Errorf("decode record %d: %w", seq, err)
		}
		record.Seq = seq
		record.ID = id
		page.Records = append(page.Records, record)
	}
	if err := rows.Err(); err != nil {
		return storage.RecordPage{}, fmt.Errorf("iterate records: %w", err)
	}
	if len(page.Records) > pageSize {
		page.Records = page.Records[:pageSize]
		page.NextPageToken = pagination.EncodeSeqToken(page.Records[pageSize-1].Seq)
	}
	return page, nil
}

func writeState(ctx context.Context, tx *sql.Tx, state domain.State, at time.Time) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO relay_state (id, owner, requests_paused, responses_paused, admin_withdrawals_paused, fee_amount, fee_token, updated_at)
		 VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner = excluded.owner,
		   requests_paused = excluded.requests_paused,
		   responses_paused = excluded.responses_paused,
		   admin_withdrawals_paused = excluded.admin_withdrawals_paused,
		   fee_amount = excluded.fee_amount,
		   fee_token = excluded.fee_token,
		   updated_at = excluded.updated_at`,
		state.Owner.Hex(),
		boolToInt(state.RequestsPaused),
		boolToInt(state.ResponsesPaused),
		boolToInt(state.AdminWithdrawalsPaused),
		identity.FormatAmount(state.FeeAmount),
		state.FeeToken.Hex(),
		toMillis(at),
	)
	if err != nil {
		return fmt.Errorf("put relay state: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM relay_admins`); err != nil {
		return fmt.Errorf("clear admins: %w", err)
	}
	for _, addr := range state.Admins.Members() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO relay_admins (address) VALUES (?)`, addr.Hex()); err != nil {
			return fmt.Errorf("put admin: %w", err)
		}
	}
	return nil
}

func optionalHex(addr identity.Address) string {
	if addr.IsZero() {
		return ""
	}
	return addr.Hex()
}
