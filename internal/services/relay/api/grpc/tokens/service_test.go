package tokens

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/louisbranch/connect-relay/internal/services/ledger"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	tokenAddr = identity.DefaultFeeToken
	custody   = identity.DefaultCustody
	alice     = identity.MustParseAddress("0x1111111111111111111111111111111111111111")
	bob       = identity.MustParseAddress("0x2222222222222222222222222222222222222222")
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	if _, err := l.CreateToken(context.Background(), tokenAddr, alice, big.NewInt(1000)); err != nil {
		t.Fatalf("create token: %v", err)
	}
	return NewService(l, custody)
}

func req(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	fields["token"] = tokenAddr.Hex()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func as(caller identity.Address) context.Context {
	return metadata.WithCaller(context.Background(), caller)
}

func amountOf(t *testing.T, resp *structpb.Struct, err error) string {
	t.Helper()
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	return resp.GetFields()["amount"].GetStringValue()
}

func TestTotalSupplyAndBalances(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.TotalSupply(ctx, req(t, map[string]any{}))
	if got := amountOf(t, resp, err); got != "1000" {
		t.Fatalf("total supply = %s", got)
	}
	resp, err = svc.BalanceOf(ctx, req(t, map[string]any{"holder": alice.Hex()}))
	if got := amountOf(t, resp, err); got != "1000" {
		t.Fatalf("alice balance = %s", got)
	}
}

func TestTransferAndAllowance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Transfer(as(alice), req(t, map[string]any{"to": bob.Hex(), "amount": "250"}))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !resp.GetFields()["ok"].GetBoolValue() {
		t.Fatal("expected transfer ok")
	}
	resp, err = svc.BalanceOf(ctx, req(t, map[string]any{"holder": bob.Hex()}))
	if got := amountOf(t, resp, err); got != "250" {
		t.Fatalf("bob balance = %s", got)
	}

	resp, err = svc.Transfer(as(bob), req(t, map[string]any{"to": alice.Hex(), "amount": "251"}))
	if err != nil {
		t.Fatalf("overdrawn transfer: %v", err)
	}
	if resp.GetFields()["ok"].GetBoolValue() {
		t.Fatal("expected overdrawn transfer to report false")
	}

	if _, err := svc.Approve(as(alice), req(t, map[string]any{"spender": bob.Hex(), "amount": "100"})); err != nil {
		t.Fatalf("approve: %v", err)
	}
	resp, err = svc.Allowance(ctx, req(t, map[string]any{"holder": alice.Hex(), "spender": bob.Hex()}))
	if got := amountOf(t, resp, err); got != "100" {
		t.Fatalf("allowance = %s", got)
	}

	resp, err = svc.TransferFrom(as(bob), req(t, map[string]any{"from": alice.Hex(), "to": bob.Hex(), "amount": "60"}))
	if err != nil || !resp.GetFields()["ok"].GetBoolValue() {
		t.Fatalf("transfer from: ok=%v err=%v", resp.GetFields()["ok"], err)
	}
	resp, err = svc.Allowance(ctx, req(t, map[string]any{"holder": alice.Hex(), "spender": bob.Hex()}))
	if got := amountOf(t, resp, err); got != "40" {
		t.Fatalf("remaining allowance = %s", got)
	}
}

func TestMutationErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Transfer(context.Background(), req(t, map[string]any{"to": bob.Hex(), "amount": "1"}))
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("missing caller code = %s", status.Code(err))
	}
	_, err = svc.Transfer(as(custody), req(t, map[string]any{"to": bob.Hex(), "amount": "1"}))
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("custody caller code = %s", status.Code(err))
	}
	_, err = svc.Approve(as(alice), req(t, map[string]any{"spender": bob.Hex(), "amount": "1.5"}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("bad amount code = %s", status.Code(err))
	}

	unknown, err := structpb.NewStruct(map[string]any{"token": bob.Hex(), "holder": alice.Hex()})
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	_, err = svc.BalanceOf(context.Background(), unknown)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("unknown token code = %s", status.Code(err))
	}
}
