package relay

import (
	"context"
	"encoding/base64"
	"math/big"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/connect-relay/internal/services/ledger"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"github.com/louisbranch/connect-relay/internal/services/relay/broadcast"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"github.com/louisbranch/connect-relay/internal/services/relay/storage/sqlite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	owner = identity.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	alice = identity.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	bob   = identity.MustParseAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
)

type testEnv struct {
	client relayv1.RelayServiceClient
	ledger *ledger.Ledger
	token  *ledger.Token
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := sqlite.Open(filepath.Join(dir, "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	state, err := domain.NewState(owner)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := store.InitState(ctx, state); err != nil {
		t.Fatalf("init state: %v", err)
	}

	l, err := ledger.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	supply := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	if _, err := l.CreateToken(ctx, identity.DefaultFeeToken, alice, supply); err != nil {
		t.Fatalf("create token: %v", err)
	}
	token, err := l.Token(ctx, identity.DefaultFeeToken)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	hub := broadcast.NewHub()
	t.Cleanup(hub.Close)
	relay, err := domain.New(state, domain.Config{
		Store:     store,
		Tokens:    ledger.Resolver{Ledger: l},
		Publisher: hub,
		Custody:   identity.DefaultCustody,
	})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(metadata.UnaryServerInterceptor(metadata.Options{})),
		grpc.ChainStreamInterceptor(metadata.StreamServerInterceptor(metadata.Options{})),
	)
	relayv1.RegisterRelayServiceServer(srv, NewService(relay, store, hub))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &testEnv{
		client: relayv1.NewRelayServiceClient(cc),
		ledger: l,
		token:  token,
	}
}

func as(caller identity.Address) context.Context {
	return metadata.OutgoingCaller(context.Background(), caller)
}

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	if err != nil {
		t.Fatalf("new struct: %v", err)
	}
	return s
}

func recordOf(t *testing.T, resp *structpb.Struct) map[string]*structpb.Value {
	t.Helper()
	record := resp.GetFields()["record"].GetStructValue()
	if record == nil {
		t.Fatalf("response has no record: %v", resp)
	}
	return record.GetFields()
}

func assertReason(t *testing.T, err error, code codes.Code, reason string) {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected status error, got %v", err)
	}
	if st.Code() != code {
		t.Fatalf("code = %s, want %s (%s)", st.Code(), code, st.Message())
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			if info.GetReason() != reason {
				t.Fatalf("reason = %s, want %s", info.GetReason(), reason)
			}
			return
		}
	}
	t.Fatalf("no error info on %v", err)
}

func TestSendConnectionRequestCollectsFee(t *testing.T) {
	env := newTestEnv(t)
	fee := identity.DefaultFeeAmount()
	if _, err := env.token.Approve(context.Background(), alice, identity.DefaultCustody, fee); err != nil {
		t.Fatalf("approve: %v", err)
	}

	payload := []byte{0x01, 0x02, 0xff}
	resp, err := env.client.SendConnectionRequest(as(alice), mustStruct(t, map[string]any{
		"to":         bob.Hex(),
		"public_key": "age1example",
		"payload":    base64.StdEncoding.EncodeToString(payload),
	}))
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	record := recordOf(t, resp)
	if got := record["kind"].GetStringValue(); got != string(domain.KindConnectionRequest) {
		t.Fatalf("kind = %q", got)
	}
	if got := record["actor"].GetStringValue(); got != alice.String() {
		t.Fatalf("actor = %q", got)
	}
	if got := record["to"].GetStringValue(); got != bob.String() {
		t.Fatalf("to = %q", got)
	}
	if got := record["payload"].GetStringValue(); got != base64.StdEncoding.EncodeToString(payload) {
		t.Fatalf("payload = %q", got)
	}
	if record["seq"].GetNumberValue() != 1 {
		t.Fatalf("seq = %v", record["seq"].GetNumberValue())
	}

	held, err := env.token.BalanceOf(context.Background(), identity.DefaultCustody)
	if err != nil {
		t.Fatalf("custody balance: %v", err)
	}
	if held.Cmp(fee) != 0 {
		t.Fatalf("custody holds %s, want %s", held, fee)
	}
}

func TestSendConnectionRequestWithoutAllowanceFails(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.client.SendConnectionRequest(as(alice), mustStruct(t, map[string]any{
		"to":         bob.Hex(),
		"public_key": "pk",
	}))
	assertReason(t, err, codes.Aborted, "TRANSFER_FAILED")

	list, err := env.client.ListRecords(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if n := len(list.GetFields()["records"].GetListValue().GetValues()); n != 0 {
		t.Fatalf("records = %d, want 0", n)
	}
}

func TestMutationsRequireCaller(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.client.SetRequestsPaused(context.Background(), mustStruct(t, map[string]any{"paused": true}))
	assertReason(t, err, codes.Unauthenticated, "CALLER_MISSING")
}

func TestMalformedFieldsAreInvalidArgument(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name string
		call func() error
	}{
		{"bad address", func() error {
			_, err := env.client.AddAdmin(as(owner), mustStruct(t, map[string]any{"admin": "0x123"}))
			return err
		}},
		{"missing paused", func() error {
			_, err := env.client.SetResponsesPaused(as(owner), &structpb.Struct{})
			return err
		}},
		{"negative amount", func() error {
			_, err := env.client.SetRequestFee(as(owner), mustStruct(t, map[string]any{"amount": "-1"}))
			return err
		}},
		{"bad payload", func() error {
			_, err := env.client.SendConnectionResponse(as(alice), mustStruct(t, map[string]any{"to": bob.Hex(), "response": "%%%"}))
			return err
		}},
		{"unknown kind", func() error {
			_, err := env.client.ListRecords(context.Background(), mustStruct(t, map[string]any{"kinds": []any{"nope"}}))
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertReason(t, tc.call(), codes.InvalidArgument, "INVALID_ARGUMENT")
		})
	}
}

func TestAdminPauseBlocksRequests(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.AddAdmin(as(owner), mustStruct(t, map[string]any{"admin": bob.Hex()})); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	_, err := env.client.AddAdmin(as(owner), mustStruct(t, map[string]any{"admin": bob.Hex()}))
	assertReason(t, err, codes.AlreadyExists, "ALREADY_EXISTS")

	resp, err := env.client.SetRequestsPaused(as(bob), mustStruct(t, map[string]any{"paused": true}))
	if err != nil {
		t.Fatalf("pause requests: %v", err)
	}
	if !recordOf(t, resp)["paused"].GetBoolValue() {
		t.Fatal("expected paused record")
	}

	_, err = env.client.SendConnectionRequest(as(alice), mustStruct(t, map[string]any{"to": bob.Hex()}))
	assertReason(t, err, codes.FailedPrecondition, "PAUSED")

	_, err = env.client.SetRequestFee(as(bob), mustStruct(t, map[string]any{"amount": "0"}))
	assertReason(t, err, codes.PermissionDenied, "UNAUTHORIZED")
}

func TestGetStateReflectsChanges(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.SetRequestFee(as(owner), mustStruct(t, map[string]any{"amount": "0"})); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	if _, err := env.client.SetAdminWithdrawalsPaused(as(owner), mustStruct(t, map[string]any{"paused": true})); err != nil {
		t.Fatalf("pause withdrawals: %v", err)
	}

	resp, err := env.client.GetState(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	fields := resp.GetFields()
	if got := fields["owner"].GetStringValue(); got != owner.String() {
		t.Fatalf("owner = %q", got)
	}
	if got := fields["fee_amount"].GetStringValue(); got != "0" {
		t.Fatalf("fee = %q", got)
	}
	if !fields["admin_withdrawals_paused"].GetBoolValue() || fields["requests_paused"].GetBoolValue() {
		t.Fatalf("unexpected pause flags: %v", fields)
	}
	if got := fields["custody"].GetStringValue(); got != identity.DefaultCustody.String() {
		t.Fatalf("custody = %q", got)
	}
	admins := fields["admins"].GetListValue().GetValues()
	if len(admins) != 1 || admins[0].GetStringValue() != owner.String() {
		t.Fatalf("admins = %v", admins)
	}
}

func TestOwnerWithdrawsWhilePaused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	amount := big.NewInt(500)
	if _, err := env.token.Transfer(ctx, alice, identity.DefaultCustody, amount); err != nil {
		t.Fatalf("fund custody: %v", err)
	}
	if _, err := env.client.AddAdmin(as(owner), mustStruct(t, map[string]any{"admin": bob.Hex()})); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if _, err := env.client.SetAdminWithdrawalsPaused(as(owner), mustStruct(t, map[string]any{"paused": true})); err != nil {
		t.Fatalf("pause withdrawals: %v", err)
	}

	withdraw := mustStruct(t, map[string]any{
		"token":     identity.DefaultFeeToken.Hex(),
		"amount":    "200",
		"recipient": bob.Hex(),
	})
	_, err := env.client.WithdrawTokens(as(bob), withdraw)
	assertReason(t, err, codes.FailedPrecondition, "PAUSED")

	resp, err := env.client.WithdrawTokens(as(owner), withdraw)
	if err != nil {
		t.Fatalf("owner withdraw: %v", err)
	}
	if got := recordOf(t, resp)["amount"].GetStringValue(); got != "200" {
		t.Fatalf("amount = %q", got)
	}
	balance, err := env.token.BalanceOf(ctx, bob)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("bob balance = %s", balance)
	}

	_, err = env.client.WithdrawTokens(as(owner), mustStruct(t, map[string]any{
		"token":     identity.DefaultFeeToken.Hex(),
		"amount":    "301",
		"recipient": bob.Hex(),
	}))
	assertReason(t, err, codes.FailedPrecondition, "INSUFFICIENT_BALANCE")
}

func TestListRecordsPages(t *testing.T) {
	env := newTestEnv(t)
	for _, paused := range []bool{true, false, true} {
		if _, err := env.client.SetResponsesPaused(as(owner), mustStruct(t, map[string]any{"paused": paused})); err != nil {
			t.Fatalf("set responses paused: %v", err)
		}
	}
	if _, err := env.client.AddAdmin(as(owner), mustStruct(t, map[string]any{"admin": alice.Hex()})); err != nil {
		t.Fatalf("add admin: %v", err)
	}

	filter := map[string]any{"kinds": []any{string(domain.KindResponsesPauseChanged)}, "page_size": 2}
	first, err := env.client.ListRecords(context.Background(), mustStruct(t, filter))
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if n := len(first.GetFields()["records"].GetListValue().GetValues()); n != 2 {
		t.Fatalf("first page = %d records", n)
	}
	token := first.GetFields()["next_page_token"].GetStringValue()
	if token == "" {
		t.Fatal("expected next page token")
	}

	filter["page_token"] = token
	second, err := env.client.ListRecords(context.Background(), mustStruct(t, filter))
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	records := second.GetFields()["records"].GetListValue().GetValues()
	if len(records) != 1 || second.GetFields()["next_page_token"].GetStringValue() != "" {
		t.Fatalf("second page = %v", second)
	}
	if records[0].GetStructValue().GetFields()["seq"].GetNumberValue() != 3 {
		t.Fatalf("unexpected record: %v", records[0])
	}

	byParticipant, err := env.client.ListRecords(context.Background(), mustStruct(t, map[string]any{"participant": alice.Hex()}))
	if err != nil {
		t.Fatalf("list by participant: %v", err)
	}
	if n := len(byParticipant.GetFields()["records"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("participant records = %d, want 1", n)
	}
}

func TestWatchRecordsReplaysThenTails(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.client.SetRequestFee(as(owner), mustStruct(t, map[string]any{"amount": "0"})); err != nil {
		t.Fatalf("set fee: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := env.client.WatchRecords(ctx, mustStruct(t, map[string]any{"recipient": bob.Hex()}))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if _, err := env.client.SendConnectionRequest(as(alice), mustStruct(t, map[string]any{"to": bob.Hex(), "public_key": "pk-1"})); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if _, err := env.client.SendConnectionResponse(as(bob), mustStruct(t, map[string]any{"to": alice.Hex()})); err != nil {
		t.Fatalf("send response: %v", err)
	}
	if _, err := env.client.SendConnectionRequest(as(owner), mustStruct(t, map[string]any{"to": bob.Hex(), "public_key": "pk-2"})); err != nil {
		t.Fatalf("send second request: %v", err)
	}

	for _, want := range []string{"pk-1", "pk-2"} {
		got, err := stream.Recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if got.GetFields()["public_key"].GetStringValue() != want {
			t.Fatalf("record = %v, want public key %s", got, want)
		}
	}

	replay, err := env.client.WatchRecords(ctx, mustStruct(t, map[string]any{"after_seq": 2}))
	if err != nil {
		t.Fatalf("watch replay: %v", err)
	}
	got, err := replay.Recv()
	if err != nil {
		t.Fatalf("recv replay: %v", err)
	}
	if got.GetFields()["seq"].GetNumberValue() != 3 {
		t.Fatalf("replay starts at %v, want seq 3", got.GetFields()["seq"])
	}
}

type contextStream struct {
	grpc.ServerStream
	ctx    context.Context
	onSend func()
}

func (s contextStream) Context() context.Context { return s.ctx }

func (s contextStream) Send(*structpb.Struct) error {
	if s.onSend != nil {
		s.onSend()
	}
	return nil
}

func TestWatchRecordsEndsWithContextStatus(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	state, err := domain.NewState(owner)
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	if err := store.InitState(context.Background(), state); err != nil {
		t.Fatalf("init state: %v", err)
	}
	hub := broadcast.NewHub()
	t.Cleanup(hub.Close)
	relay, err := domain.New(state, domain.Config{Store: store, Publisher: hub, Custody: identity.DefaultCustody})
	if err != nil {
		t.Fatalf("new relay: %v", err)
	}
	if _, err := relay.SetRequestFee(context.Background(), owner, big.NewInt(0)); err != nil {
		t.Fatalf("set fee: %v", err)
	}
	svc := NewService(relay, store, hub)

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		err := svc.WatchRecords(&structpb.Struct{}, contextStream{ctx: ctx, onSend: cancel})
		if status.Code(err) != codes.Canceled {
			t.Fatalf("code = %v, want Canceled (err %v)", status.Code(err), err)
		}
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := svc.WatchRecords(&structpb.Struct{}, contextStream{ctx: ctx})
		if status.Code(err) != codes.DeadlineExceeded {
			t.Fatalf("code = %v, want DeadlineExceeded (err %v)", status.Code(err), err)
		}
	})
}
