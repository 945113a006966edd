package relayctl

import (
	"encoding/base64"
	"flag"
	"fmt"
	"strings"

	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"google.golang.org/protobuf/types/known/structpb"
)

type fieldKind int

const (
	fieldString fieldKind = iota
	fieldBool
	fieldInt
	fieldList
	// fieldText is sent base64 encoded.
	fieldText
)

// field maps one subcommand flag to one request field.
type field struct {
	flag  string
	key   string
	kind  fieldKind
	usage string
}

// command describes one relayctl subcommand.
type command struct {
	name    string
	summary string
	method  string
	stream  bool
	fields  []field
}

var (
	toField          = field{flag: "to", key: "to", usage: "recipient address"}
	tokenField       = field{flag: "token", key: "token", usage: "token address"}
	amountField      = field{flag: "amount", key: "amount", usage: "amount in token base units"}
	pausedField      = field{flag: "paused", key: "paused", kind: fieldBool, usage: "pause (true) or resume (false)"}
	kindsField       = field{flag: "kinds", key: "kinds", kind: fieldList, usage: "comma-separated record kinds"}
	participantField = field{flag: "participant", key: "participant", usage: "only records involving this address"}
	recipientFilter  = field{flag: "recipient", key: "recipient", usage: "only connection records addressed to this address"}
	afterSeqField    = field{flag: "after-seq", key: "after_seq", kind: fieldInt, usage: "only records after this sequence number"}
)

var commands = []command{
	{
		name: "send-request", summary: "send a connection request (pays the request fee)",
		method: relayv1.RelayService_SendConnectionRequest_FullMethodName,
		fields: []field{
			toField,
			{flag: "public-key", key: "public_key", usage: "sender public key"},
			{flag: "payload", key: "payload", kind: fieldText, usage: "request payload"},
		},
	},
	{
		name: "send-response", summary: "send a connection response",
		method: relayv1.RelayService_SendConnectionResponse_FullMethodName,
		fields: []field{toField, {flag: "response", key: "response", kind: fieldText, usage: "response payload"}},
	},
	{
		name: "transfer-ownership", summary: "hand the owner role to another address",
		method: relayv1.RelayService_TransferOwnership_FullMethodName,
		fields: []field{{flag: "new-owner", key: "new_owner", usage: "new owner address"}},
	},
	{
		name: "add-admin", summary: "grant the admin role",
		method: relayv1.RelayService_AddAdmin_FullMethodName,
		fields: []field{{flag: "admin", key: "admin", usage: "admin address"}},
	},
	{
		name: "remove-admin", summary: "revoke the admin role",
		method: relayv1.RelayService_RemoveAdmin_FullMethodName,
		fields: []field{{flag: "admin", key: "admin", usage: "admin address"}},
	},
	{
		name: "resign-admin", summary: "give up the caller's admin role",
		method: relayv1.RelayService_ResignAdmin_FullMethodName,
	},
	{
		name: "set-requests-paused", summary: "pause or resume connection requests",
		method: relayv1.RelayService_SetRequestsPaused_FullMethodName,
		fields: []field{pausedField},
	},
	{
		name: "set-responses-paused", summary: "pause or resume connection responses",
		method: relayv1.RelayService_SetResponsesPaused_FullMethodName,
		fields: []field{pausedField},
	},
	{
		name: "set-admin-withdrawals-paused", summary: "pause or resume admin withdrawals",
		method: relayv1.RelayService_SetAdminWithdrawalsPaused_FullMethodName,
		fields: []field{pausedField},
	},
	{
		name: "set-request-fee", summary: "set the connection request fee",
		method: relayv1.RelayService_SetRequestFee_FullMethodName,
		fields: []field{amountField},
	},
	{
		name: "set-fee-token", summary: "set the token fees are paid in",
		method: relayv1.RelayService_SetFeeToken_FullMethodName,
		fields: []field{tokenField},
	},
	{
		name: "withdraw", summary: "pay tokens out of relay custody",
		method: relayv1.RelayService_WithdrawTokens_FullMethodName,
		fields: []field{tokenField, amountField, {flag: "recipient", key: "recipient", usage: "address to pay"}},
	},
	{
		name: "state", summary: "show owner, admins, pause flags and fee settings",
		method: relayv1.RelayService_GetState_FullMethodName,
	},
	{
		name: "records", summary: "list recorded relay activity",
		method: relayv1.RelayService_ListRecords_FullMethodName,
		fields: []field{
			kindsField, participantField, recipientFilter, afterSeqField,
			{flag: "page-size", key: "page_size", kind: fieldInt, usage: "records per page"},
			{flag: "page-token", key: "page_token", usage: "token from a previous page"},
		},
	},
	{
		name: "watch", summary: "stream records as they are committed",
		method: relayv1.RelayService_WatchRecords_FullMethodName,
		stream: true,
		fields: []field{kindsField, participantField, recipientFilter, afterSeqField},
	},
	{
		name: "total-supply", summary: "show a token's total supply",
		method: relayv1.LedgerService_TotalSupply_FullMethodName,
		fields: []field{tokenField},
	},
	{
		name: "balance", summary: "show a holder's token balance",
		method: relayv1.LedgerService_BalanceOf_FullMethodName,
		fields: []field{tokenField, {flag: "holder", key: "holder", usage: "holder address"}},
	},
	{
		name: "allowance", summary: "show what a spender may pull from a holder",
		method: relayv1.LedgerService_Allowance_FullMethodName,
		fields: []field{
			tokenField,
			{flag: "holder", key: "holder", usage: "holder address"},
			{flag: "spender", key: "spender", usage: "spender address"},
		},
	},
	{
		name: "transfer", summary: "move the caller's tokens",
		method: relayv1.LedgerService_Transfer_FullMethodName,
		fields: []field{tokenField, toField, amountField},
	},
	{
		name: "approve", summary: "let a spender pull the caller's tokens",
		method: relayv1.LedgerService_Approve_FullMethodName,
		fields: []field{tokenField, {flag: "spender", key: "spender", usage: "spender address"}, amountField},
	},
	{
		name: "transfer-from", summary: "spend an allowance",
		method: relayv1.LedgerService_TransferFrom_FullMethodName,
		fields: []field{tokenField, {flag: "from", key: "from", usage: "holder address"}, toField, amountField},
	},
}

func findCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// request parses subcommand args into a request message.
func (c command) request(args []string) (*structpb.Struct, error) {
	fs := flag.NewFlagSet(c.name, flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	strs := make(map[string]*string)
	bools := make(map[string]*bool)
	ints := make(map[string]*int64)
	for _, f := range c.fields {
		switch f.kind {
		case fieldBool:
			bools[f.key] = fs.Bool(f.flag, false, f.usage)
		case fieldInt:
			ints[f.key] = fs.Int64(f.flag, 0, f.usage)
		default:
			strs[f.key] = fs.String(f.flag, "", f.usage)
		}
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%s: unexpected arguments %v", c.name, fs.Args())
	}

	fields := make(map[string]*structpb.Value)
	for _, f := range c.fields {
		switch f.kind {
		case fieldBool:
			fields[f.key] = structpb.NewBoolValue(*bools[f.key])
		case fieldInt:
			if n := *ints[f.key]; n != 0 {
				fields[f.key] = structpb.NewNumberValue(float64(n))
			}
		case fieldList:
			var items []*structpb.Value
			for _, item := range strings.Split(*strs[f.key], ",") {
				if item = strings.TrimSpace(item); item != "" {
					items = append(items, structpb.NewStringValue(item))
				}
			}
			if len(items) > 0 {
				fields[f.key] = structpb.NewListValue(&structpb.ListValue{Values: items})
			}
		case fieldText:
			if v := *strs[f.key]; v != "" {
				fields[f.key] = structpb.NewStringValue(base64.StdEncoding.EncodeToString([]byte(v)))
			}
		default:
			if v := strings.TrimSpace(*strs[f.key]); v != "" {
				fields[f.key] = structpb.NewStringValue(v)
			}
		}
	}
	return &structpb.Struct{Fields: fields}, nil
}

// usage renders the subcommand list.
func usage() string {
	var b strings.Builder
	b.WriteString("usage: relayctl [flags] <command> [command flags]\n\ncommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "  %-30s %s\n", cmd.name, cmd.summary)
	}
	return b.String()
}
