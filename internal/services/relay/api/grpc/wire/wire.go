// Package wire converts between relay domain values and the Struct messages
// carried by relay.v1.
//
// Addresses travel as 0x hex strings, amounts as base-10 strings and opaque
// byte payloads as standard base64.
package wire

import (
	"encoding/base64"
	"math"
	"math/big"
	"strings"
	"time"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"google.golang.org/protobuf/types/known/structpb"
)

// InvalidField reports a missing or malformed request field.
func InvalidField(field string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid "+field, map[string]string{"Field": field})
}

func value(in *structpb.Struct, field string) (*structpb.Value, bool) {
	if in == nil {
		return nil, false
	}
	v, ok := in.GetFields()[field]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

// String returns a trimmed string field, or "" when absent.
func String(in *structpb.Struct, field string) (string, error) {
	v, ok := value(in, field)
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", InvalidField(field)
	}
	return strings.TrimSpace(s.StringValue), nil
}

// Address returns a required address field. The zero address parses; callers
// decide whether it is acceptable.
func Address(in *structpb.Struct, field string) (identity.Address, error) {
	raw, err := String(in, field)
	if err != nil {
		return identity.Address{}, err
	}
	if raw == "" {
		return identity.Address{}, InvalidField(field)
	}
	addr, err := identity.ParseAddress(raw)
	if err != nil {
		return identity.Address{}, InvalidField(field)
	}
	return addr, nil
}

// OptionalAddress returns the zero address when the field is absent.
func OptionalAddress(in *structpb.Struct, field string) (identity.Address, error) {
	raw, err := String(in, field)
	if err != nil || raw == "" {
		return identity.Address{}, err
	}
	addr, err := identity.ParseAddress(raw)
	if err != nil {
		return identity.Address{}, InvalidField(field)
	}
	return addr, nil
}

// Amount returns a required amount field. Whole numbers below 2^53 are
// accepted as JSON numbers too.
func Amount(in *structpb.Struct, field string) (*big.Int, error) {
	v, ok := value(in, field)
	if !ok {
		return nil, InvalidField(field)
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		amount, err := identity.ParseAmount(kind.StringValue)
		if err != nil {
			return nil, InvalidField(field)
		}
		return amount, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n < 0 || n > 1<<53 || n != math.Trunc(n) {
			return nil, InvalidField(field)
		}
		return big.NewInt(int64(n)), nil
	default:
		return nil, InvalidField(field)
	}
}

// Bool returns a required boolean field.
func Bool(in *structpb.Struct, field string) (bool, error) {
	v, ok := value(in, field)
	if !ok {
		return false, InvalidField(field)
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, InvalidField(field)
	}
	return b.BoolValue, nil
}

// Bytes decodes an optional base64 field.
func Bytes(in *structpb.Struct, field string) ([]byte, error) {
	raw, err := String(in, field)
	if err != nil || raw == "" {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, InvalidField(field)
	}
	return data, nil
}

// Int returns an optional non-negative integer field.
func Int(in *structpb.Struct, field string) (int64, error) {
	v, ok := value(in, field)
	if !ok {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 0 || n.NumberValue > 1<<53 || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, InvalidField(field)
	}
	return int64(n.NumberValue), nil
}

// Strings returns an optional list of strings.
func Strings(in *structpb.Struct, field string) ([]string, error) {
	v, ok := value(in, field)
	if !ok {
		return nil, nil
	}
	list, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		return nil, InvalidField(field)
	}
	out := make([]string, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		s, isString := item.GetKind().(*structpb.Value_StringValue)
		if !isString {
			return nil, InvalidField(field)
		}
		out = append(out, strings.TrimSpace(s.StringValue))
	}
	return out, nil
}

// Kinds parses an optional list of record kinds.
func Kinds(in *structpb.Struct, field string) ([]domain.Kind, error) {
	names, err := Strings(in, field)
	if err != nil {
		return nil, err
	}
	kinds := make([]domain.Kind, 0, len(names))
	for _, name := range names {
		kind, err := domain.ParseKind(name)
		if err != nil {
			return nil, InvalidField(field)
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// RecordValue renders one record as a Struct value.
func RecordValue(record domain.Record) *structpb.Value {
	fields := map[string]*structpb.Value{
		"seq":   structpb.NewNumberValue(float64(record.Seq)),
		"id":    structpb.NewStringValue(record.ID),
		"kind":  structpb.NewStringValue(string(record.Kind)),
		"time":  structpb.NewStringValue(record.Time.UTC().Format(time.RFC3339Nano)),
		"actor": structpb.NewStringValue(record.Actor.String()),
	}
	optional := map[string]identity.Address{
		"to":       record.To,
		"subject":  record.Subject,
		"previous": record.Previous,
		"token":    record.Token,
	}
	for name, addr := range optional {
		if !addr.IsZero() {
			fields[name] = structpb.NewStringValue(addr.String())
		}
	}
	if record.Amount != nil {
		fields["amount"] = structpb.NewStringValue(identity.FormatAmount(record.Amount))
	}
	switch record.Kind {
	case domain.KindRequestsPauseChanged, domain.KindResponsesPauseChanged, domain.KindAdminWithdrawalsPauseChanged:
		fields["paused"] = structpb.NewBoolValue(record.Paused)
	case domain.KindConnectionRequest:
		fields["public_key"] = structpb.NewStringValue(record.PublicKey)
		fields["payload"] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(record.Payload))
	case domain.KindConnectionResponse:
		fields["response"] = structpb.NewStringValue(base64.StdEncoding.EncodeToString(record.Response))
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// RecordResponse wraps a record as a mutation response.
func RecordResponse(record domain.Record) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"record": RecordValue(record),
	}}
}

// RecordList renders records as a list value.
func RecordList(records []domain.Record) *structpb.Value {
	values := make([]*structpb.Value, 0, len(records))
	for _, record := range records {
		values = append(values, RecordValue(record))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: values})
}

// StateStruct renders the relay's observable state.
func StateStruct(state domain.State, custody identity.Address) *structpb.Struct {
	members := state.Admins.Members()
	admins := make([]*structpb.Value, 0, len(members))
	for _, admin := range members {
		admins = append(admins, structpb.NewStringValue(admin.String()))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"owner":                    structpb.NewStringValue(state.Owner.String()),
		"admins":                   structpb.NewListValue(&structpb.ListValue{Values: admins}),
		"requests_paused":          structpb.NewBoolValue(state.RequestsPaused),
		"responses_paused":         structpb.NewBoolValue(state.ResponsesPaused),
		"admin_withdrawals_paused": structpb.NewBoolValue(state.AdminWithdrawalsPaused),
		"fee_amount":               structpb.NewStringValue(identity.FormatAmount(state.FeeAmount)),
		"fee_token":                structpb.NewStringValue(state.FeeToken.String()),
		"custody":                  structpb.NewStringValue(custody.String()),
	}}
}

// AmountStruct answers a ledger query.
func AmountStruct(amount *big.Int) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"amount": structpb.NewStringValue(identity.FormatAmount(amount)),
	}}
}

// OKStruct answers a ledger mutation.
func OKStruct(ok bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"ok": structpb.NewBoolValue(ok),
	}}
}
