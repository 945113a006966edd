// Package relay serves relay.v1.RelayService over a domain relay.
package relay

import (
	"context"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/platform/grpc/pagination"
	"github.com/louisbranch/connect-relay/internal/platform/requestctx"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/wire"
	"github.com/louisbranch/connect-relay/internal/services/relay/broadcast"
	"github.com/louisbranch/connect-relay/internal/services/relay/domain"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"github.com/louisbranch/connect-relay/internal/services/relay/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultListRecordsPageSize = 50
	maxListRecordsPageSize     = 200
)

var listRecordsPageSize = pagination.PageSizeConfig{
	Default: defaultListRecordsPageSize,
	Max:     maxListRecordsPageSize,
}

// Service exposes relay.v1 gRPC operations.
type Service struct {
	relayv1.UnimplementedRelayServiceServer
	relay   *domain.Relay
	records storage.RecordStore
	hub     *broadcast.Hub
}

// NewService creates a relay service. hub may be nil, in which case
// WatchRecords only replays stored records.
func NewService(relay *domain.Relay, records storage.RecordStore, hub *broadcast.Hub) *Service {
	return &Service{
		relay:   relay,
		records: records,
		hub:     hub,
	}
}

// mutate runs one caller-scoped relay operation and renders its record.
func (s *Service) mutate(ctx context.Context, in *structpb.Struct, op func(caller identity.Address) (domain.Record, error)) (*structpb.Struct, error) {
	locale := requestctx.LocaleFromContext(ctx)
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if s == nil || s.relay == nil {
		return nil, status.Error(codes.Internal, "relay is not configured")
	}
	caller, err := metadata.RequireCaller(ctx)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	record, err := op(caller)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	return wire.RecordResponse(record), nil
}

// SendConnectionRequest relays a fee-gated connection request.
func (s *Service) SendConnectionRequest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		to, err := wire.Address(in, "to")
		if err != nil {
			return domain.Record{}, err
		}
		publicKey, err := wire.String(in, "public_key")
		if err != nil {
			return domain.Record{}, err
		}
		payload, err := wire.Bytes(in, "payload")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.SendConnectionRequest(ctx, caller, to, publicKey, payload)
	})
}

// SendConnectionResponse relays a connection response.
func (s *Service) SendConnectionResponse(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		to, err := wire.Address(in, "to")
		if err != nil {
			return domain.Record{}, err
		}
		response, err := wire.Bytes(in, "response")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.SendConnectionResponse(ctx, caller, to, response)
	})
}

func (s *Service) TransferOwnership(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		newOwner, err := wire.Address(in, "new_owner")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.TransferOwnership(ctx, caller, newOwner)
	})
}

func (s *Service) AddAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		admin, err := wire.Address(in, "admin")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.AddAdmin(ctx, caller, admin)
	})
}

func (s *Service) RemoveAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		admin, err := wire.Address(in, "admin")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.RemoveAdmin(ctx, caller, admin)
	})
}

func (s *Service) ResignAdmin(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		return s.relay.ResignAdmin(ctx, caller)
	})
}

func (s *Service) SetRequestsPaused(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.setPaused(ctx, in, (*domain.Relay).SetRequestsPaused)
}

func (s *Service) SetResponsesPaused(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.setPaused(ctx, in, (*domain.Relay).SetResponsesPaused)
}

func (s *Service) SetAdminWithdrawalsPaused(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.setPaused(ctx, in, (*domain.Relay).SetAdminWithdrawalsPaused)
}

func (s *Service) setPaused(ctx context.Context, in *structpb.Struct, set func(*domain.Relay, context.Context, identity.Address, bool) (domain.Record, error)) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		paused, err := wire.Bool(in, "paused")
		if err != nil {
			return domain.Record{}, err
		}
		return set(s.relay, ctx, caller, paused)
	})
}

func (s *Service) SetRequestFee(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		amount, err := wire.Amount(in, "amount")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.SetRequestFee(ctx, caller, amount)
	})
}

func (s *Service) SetFeeToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		token, err := wire.Address(in, "token")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.SetFeeToken(ctx, caller, token)
	})
}

// WithdrawTokens pays tokens out of custody.
func (s *Service) WithdrawTokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(caller identity.Address) (domain.Record, error) {
		token, err := wire.Address(in, "token")
		if err != nil {
			return domain.Record{}, err
		}
		amount, err := wire.Amount(in, "amount")
		if err != nil {
			return domain.Record{}, err
		}
		recipient, err := wire.Address(in, "recipient")
		if err != nil {
			return domain.Record{}, err
		}
		return s.relay.WithdrawTokens(ctx, caller, token, amount, recipient)
	})
}

// GetState returns the relay's current parameters. It needs no caller.
func (s *Service) GetState(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.relay == nil {
		return nil, status.Error(codes.Internal, "relay is not configured")
	}
	return wire.StateStruct(s.relay.Snapshot(), s.relay.Custody()), nil
}

// ListRecords returns one page of the record log.
func (s *Service) ListRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	locale := requestctx.LocaleFromContext(ctx)
	if s == nil || s.records == nil {
		return nil, status.Error(codes.Internal, "record store is not configured")
	}
	filter, err := recordFilter(in)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	requested, err := wire.Int(in, "page_size")
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	pageToken, err := wire.String(in, "page_token")
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	if _, err := pagination.DecodeSeqToken(pageToken); err != nil {
		return nil, apperrors.HandleError(wire.InvalidField("page_token"), locale)
	}

	page, err := s.records.ListRecords(ctx, filter, pagination.ClampPageSize(int(requested), listRecordsPageSize), pageToken)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list records: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"records":         wire.RecordList(page.Records),
		"next_page_token": structpb.NewStringValue(page.NextPageToken),
	}}, nil
}

// WatchRecords replays stored records matching the filter and then streams
// new ones as they commit. A watcher that falls behind the live feed is
// disconnected with Unavailable and can resume from the last seq it saw.
func (s *Service) WatchRecords(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	locale := requestctx.LocaleFromContext(ctx)
	if s == nil || s.records == nil {
		return status.Error(codes.Internal, "record store is not configured")
	}
	filter, err := recordFilter(in)
	if err != nil {
		return apperrors.HandleError(err, locale)
	}

	var live <-chan domain.Record
	if s.hub != nil {
		sub, cancel := s.hub.Subscribe(broadcast.DefaultBuffer)
		defer cancel()
		live = sub.Records()
	}

	last := filter.AfterSeq
	send := func(record domain.Record) error {
		if err := stream.Send(wire.RecordValue(record).GetStructValue()); err != nil {
			return err
		}
		last = record.Seq
		return nil
	}

	pageToken := ""
	for {
		page, err := s.records.ListRecords(ctx, filter, maxListRecordsPageSize, pageToken)
		if err != nil {
			return apperrors.HandleError(err, locale)
		}
		for _, record := range page.Records {
			if err := send(record); err != nil {
				return err
			}
		}
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	if live == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case record, ok := <-live:
			if !ok {
				return status.Error(codes.Unavailable, "record feed closed; resume with after_seq")
			}
			tail := filter
			tail.AfterSeq = last
			if !tail.Matches(record) {
				continue
			}
			if err := send(record); err != nil {
				return err
			}
		}
	}
}

func recordFilter(in *structpb.Struct) (storage.RecordFilter, error) {
	kinds, err := wire.Kinds(in, "kinds")
	if err != nil {
		return storage.RecordFilter{}, err
	}
	participant, err := wire.OptionalAddress(in, "participant")
	if err != nil {
		return storage.RecordFilter{}, err
	}
	recipient, err := wire.OptionalAddress(in, "recipient")
	if err != nil {
		return storage.RecordFilter{}, err
	}
	afterSeq, err := wire.Int(in, "after_seq")
	if err != nil {
		return storage.RecordFilter{}, err
	}
	return storage.RecordFilter{
		Kinds:       kinds,
		Participant: participant,
		Recipient:   recipient,
		AfterSeq:    afterSeq,
	}, nil
}
