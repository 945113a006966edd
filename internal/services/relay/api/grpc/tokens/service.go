// Package tokens serves relay.v1.LedgerService, the fungible-token ledger
// that request fees and withdrawals settle against.
package tokens

import (
	"context"
	"math/big"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/platform/requestctx"
	"github.com/louisbranch/connect-relay/internal/services/ledger"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/metadata"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/relayv1"
	"github.com/louisbranch/connect-relay/internal/services/relay/api/grpc/wire"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Service exposes ledger tokens over gRPC. Mutations act for the caller; the
// relay's custody identity is reserved for the relay itself.
type Service struct {
	relayv1.UnimplementedLedgerServiceServer
	ledger  *ledger.Ledger
	custody identity.Address
}

// NewService creates a ledger service.
func NewService(l *ledger.Ledger, custody identity.Address) *Service {
	return &Service{ledger: l, custody: custody}
}

func (s *Service) token(ctx context.Context, in *structpb.Struct) (*ledger.Token, error) {
	addr, err := wire.Address(in, "token")
	if err != nil {
		return nil, err
	}
	return s.ledger.Token(ctx, addr)
}

func (s *Service) query(ctx context.Context, in *structpb.Struct, read func(*ledger.Token) (*big.Int, error)) (*structpb.Struct, error) {
	locale := requestctx.LocaleFromContext(ctx)
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "ledger is not configured")
	}
	token, err := s.token(ctx, in)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	amount, err := read(token)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	return wire.AmountStruct(amount), nil
}

func (s *Service) mutate(ctx context.Context, in *structpb.Struct, write func(*ledger.Token, identity.Address, *big.Int) (bool, error)) (*structpb.Struct, error) {
	locale := requestctx.LocaleFromContext(ctx)
	if s == nil || s.ledger == nil {
		return nil, status.Error(codes.Internal, "ledger is not configured")
	}
	caller, err := metadata.RequireCaller(ctx)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	if caller == s.custody {
		err := apperrors.WithMetadata(apperrors.CodeUnauthorized, "custody moves only through the relay", map[string]string{"Role": "relay"})
		return nil, apperrors.HandleError(err, locale)
	}
	token, err := s.token(ctx, in)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	amount, err := wire.Amount(in, "amount")
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	ok, err := write(token, caller, amount)
	if err != nil {
		return nil, apperrors.HandleError(err, locale)
	}
	return wire.OKStruct(ok), nil
}

func (s *Service) TotalSupply(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.query(ctx, in, func(token *ledger.Token) (*big.Int, error) {
		return token.TotalSupply(ctx)
	})
}

func (s *Service) BalanceOf(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.query(ctx, in, func(token *ledger.Token) (*big.Int, error) {
		holder, err := wire.Address(in, "holder")
		if err != nil {
			return nil, err
		}
		return token.BalanceOf(ctx, holder)
	})
}

func (s *Service) Allowance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.query(ctx, in, func(token *ledger.Token) (*big.Int, error) {
		holder, err := wire.Address(in, "holder")
		if err != nil {
			return nil, err
		}
		spender, err := wire.Address(in, "spender")
		if err != nil {
			return nil, err
		}
		return token.Allowance(ctx, holder, spender)
	})
}

// Transfer moves the caller's tokens.
func (s *Service) Transfer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(token *ledger.Token, caller identity.Address, amount *big.Int) (bool, error) {
		to, err := wire.Address(in, "to")
		if err != nil {
			return false, err
		}
		return token.Transfer(ctx, caller, to, amount)
	})
}

// Approve sets how much spender may pull from the caller.
func (s *Service) Approve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(token *ledger.Token, caller identity.Address, amount *big.Int) (bool, error) {
		spender, err := wire.Address(in, "spender")
		if err != nil {
			return false, err
		}
		return token.Approve(ctx, caller, spender, amount)
	})
}

// TransferFrom spends the caller's allowance over from.
func (s *Service) TransferFrom(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.mutate(ctx, in, func(token *ledger.Token, caller identity.Address, amount *big.Int) (bool, error) {
		from, err := wire.Address(in, "from")
		if err != nil {
			return false, err
		}
		to, err := wire.Address(in, "to")
		if err != nil {
			return false, err
		}
		return token.TransferFrom(ctx, caller, from, to, amount)
	})
}
