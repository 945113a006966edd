package domain

import (
	"context"
	"math/big"

	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// Token is the external value-transfer collaborator. Mutating calls report
// failure with false; an error means the call itself could not be made.
// Account-moving calls name the identity on whose behalf they run.
type Token interface {
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, holder identity.Address) (*big.Int, error)
	Allowance(ctx context.Context, holder, spender identity.Address) (*big.Int, error)
	Transfer(ctx context.Context, from, to identity.Address, amount *big.Int) (bool, error)
	Approve(ctx context.Context, holder, spender identity.Address, amount *big.Int) (bool, error)
	TransferFrom(ctx context.Context, spender, from, to identity.Address, amount *big.Int) (bool, error)
}

// TokenResolver finds the collaborator for a token address.
type TokenResolver interface {
	Token(ctx context.Context, addr identity.Address) (Token, error)
}

// resolveToken finds the collaborator for addr. A nil Token with a nil error
// means addr is not a registered token.
func resolveToken(ctx context.Context, resolver TokenResolver, addr identity.Address) (Token, error) {
	if resolver == nil {
		return nil, nil
	}
	token, err := resolver.Token(ctx, addr)
	if apperrors.HasCode(err, apperrors.CodeUnknownToken) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperrors.Error{
			Code:     apperrors.CodeTransferFailed,
			Message:  "resolve token",
			Metadata: map[string]string{"Token": addr.String()},
			Cause:    err,
		}
	}
	return token, nil
}

// transferResult turns the collaborator's boolean convention into an error.
func transferResult(op string, ok bool, err error) error {
	if err != nil {
		return apperrors.Wrap(apperrors.CodeTransferFailed, op, err)
	}
	if !ok {
		return apperrors.New(apperrors.CodeTransferFailed, op+" reported failure")
	}
	return nil
}
