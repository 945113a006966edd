package domain

import (
	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// Role names carried by Unauthorized errors.
const (
	RoleOwner        = "owner"
	RoleAdmin        = "admin"
	RoleAdminOrOwner = "admin_or_owner"
)

// IsOwner reports whether addr is the current owner.
func IsOwner(state State, addr identity.Address) bool {
	return !addr.IsZero() && state.Owner == addr
}

// IsAdmin reports whether addr is in the admin set.
func IsAdmin(state State, addr identity.Address) bool {
	return state.Admins.Has(addr)
}

// RequireOwner fails unless caller is the owner.
func RequireOwner(state State, caller identity.Address) error {
	if IsOwner(state, caller) {
		return nil
	}
	return unauthorized(RoleOwner)
}

// RequireAdmin fails unless caller is an admin.
func RequireAdmin(state State, caller identity.Address) error {
	if IsAdmin(state, caller) {
		return nil
	}
	return unauthorized(RoleAdmin)
}

// RequireAdminOrOwner fails unless caller is an admin or the owner.
func RequireAdminOrOwner(state State, caller identity.Address) error {
	if IsAdmin(state, caller) || IsOwner(state, caller) {
		return nil
	}
	return unauthorized(RoleAdminOrOwner)
}

// requireWithdrawalsOpen fails while admin withdrawals are paused. When
// exemptIfOwner is set the owner passes regardless of the flag.
func requireWithdrawalsOpen(state State, caller identity.Address, exemptIfOwner bool) error {
	if !state.AdminWithdrawalsPaused {
		return nil
	}
	if exemptIfOwner && IsOwner(state, caller) {
		return nil
	}
	return paused(operationWithdrawals)
}

const (
	operationRequests    = "Connection requests"
	operationResponses   = "Connection responses"
	operationWithdrawals = "Admin withdrawals"
)

func unauthorized(role string) error {
	return apperrors.WithMetadata(apperrors.CodeUnauthorized, "caller lacks role "+role, map[string]string{"Role": role})
}

func invalidArgument(field string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidArgument, "invalid "+field, map[string]string{"Field": field})
}

func paused(operation string) error {
	return apperrors.WithMetadata(apperrors.CodePaused, operation+" paused", map[string]string{"Operation": operation})
}

func alreadyAdmin(addr identity.Address) error {
	return apperrors.WithMetadata(apperrors.CodeAlreadyExists, "admin already exists", map[string]string{"Address": addr.String()})
}

func notAdmin(addr identity.Address) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound, "admin not found", map[string]string{"Address": addr.String()})
}
