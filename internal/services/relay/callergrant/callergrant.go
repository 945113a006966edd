// Package callergrant signs and verifies caller grants: short-lived EdDSA
// JWTs whose subject is the address a client acts as.
package callergrant

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/louisbranch/connect-relay/internal/platform/errors"
	"github.com/louisbranch/connect-relay/internal/platform/id"
	"github.com/louisbranch/connect-relay/internal/services/relay/identity"
)

// DefaultTTL is the lifetime of grants minted without an explicit TTL.
const DefaultTTL = 5 * time.Minute

// Verifier checks grants issued for this relay.
type Verifier struct {
	Issuer   string
	Audience string
	Key      ed25519.PublicKey
	Now      func() time.Time
}

// NewVerifier builds a verifier from raw configuration values. It returns
// nil without error when none of the values are set, meaning grants are off.
func NewVerifier(issuer, audience, publicKey string, now func() time.Time) (*Verifier, error) {
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	publicKey = strings.TrimSpace(publicKey)
	if issuer == "" && audience == "" && publicKey == "" {
		return nil, nil
	}
	if issuer == "" {
		return nil, fmt.Errorf("RELAY_GRANT_ISSUER is required")
	}
	if audience == "" {
		return nil, fmt.Errorf("RELAY_GRANT_AUDIENCE is required")
	}
	keyBytes, err := DecodeKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decode caller grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("caller grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return &Verifier{Issuer: issuer, Audience: audience, Key: ed25519.PublicKey(keyBytes), Now: now}, nil
}

// Verify validates grant and returns the address it was issued to.
func (v *Verifier) Verify(grant string) (identity.Address, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return identity.Zero, apperrors.New(apperrors.CodeCallerGrantInvalid, "caller grant is required")
	}
	if v == nil || v.Issuer == "" || v.Audience == "" || len(v.Key) != ed25519.PublicKeySize {
		return identity.Zero, errors.New("caller grant verifier is not configured")
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(grant, &claims, func(token *jwt.Token) (any, error) {
		return v.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithIssuer(v.Issuer),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return identity.Zero, mapJWTError(err)
	}
	caller, err := identity.ParseAddress(claims.Subject)
	if err != nil || caller.IsZero() {
		return identity.Zero, apperrors.WithMetadata(apperrors.CodeCallerGrantInvalid, "caller grant subject is not an address", map[string]string{"Field": "sub"})
	}
	return caller, nil
}

// Signer mints grants.
type Signer struct {
	Issuer   string
	Audience string
	Key      ed25519.PrivateKey
	TTL      time.Duration
	Now      func() time.Time
}

// NewSigner builds a signer from raw configuration values.
func NewSigner(issuer, audience, privateKey string, ttl time.Duration) (*Signer, error) {
	issuer = strings.TrimSpace(issuer)
	audience = strings.TrimSpace(audience)
	if issuer == "" || audience == "" {
		return nil, fmt.Errorf("caller grant issuer and audience are required")
	}
	keyBytes, err := DecodeKey(strings.TrimSpace(privateKey))
	if err != nil {
		return nil, fmt.Errorf("decode caller grant private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("caller grant private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{Issuer: issuer, Audience: audience, Key: ed25519.PrivateKey(keyBytes), TTL: ttl, Now: time.Now}, nil
}

// Sign returns a grant for caller.
func (s *Signer) Sign(caller identity.Address) (string, error) {
	if s == nil || len(s.Key) != ed25519.PrivateKeySize {
		return "", errors.New("caller grant signer is not configured")
	}
	if caller.IsZero() {
		return "", errors.New("caller is required")
	}
	jti, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	issuedAt := now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    s.Issuer,
		Subject:   caller.String(),
		Audience:  jwt.ClaimStrings{s.Audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		NotBefore: jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.TTL)),
		ID:        jti,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("sign caller grant: %w", err)
	}
	return signed, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return apperrors.New(apperrors.CodeCallerGrantInvalid, "caller grant signature is invalid")
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.New(apperrors.CodeCallerGrantInvalid, "caller grant is expired")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return apperrors.New(apperrors.CodeCallerGrantInvalid, "caller grant was issued for another relay")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.New(apperrors.CodeCallerGrantInvalid, "caller grant alg is invalid")
	}
	return apperrors.Wrap(apperrors.CodeCallerGrantInvalid, "caller grant is invalid", err)
}

// DecodeKey decodes a raw or padded standard base64 key.
func DecodeKey(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
