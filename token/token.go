// Package token decodes and validates dashboard bearer credentials.
//
// Credentials are JWTs whose payload carries the credential type, the
// organization login and the standard sub/iat/exp claims. By default only the
// structure and claims are checked; configure WithKeySet to verify signatures
// against a JWKS endpoint as well.
package token

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	standup "github.com/chimerakang/standup-go"
	"github.com/golang-jwt/jwt/v5"
)

// KeySet supplies verification keys for signed credentials.
// Implementations: jwks.KeySet.
type KeySet interface {
	Keyfunc(ctx context.Context) jwt.Keyfunc
}

// Validator parses and validates credentials.
type Validator struct {
	parser *jwt.Parser
	keys   KeySet
	now    func() time.Time
}

// Option configures the Validator.
type Option func(*Validator)

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithKeySet enables signature verification.
func WithKeySet(ks KeySet) Option {
	return func(v *Validator) { v.keys = ks }
}

// NewValidator creates a new credential validator.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		// Claims are checked by Validate so the messages stay stable.
		parser: jwt.NewParser(jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// payload is the JSON shape of the credential's middle segment.
type payload struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Parse decodes the credential claims. Any structural problem yields an
// *standup.AuthError with code CodeInvalidFormat.
func (v *Validator) Parse(ctx context.Context, token string) (*standup.Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, formatError()
	}
	raw, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, formatError()
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, formatError()
	}

	if v.keys != nil {
		if _, err := v.parser.Parse(token, v.keys.Keyfunc(ctx)); err != nil {
			return nil, formatError()
		}
	}

	return toClaims(&p), nil
}

// Validate parses the credential, then checks expiry and type, in that order.
// An empty expected type skips the type check.
func (v *Validator) Validate(ctx context.Context, token string, expected standup.TokenType) (*standup.Claims, error) {
	claims, err := v.Parse(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims.ExpiredAt(v.now()) {
		return nil, &standup.AuthError{Code: standup.CodeExpired, Message: "Token expired"}
	}
	if expected != "" && claims.Type != expected {
		return nil, &standup.AuthError{
			Code:    standup.CodeWrongType,
			Message: "Token type must be " + string(expected),
		}
	}
	if claims.OrgScoped() && strings.TrimSpace(claims.Username) == "" {
		return nil, formatError()
	}
	return claims, nil
}

// HasOrgAccess reports whether the credential's org login matches requiredOrg,
// ignoring case. Decode failures report false.
func (v *Validator) HasOrgAccess(ctx context.Context, token, requiredOrg string) bool {
	claims, err := v.Parse(ctx, token)
	if err != nil || claims.Username == "" {
		return false
	}
	return strings.EqualFold(claims.Username, requiredOrg)
}

func toClaims(p *payload) *standup.Claims {
	c := &standup.Claims{
		Type:     standup.TokenType(p.Type),
		Username: p.Username,
		Subject:  p.Subject,
	}
	if p.IssuedAt != nil {
		c.IssuedAt = p.IssuedAt.Time
	}
	if p.ExpiresAt != nil {
		c.ExpiresAt = p.ExpiresAt.Time
	}
	return c
}

func formatError() error {
	return &standup.AuthError{Code: standup.CodeInvalidFormat, Message: "Invalid token format"}
}

var defaultValidator = NewValidator()

// Parse decodes a credential with the default validator.
func Parse(token string) (*standup.Claims, error) {
	return defaultValidator.Parse(context.Background(), token)
}

// Validate validates a credential with the default validator.
func Validate(token string, expected standup.TokenType) (*standup.Claims, error) {
	return defaultValidator.Validate(context.Background(), token, expected)
}

// HasOrgAccess checks org access with the default validator.
func HasOrgAccess(token, requiredOrg string) bool {
	return defaultValidator.HasOrgAccess(context.Background(), token, requiredOrg)
}
