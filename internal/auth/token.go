package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/ecoly/ecoly/internal/rbac"
)

// ErrInvalidToken indicates a bearer token that failed verification.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id,omitempty"`
}

// Tokens issues and verifies HS256 bearer tokens for the JSON API.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens constructs a token issuer.
func NewTokens(secret, issuer string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for p and returns it with its expiry.
func (t *Tokens) Issue(p *rbac.Principal) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   p.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email:    p.Email,
		Role:     string(p.Role),
		SchoolID: p.TenantID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies raw and returns the principal it carries. The role claim
// goes through rbac.ParseRole like any stored role.
func (t *Tokens) Parse(raw string) (*rbac.Principal, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if t.issuer != "" && !claims.VerifyIssuer(t.issuer, true) {
		return nil, fmt.Errorf("%w: issuer", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, err := rbac.ParseRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return &rbac.Principal{ID: claims.Subject, Email: claims.Email, Role: role, TenantID: claims.SchoolID}, nil
}
