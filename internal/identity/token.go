package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminRole is the role claim carried by admin tokens.
const AdminRole = "admin"

// ErrNoSecret is returned when an AdminTokenIssuer has no signing secret.
var ErrNoSecret = errors.New("admin secret not configured")

// AdminTokenClaims are the JWT claims for an operator token.
type AdminTokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// AdminTokenIssuer issues and verifies admin tokens signed with HS256.
type AdminTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAdminTokenIssuer creates an AdminTokenIssuer.
//
//	secret: shared HMAC key; an empty secret disables issuing and rejects every token.
//	issuer: the "iss" claim value.
//	ttl: token lifetime (default: 1 hour).
func NewAdminTokenIssuer(secret, issuer string, ttl time.Duration) *AdminTokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &AdminTokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Enabled reports whether a secret is configured.
func (a *AdminTokenIssuer) Enabled() bool { return len(a.secret) > 0 }

// Issue creates a signed admin token for subject.
func (a *AdminTokenIssuer) Issue(subject string) (string, error) {
	if !a.Enabled() {
		return "", ErrNoSecret
	}
	now := time.Now().UTC()
	claims := AdminTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.New().String(),
		},
		Role: AdminRole,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an admin token, returning its claims on success.
func (a *AdminTokenIssuer) Verify(tokenStr string) (*AdminTokenClaims, error) {
	if !a.Enabled() {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AdminTokenClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*AdminTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Role != AdminRole {
		return nil, fmt.Errorf("token does not carry the %s role", AdminRole)
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (a *AdminTokenIssuer) TTL() time.Duration { return a.ttl }
