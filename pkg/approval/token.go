package approval

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// tokenInfo labels the HKDF expansion so the token key cannot collide
// with other keys derived from the same master secret.
const tokenInfo = "rudder/hitl-token/v1"

const tokenIssuer = "rudder"

// DefaultTokenTTL bounds how long an issued operator token stays valid.
const DefaultTokenTTL = 12 * time.Hour

// TokenIssuer signs and verifies the short-lived operator tokens the
// review console uses to attribute decisions to a person.
type TokenIssuer struct {
	key   []byte
	clock func() time.Time
}

// NewTokenIssuer derives the HS256 signing key from the master secret
// using HKDF-SHA256.
func NewTokenIssuer(masterSecret string) (*TokenIssuer, error) {
	if masterSecret == "" {
		return nil, errors.New("approval: master secret required for operator tokens")
	}

	r := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte(tokenInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive token key: %w", err)
	}
	return &TokenIssuer{key: key, clock: time.Now}, nil
}

// WithClock overrides the time source for tests.
func (t *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	t.clock = clock
	return t
}

// Issue signs a token naming the operator.
func (t *TokenIssuer) Issue(operator string, ttl time.Duration) (string, error) {
	if operator == "" {
		return "", errors.New("approval: operator required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := t.clock().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   operator,
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return signed, nil
}

// VerifySubject validates the token and returns the operator it names.
// Wrong signature, wrong method, wrong issuer or expiry all fail
// closed.
func (t *TokenIssuer) VerifySubject(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(tok *jwt.Token) (interface{}, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
			}
			return t.key, nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock),
	)
	if err != nil {
		return "", fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid operator token")
	}
	return claims.Subject, nil
}
