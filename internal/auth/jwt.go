package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("JWT secret not set")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims represents the JWT payload issued to an owner's dashboard session
type Claims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// Tokens signs and checks owner tokens with one HMAC secret.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a secret is configured.
func (t *Tokens) Enabled() bool {
	return t != nil && len(t.secret) > 0
}

// GenerateToken creates a signed JWT for the given owner
func (t *Tokens) GenerateToken(ownerID string) (string, error) {
	if !t.Enabled() {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken parses and verifies a JWT string
func (t *Tokens) ValidateToken(tokenStr string) (*Claims, error) {
	if !t.Enabled() {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.OwnerID == "" {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}
