// Package security issues and verifies the single-use anti-replay token
// that must accompany every checkout submission.
package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"custom-gateway/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer    = "custom-gateway"
	tokenType = "checkout"
)

var ErrTokenUsed = errors.New("token already used")

type checkoutClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Tokens signs checkout tokens with HS256 and remembers consumed token ids
// until they expire.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu   sync.Mutex
	used map[string]time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		used:   make(map[string]time.Time),
	}
}

// Issue returns a fresh token and its expiry.
func (t *Tokens) Issue() (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := checkoutClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign checkout token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the token and consumes it. Every rejection is a
// domain security error.
func (t *Tokens) Verify(_ context.Context, token string) error {
	if token == "" {
		return domain.Security("missing anti-replay token", nil)
	}

	var claims checkoutClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return domain.Security("invalid anti-replay token", err)
	}
	if claims.Type != tokenType || claims.ID == "" {
		return domain.Security("invalid anti-replay token", nil)
	}

	if err := t.consume(claims.ID, claims.ExpiresAt.Time); err != nil {
		return domain.Security("anti-replay token already used", err)
	}
	return nil
}

func (t *Tokens) consume(id string, exp time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for k, e := range t.used {
		if !e.After(now) {
			delete(t.used, k)
		}
	}
	if _, seen := t.used[id]; seen {
		return ErrTokenUsed
	}
	t.used[id] = exp
	return nil
}
