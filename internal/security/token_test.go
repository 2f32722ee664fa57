package security

import (
	"context"
	"testing"
	"time"

	"custom-gateway/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tok, exp, err := tokens.Issue()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	assert.NoError(t, tokens.Verify(context.Background(), tok))
}

func TestReplayRejected(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	tok, _, err := tokens.Issue()
	require.NoError(t, err)

	require.NoError(t, tokens.Verify(context.Background(), tok))
	err = tokens.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrSecurity)
	assert.ErrorIs(t, err, ErrTokenUsed)
}

func TestRejectedTokens(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	other := NewTokens("different", time.Minute)
	forged, _, err := other.Issue()
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":     "",
		"malformed": "not-a-token",
		"forged":    forged,
		"none alg":  noneAlg,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, tokens.Verify(context.Background(), tok), domain.ErrSecurity)
		})
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	tok, _, err := tokens.Issue()
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	assert.ErrorIs(t, tokens.Verify(context.Background(), tok), domain.ErrSecurity)
}

func TestUsedIDsPrunedAfterExpiry(t *testing.T) {
	tokens := NewTokens("s3cret", time.Minute)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }
	tok, _, err := tokens.Issue()
	require.NoError(t, err)
	require.NoError(t, tokens.Verify(context.Background(), tok))
	require.Len(t, tokens.used, 1)

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	require.NoError(t, tokens.consume("other", issued.Add(3*time.Minute)))
	assert.Len(t, tokens.used, 1)
	assert.Contains(t, tokens.used, "other")
}
