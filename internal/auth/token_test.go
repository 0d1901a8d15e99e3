package auth

import (
	"testing"
	"time"

	appErrors "github.com/StrawThePie/expense-tracker-api/apperrors"
	"github.com/StrawThePie/expense-tracker-api/config"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T, secret string, lifetime time.Duration) *TokenService {
	t.Helper()
	ts, err := NewTokenService(config.Config{
		JWTSecret:     secret,
		JWTAlgorithm:  "HS256",
		TokenLifetime: lifetime,
	})
	require.NoError(t, err)
	return ts
}

func TestTokenIssueAndVerify(t *testing.T) {
	ts := newTokenService(t, "test-secret", 30*time.Minute)

	token, err := ts.Issue("john-1234")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userId, err := ts.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "john-1234", userId)
}

func TestTokenExpired(t *testing.T) {
	ts := newTokenService(t, "test-secret", -time.Minute)

	token, err := ts.Issue("john-1234")
	require.NoError(t, err)

	_, err = ts.Verify(token)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrExpired, appErrors.CodeOf(err))
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := newTokenService(t, "secret-one", 30*time.Minute)
	verifier := newTokenService(t, "secret-two", 30*time.Minute)

	token, err := issuer.Issue("john-1234")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))
}

func TestTokenMalformed(t *testing.T) {
	ts := newTokenService(t, "test-secret", 30*time.Minute)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := ts.Verify(token)
		require.Error(t, err)
		require.Equal(t, appErrors.ErrAuth, appErrors.CodeOf(err))
	}
}

func TestTokenServiceRejectsNonHMAC(t *testing.T) {
	_, err := NewTokenService(config.Config{
		JWTSecret:     "test-secret",
		JWTAlgorithm:  "RS256",
		TokenLifetime: 30 * time.Minute,
	})
	require.Error(t, err)

	_, err = NewTokenService(config.Config{
		JWTSecret:     "test-secret",
		JWTAlgorithm:  "bogus",
		TokenLifetime: 30 * time.Minute,
	})
	require.Error(t, err)
}
