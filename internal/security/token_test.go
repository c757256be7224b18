package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer() *TokenIssuer {
	return NewTokenIssuer("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
}

func TestPair_RoundTrip(t *testing.T) {
	issuer := newIssuer()

	pair, err := issuer.Pair(42)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	access, err := issuer.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.Equal(t, "42", access.Subject)

	refresh, err := issuer.ParseRefresh(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), refresh.UserID)
}

func TestRefreshTokenIsNotAnAccessToken(t *testing.T) {
	issuer := NewTokenIssuer("same", "same", time.Minute, time.Hour)

	pair, err := issuer.Pair(7)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.Refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = issuer.ParseRefresh(pair.Access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestParseAccess_Expired(t *testing.T) {
	issuer := newIssuer()
	issued := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return issued }

	token, err := issuer.Access(1)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.ParseAccess(token)
	assert.Error(t, err)
}

func TestParseAccess_WrongSecret(t *testing.T) {
	token, err := newIssuer().Access(1)
	require.NoError(t, err)

	other := NewTokenIssuer("other", "other", time.Minute, time.Hour)
	_, err = other.ParseAccess(token)
	assert.Error(t, err)
}
