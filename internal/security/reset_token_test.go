package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/models"
)

func fixedResetTokens(at time.Time) *ResetTokens {
	r := NewResetTokens("reset-secret", 72*time.Hour)
	r.now = func() time.Time { return at }
	return r
}

func TestResetToken_Valid(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tokens := fixedResetTokens(now)
	user := models.User{ID: 9, PasswordHash: []byte("hash-1")}

	token := tokens.Make(user)
	assert.True(t, tokens.Check(user, token))
}

func TestResetToken_InvalidAfterPasswordChange(t *testing.T) {
	tokens := fixedResetTokens(time.Now())
	user := models.User{ID: 9, PasswordHash: []byte("hash-1")}
	token := tokens.Make(user)

	user.PasswordHash = []byte("hash-2")
	assert.False(t, tokens.Check(user, token))
}

func TestResetToken_BoundToUser(t *testing.T) {
	tokens := fixedResetTokens(time.Now())
	token := tokens.Make(models.User{ID: 9, PasswordHash: []byte("h")})

	assert.False(t, tokens.Check(models.User{ID: 10, PasswordHash: []byte("h")}, token))
}

func TestResetToken_Expires(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens := fixedResetTokens(issued)
	user := models.User{ID: 1, PasswordHash: []byte("h")}
	token := tokens.Make(user)

	tokens.now = func() time.Time { return issued.Add(72 * time.Hour) }
	assert.True(t, tokens.Check(user, token))

	tokens.now = func() time.Time { return issued.Add(72*time.Hour + time.Second) }
	assert.False(t, tokens.Check(user, token))
}

func TestResetToken_Garbage(t *testing.T) {
	tokens := fixedResetTokens(time.Now())
	user := models.User{ID: 1, PasswordHash: []byte("h")}

	for _, token := range []string{"", "nodash", "zz!-abc", "-abc", "abc-"} {
		assert.False(t, tokens.Check(user, token), token)
	}
}

func TestUIDRoundTrip(t *testing.T) {
	uid := EncodeUID(123)
	assert.Equal(t, "MTIz", uid)

	id, err := DecodeUID(uid)
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)

	id, err = DecodeUID("MTIz==")
	require.NoError(t, err)
	assert.Equal(t, int64(123), id)
}

func TestDecodeUID_Invalid(t *testing.T) {
	for _, uid := range []string{"", "!!!", "YWJj", "MA"} {
		_, err := DecodeUID(uid)
		assert.ErrorIs(t, err, ErrInvalidUID, uid)
	}
}
