package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"

	"filevault/internal/models"
)

var ErrInvalidUID = errors.New("invalid uid")

// ResetTokens derives password-reset tokens from the user's id, current
// password hash and issue time. Nothing is stored: a token stops checking out
// once the password hash changes or the timeout passes.
type ResetTokens struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

func NewResetTokens(secret string, timeout time.Duration) *ResetTokens {
	return &ResetTokens{
		secret:  []byte(secret),
		timeout: timeout,
		now:     time.Now,
	}
}

func (r *ResetTokens) Make(user models.User) string {
	return r.makeAt(user, r.now().Unix())
}

func (r *ResetTokens) Check(user models.User, token string) bool {
	tsPart, _, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil || ts < 0 {
		return false
	}

	expected := r.makeAt(user, ts)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return false
	}

	age := r.now().Sub(time.Unix(ts, 0))
	return age <= r.timeout
}

func (r *ResetTokens) makeAt(user models.User, ts int64) string {
	mac := hmac.New(sha256.New, r.secret)
	mac.Write([]byte(strconv.FormatInt(user.ID, 10)))
	mac.Write([]byte{0})
	mac.Write(user.PasswordHash)
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	return strconv.FormatInt(ts, 36) + "-" + hex.EncodeToString(mac.Sum(nil))
}

// EncodeUID renders a user id the way it travels in reset links.
func EncodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func DecodeUID(uid string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uid, "="))
	if err != nil {
		return 0, ErrInvalidUID
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidUID
	}
	return id, nil
}
