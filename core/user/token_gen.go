package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"hash"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

const resetTokenSalt = "kodi.core.user.reset_token"

var (
	nowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")

	b32    = base32.StdEncoding.WithPadding(base32.NoPadding)
	tokens = resetTokens{key: deriveKey(""), ttlDays: 3}
)

// resetTokens signs password reset links as "<base32 day number>-<signature>".
// A token is bound to the account state written by writeAccountState and dies when it changes.
type resetTokens struct {
	key     []byte
	ttlDays int
}

func newResetTokens(secret string, ttl time.Duration) resetTokens {
	return resetTokens{key: deriveKey(secret), ttlDays: int(ttl / (24 * time.Hour))}
}

func deriveKey(secret string) []byte {
	key := sha256.Sum256([]byte(resetTokenSalt + secret))
	return key[:]
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for a given User.
func MakeToken(usr User) (string, error) {
	return tokens.make(usr, dayNumber(nowFunc())), nil
}

// verifyToken checks that a password reset token for a given User is valid.
func verifyToken(usr User, token string) error {
	return tokens.verify(usr, token, dayNumber(nowFunc()))
}

func (rt resetTokens) make(usr User, day int) string {
	return b32.EncodeToString([]byte(strconv.Itoa(day))) + "-" + rt.sign(usr, day)
}

func (rt resetTokens) verify(usr User, token string, today int) error {
	dayB32, _, ok := strings.Cut(token, "-")
	if !ok {
		return errInvalidToken
	}
	data, err := b32.DecodeString(dayB32)
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidToken
	}

	if subtle.ConstantTimeCompare([]byte(rt.make(usr, day)), []byte(token)) == 0 {
		return errInvalidToken
	}
	if today-day > rt.ttlDays {
		return errTokenExpired
	}
	return nil
}

func (rt resetTokens) sign(usr User, day int) string {
	h := hmac.New(sha256.New, rt.key)
	writeAccountState(h, usr)
	writeField(h, strconv.Itoa(day))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// writeAccountState writes the fields whose change revokes pending reset links.
func writeAccountState(h hash.Hash, usr User) {
	writeField(h, usr.ID)
	writeField(h, string(usr.PasswordHash))
	writeField(h, strings.ToLower(usr.Email))
	writeField(h, strconv.FormatBool(usr.IsActive))

	roles := append([]string(nil), usr.Roles...)
	sort.Strings(roles)
	writeField(h, strings.Join(roles, ","))

	if !usr.LastLogin.IsZero() {
		writeField(h, usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
}

// writeField length-prefixes s so that adjacent fields cannot run into each other.
func writeField(h hash.Hash, s string) {
	_, _ = h.Write([]byte(strconv.Itoa(len(s)) + ":" + s))
}

func dayNumber(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
