package utils // package utils provides helpers for admin tokens and booking confirmation tokens

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA‑256 digests of confirmation tokens
	"encoding/base64"
	"encoding/hex" // hex encoding of digests
	"errors"
	"time" // expirations

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// ConfirmationTokenBytes is the entropy of a booking confirmation token
// (256 bits).
const ConfirmationTokenBytes = 32

// AccessToken represents a signed JWT access token along with its expiry.
// Admin endpoints expect it in the Authorization header.
type AccessToken struct {
	Token string    `json:"token"`   // the serialized JWT string
	Exp   time.Time `json:"expires"` // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT.  The claims carry the
// subject (sub), the role, the expiration (exp) and issued-at (iat).
func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
	if secret == "" {
		return AccessToken{}, errors.New("jwt secret is empty")
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// NewConfirmationToken returns a URL-safe random token for the email
// confirmation link (base64url, no padding).
func NewConfirmationToken() (string, error) {
	buf := make([]byte, ConfirmationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a raw token.  Only the digest
// is stored.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
