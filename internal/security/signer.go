package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid cookie signature")

// Signer binds a session token to the server secret so a cookie value
// cannot be forged or altered by the client. Signed values have the form
// "<token>.<base64url hmac-sha256>".
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(token string) string {
	return token + "." + s.mac(token)
}

// Verify returns the token carried by a signed value.
func (s *Signer) Verify(value string) (string, error) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 || i == len(value)-1 {
		return "", ErrInvalidSignature
	}
	token, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(token))) {
		return "", ErrInvalidSignature
	}
	return token, nil
}

func (s *Signer) mac(token string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
