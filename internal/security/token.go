// Package security issues session tokens and signs the session cookie.
package security

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// sessionTokenLength gives roughly 190 bits of entropy with the default alphabet.
const sessionTokenLength = 32

// NewSessionToken returns a URL-safe random session token.
func NewSessionToken() (string, error) {
	token, err := gonanoid.New(sessionTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return token, nil
}
