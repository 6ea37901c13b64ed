package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

const csrfTokenBytes = 16

// NewCSRFToken mints a random opaque value for the double-submit-cookie
// check. Regenerated on every issuance and rotation; never persisted.
func NewCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ValidCSRF compares the readable cookie value against the request
// header. Fails closed: an empty cookie or header never matches.
func ValidCSRF(cookie, header string) bool {
	if cookie == "" || header == "" {
		return false
	}
	if len(cookie) != len(header) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) == 1
}
