package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
)

const (
	// CSRFSessionKey holds the per-session CSRF secret.
	CSRFSessionKey = "csrf_secret"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for script-driven requests.
	CSRFHeader = "X-CSRF-Token"

	csrfSecretSize = 32
)

// CSRFManager issues and verifies CSRF tokens bound to a session. Each
// session keeps one random secret; every rendered token is that secret's
// server-keyed MAC masked with a fresh one-time pad, so no two pages carry
// the same token.
type CSRFManager struct {
	key []byte
}

// NewCSRFManager returns a CSRFManager keyed by secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{key: []byte(secret)}
}

// EnsureToken returns a token for sess, creating the session secret on
// first use.
func (m *CSRFManager) EnsureToken(_ context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", ErrSessionMissing
	}
	secret, ok := decodeCSRFSecret(sess.Get(CSRFSessionKey))
	if !ok {
		secret = make([]byte, csrfSecretSize)
		_, _ = rand.Read(secret)
		sess.Set(CSRFSessionKey, base64.RawURLEncoding.EncodeToString(secret))
	}
	return mask(m.bind(secret)), nil
}

// VerifyToken checks token against the session secret.
func (m *CSRFManager) VerifyToken(_ context.Context, sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	secret, ok := decodeCSRFSecret(sess.Get(CSRFSessionKey))
	if !ok {
		return ErrCSRFTokenMissing
	}
	bound, ok := unmask(token)
	if !ok || !hmac.Equal(bound, m.bind(secret)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// CSRFTokenFromRequest reads the token from the form body, then the header.
func CSRFTokenFromRequest(r *http.Request) string {
	if token := r.PostFormValue(CSRFFormField); token != "" {
		return token
	}
	return r.Header.Get(CSRFHeader)
}

func (m *CSRFManager) bind(secret []byte) []byte {
	mac := hmac.New(sha256.New, m.key)
	_, _ = mac.Write(secret)
	return mac.Sum(nil)
}

func decodeCSRFSecret(value string) ([]byte, bool) {
	if value == "" {
		return nil, false
	}
	secret, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(secret) != csrfSecretSize {
		return nil, false
	}
	return secret, true
}

// mask returns base64(pad || pad^value).
func mask(value []byte) string {
	out := make([]byte, 2*len(value))
	pad := out[:len(value)]
	_, _ = rand.Read(pad)
	subtle.XORBytes(out[len(value):], value, pad)
	return base64.RawURLEncoding.EncodeToString(out)
}

func unmask(token string) ([]byte, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != 2*sha256.Size {
		return nil, false
	}
	value := make([]byte, sha256.Size)
	subtle.XORBytes(value, raw[sha256.Size:], raw[:sha256.Size])
	return value, true
}
