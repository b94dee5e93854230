package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "ecoly:session:"

// FlashMessage is a one-shot notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionIdentity is the signed-in account recorded in a session. Role is
// kept as the raw stored string; callers parse it at the point of use.
type SessionIdentity struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id"`
}

// SessionManager keeps session state in Redis behind a signed cookie. The
// cookie carries only the id and its HMAC, so a forged or truncated id is
// rejected before Redis is consulted. Every committed request slides the
// expiry forward by the configured TTL.
type SessionManager struct {
	client     redis.Cmdable
	cookieName string
	ttl        time.Duration
	secure     bool
	signingKey []byte
}

// Session is the per-request view of one stored session.
type Session struct {
	ID       string
	values   map[string]string
	identity *SessionIdentity
	flashes  []FlashMessage

	stored    bool
	dirty     bool
	destroyed bool
}

type storedSession struct {
	Values   map[string]string `json:"values,omitempty"`
	Identity *SessionIdentity  `json:"identity,omitempty"`
	Flashes  []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager builds a manager storing sessions in client. secret
// signs the cookie value.
func NewSessionManager(client redis.Cmdable, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		signingKey: []byte(secret),
	}
}

// Load returns the session named by the request cookie, or a fresh one when
// the cookie is absent, badly signed, or points at an expired entry.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return newSession(), nil
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return newSession(), nil
	}

	raw, err := sm.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return newSession(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("shared: load session: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	sess := &Session{
		ID:       id,
		values:   stored.Values,
		identity: stored.Identity,
		flashes:  stored.Flashes,
		stored:   true,
	}
	if sess.values == nil {
		sess.values = make(map[string]string)
	}
	return sess, nil
}

// Commit writes changes back to Redis and refreshes the cookie. A destroyed
// session is deleted and its cookie expired.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, _ *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if sess.ID != "" {
			if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil {
				return fmt.Errorf("shared: delete session: %w", err)
			}
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	if sess.ID == "" {
		sess.ID = rand.Text()
	}
	key := sessionKeyPrefix + sess.ID

	switch {
	case sess.dirty || !sess.stored:
		data, err := json.Marshal(storedSession{Values: sess.values, Identity: sess.identity, Flashes: sess.flashes})
		if err != nil {
			return fmt.Errorf("shared: encode session: %w", err)
		}
		if err := sm.client.Set(ctx, key, data, sm.ttl).Err(); err != nil {
			return fmt.Errorf("shared: save session: %w", err)
		}
		sess.stored = true
		sess.dirty = false
	default:
		if err := sm.client.Expire(ctx, key, sm.ttl).Err(); err != nil {
			return fmt.Errorf("shared: touch session: %w", err)
		}
	}

	http.SetCookie(w, sm.cookie(sm.sign(sess.ID), int(sm.ttl/time.Second)))
	return nil
}

// Destroy marks the session for deletion on the next Commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// Renew moves the session to a new id and drops the old Redis entry. Call it
// whenever the privilege level changes.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return ErrSessionMissing
	}
	if sess.stored && sess.ID != "" {
		if err := sm.client.Del(ctx, sessionKeyPrefix+sess.ID).Err(); err != nil {
			return fmt.Errorf("shared: renew session: %w", err)
		}
	}
	sess.ID = rand.Text()
	sess.stored = false
	sess.dirty = true
	return nil
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.signingKey)
	_, _ = h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(sm.mac(id)))
}

func newSession() *Session {
	return &Session{values: make(map[string]string)}
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetIdentity associates the session with a signed-in account.
func (s *Session) SetIdentity(identity SessionIdentity) {
	s.identity = &identity
	s.dirty = true
}

// ClearIdentity signs the session out while keeping other values.
func (s *Session) ClearIdentity() {
	s.identity = nil
	s.dirty = true
}

// Identity returns the signed-in account, if any.
func (s *Session) Identity() (SessionIdentity, bool) {
	if s == nil || s.identity == nil || s.identity.UserID == "" {
		return SessionIdentity{}, false
	}
	return *s.identity, true
}

// User returns the signed-in user id or "".
func (s *Session) User() string {
	identity, _ := s.Identity()
	return identity.UserID
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

type sessionContextKey struct{}

// ContextWithSession attaches sess to ctx.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the request session or nil.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
