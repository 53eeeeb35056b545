package auth

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
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
)

const SessionCookieName = "rad_session"

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrPrincipalRevoked is returned by a PrincipalLoader when the user may no
	// longer hold a session: deleted or deactivated.
	ErrPrincipalRevoked = errors.New("session principal revoked")
)

// PrincipalLoader returns the current identity for a user id.
type PrincipalLoader func(ctx context.Context, userID string) (*Principal, error)

type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// -- In-memory store --

type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session), now: time.Now}
}

func (m *MemorySessionStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.now().After(s.ExpiresAt) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// -- Redis store --

type RedisSessionStore struct {
	rdb *goredis.Client
}

func NewRedisSessionStore(rdb *goredis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func redisKeySession(id string) string { return "session:" + id }

func (r *RedisSessionStore) Save(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}
	if err := r.rdb.Set(ctx, redisKeySession(s.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, redisKeySession(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, redisKeySession(id)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// -- Manager --

// SessionManager is the cookie adapter. The cookie carries "<id>.<mac>" where
// mac is an HMAC-SHA256 of the id under SESSION_SECRET, so forged ids are
// rejected before the store is consulted.
type SessionManager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
	reload PrincipalLoader
	now    func() time.Time
}

func NewSessionManager(store SessionStore, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{store: store, secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// SetPrincipalLoader makes Middleware refresh the session's identity on every
// request, so role changes and deactivation apply before the session expires.
func (m *SessionManager) SetPrincipalLoader(fn PrincipalLoader) {
	m.reload = fn
}

// Start creates a session for p and sets the cookie.
func (m *SessionManager) Start(c echo.Context, p *Principal) (*Session, error) {
	id, err := randomID()
	if err != nil {
		return nil, err
	}
	now := m.now()
	s := &Session{ID: id, Principal: *p, CreatedAt: now, ExpiresAt: now.Add(m.ttl)}
	if err := m.store.Save(c.Request().Context(), s); err != nil {
		return nil, err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    id + "." + m.sign(id),
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// Load returns the session named by the request cookie.
func (m *SessionManager) Load(c echo.Context) (*Session, error) {
	cookie, err := c.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrSessionNotFound
	}
	id, ok := m.verify(cookie.Value)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return m.store.Get(c.Request().Context(), id)
}

// End deletes the session and expires the cookie. Missing sessions are not
// an error.
func (m *SessionManager) End(c echo.Context) error {
	if s, err := m.Load(c); err == nil {
		if err := m.store.Delete(c.Request().Context(), s.ID); err != nil {
			return err
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Middleware requires a valid session. Browser navigations are redirected to
// /login; everything else gets 401.
func (m *SessionManager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, err := m.Load(c)
			if err == nil && m.reload != nil {
				err = m.refresh(c, s)
			}
			if err != nil {
				if !errors.Is(err, ErrSessionNotFound) {
					return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
				}
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusFound, "/login")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			setPrincipal(c, &s.Principal)
			return next(c)
		}
	}
}

// refresh replaces s.Principal with the loader's current view. A revoked
// principal ends the session and reports ErrSessionNotFound.
func (m *SessionManager) refresh(c echo.Context, s *Session) error {
	p, err := m.reload(c.Request().Context(), s.Principal.UserID)
	if errors.Is(err, ErrPrincipalRevoked) {
		if err := m.End(c); err != nil {
			return err
		}
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	s.Principal = *p
	return nil
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

func (m *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *SessionManager) verify(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(id))) {
		return "", false
	}
	return id, true
}

func randomID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
