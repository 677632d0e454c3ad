package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionState describes what the server knows about a session identifier.
type SessionState int

const (
	// SessionAbsent means no mapping exists for the identifier.
	SessionAbsent SessionState = iota
	// SessionActive means the identifier maps to a user claim.
	SessionActive
	// SessionDestroyed means the identifier was explicitly invalidated by logout.
	SessionDestroyed
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "active"
	case SessionDestroyed:
		return "destroyed"
	default:
		return "absent"
	}
}

// Claim is the minimal user projection bound to a session.
type Claim struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Session holds per-request session data.
type Session struct {
	ID    string
	State SessionState
	Claim Claim
}

// Active reports whether the session carries a valid claim.
func (s *Session) Active() bool {
	return s != nil && s.State == SessionActive
}

// SessionStore is the key-value backend holding encoded sessions. Get returns
// ErrNotFound for unknown or expired identifiers.
type SessionStore interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Set(ctx context.Context, id string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// SessionManager orchestrates cookie based sessions backed by a SessionStore.
type SessionManager struct {
	store      SessionStore
	cookieName string
	ttl        time.Duration
	secure     bool
}

type sessionRecord struct {
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Destroyed bool   `json:"destroyed,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(store SessionStore, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load resolves the session referenced by the request cookie.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return &Session{State: SessionAbsent}, nil
		}
		return nil, err
	}
	return sm.Get(ctx, cookie.Value)
}

// Get resolves a session identifier to its current state.
func (sm *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return &Session{State: SessionAbsent}, nil
	}
	data, err := sm.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Session{ID: id, State: SessionAbsent}, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// Unreadable payloads are dropped so the identifier cannot be replayed.
		_ = sm.store.Delete(ctx, id)
		return &Session{ID: id, State: SessionAbsent}, nil
	}
	switch {
	case rec.Destroyed:
		return &Session{ID: id, State: SessionDestroyed}, nil
	case rec.UserID == "":
		return &Session{ID: id, State: SessionAbsent}, nil
	}
	return &Session{
		ID:    id,
		State: SessionActive,
		Claim: Claim{UserID: rec.UserID, Email: rec.Email},
	}, nil
}

// Create issues a new identifier for claim, persists it and sets the cookie.
func (sm *SessionManager) Create(ctx context.Context, w http.ResponseWriter, claim Claim) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	data, err := json.Marshal(sessionRecord{UserID: claim.UserID, Email: claim.Email})
	if err != nil {
		return nil, err
	}
	if err := sm.store.Set(ctx, id.String(), data, sm.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    id.String(),
		Path:     "/",
		MaxAge:   int(sm.ttl.Seconds()),
		Expires:  time.Now().Add(sm.ttl),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return &Session{ID: id.String(), State: SessionActive, Claim: claim}, nil
}

// Revoke replaces an active session with a tombstone. Non-active sessions are
// left untouched.
func (sm *SessionManager) Revoke(ctx context.Context, sess *Session) error {
	if !sess.Active() {
		return nil
	}
	data, err := json.Marshal(sessionRecord{Destroyed: true})
	if err != nil {
		return err
	}
	if err := sm.store.Set(ctx, sess.ID, data, sm.ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrDestroyFailed, err)
	}
	sess.State = SessionDestroyed
	sess.Claim = Claim{}
	return nil
}

// Destroy revokes the session and tells the client to drop its cookie. When
// the store write fails the cookie is left in place.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if err := sm.Revoke(ctx, sess); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}
