package domain

import (
	"sync"
	"time"
)

// Session represents a client's WebSocket session. Room membership is
// tracked by the room registry, not here; the session only carries the
// connection's identity.
type Session struct {
	ID           string
	UserID       string
	Username     string
	Verified     bool // identity came from a validated token
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

// NewSession creates a new session for a connection.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// SetVerifiedIdentity records an identity established by token
// verification. It is never overwritten by client-supplied fields.
func (s *Session) SetVerifiedIdentity(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UserID = userID
	s.Username = username
	s.Verified = true
	s.LastActiveAt = time.Now()
}

// SetIdentity records a client-claimed identity. It is a no-op when a
// verified identity is already present.
func (s *Session) SetIdentity(userID, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Verified {
		return
	}
	if userID != "" {
		s.UserID = userID
	}
	if username != "" {
		s.Username = username
	}
	s.LastActiveAt = time.Now()
}

// IsVerified reports whether the identity came from a validated token.
func (s *Session) IsVerified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Verified
}

// Identity returns the session's user id and username.
func (s *Session) Identity() (userID, username string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserID, s.Username
}

// UpdateActivity updates the last active timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
