package gate

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-user conversational context owned by the transport
// layer. It exists for the lifetime of the process only; nothing in it is
// persisted.
type Session struct {
	ID        string
	UserID    string
	Role      string
	CreatedAt time.Time

	mu       sync.Mutex
	verified *Decision
}

func (s *Session) decision() *Decision {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified == nil {
		return nil
	}
	d := *s.verified
	return &d
}

func (s *Session) setDecision(d Decision, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// set once, never downgraded
	if s.verified == nil {
		s.verified = &d
		s.Role = role
	}
}

// Sessions is an in-memory registry of sessions keyed by user identifier.
type Sessions struct {
	mu     sync.RWMutex
	byUser map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[string]*Session)}
}

// Get returns the session for userID, creating it on first contact.
func (s *Sessions) Get(userID string) *Session {
	s.mu.RLock()
	sess, ok := s.byUser[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.byUser[userID]; ok {
		return sess
	}
	sess = &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	s.byUser[userID] = sess
	return sess
}
