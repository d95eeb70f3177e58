package session

import (
	"context"
	"sync"
	"time"

	"profreg/internal/registrant/models"
	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
	"profreg/pkg/requestcontext"
)

// ErrNotFound is returned when a session has no state or has expired.
var ErrNotFound = sentinel.ErrNotFound

// InMemoryStore keeps sessions in a process-local map. Entries idle for
// longer than ttl are treated as absent and swept on the next write.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	ttl      time.Duration
}

// NewInMemoryStore creates an empty store. A zero ttl disables expiry.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[id.SessionID]*Session),
		ttl:      ttl,
	}
}

// Get returns a copy of the session state for sid.
func (s *InMemoryStore) Get(ctx context.Context, sid id.SessionID) (*Session, error) {
	now := requestcontext.Now(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sid]
	if !ok || sess.expired(now, s.ttl) {
		return nil, ErrNotFound
	}
	return sess.clone(), nil
}

// SavePending replaces the pending registrant and code of sid, creating the
// session when needed. The last write wins.
func (s *InMemoryStore) SavePending(ctx context.Context, sid id.SessionID, r *models.Registrant, code string) error {
	now := requestcontext.Now(ctx)
	pending := *r

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)

	sess, ok := s.sessions[sid]
	if !ok {
		sess = &Session{ID: sid, CreatedAt: now}
		s.sessions[sid] = sess
	}
	sess.Pending = &pending
	sess.Code = code
	sess.UpdatedAt = now
	return nil
}

// ClearPending drops the pending state of sid. Clearing an absent session is
// not an error.
func (s *InMemoryStore) ClearPending(_ context.Context, sid id.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

// Len returns the number of live entries, expired ones included until swept.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *InMemoryStore) sweepLocked(now time.Time) {
	for key, sess := range s.sessions {
		if sess.expired(now, s.ttl) {
			delete(s.sessions, key)
		}
	}
}
