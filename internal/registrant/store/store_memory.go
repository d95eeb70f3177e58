package store

import (
	"context"
	"sync"

	"profreg/internal/registrant/models"
)

// InMemoryStore keeps registrants in process memory. It backs db_driver=memory
// for local runs and the end-to-end HTTP tests.
type InMemoryStore struct {
	mu   sync.RWMutex
	rows []models.Registrant
}

// NewInMemory creates an empty in-memory gateway.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) ExistsByEmailOrPhone(_ context.Context, email, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(email, phone), nil
}

func (s *InMemoryStore) existsLocked(email, phone string) bool {
	for _, r := range s.rows {
		if r.Email == email || r.Phone == phone {
			return true
		}
	}
	return false
}

func (s *InMemoryStore) InsertIfUnique(_ context.Context, r *models.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsLocked(r.Email, r.Phone) {
		return ErrConflict
	}
	s.rows = append(s.rows, *r)
	return nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*models.Registrant, 0, len(s.rows))
	for i := range s.rows {
		r := s.rows[i]
		result = append(result, &r)
	}
	return result, nil
}

func (s *InMemoryStore) ListProfessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, 0, len(s.rows))
	for _, r := range s.rows {
		result = append(result, r.Profession)
	}
	return result, nil
}

func (s *InMemoryStore) Ping(_ context.Context) error {
	return nil
}
