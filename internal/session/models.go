// Package session holds the per-browser pending registration between the
// form submission and the code check.
package session

import (
	"time"

	"profreg/internal/registrant/models"
	id "profreg/pkg/domain"
)

// Session is the server-side state of one browser. Pending and Code are set
// together by a registration attempt and cleared together on verification.
type Session struct {
	ID        id.SessionID
	Pending   *models.Registrant
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPending reports whether a registration is waiting for its code.
func (s *Session) HasPending() bool {
	return s != nil && s.Pending != nil && s.Code != ""
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}

func (s *Session) clone() *Session {
	c := *s
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}
