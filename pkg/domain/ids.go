package domain

import (
	"github.com/google/uuid"

	dErrors "profreg/pkg/domain-errors"
)

// SessionID identifies one browser session. It is the key of the pending
// registration state and travels to the client inside the signed cookie.
type SessionID uuid.UUID

// NewSessionID returns a fresh random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the ID is the zero UUID.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// ParseSessionID parses a canonical UUID string, rejecting the nil UUID.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid session id")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id required")
	}
	return SessionID(parsed), nil
}
