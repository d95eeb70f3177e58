package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
)

const cookieIssuer = "profreg"

// CookieCodec signs and verifies the session cookie value. The value is an
// HS256 JWT whose subject is the session ID; it carries no registration data.
type CookieCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewCookieCodec creates a codec signing with secret. Tokens expire after ttl.
func NewCookieCodec(secret []byte, ttl time.Duration) *CookieCodec {
	return &CookieCodec{secret: secret, ttl: ttl}
}

// Encode signs a token for sid issued at now.
func (c *CookieCodec) Encode(sid id.SessionID, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sid.String(),
		Issuer:    cookieIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies value and returns the session ID it names.
func (c *CookieCodec) Decode(value string, now time.Time) (id.SessionID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cookieIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.SessionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "session cookie expired")
		}
		return id.SessionID{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid session cookie")
	}
	return id.ParseSessionID(claims.Subject)
}
