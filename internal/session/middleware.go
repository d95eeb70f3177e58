package session

import (
	"log/slog"
	"net/http"
	"time"

	id "profreg/pkg/domain"
	"profreg/pkg/requestcontext"
)

// CookieName is the name of the signed session cookie.
const CookieName = "profreg_session"

// CookieConfig controls the attributes of the issued cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// Middleware resolves the session ID from the signed cookie, minting a new
// one when the cookie is missing, tampered with or expired, and re-issues the
// cookie so an active browser keeps its session.
func Middleware(codec *CookieCodec, cfg CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			now := requestcontext.Now(ctx)

			sid, ok := fromCookie(r, codec, now)
			if !ok {
				sid = id.NewSessionID()
			}

			value, err := codec.Encode(sid, now)
			if err != nil {
				logger.ErrorContext(ctx, "failed to issue session cookie",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
			} else {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    value,
					Path:     "/",
					Expires:  now.Add(cfg.TTL),
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = requestcontext.WithSessionID(ctx, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func fromCookie(r *http.Request, codec *CookieCodec, now time.Time) (id.SessionID, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return id.SessionID{}, false
	}
	sid, err := codec.Decode(cookie.Value, now)
	if err != nil {
		return id.SessionID{}, false
	}
	return sid, true
}
