package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"card-admin/internal/domain"
	"card-admin/internal/observability"
	"card-admin/internal/security"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "DEMODI_ADMIN"

type contextKey string

const sessionKey contextKey = "session"

// SessionLookup resolves a token to a live session snapshot.
type SessionLookup interface {
	Session(ctx context.Context, token string) (domain.Session, error)
}

// SessionCookies writes and reads the admin session cookie.
type SessionCookies struct {
	Signer *security.Signer
	TTL    time.Duration
	Secure bool
}

// Set issues the cookie for token. It is HttpOnly, SameSite=Strict and
// expires with the session.
func (c *SessionCookies) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    c.Signer.Sign(token),
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		Expires:  time.Now().Add(c.TTL),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear tells the client to drop the cookie.
func (c *SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Token returns the verified session token from the request, if any.
func (c *SessionCookies) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	token, err := c.Signer.Verify(cookie.Value)
	if err != nil {
		return "", false
	}
	return token, true
}

// LoadSession attaches the caller's session snapshot to the request context.
// Requests without a valid session continue anonymously.
func LoadSession(lookup SessionLookup, cookies *SessionCookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := cookies.Token(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			session, err := lookup.Session(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrSessionNotFound) {
					observability.FromContext(r.Context()).Error("session lookup failed", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), session)))
		})
	}
}

// RequireAuth rejects requests whose session is not authenticated.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session, ok := GetSession(r.Context()); !ok || !session.Authenticated {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetSession returns the session snapshot loaded for this request.
func GetSession(ctx context.Context) (domain.Session, bool) {
	session, ok := ctx.Value(sessionKey).(domain.Session)
	return session, ok
}

func WithSession(ctx context.Context, session domain.Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
