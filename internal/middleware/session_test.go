package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-admin/internal/domain"
	"card-admin/internal/security"
	"card-admin/internal/testutil"
)

type lookupFunc func(ctx context.Context, token string) (domain.Session, error)

func (f lookupFunc) Session(ctx context.Context, token string) (domain.Session, error) {
	return f(ctx, token)
}

func newCookies() *SessionCookies {
	return &SessionCookies{
		Signer: security.NewSigner("0123456789abcdef0123456789abcdef"),
		TTL:    8 * time.Hour,
	}
}

func TestSessionCookies_SetAndClear(t *testing.T) {
	cookies := newCookies()

	w := httptest.NewRecorder()
	cookies.Set(w, "tok-1")

	c := testutil.FindCookie(w, SessionCookieName)
	require.NotNil(t, c)
	assert.NotEqual(t, "tok-1", c.Value, "cookie value must be signed")
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((8 * time.Hour).Seconds()), c.MaxAge)
	assert.False(t, c.Secure)

	w = httptest.NewRecorder()
	cookies.Clear(w)
	cleared := testutil.FindCookie(w, SessionCookieName)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestSessionCookies_Secure(t *testing.T) {
	cookies := newCookies()
	cookies.Secure = true

	w := httptest.NewRecorder()
	cookies.Set(w, "tok")
	assert.True(t, testutil.FindCookie(w, SessionCookieName).Secure)
}

func TestSessionCookies_Token(t *testing.T) {
	cookies := newCookies()
	signed := cookies.Signer.Sign("tok-1")
	other := security.NewSigner("another-secret-another-secret-123").Sign("tok-1")

	tests := []struct {
		name      string
		cookie    string
		wantToken string
		wantOK    bool
	}{
		{"signed by server", signed, "tok-1", true},
		{"raw token", "tok-1", "", false},
		{"signed with other secret", other, "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				testutil.WithSessionCookie(req, tt.cookie)
			}
			token, ok := cookies.Token(req)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}

	_, ok := cookies.Token(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok, "no cookie")
}

func TestLoadSessionAndRequireAuth(t *testing.T) {
	cookies := newCookies()
	live := testutil.NewTestSession(testutil.WithToken("live"))
	anon := testutil.NewTestSession(testutil.WithToken("anon"), testutil.WithUnauthenticated())

	lookup := lookupFunc(func(ctx context.Context, token string) (domain.Session, error) {
		switch token {
		case "live":
			return *live, nil
		case "anon":
			return *anon, nil
		case "broken":
			return domain.Session{}, errors.New("db down")
		default:
			return domain.Session{}, domain.ErrSessionNotFound
		}
	})

	tests := []struct {
		name     string
		cookie   string
		wantCode int
	}{
		{"authenticated session", cookies.Signer.Sign("live"), http.StatusOK},
		{"unauthenticated session", cookies.Signer.Sign("anon"), http.StatusUnauthorized},
		{"unknown session", cookies.Signer.Sign("gone"), http.StatusUnauthorized},
		{"lookup failure", cookies.Signer.Sign("broken"), http.StatusUnauthorized},
		{"forged cookie", "live", http.StatusUnauthorized},
		{"no cookie", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen domain.Session
			protected := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = GetSession(r.Context())
				w.WriteHeader(http.StatusOK)
			}))
			handler := LoadSession(lookup, cookies)(protected)

			req := httptest.NewRequest(http.MethodGet, "/api/cards", nil)
			if tt.cookie != "" {
				testutil.WithSessionCookie(req, tt.cookie)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if tt.wantCode == http.StatusUnauthorized {
				testutil.AssertMessage(t, w, http.StatusUnauthorized, "Authentication required")
				return
			}
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "live", seen.Token)
		})
	}
}

func TestLoadSession_AnonymousContinues(t *testing.T) {
	called := false
	handler := LoadSession(lookupFunc(func(ctx context.Context, token string) (domain.Session, error) {
		t.Fatal("lookup must not run without a cookie")
		return domain.Session{}, nil
	}), newCookies())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok := GetSession(r.Context())
		assert.False(t, ok)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/status", nil))
	assert.True(t, called)
}

func TestWithSession(t *testing.T) {
	ctx := WithSession(context.Background(), domain.Session{Token: "t", Authenticated: true})
	s, ok := GetSession(ctx)
	require.True(t, ok)
	assert.Equal(t, "t", s.Token)

	_, ok = GetSession(context.Background())
	assert.False(t, ok)
}
