package service

import (
	"context"
	"crypto/subtle"
	"time"

	"card-admin/internal/domain"
	"card-admin/internal/observability"
	"card-admin/internal/security"

	"golang.org/x/crypto/bcrypt"
)

// AuthConfig carries the admin secret and session lifetime.
type AuthConfig struct {
	Password     string
	PasswordHash string // bcrypt; takes precedence over Password
	SessionTTL   time.Duration
}

// AuthService gates the admin area behind a single shared secret.
type AuthService struct {
	sessions domain.SessionRepository
	cfg      AuthConfig
	now      func() time.Time
	newToken func() (string, error)
}

func NewAuthService(sessions domain.SessionRepository, cfg AuthConfig) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	return &AuthService{
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
		newToken: security.NewSessionToken,
	}
}

// Login checks the submitted secret and opens an authenticated session.
// It fails closed with ErrServerMisconfigured when no secret is configured.
func (s *AuthService) Login(ctx context.Context, password string) (*domain.Session, error) {
	if s.cfg.Password == "" && s.cfg.PasswordHash == "" {
		return nil, domain.ErrServerMisconfigured
	}
	if !s.checkPassword(password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.Session{
		Token:         token,
		Authenticated: true,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
		CreatedAt:     now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AuthService) checkPassword(password string) bool {
	if s.cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.PasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.Password)) == 1
}

// Logout destroys the session server-side. An empty token is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Session returns a snapshot of a live session, or ErrSessionNotFound.
func (s *AuthService) Session(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return domain.Session{}, err
	}
	if session.Expired(s.now()) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return *session, nil
}

// PurgeExpired removes sessions past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	observability.SessionsPurgedTotal.Add(float64(n))
	return n, nil
}
