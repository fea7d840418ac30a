package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"card-admin/internal/domain"
)

const (
	insertSessionQuery = `
		INSERT INTO admin_sessions (token, authenticated, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	getSessionByTokenQuery = `
		SELECT token, authenticated, expires_at, created_at
		FROM admin_sessions
		WHERE token = $1 AND expires_at > $2
	`
	deleteSessionQuery        = `DELETE FROM admin_sessions WHERE token = $1`
	deleteExpiredSessionQuery = `DELETE FROM admin_sessions WHERE expires_at <= $1`
)

// SessionRepository stores admin sessions so they survive restarts and are
// shared between replicas.
type SessionRepository struct {
	db                *sql.DB
	now               func() time.Time
	createStmt        *sql.Stmt
	getByTokenStmt    *sql.Stmt
	deleteStmt        *sql.Stmt
	deleteExpiredStmt *sql.Stmt
}

// NewSessionRepository creates a new SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db, now: time.Now}

	var err error
	repo.createStmt, err = db.Prepare(insertSessionQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.getByTokenStmt, err = db.Prepare(getSessionByTokenQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByToken statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(deleteSessionQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	repo.deleteExpiredStmt, err = db.Prepare(deleteExpiredSessionQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare deleteExpired statement: %w", err)
	}

	return repo, nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.createStmt.QueryRowContext(ctx,
		session.Token,
		session.Authenticated,
		session.ExpiresAt,
	).Scan(&session.CreatedAt)
	if err != nil {
		return domain.NewStorageError("create session", err)
	}
	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	session := &domain.Session{}
	err := r.getByTokenStmt.QueryRowContext(ctx, token, r.now()).Scan(
		&session.Token,
		&session.Authenticated,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get session", err)
	}
	return session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.deleteStmt.ExecContext(ctx, token); err != nil {
		return domain.NewStorageError("delete session", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.deleteExpiredStmt.ExecContext(ctx, r.now())
	if err != nil {
		return 0, domain.NewStorageError("delete expired sessions", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count, nil
}

// Close releases the prepared statements.
func (r *SessionRepository) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{r.createStmt, r.getByTokenStmt, r.deleteStmt, r.deleteExpiredStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}
