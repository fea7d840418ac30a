// Package repository selects the card and session stores for the process.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"card-admin/internal/config"
	"card-admin/internal/domain"
	"card-admin/internal/repository/memory"
	"card-admin/internal/repository/postgres"
	"card-admin/internal/repository/supabase"
)

// Stores holds the storage chosen at startup.
type Stores struct {
	Backend  string
	Cards    domain.CardRepository
	Sessions domain.SessionRepository
	// DB is the Postgres pool when Backend is postgres, else nil.
	DB *sql.DB

	closers []func() error
}

// Open builds the stores for cfg.StorageBackend(). It is called once; the
// result is injected into services and handlers.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	backend := cfg.StorageBackend()
	s := &Stores{Backend: backend}

	switch backend {
	case config.BackendSupabase:
		s.Cards = Instrument(supabase.NewCardRepository(cfg.SupabaseURL, cfg.SupabaseKey), backend)
		s.Sessions = memory.NewSessionRepository()

	case config.BackendPostgres:
		db, err := config.NewPostgresConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.DB = db
		s.closers = append(s.closers, db.Close)

		if cfg.MigrateOnStart {
			if err := postgres.Migrate(ctx, db); err != nil {
				s.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}

		cards, err := postgres.NewCardRepository(db)
		if err != nil {
			s.Close()
			return nil, err
		}
		sessions, err := postgres.NewSessionRepository(db)
		if err != nil {
			cards.Close()
			s.Close()
			return nil, err
		}
		// Statements close before the pool.
		s.closers = append([]func() error{cards.Close, sessions.Close}, s.closers...)
		s.Cards = Instrument(cards, backend)
		s.Sessions = sessions

	default:
		s.Cards = Instrument(memory.NewCardRepository(), backend)
		s.Sessions = memory.NewSessionRepository()
	}

	return s, nil
}

// Ping reports whether the card store is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if p, ok := s.Cards.(domain.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases connections held by the stores.
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
