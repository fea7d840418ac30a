package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cartes (
		id UUID PRIMARY KEY,
		titre TEXT NOT NULL,
		effet TEXT NOT NULL,
		categorie TEXT NOT NULL CHECK (categorie IN ('basic', 'special')),
		alignement TEXT NOT NULL CHECK (alignement IN ('blessed', 'cursed')),
		visibilite_defaut TEXT NOT NULL CHECK (visibilite_defaut IN ('face_up', 'face_down')),
		rarete TEXT CHECK (rarete IN ('common', 'uncommon', 'rare')),
		comportement_revelation TEXT NOT NULL CHECK (comportement_revelation IN ('on_view_owner', 'on_steal_new_owner', 'immediate')),
		actif BOOLEAN NOT NULL DEFAULT TRUE,
		cree_a TIMESTAMPTZ NOT NULL DEFAULT now(),
		modifie_a TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS cartes_cree_a_idx ON cartes (cree_a DESC)`,
	`CREATE TABLE IF NOT EXISTS admin_sessions (
		token TEXT PRIMARY KEY,
		authenticated BOOLEAN NOT NULL DEFAULT FALSE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS admin_sessions_expires_at_idx ON admin_sessions (expires_at)`,
}

// Migrate creates the card and session tables when they do not exist.
// It is idempotent and runs in one transaction.
func Migrate(ctx context.Context, db *sql.DB) error {
	return NewTxManager(db).WithTx(ctx, func(tx *sql.Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration step %d: %w", i+1, err)
			}
		}
		return nil
	})
}
