// Package postgres implements the card and session stores on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"card-admin/internal/domain"

	"github.com/google/uuid"
)

const (
	cardsPrimaryKey = "cartes_pkey"
	maxIDAttempts   = 3
)

const cardColumns = `id, titre, effet, categorie, alignement, visibilite_defaut, rarete, comportement_revelation, actif, cree_a, modifie_a`

const (
	insertCardQuery = `
		INSERT INTO cartes (id, titre, effet, categorie, alignement, visibilite_defaut, rarete, comportement_revelation, actif)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING cree_a, modifie_a
	`
	getCardByIDQuery    = `SELECT ` + cardColumns + ` FROM cartes WHERE id = $1`
	getRecentCardsQuery = `SELECT ` + cardColumns + ` FROM cartes ORDER BY cree_a DESC LIMIT $1`
	getAllCardsQuery    = `SELECT ` + cardColumns + ` FROM cartes ORDER BY cree_a DESC`
)

// CardRepository implements domain.CardRepository for PostgreSQL
type CardRepository struct {
	db            *sql.DB
	newID         func() string
	insertStmt    *sql.Stmt
	getByIDStmt   *sql.Stmt
	getRecentStmt *sql.Stmt
	getAllStmt    *sql.Stmt
}

// NewCardRepository creates a CardRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewCardRepository(db *sql.DB) (*CardRepository, error) {
	repo := &CardRepository{db: db, newID: uuid.NewString}

	var err error
	repo.insertStmt, err = db.Prepare(insertCardQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	repo.getByIDStmt, err = db.Prepare(getCardByIDQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByID statement: %w", err)
	}

	repo.getRecentStmt, err = db.Prepare(getRecentCardsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getRecent statement: %w", err)
	}

	repo.getAllStmt, err = db.Prepare(getAllCardsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getAll statement: %w", err)
	}

	return repo, nil
}

// Create inserts a card under a fresh UUID, drawing a new one if the
// primary key collides.
func (r *CardRepository) Create(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	var rarity sql.NullString
	if input.Rarity != nil {
		rarity = sql.NullString{String: string(*input.Rarity), Valid: true}
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		card := domain.NewCard(r.newID(), input, time.Time{})
		err := r.insertStmt.QueryRowContext(ctx,
			card.ID,
			card.Title,
			card.Effect,
			string(card.Category),
			string(card.Alignment),
			string(card.DefaultVisibility),
			rarity,
			string(card.RevealBehavior),
			card.Active,
		).Scan(&card.CreatedAt, &card.ModifiedAt)

		if IsUniqueViolation(err, cardsPrimaryKey) {
			continue
		}
		if err != nil {
			return nil, domain.NewStorageError("create card", err)
		}
		return card, nil
	}

	return nil, domain.NewStorageError("create card", domain.ErrDuplicateID)
}

// GetByID returns ErrCardNotFound both for a missing row and for an id that
// is not a valid UUID.
func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	card, err := scanCard(r.getByIDStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) || IsInvalidText(err) {
		return nil, domain.ErrCardNotFound
	}
	if err != nil {
		return nil, domain.NewStorageError("get card", err)
	}
	return card, nil
}

func (r *CardRepository) GetRecent(ctx context.Context, limit int) ([]*domain.Card, error) {
	rows, err := r.getRecentStmt.QueryContext(ctx, domain.RecentLimit(limit))
	if err != nil {
		return nil, domain.NewStorageError("list recent cards", err)
	}
	return collectCards(rows, "list recent cards")
}

func (r *CardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	rows, err := r.getAllStmt.QueryContext(ctx)
	if err != nil {
		return nil, domain.NewStorageError("list cards", err)
	}
	return collectCards(rows, "list cards")
}

// Ping checks that the database is reachable.
func (r *CardRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the prepared statements.
func (r *CardRepository) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{r.insertStmt, r.getByIDStmt, r.getRecentStmt, r.getAllStmt} {
		if stmt != nil {
			errs = append(errs, stmt.Close())
		}
	}
	return errors.Join(errs...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var (
		card   domain.Card
		rarity sql.NullString
	)
	err := row.Scan(
		&card.ID,
		&card.Title,
		&card.Effect,
		&card.Category,
		&card.Alignment,
		&card.DefaultVisibility,
		&rarity,
		&card.RevealBehavior,
		&card.Active,
		&card.CreatedAt,
		&card.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	if rarity.Valid {
		r := domain.Rarity(rarity.String)
		card.Rarity = &r
	}
	return &card, nil
}

func collectCards(rows *sql.Rows, op string) ([]*domain.Card, error) {
	defer rows.Close()

	cards := []*domain.Card{}
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return cards, nil
}
