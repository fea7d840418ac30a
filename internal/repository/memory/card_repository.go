// Package memory holds the in-process card and session stores used when no
// remote database is configured. Contents do not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"card-admin/internal/domain"

	"github.com/google/uuid"
)

const maxIDAttempts = 3

type storedCard struct {
	card *domain.Card
	seq  uint64
}

// CardRepository implements domain.CardRepository on a map.
type CardRepository struct {
	mu    sync.RWMutex
	cards map[string]storedCard
	seq   uint64
	now   func() time.Time
	newID func() string
}

// Option customises a CardRepository.
type Option func(*CardRepository)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *CardRepository) {
		r.now = now
	}
}

// WithIDGenerator overrides the identifier source.
func WithIDGenerator(gen func() string) Option {
	return func(r *CardRepository) {
		r.newID = gen
	}
}

// NewCardRepository creates an empty in-memory card repository
func NewCardRepository(opts ...Option) *CardRepository {
	r := &CardRepository{
		cards: make(map[string]storedCard),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *CardRepository) Create(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("create card", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := ""
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate := r.newID()
		if _, taken := r.cards[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, domain.NewStorageError("create card", domain.ErrDuplicateID)
	}

	r.seq++
	card := domain.NewCard(id, input, r.now())
	r.cards[id] = storedCard{card: card, seq: r.seq}

	return card.Clone(), nil
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return stored.card.Clone(), nil
}

func (r *CardRepository) GetRecent(ctx context.Context, limit int) ([]*domain.Card, error) {
	cards := r.sorted()
	limit = domain.RecentLimit(limit)
	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards, nil
}

func (r *CardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	return r.sorted(), nil
}

// Ping always succeeds; the map is in-process.
func (r *CardRepository) Ping(ctx context.Context) error {
	return nil
}

// sorted returns copies ordered newest first. Equal timestamps fall back to
// insertion order so results are stable.
func (r *CardRepository) sorted() []*domain.Card {
	r.mu.RLock()
	entries := make([]storedCard, 0, len(r.cards))
	for _, stored := range r.cards {
		entries = append(entries, stored)
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.card.CreatedAt.Equal(b.card.CreatedAt) {
			return a.card.CreatedAt.After(b.card.CreatedAt)
		}
		return a.seq > b.seq
	})

	cards := make([]*domain.Card, 0, len(entries))
	for _, stored := range entries {
		cards = append(cards, stored.card.Clone())
	}
	return cards
}
