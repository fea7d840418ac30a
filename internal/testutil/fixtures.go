package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"card-admin/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// CardOptions allows customizing card fixture creation
type CardOptions struct {
	ID                string
	Title             string
	Effect            string
	Category          domain.Category
	Alignment         domain.Alignment
	DefaultVisibility domain.Visibility
	Rarity            *domain.Rarity
	RevealBehavior    domain.RevealBehavior
	Active            bool
	CreatedAt         time.Time
}

func defaultCardOptions() *CardOptions {
	common := domain.RarityCommon
	n := idCounter.Add(1)
	return &CardOptions{
		ID:                fmt.Sprintf("card-%d", n),
		Title:             fmt.Sprintf("Test Card %d", n),
		Effect:            "Draw two cards",
		Category:          domain.CategoryBasic,
		Alignment:         domain.AlignmentBlessed,
		DefaultVisibility: domain.VisibilityFaceUp,
		Rarity:            &common,
		RevealBehavior:    domain.RevealOnViewOwner,
		Active:            true,
	}
}

// NewTestCardInput creates a valid card-creation payload
func NewTestCardInput(opts ...func(*CardOptions)) domain.CardInput {
	o := defaultCardOptions()
	for _, opt := range opts {
		opt(o)
	}
	return domain.CardInput{
		Title:             o.Title,
		Effect:            o.Effect,
		Category:          o.Category,
		Alignment:         o.Alignment,
		DefaultVisibility: o.DefaultVisibility,
		Rarity:            o.Rarity,
		RevealBehavior:    o.RevealBehavior,
		Active:            o.Active,
	}
}

// NewTestCard creates a stored card with sensible defaults
func NewTestCard(opts ...func(*CardOptions)) *domain.Card {
	o := defaultCardOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	card := domain.NewCard(o.ID, domain.CardInput{
		Title:             o.Title,
		Effect:            o.Effect,
		Category:          o.Category,
		Alignment:         o.Alignment,
		DefaultVisibility: o.DefaultVisibility,
		Rarity:            o.Rarity,
		RevealBehavior:    o.RevealBehavior,
		Active:            o.Active,
	}, o.CreatedAt)
	return card
}

// NewTestCardFields returns the raw JSON-shaped field map a client would post
func NewTestCardFields() map[string]any {
	return map[string]any{
		domain.FieldTitle:             "Fire Bolt",
		domain.FieldEffect:            "Deal damage",
		domain.FieldCategory:          "basic",
		domain.FieldAlignment:         "cursed",
		domain.FieldDefaultVisibility: "face_down",
		domain.FieldRarity:            "rare",
		domain.FieldRevealBehavior:    "immediate",
	}
}

// Card option functions

func WithCardID(id string) func(*CardOptions) {
	return func(o *CardOptions) {
		o.ID = id
	}
}

func WithTitle(title string) func(*CardOptions) {
	return func(o *CardOptions) {
		o.Title = title
	}
}

func WithCategory(c domain.Category) func(*CardOptions) {
	return func(o *CardOptions) {
		o.Category = c
	}
}

// WithRarity sets a rarity; the pointer is fresh for every call.
func WithRarity(r domain.Rarity) func(*CardOptions) {
	return func(o *CardOptions) {
		o.Rarity = &r
	}
}

// WithNoRarity clears the rarity
func WithNoRarity() func(*CardOptions) {
	return func(o *CardOptions) {
		o.Rarity = nil
	}
}

func WithInactive() func(*CardOptions) {
	return func(o *CardOptions) {
		o.Active = false
	}
}

func WithCardCreatedAt(t time.Time) func(*CardOptions) {
	return func(o *CardOptions) {
		o.CreatedAt = t
	}
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	Token         string
	Authenticated bool
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// NewTestSession creates an authenticated session with sensible defaults
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	o := &SessionOptions{
		Token:         nextID("token"),
		Authenticated: true,
		ExpiresAt:     time.Now().Add(8 * time.Hour),
		CreatedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Session{
		Token:         o.Token,
		Authenticated: o.Authenticated,
		ExpiresAt:     o.ExpiresAt,
		CreatedAt:     o.CreatedAt,
	}
}

// Session option functions

// WithToken sets the session token
func WithToken(token string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Token = token
	}
}

// WithUnauthenticated marks the session as not logged in
func WithUnauthenticated() func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Authenticated = false
	}
}

// WithExpiresAt sets the session expiration time
func WithExpiresAt(t time.Time) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ExpiresAt = t
	}
}

// WithExpired creates an expired session
func WithExpired() func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ExpiresAt = time.Now().Add(-1 * time.Hour)
	}
}

// NewTestCards creates count cards, newest first, one minute apart
func NewTestCards(count int) []*domain.Card {
	base := time.Now().UTC()
	cards := make([]*domain.Card, count)
	for i := 0; i < count; i++ {
		cards[i] = NewTestCard(WithCardCreatedAt(base.Add(-time.Duration(i) * time.Minute)))
	}
	return cards
}

// ResetIDCounter resets the ID counter (useful for deterministic tests)
func ResetIDCounter() {
	idCounter.Store(0)
}
