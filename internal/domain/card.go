package domain

import (
	"context"
	"time"
)

// DefaultRecentLimit is used when a recent-cards query gives no positive limit.
const DefaultRecentLimit = 5

type Category string

const (
	CategoryBasic   Category = "basic"
	CategorySpecial Category = "special"
)

type Alignment string

const (
	AlignmentBlessed Alignment = "blessed"
	AlignmentCursed  Alignment = "cursed"
)

type Visibility string

const (
	VisibilityFaceUp   Visibility = "face_up"
	VisibilityFaceDown Visibility = "face_down"
)

type Rarity string

const (
	RarityCommon   Rarity = "common"
	RarityUncommon Rarity = "uncommon"
	RarityRare     Rarity = "rare"
)

// RevealBehavior describes when a card's face becomes known to players.
type RevealBehavior string

const (
	RevealOnViewOwner     RevealBehavior = "on_view_owner"
	RevealOnStealNewOwner RevealBehavior = "on_steal_new_owner"
	RevealImmediate       RevealBehavior = "immediate"
)

// Wire names of the fields accepted when creating a card.
const (
	FieldTitle             = "titre"
	FieldEffect            = "effet"
	FieldCategory          = "categorie"
	FieldAlignment         = "alignement"
	FieldDefaultVisibility = "visibilite_defaut"
	FieldRarity            = "rarete"
	FieldRevealBehavior    = "comportement_revelation"
	FieldActive            = "actif"
)

// CardInputFields lists the whitelisted create-card fields in evaluation order.
var CardInputFields = []string{
	FieldTitle,
	FieldEffect,
	FieldCategory,
	FieldAlignment,
	FieldDefaultVisibility,
	FieldRarity,
	FieldRevealBehavior,
	FieldActive,
}

// Card is a single game-content entry.
type Card struct {
	ID                string         `json:"id"`
	Title             string         `json:"titre"`
	Effect            string         `json:"effet"`
	Category          Category       `json:"categorie"`
	Alignment         Alignment      `json:"alignement"`
	DefaultVisibility Visibility     `json:"visibilite_defaut"`
	Rarity            *Rarity        `json:"rarete"`
	RevealBehavior    RevealBehavior `json:"comportement_revelation"`
	Active            bool           `json:"actif"`
	CreatedAt         time.Time      `json:"cree_a"`
	ModifiedAt        time.Time      `json:"modifie_a"`
}

// CardInput is a validated card-creation payload.
type CardInput struct {
	Title             string         `json:"titre"`
	Effect            string         `json:"effet"`
	Category          Category       `json:"categorie"`
	Alignment         Alignment      `json:"alignement"`
	DefaultVisibility Visibility     `json:"visibilite_defaut"`
	Rarity            *Rarity        `json:"rarete"`
	RevealBehavior    RevealBehavior `json:"comportement_revelation"`
	Active            bool           `json:"actif"`
}

// NewCard builds a stored card from a validated input. The rarity pointer is
// copied so the card never aliases the caller's input.
func NewCard(id string, in CardInput, now time.Time) *Card {
	return &Card{
		ID:                id,
		Title:             in.Title,
		Effect:            in.Effect,
		Category:          in.Category,
		Alignment:         in.Alignment,
		DefaultVisibility: in.DefaultVisibility,
		Rarity:            cloneRarity(in.Rarity),
		RevealBehavior:    in.RevealBehavior,
		Active:            in.Active,
		CreatedAt:         now,
		ModifiedAt:        now,
	}
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Rarity = cloneRarity(c.Rarity)
	return &cp
}

func cloneRarity(r *Rarity) *Rarity {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}

// RecentLimit applies the default for non-positive limits.
func RecentLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}

// CardRepository defines the storage contract shared by every card backend.
// GetByID returns ErrCardNotFound for unknown ids; all other failures are
// reported as *StorageError.
type CardRepository interface {
	Create(ctx context.Context, input CardInput) (*Card, error)
	GetByID(ctx context.Context, id string) (*Card, error)
	GetRecent(ctx context.Context, limit int) ([]*Card, error)
	GetAll(ctx context.Context) ([]*Card, error)
}

// CardEventPublisher is notified after a card has been stored.
type CardEventPublisher interface {
	PublishCardCreated(ctx context.Context, card *Card) error
}

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
