package service

import (
	"context"

	"card-admin/internal/domain"
	"card-admin/internal/observability"
	"card-admin/internal/validation"
)

// CardService turns raw field maps into stored cards.
type CardService struct {
	repo      domain.CardRepository
	validator *validation.Validator
	publisher domain.CardEventPublisher
}

// NewCardService creates a CardService. publisher may be nil.
func NewCardService(repo domain.CardRepository, v *validation.Validator, publisher domain.CardEventPublisher) *CardService {
	return &CardService{repo: repo, validator: v, publisher: publisher}
}

// Create stores a card submitted through the admin form. Unknown fields are
// dropped and a special card's rarity is cleared before validation.
func (s *CardService) Create(ctx context.Context, raw map[string]any) (*domain.Card, error) {
	fields := WhitelistFields(raw)
	NormalizeSpecialRarity(fields)
	return s.store(ctx, fields)
}

// Import stores a card without normalization, so a special card that
// carries a rarity is rejected.
func (s *CardService) Import(ctx context.Context, raw map[string]any) (*domain.Card, error) {
	return s.store(ctx, WhitelistFields(raw))
}

func (s *CardService) store(ctx context.Context, fields map[string]any) (*domain.Card, error) {
	input, err := s.validator.ValidateCard(fields)
	if err != nil {
		observability.CardValidationFailuresTotal.Inc()
		return nil, err
	}

	card, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	observability.CardsCreatedTotal.WithLabelValues(string(card.Category)).Inc()

	if s.publisher != nil {
		if err := s.publisher.PublishCardCreated(ctx, card); err != nil {
			observability.CardEventsPublishedTotal.WithLabelValues("error").Inc()
			observability.FromContext(ctx).Warn("failed to publish card event",
				"card_id", card.ID, "error", err)
		} else {
			observability.CardEventsPublishedTotal.WithLabelValues("ok").Inc()
		}
	}
	return card, nil
}

func (s *CardService) Get(ctx context.Context, id string) (*domain.Card, error) {
	return s.repo.GetByID(ctx, id)
}

// Recent returns the newest cards; non-positive limits use the default.
func (s *CardService) Recent(ctx context.Context, limit int) ([]*domain.Card, error) {
	return s.repo.GetRecent(ctx, domain.RecentLimit(limit))
}

func (s *CardService) All(ctx context.Context) ([]*domain.Card, error) {
	return s.repo.GetAll(ctx)
}

// WhitelistFields copies only the accepted create-card fields.
func WhitelistFields(raw map[string]any) map[string]any {
	fields := make(map[string]any, len(domain.CardInputFields))
	for _, name := range domain.CardInputFields {
		if v, ok := raw[name]; ok {
			fields[name] = v
		}
	}
	return fields
}

// NormalizeSpecialRarity sets rarete to null when categorie is "special".
func NormalizeSpecialRarity(fields map[string]any) {
	if category, ok := fields[domain.FieldCategory].(string); ok && category == string(domain.CategorySpecial) {
		fields[domain.FieldRarity] = nil
	}
}
