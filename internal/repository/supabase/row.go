package supabase

import (
	"encoding/json"
	"fmt"
	"time"

	"card-admin/internal/domain"
)

// PostgREST renders timestamptz with an offset and timestamp without one.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// timestamp decodes either column type. A value without an offset is UTC.
type timestamp time.Time

func (t *timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = timestamp(parsed.UTC())
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// cardRow is a cartes row as PostgREST returns it. Its timestamp fields
// shadow the embedded card's.
type cardRow struct {
	domain.Card
	CreatedAt  timestamp `json:"cree_a"`
	ModifiedAt timestamp `json:"modifie_a"`
}

func (r *cardRow) card() *domain.Card {
	card := r.Card
	card.CreatedAt = time.Time(r.CreatedAt)
	card.ModifiedAt = time.Time(r.ModifiedAt)
	return &card
}
