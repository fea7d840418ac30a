// Package validation checks card payloads against the card schema using the
// validator/v10 library.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"card-admin/internal/domain"

	"github.com/go-playground/validator/v10"
)

const (
	tagNonBlank      = "nonblank"
	tagSpecialRarity = "special_rarity"
)

// cardSchema mirrors the create-card payload once primitive types are known.
type cardSchema struct {
	Title             string  `json:"titre" validate:"nonblank"`
	Effect            string  `json:"effet" validate:"nonblank"`
	Category          string  `json:"categorie" validate:"oneof=basic special"`
	Alignment         string  `json:"alignement" validate:"oneof=blessed cursed"`
	DefaultVisibility string  `json:"visibilite_defaut" validate:"oneof=face_up face_down"`
	Rarity            *string `json:"rarete" validate:"omitnil,oneof=common uncommon rare"`
	RevealBehavior    string  `json:"comportement_revelation" validate:"oneof=on_view_owner on_steal_new_owner immediate"`
	Active            bool    `json:"actif"`
}

var blankMessages = map[string]string{
	domain.FieldTitle:  "Title is required",
	domain.FieldEffect: "Effect description is required",
}

// Validator wraps go-playground/validator with the card rules registered.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for cards.
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation(tagNonBlank, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		card := sl.Current().Interface().(cardSchema)
		if card.Category == string(domain.CategorySpecial) && card.Rarity != nil {
			sl.ReportError(card.Rarity, domain.FieldRarity, "Rarity", tagSpecialRarity, "")
		}
	}, cardSchema{})

	return &Validator{v: v}
}

// ValidateCard checks a raw field map and returns the typed payload. Primitive
// type problems are reported first; constraint checks only run on a
// well-typed payload. fields is never modified.
func (v *Validator) ValidateCard(fields map[string]any) (domain.CardInput, error) {
	schema, verr := decode(fields)
	if verr != nil {
		return domain.CardInput{}, verr
	}

	if err := v.v.Struct(schema); err != nil {
		return domain.CardInput{}, v.formatError(err)
	}

	in := domain.CardInput{
		Title:             schema.Title,
		Effect:            schema.Effect,
		Category:          domain.Category(schema.Category),
		Alignment:         domain.Alignment(schema.Alignment),
		DefaultVisibility: domain.Visibility(schema.DefaultVisibility),
		RevealBehavior:    domain.RevealBehavior(schema.RevealBehavior),
		Active:            schema.Active,
	}
	if schema.Rarity != nil {
		r := domain.Rarity(*schema.Rarity)
		in.Rarity = &r
	}
	return in, nil
}

// decode enforces presence and primitive types.
func decode(fields map[string]any) (cardSchema, *domain.ValidationError) {
	var (
		schema cardSchema
		errs   []domain.FieldError
	)

	requiredString := func(name string, dst *string) {
		raw, ok := fields[name]
		if !ok || raw == nil {
			errs = append(errs, domain.FieldError{Field: name, Kind: domain.KindRequired, Message: "is required"})
			return
		}
		s, ok := raw.(string)
		if !ok {
			errs = append(errs, domain.FieldError{Field: name, Kind: domain.KindInvalidType, Message: "must be a string"})
			return
		}
		*dst = s
	}

	requiredString(domain.FieldTitle, &schema.Title)
	requiredString(domain.FieldEffect, &schema.Effect)
	requiredString(domain.FieldCategory, &schema.Category)
	requiredString(domain.FieldAlignment, &schema.Alignment)
	requiredString(domain.FieldDefaultVisibility, &schema.DefaultVisibility)

	if raw, ok := fields[domain.FieldRarity]; ok && raw != nil {
		if s, ok := raw.(string); ok {
			schema.Rarity = &s
		} else {
			errs = append(errs, domain.FieldError{Field: domain.FieldRarity, Kind: domain.KindInvalidType, Message: "must be a string or null"})
		}
	}

	requiredString(domain.FieldRevealBehavior, &schema.RevealBehavior)

	schema.Active = true
	if raw, ok := fields[domain.FieldActive]; ok && raw != nil {
		if b, ok := raw.(bool); ok {
			schema.Active = b
		} else {
			errs = append(errs, domain.FieldError{Field: domain.FieldActive, Kind: domain.KindInvalidType, Message: "must be a boolean"})
		}
	}

	if len(errs) > 0 {
		return cardSchema{}, &domain.ValidationError{Fields: errs}
	}
	return schema, nil
}

// formatError converts validator errors to a domain validation error.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	verr := &domain.ValidationError{}
	for _, e := range validationErrs {
		kind, msg := friendlyMessage(e)
		verr.Fields = append(verr.Fields, domain.FieldError{Field: e.Field(), Kind: kind, Message: msg})
	}
	verr.SortFields(domain.CardInputFields)
	return verr
}

func friendlyMessage(e validator.FieldError) (string, string) {
	switch e.Tag() {
	case tagNonBlank:
		if msg, ok := blankMessages[e.Field()]; ok {
			return domain.KindBlank, msg
		}
		return domain.KindBlank, "must not be blank"
	case "oneof":
		return domain.KindInvalidEnum, "invalid enum value; expected one of: " + strings.ReplaceAll(e.Param(), " ", ", ")
	case tagSpecialRarity:
		return domain.KindCustom, "Rarity must be null for special cards"
	default:
		return domain.KindCustom, "is invalid"
	}
}
