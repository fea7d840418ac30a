package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCardNotFound        = errors.New("card not found")
	ErrDuplicateID         = errors.New("duplicate card id")
	ErrInvalidCredentials  = errors.New("invalid password")
	ErrServerMisconfigured = errors.New("server configuration error")
	ErrInvalidInput        = errors.New("invalid input")
)

// Validation failure kinds.
const (
	KindRequired    = "required"
	KindInvalidType = "invalid_type"
	KindBlank       = "blank"
	KindInvalidEnum = "invalid_enum_value"
	KindCustom      = "custom"
)

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ValidationError is returned when a card payload violates the schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalidInput) match any validation failure.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FieldMessages returns field -> message, the shape sent to clients.
func (e *ValidationError) FieldMessages() map[string]string {
	out := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if _, seen := out[f.Field]; !seen {
			out[f.Field] = f.Message
		}
	}
	return out
}

// Has reports whether the given field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// SortFields orders field errors by the given field order; unknown fields go last.
func (e *ValidationError) SortFields(order []string) {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}
	pos := func(name string) int {
		if r, ok := rank[name]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(e.Fields, func(i, j int) bool {
		return pos(e.Fields[i].Field) < pos(e.Fields[j].Field)
	})
}

// StorageError wraps any backing-store failure other than a missing row.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
