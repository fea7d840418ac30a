package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{
			name:       "matching_constraint",
			err:        &pq.Error{Code: "23505", Constraint: cardsPrimaryKey},
			constraint: cardsPrimaryKey,
			want:       true,
		},
		{
			name:       "any_constraint",
			err:        &pq.Error{Code: "23505", Constraint: "admin_sessions_pkey"},
			constraint: "",
			want:       true,
		},
		{
			name:       "different_constraint",
			err:        &pq.Error{Code: "23505", Constraint: "admin_sessions_pkey"},
			constraint: cardsPrimaryKey,
			want:       false,
		},
		{
			name:       "different_code",
			err:        &pq.Error{Code: "23503", Constraint: cardsPrimaryKey},
			constraint: cardsPrimaryKey,
			want:       false,
		},
		{
			name:       "wrapped",
			err:        fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: cardsPrimaryKey}),
			constraint: cardsPrimaryKey,
			want:       true,
		},
		{
			name:       "not_pq_error",
			err:        errors.New("boom"),
			constraint: cardsPrimaryKey,
			want:       false,
		},
		{
			name:       "nil_error",
			err:        nil,
			constraint: "",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}

func TestIsInvalidText(t *testing.T) {
	assert.True(t, IsInvalidText(&pq.Error{Code: "22P02"}))
	assert.True(t, IsInvalidText(fmt.Errorf("select: %w", &pq.Error{Code: "22P02"})))
	assert.False(t, IsInvalidText(&pq.Error{Code: "23505"}))
	assert.False(t, IsInvalidText(errors.New("invalid input syntax")))
	assert.False(t, IsInvalidText(nil))
}
