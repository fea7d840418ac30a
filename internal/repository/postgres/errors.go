package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation           = "23505"
	pqInvalidTextRepresentation = "22P02"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ""
	}
	return string(pqErr.Code)
}

// IsUniqueViolation checks if an error is a PostgreSQL unique constraint violation
// If constraint is empty, it returns true for any unique violation
// If constraint is specified, it only returns true for that specific constraint
func IsUniqueViolation(err error, constraint string) bool {
	if pqCode(err) != pqUniqueViolation {
		return false
	}
	if constraint == "" {
		return true
	}

	var pqErr *pq.Error
	errors.As(err, &pqErr)
	return pqErr.Constraint == constraint
}

// IsInvalidText reports a malformed literal, such as a non-UUID string
// compared against a uuid column.
func IsInvalidText(err error) bool {
	return pqCode(err) == pqInvalidTextRepresentation
}
