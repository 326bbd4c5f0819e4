package db

import (
	"errors"

	"github.com/lib/pq"
)

const (
	postgresUniqueValueViolationErrorCode = "23505"
	postgresCheckViolationErrorCode       = "23514"
)

func isErrorUniqueViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresUniqueValueViolationErrorCode
}

// isErrorCheckViolation catches the schema-level invariant constraints. A
// guarded update should never trip them; when one does, it is surfaced as a
// data-integrity alarm rather than a retryable failure.
func isErrorCheckViolation(err error) bool {
	var psqlErr *pq.Error
	return errors.As(err, &psqlErr) && psqlErr.Code == postgresCheckViolationErrorCode
}
