package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// StoreError carries the engine's error classification for a failed
// store operation alongside the underlying cause.
type StoreError struct {
	Code    domain.ErrorCode
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Postgres error codes the engine distinguishes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// classifyError wraps a database error with the matching taxonomy code.
func classifyError(op string, err error) *StoreError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &StoreError{
				Code:    domain.ErrCodeDuplicateRecord,
				Message: fmt.Sprintf("%s: duplicate value for constraint %s", op, pgErr.ConstraintName),
				Err:     err,
			}
		case pgForeignKeyViolation, pgNotNullViolation, pgCheckViolation:
			return &StoreError{
				Code:    domain.ErrCodeConstraintViolation,
				Message: fmt.Sprintf("%s: constraint %s violated", op, pgErr.ConstraintName),
				Err:     err,
			}
		}
	}
	return &StoreError{
		Code:    domain.ErrCodeDatabaseError,
		Message: op,
		Err:     err,
	}
}
