package store

import (
	"errors"
	"fmt"

	"agora/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the store distinguishes.
const (
	pgInvalidTextRepresentation = "22P02" // e.g. a malformed uuid
	pgUniqueViolation           = "23505"
	pgForeignKeyViolation       = "23503"
)

// wrap tags a database error with the apperr taxonomy. A malformed id can never match a row,
// so it is reported as NotFound.
func wrap(op string, err error) error {
	if err == nil || apperr.Tagged(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgInvalidTextRepresentation:
			return fmt.Errorf("%s: %w: %w", op, apperr.ErrNotFound, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: referenced row missing: %w: %w", op, apperr.ErrNotFound, err)
		}
	}
	return apperr.Storage(op, err)
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
