// Package repository implements all database queries for the check-in system.
// It uses pgx directly (no ORM) for transparency and performance.
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrNicknameTaken is returned when the nickname is already used by an
// active checkin at the same venue.
var ErrNicknameTaken = errors.New("nickname already in use at this venue")

// ErrProcedureUnavailable is returned when the database has no
// checkout_by_nickname procedure deployed.
var ErrProcedureUnavailable = errors.New("checkout procedure unavailable")

const (
	uniqueViolation   = "23505"
	undefinedFunction = "42883"

	activeNicknameConstraint = "uq_checkins_active_nickname"
)

func pgErrorCode(err error) (string, string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}

func isNicknameConflict(err error) bool {
	code, constraint, ok := pgErrorCode(err)
	if !ok {
		return false
	}
	return code == uniqueViolation && (constraint == "" || constraint == activeNicknameConstraint)
}

func isUndefinedFunction(err error) bool {
	code, _, ok := pgErrorCode(err)
	return ok && code == undefinedFunction
}
