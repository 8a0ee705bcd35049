package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateJoinCode   = errors.New("join code already exists")
	ErrDuplicateMembership = errors.New("membership already exists")
	ErrDuplicateEmail      = errors.New("email already registered")
)

const (
	uniqueViolation = "23505"

	joinCodeConstraint   = "groups_join_code_key"
	membershipConstraint = "group_members_user_group_key"
	emailConstraint      = "identities_email_key"
)

// isUniqueViolation reports whether err is a unique violation on constraint.
// An empty constraint matches any unique violation.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
