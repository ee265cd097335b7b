package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgDataException   = "22" // class: value too long, out of range, bad datetime
)

// rejectedData reports whether Postgres refused the row's values themselves,
// e.g. a string longer than its column. Such rows fail on every retry.
func rejectedData(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}
	if pgErr.Code == pgCheckViolation || strings.HasPrefix(pgErr.Code, pgDataException) {
		return pgErr, true
	}
	return nil, false
}

// uniqueViolation reports whether err is a unique-constraint failure and, when
// the driver exposes it, the name of the violated constraint. SQLite only
// reports the columns, which are returned in place of the name.
func uniqueViolation(err error) (constraint string, ok bool) {
	if err == nil {
		return "", false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}

	msg := err.Error()
	if idx := strings.Index(msg, "UNIQUE constraint failed:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("UNIQUE constraint failed:"):]), true
	}
	if strings.Contains(msg, "duplicate key value violates unique constraint") {
		if start := strings.Index(msg, `"`); start >= 0 {
			if end := strings.Index(msg[start+1:], `"`); end >= 0 {
				return msg[start+1 : start+1+end], true
			}
		}
		return "", true
	}
	return "", false
}
