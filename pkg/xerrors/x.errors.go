package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes the repositories care about.
const (
	PGUniqueViolation     = "23505"
	PGForeignKeyViolation = "23503"
	PGLockNotAvailable    = "55P03"
)

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternalServer = errors.New("internal server error")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Statement lines
var (
	ErrStatementLineNotFound = errors.New("statement line not found")
	ErrStatementNotFound     = errors.New("bank statement not found")
	ErrNoLineIDs             = errors.New("at least one statement line id is required")
	ErrLineLocked            = errors.New("statement line is locked by another operation")
	ErrLineReferenced        = errors.New("statement line is still referenced by journal entries")
)
