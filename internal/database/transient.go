package database

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATEs treated as transient in addition to the 08xxx
// connection-exception class.
var transientPgCodes = map[string]bool{
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
	"53300": true, // too_many_connections
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

// IsTransient classifies an error as retryable infrastructure trouble
// (timeouts, resets, terminated connections) versus a real failure that
// must propagate immediately (syntax errors, constraint violations, missing
// rows).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "08") {
			return true
		}
		return transientPgCodes[pgErr.Code]
	}

	if pgconn.SafeToRetry(err) {
		return true
	}

	msg := err.Error()
	for _, sig := range []string{
		"connection reset",
		"broken pipe",
		"conn closed",
		"connection refused",
		"i/o timeout",
		"unexpected EOF",
	} {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
