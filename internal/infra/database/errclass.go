package database

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/lib/pq"
)

// SQLSTATE codes that signal a transient condition worth retrying the
// whole transaction for. Classification is structural (error codes), not
// message matching.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeTooManyConnections   = "53300"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeAdminShutdown        = "57P01"
	codeCrashShutdown        = "57P02"
)

// IsTransient reports whether err is a connection-level or
// concurrency-level storage failure that is safe to retry. Domain errors
// and constraint violations are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrTxDone) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeSerializationFailure, codeDeadlockDetected,
			codeTooManyConnections, codeLockNotAvailable,
			codeQueryCanceled, codeAdminShutdown, codeCrashShutdown:
			return true
		}
		// Class 08: connection exceptions (reset, refused, dropped).
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	return false
}
