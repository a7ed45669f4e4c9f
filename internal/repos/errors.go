package repos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"shopfront/internal/apperr"
)

// connFailed wraps a pool checkout or BEGIN failure.
func connFailed(op string, err error) error {
	return apperr.E(op, apperr.ConnectionFailed, err)
}

// storeErr classifies a statement error. Errors already classified pass
// through unchanged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if isConnErr(err) {
		return apperr.E(op, apperr.ConnectionFailed, err)
	}
	return apperr.E(op, apperr.QueryFailed, err)
}

// Postgres SQLSTATE classes meaning the session itself is unusable:
// 08 connection exception, 53 insufficient resources, 57 operator intervention.
var connClasses = []string{"08", "53", "57"}

func connClass(code string) bool {
	for _, c := range connClasses {
		if strings.HasPrefix(code, c) {
			return true
		}
	}
	return false
}

func isConnErr(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return connClass(pgErr.Code)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return connClass(string(pqErr.Code))
	}
	return false
}
