package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"godcb/pkg/dcb"
)

// classifyError maps a pgx/pgconn error into the dcb error kind taxonomy by
// SQLSTATE class: connection-level failures become InterfaceError,
// lock-timeout, deadlock and context cancellation/deadline become
// OperationalError, constraint violations become IntegrityError, data
// exceptions DataError, syntax/access-rule violations ProgrammingError, and
// everything else falls back to InternalError so a caller can always
// classify what op failed.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &dcb.OperationalError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &dcb.InternalError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "55P03": // lock_not_available
			return &dcb.OperationalError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		case pgErr.Code == "40P01": // deadlock_detected
			return &dcb.OperationalError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		case pgErr.Code[:2] == "23": // integrity_constraint_violation class
			return &dcb.IntegrityError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		case pgErr.Code[:2] == "22": // data_exception class
			return &dcb.DataError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		case pgErr.Code[:2] == "08": // connection_exception class
			return &dcb.InterfaceError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		case pgErr.Code[:2] == "42": // syntax_error_or_access_rule_violation
			return &dcb.ProgrammingError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &dcb.InterfaceError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
	}

	return &dcb.InternalError{EventStoreError: dcb.EventStoreError{Op: op, Err: err}}
}
