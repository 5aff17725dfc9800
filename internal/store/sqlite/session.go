package sqlite

import (
	"context"
	"database/sql"

	"github.com/nixground/nixground-server/internal/errors"
)

// Mode selects what a session is allowed to do.
type Mode string

const (
	// Read sessions may only query; they roll back on Close.
	Read Mode = "read"
	// Write sessions may mutate and must Commit to keep their changes.
	Write Mode = "write"
)

// sessionState tracks the session lifecycle:
// open -> committed | rolledBack -> disposed.
type sessionState string

const (
	stateOpen       sessionState = "open"
	stateCommitted  sessionState = "committed"
	stateRolledBack sessionState = "rolledBack"
	stateDisposed   sessionState = "disposed"
)

// Session wraps a single database transaction. Callers must Close it on
// every exit path; a still-open session rolls back on Close so no code
// path can leave a transaction open past the caller's scope.
//
//	session, err := store.BeginSession(ctx, sqlite.Write)
//	if err != nil { ... }
//	defer session.Close()
//	... mutate ...
//	return session.Commit()
type Session struct {
	tx    *sql.Tx
	mode  Mode
	state sessionState
	store *Store
}

// BeginSession starts a transactional session in the given mode.
func (s *Store) BeginSession(ctx context.Context, mode Mode) (*Session, error) {
	if mode != Read && mode != Write {
		return nil, errors.Validationf("Unsupported session mode: %s", mode)
	}

	// Mode is enforced by the session itself (requireWritable) rather than
	// the driver, which treats every transaction the same.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "begin session")
	}

	return &Session{tx: tx, mode: mode, state: stateOpen, store: s}, nil
}

// Mode returns the session's mode.
func (sn *Session) Mode() Mode {
	return sn.mode
}

// requireOpen fails unless the session can still run statements.
// The returned error names the violating operation.
func (sn *Session) requireOpen(operation string) error {
	if sn.state != stateOpen {
		if sn.store.logger != nil {
			sn.store.logger.Error("Attempted operation on non-open session",
				"operation", operation,
				"state", string(sn.state),
			)
		}
		return errors.SessionStatef("Cannot %s when session is %s", operation, sn.state)
	}
	return nil
}

// requireWritable fails unless the session is open and in write mode.
func (sn *Session) requireWritable(operation string) error {
	if err := sn.requireOpen(operation); err != nil {
		return err
	}
	if sn.mode != Write {
		return errors.SessionStatef("Cannot %s in a read session", operation)
	}
	return nil
}

// Commit commits the transaction. The session must be open.
func (sn *Session) Commit() error {
	if err := sn.requireOpen("commit"); err != nil {
		return err
	}
	if err := sn.tx.Commit(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "commit session")
	}
	sn.state = stateCommitted
	return nil
}

// Rollback rolls back the transaction. The session must be open.
func (sn *Session) Rollback() error {
	if err := sn.requireOpen("rollback"); err != nil {
		return err
	}
	if err := sn.tx.Rollback(); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "rollback session")
	}
	sn.state = stateRolledBack
	return nil
}

// Close disposes the session. An open session is rolled back first.
// Close is idempotent; closing a committed, rolled-back, or already
// disposed session is a no-op.
func (sn *Session) Close() error {
	switch sn.state {
	case stateDisposed:
		return nil
	case stateOpen:
		if err := sn.tx.Rollback(); err != nil && sn.store.logger != nil {
			sn.store.logger.Error("Session close failed to roll back open transaction",
				"error", err,
			)
		}
	}
	sn.state = stateDisposed
	return nil
}

func (sn *Session) exec(ctx context.Context, operation, query string, args ...any) (sql.Result, error) {
	if err := sn.requireWritable(operation); err != nil {
		return nil, err
	}
	return sn.tx.ExecContext(ctx, query, args...)
}

func (sn *Session) query(ctx context.Context, operation, query string, args ...any) (*sql.Rows, error) {
	if err := sn.requireOpen(operation); err != nil {
		return nil, err
	}
	return sn.tx.QueryContext(ctx, query, args...)
}

func (sn *Session) queryRow(ctx context.Context, operation, query string, args ...any) (*sql.Row, error) {
	if err := sn.requireOpen(operation); err != nil {
		return nil, err
	}
	return sn.tx.QueryRowContext(ctx, query, args...), nil
}
