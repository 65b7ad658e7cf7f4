package schema

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrDuplicateApplied is returned by the ledger when a migration name
	// is already recorded. Callers treat it as already done.
	ErrDuplicateApplied = errors.New("migration already applied")

	// ErrLedgerMissing is returned when the migrations table has not been
	// created yet.
	ErrLedgerMissing = errors.New("migrations table does not exist")

	// ErrUnsupportedDriver is returned when the configuration names a
	// dialect with no driver.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrUnsupported is returned by a dialect for an operation it cannot
	// express.
	ErrUnsupported = errors.New("not supported by dialect")
)

// Direction of a migration entry point.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ScriptError reports a failure inside a migration's Up or Down function.
type ScriptError struct {
	Name      string
	Direction Direction
	Err       error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("migrate %s %s: %s", e.Direction, e.Name, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// ConnectionError reports a failed statement against the database outside of
// a migration script.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func connErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectionError{Op: op, Err: err}
}
