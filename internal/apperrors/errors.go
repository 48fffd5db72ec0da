package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrInvalidCurrency indicates that a currency code is not registered.
var ErrInvalidCurrency = errors.New("invalid currency")

// ErrAccountNotFound indicates that an operation requiring an existing
// account was pointed at one that does not exist. Paths that create accounts
// on demand (credit, admin set) never return it.
var ErrAccountNotFound = errors.New("account not found")

// ErrInsufficientFunds indicates that a debit or transfer asked for more than
// the account holds in the given currency.
var ErrInsufficientFunds = errors.New("insufficient funds")

// StorageError wraps a backend-level read/write/connection failure. It is
// distinct from "account absent": a store that cannot reach its medium
// returns a StorageError, never a nil account.
type StorageError struct {
	Backend string // "file", "relational", "document"
	Op      string // operation that failed, e.g. "load_account"
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err as a StorageError for the given backend and op.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// LogAppendError reports that an audit entry could not be appended after the
// balance change it describes was already persisted. The balance change is
// not rolled back; callers needing a strict audit trail must reconcile.
type LogAppendError struct {
	Err error
}

func (e *LogAppendError) Error() string {
	return fmt.Sprintf("transaction log append failed after committed balance change: %v", e.Err)
}

func (e *LogAppendError) Unwrap() error { return e.Err }
