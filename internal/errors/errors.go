package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every layer of the query engine.
var (
	// ErrNoMemory is returned when a structure cannot grow any further.
	ErrNoMemory = errors.New("out of memory")

	// ErrNotFound is returned for absent keys and out-of-range indexes
	// (sequence keys, bind slots, tables, columns, result cells).
	ErrNotFound = errors.New("not found")

	// ErrTypeMismatch is returned when a value's type differs from the
	// declared type of the slot or column it is used with.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrExists is returned when creating something that already exists.
	ErrExists = errors.New("already exists")

	// ErrBadRequest is returned when an operation is not supported by the
	// object it was applied to (e.g. binding a statement kind that has no
	// parameters).
	ErrBadRequest = errors.New("invalid request code")
)

// Errno-compatible codes carried by error results.
const (
	CodeSuccess  = 0
	CodeNotFound = 2  // ENOENT
	CodeIO       = 5  // EIO
	CodeNoMemory = 12 // ENOMEM
	CodeBusy     = 16 // EBUSY
	CodeExists   = 17 // EEXIST
	CodeInvalid  = 22 // EINVAL
	CodeBadRQC   = 56 // EBADRQC
	CodeBadSlot  = 57 // EBADSLT
	CodeOverflow = 75 // EOVERFLOW
)

// StorageError is a failure reported by the storage backend. It is passed
// through to callers verbatim.
type StorageError struct {
	Code int
	Msg  string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorage creates a StorageError wrapping one of the sentinel errors.
func NewStorage(code int, err error, format string, args ...any) *StorageError {
	return &StorageError{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return errors.As(err, target) }
