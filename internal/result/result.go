// Package result implements the values returned by statement execution and
// delivered to trigger callbacks. A Result is one of *Error, *Status,
// *Event, *Columns, *Rows, *Text or *List; callers switch on the concrete
// type or on Kind. Every factory copies its input.
package result

import (
	"fmt"
	"sync/atomic"

	"mqldb/internal/errors"
)

// Kind tags a result variant. Executors are asked for a Kind to choose
// between a structured and a human-readable rendering.
type Kind int

const (
	KindError   Kind = -1
	KindUnknown Kind = 0
	KindEvent   Kind = 1
	KindColumns Kind = 2
	KindRows    Kind = 3
	KindString  Kind = 4
	KindList    Kind = 5
	KindStatus  Kind = 6

	// KindDontCare lets the executor pick the structured rendering.
	KindDontCare = KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindError:
		return "error"
	case KindUnknown:
		return "dontcare"
	case KindEvent:
		return "event"
	case KindColumns:
		return "columns"
	case KindRows:
		return "rows"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStatus:
		return "status"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MaxColumns bounds the column count of Columns and Rows results.
const MaxColumns = 64

// ErrIndexRange is returned by indexed getters for a row, column or list
// index outside the result.
var ErrIndexRange = fmt.Errorf("result index out of range: %w", errors.ErrNotFound)

// Result is a value produced by the query engine. The caller owns it and
// calls Free when done; Free is idempotent.
type Result interface {
	Kind() Kind
	Free()

	sealed()
}

var live atomic.Int64

// Live reports how many results have been created and not yet freed.
func Live() int64 { return live.Load() }

// base tracks ownership for every variant.
type base struct {
	freed atomic.Bool
}

func (*base) sealed() {}

func (b *base) track() { live.Add(1) }

// release marks the result freed. It reports false if it already was.
func (b *base) release() bool {
	if b.freed.CompareAndSwap(false, true) {
		live.Add(-1)
		return true
	}
	return false
}

// Freed reports whether Free has been called.
func (b *base) Freed() bool { return b.freed.Load() }

// Free releases any result, tolerating nil.
func Free(r Result) {
	if r != nil {
		r.Free()
	}
}

// IsSuccess reports whether r is anything but an Error with a non-zero code.
func IsSuccess(r Result) bool {
	switch v := r.(type) {
	case nil:
		return false
	case *Error:
		return v.code == errors.CodeSuccess
	default:
		return true
	}
}

// ErrorCode returns the code of an Error result, 0 for every other variant
// and -1 for nil.
func ErrorCode(r Result) int {
	switch v := r.(type) {
	case nil:
		return -1
	case *Error:
		return v.code
	default:
		return errors.CodeSuccess
	}
}

// ErrorMessage returns the message of an Error or Status result and
// "Success" for every other variant.
func ErrorMessage(r Result) string {
	switch v := r.(type) {
	case nil:
		return ""
	case *Error:
		return v.msg
	case *Status:
		return v.Message()
	default:
		return successMessage
	}
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("index %d of %d: %w", i, n, ErrIndexRange)
	}
	return nil
}
