package result

import (
	"fmt"
	"unicode/utf8"

	"mqldb/internal/errors"
)

const (
	successMessage = "Success"
	maxMessage     = 1023
)

// Error carries an errno-compatible code and a message. Code 0 means
// success.
type Error struct {
	base
	code int
	msg  string
}

// NewError creates an Error result. Negative codes are not valid errno
// values and are reported as EINVAL.
func NewError(code int, format string, args ...any) *Error {
	if code < 0 {
		code = errors.CodeInvalid
	}
	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessage {
		n := maxMessage
		for n > 0 && !utf8.RuneStart(msg[n]) {
			n--
		}
		msg = msg[:n]
	}
	e := &Error{code: code, msg: msg}
	e.track()
	return e
}

// Success returns Error{0, "Success"}.
func Success() *Error { return NewError(errors.CodeSuccess, successMessage) }

// FromError creates an Error result whose code is derived from err and
// whose message is the formatted context followed by err's text.
func FromError(err error, format string, args ...any) *Error {
	return NewError(errors.Code(err), "%s: %v", fmt.Sprintf(format, args...), err)
}

func (*Error) Kind() Kind { return KindError }

func (e *Error) Free() { e.release() }

func (e *Error) Code() int { return e.code }

func (e *Error) Message() string { return e.msg }

func (e *Error) String() string { return e.msg }

// Status reports a successful data change and the number of rows it
// affected, e.g. "inserted 3 rows".
type Status struct {
	base
	op   string
	rows int
}

// NewStatus creates a Status result. op is the past-tense verb used in
// the message ("inserted", "updated", "deleted").
func NewStatus(op string, rows int) *Status {
	s := &Status{op: op, rows: rows}
	s.track()
	return s
}

func (*Status) Kind() Kind { return KindStatus }

func (s *Status) Free() { s.release() }

func (s *Status) Op() string { return s.op }

func (s *Status) RowsAffected() int { return s.rows }

func (s *Status) Message() string { return fmt.Sprintf("%s %d rows", s.op, s.rows) }

func (s *Status) String() string { return s.Message() }
