package errors

// Kind is the error taxonomy used to decide between "retry" and
// "this request is malformed".
type Kind int

const (
	KindNone Kind = iota
	KindOutOfMemory
	KindNotFound
	KindTypeMismatch
	KindStorageFailure
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindOutOfMemory:
		return "out-of-memory"
	case KindNotFound:
		return "not-found"
	case KindTypeMismatch:
		return "type-mismatch"
	case KindStorageFailure:
		return "storage-failure"
	case KindInvalidArgument:
		return "invalid-argument"
	default:
		return "unknown"
	}
}

// Classify determines the category of an error.
// A StorageError is always a storage failure, whatever it wraps.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var se *StorageError
	if As(err, &se) {
		return KindStorageFailure
	}

	switch {
	case Is(err, ErrNoMemory):
		return KindOutOfMemory
	case Is(err, ErrNotFound):
		return KindNotFound
	case Is(err, ErrTypeMismatch):
		return KindTypeMismatch
	default:
		return KindInvalidArgument
	}
}

// Retryable reports whether the operation may succeed when retried.
func Retryable(err error) bool {
	return Classify(err) == KindOutOfMemory
}

// Code maps an error to the errno-compatible code carried in error results.
func Code(err error) int {
	if err == nil {
		return CodeSuccess
	}

	var se *StorageError
	if As(err, &se) && se.Code != 0 {
		return se.Code
	}

	switch {
	case Is(err, ErrNoMemory):
		return CodeNoMemory
	case Is(err, ErrNotFound):
		return CodeNotFound
	case Is(err, ErrExists):
		return CodeExists
	case Is(err, ErrBadRequest):
		return CodeBadRQC
	default:
		return CodeInvalid
	}
}
