package errors

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{ErrNoMemory, KindOutOfMemory},
		{fmt.Errorf("sequence add: %w", ErrNoMemory), KindOutOfMemory},
		{fmt.Errorf("bind slot 3: %w", ErrNotFound), KindNotFound},
		{ErrTypeMismatch, KindTypeMismatch},
		{NewStorage(CodeExists, ErrExists, "duplicate key"), KindStorageFailure},
		{ErrInvalidArgument, KindInvalidArgument},
	}

	for _, c := range cases {
		if got := Classify(c.err); got != c.want {
			t.Fatalf("Classify(%v): expected %v, got %v", c.err, c.want, got)
		}
	}
}

func TestCode(t *testing.T) {
	if got := Code(nil); got != CodeSuccess {
		t.Fatalf("expected %d for nil, got %d", CodeSuccess, got)
	}
	if got := Code(fmt.Errorf("x: %w", ErrNotFound)); got != CodeNotFound {
		t.Fatalf("expected ENOENT, got %d", got)
	}
	if got := Code(NewStorage(CodeBusy, nil, "busy")); got != CodeBusy {
		t.Fatalf("expected EBUSY, got %d", got)
	}
	if got := Code(ErrTypeMismatch); got != CodeInvalid {
		t.Fatalf("expected EINVAL, got %d", got)
	}
	if !Retryable(ErrNoMemory) || Retryable(ErrNotFound) {
		t.Fatalf("only out-of-memory errors should be retryable")
	}
}
