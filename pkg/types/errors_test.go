package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrRejected", ErrRejected},
		{"ErrCapacityExceeded", ErrCapacityExceeded},
		{"ErrBlockingFromLoop", ErrBlockingFromLoop},
		{"ErrThreadFactoryShutdown", ErrThreadFactoryShutdown},
		{"ErrLoopAborted", ErrLoopAborted},
		{"ErrTimeout", ErrTimeout},
		{"ErrCancelled", ErrCancelled},
		{"ErrNilTask", ErrNilTask},
		{"ErrInvalidConfig", ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("expected error, got nil")
			}
			if tt.err.Error() == "" {
				t.Errorf("expected non-empty error message")
			}
		})
	}
}

func TestRejectedError(t *testing.T) {
	t.Run("Without Cause", func(t *testing.T) {
		err := NewRejectedError("loop-1", StateShutdown, nil)

		if !errors.Is(err, ErrRejected) {
			t.Errorf("expected errors.Is(err, ErrRejected)")
		}
		if !IsRejected(err) {
			t.Errorf("expected IsRejected to report true")
		}
		expectedMsg := "executor loop-1 rejected submission (state Shutdown)"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})

	t.Run("With Cause", func(t *testing.T) {
		err := NewRejectedError("loop-2", StateStarted, ErrCapacityExceeded)

		if !errors.Is(err, ErrRejected) {
			t.Errorf("expected errors.Is(err, ErrRejected)")
		}
		if !errors.Is(err, ErrCapacityExceeded) {
			t.Errorf("expected errors.Is(err, ErrCapacityExceeded)")
		}
		if !strings.Contains(err.Error(), ErrCapacityExceeded.Error()) {
			t.Errorf("expected message to contain cause, got %q", err.Error())
		}
	})

	t.Run("Wrapped", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", NewRejectedError("loop-3", StateTerminated, ErrThreadFactoryShutdown))

		var rejected *RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("expected errors.As to find RejectedError")
		}
		if rejected.State != StateTerminated {
			t.Errorf("expected state Terminated, got %s", rejected.State)
		}
		if !errors.Is(err, ErrThreadFactoryShutdown) {
			t.Errorf("expected cause to be reachable")
		}
	})

	t.Run("Unrelated Error", func(t *testing.T) {
		if IsRejected(errors.New("boom")) {
			t.Errorf("expected plain error not to be a rejection")
		}
		if IsRejected(nil) {
			t.Errorf("expected nil not to be a rejection")
		}
	})
}

func TestTaskError(t *testing.T) {
	t.Run("Returned Error", func(t *testing.T) {
		cause := errors.New("disk full")
		err := NewTaskError("task-7", cause)

		if !errors.Is(err, cause) {
			t.Errorf("expected cause to be unwrapped")
		}
		expectedMsg := "task task-7 failed: disk full"
		if err.Error() != expectedMsg {
			t.Errorf("expected message %q, got %q", expectedMsg, err.Error())
		}
	})

	t.Run("Panic", func(t *testing.T) {
		err := NewTaskError("task-8", errors.New("nil map"))
		err.Panicked = true
		err.WithContext("stack_trace", "goroutine 1 [running]")

		if !strings.Contains(err.Error(), "panicked") {
			t.Errorf("expected panic message, got %q", err.Error())
		}
		if err.Context["stack_trace"] != "goroutine 1 [running]" {
			t.Errorf("expected context value to be stored")
		}
	})
}
