package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("field is required")
		if err.Error() != "validation failed: field is required" {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("a is required", "b is required")
		msg := err.Error()
		if !strings.Contains(msg, "\n  - a is required") || !strings.Contains(msg, "\n  - b is required") {
			t.Errorf("Error() = %q", msg)
		}
	})

	t.Run("unwrap", func(t *testing.T) {
		if !errors.Is(NewValidationError("x"), ErrValidationFailed) {
			t.Error("ValidationError should unwrap to ErrValidationFailed")
		}
	})
}

func TestValidationBuilder(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		v := &ValidationBuilder{}
		v.Add(true, "should not appear")
		if v.HasErrors() {
			t.Error("HasErrors() should be false")
		}
		if err := v.Build(); err != nil {
			t.Errorf("Build() = %v, want nil", err)
		}
	})

	t.Run("accumulates", func(t *testing.T) {
		err := (&ValidationBuilder{}).
			Add(false, "first").
			Add(true, "skipped").
			AddErrorf("rule[%d]: %s", 2, "second").
			Build()

		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("Build() = %T, want *ValidationError", err)
		}
		if len(ve.Errors) != 2 || ve.Errors[1] != "rule[2]: second" {
			t.Errorf("Errors = %v", ve.Errors)
		}
	})
}

func TestCollectError(t *testing.T) {
	cause := fmt.Errorf("%w: connection refused", ErrUnreachable)

	whole := NewCollectError("leaf1", "ssh", "", cause)
	if got := whole.Error(); got != "collecting state from leaf1 via ssh: device unreachable: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	view := NewCollectError("leaf1", "redis", "bgp", errors.New("timeout"))
	if got := view.Error(); got != "collecting bgp state from leaf1 via redis: timeout" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("host leaf1: %w", whole)
	if !errors.Is(wrapped, ErrCollectFailed) {
		t.Error("CollectError should match ErrCollectFailed")
	}
	if !errors.Is(wrapped, ErrUnreachable) {
		t.Error("CollectError should unwrap to its cause")
	}
	if errors.Is(view, ErrUnreachable) {
		t.Error("unrelated cause should not match ErrUnreachable")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrInvalidConfig, ErrValidationFailed, ErrUnreachable, ErrCollectFailed}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if (i == j) != errors.Is(a, b) {
				t.Errorf("errors.Is(%v, %v) = %v", a, b, errors.Is(a, b))
			}
		}
	}
}
