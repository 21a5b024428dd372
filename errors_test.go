package portalauth

import (
	"errors"
	"fmt"
	"testing"
)

func TestFieldErrorsMatchesValidationSentinel(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("email", "email is required")

	if !errors.Is(fe, ErrValidation) {
		t.Fatal("FieldErrors must match ErrValidation")
	}
	if errors.Is(fe, ErrInvalidCredentials) {
		t.Fatal("FieldErrors must not match unrelated sentinels")
	}

	// Wrapping preserves the match.
	wrapped := fmt.Errorf("submit failed: %w", fe)
	if !errors.Is(wrapped, ErrValidation) {
		t.Fatal("wrapped FieldErrors must still match ErrValidation")
	}
	var unwrapped FieldErrors
	if !errors.As(wrapped, &unwrapped) || len(unwrapped["email"]) != 1 {
		t.Fatalf("errors.As lost the field map: %v", unwrapped)
	}
}

func TestFieldErrorsDeterministicRendering(t *testing.T) {
	fe := FieldErrors{}
	fe.Add("password", "must contain a digit")
	fe.Add("email", "email is required")
	fe.Add("password", "must contain a symbol")

	want := "email: email is required; password: must contain a digit, must contain a symbol"
	for i := 0; i < 50; i++ {
		if got := fe.Error(); got != want {
			t.Fatalf("rendering = %q, want %q", got, want)
		}
	}
}

func TestFieldErrorsEmpty(t *testing.T) {
	fe := FieldErrors{}
	if fe.Any() {
		t.Fatal("empty map must report no failures")
	}
	if fe.Error() != "validation failed" {
		t.Fatalf("empty rendering = %q", fe.Error())
	}
}
