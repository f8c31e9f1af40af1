package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestIsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", ErrNotificationDelivery.WithInternal(stdErrors.New("smtp down")))

	if !stdErrors.Is(wrapped, ErrNotificationDelivery) {
		t.Fatal("expected copy to match its sentinel")
	}
	if stdErrors.Is(wrapped, ErrDuplicateAccount) {
		t.Fatal("expected different codes not to match")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrAccountNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code || out.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected internal server error, got %+v", out)
	}
	if out.Message == raw.Error() {
		t.Fatal("expected internal message not to leak")
	}
}

func TestNewValidation(t *testing.T) {
	if NewValidation("") != ErrValidation {
		t.Fatal("expected empty message to reuse the sentinel")
	}

	custom := NewValidation("email is required")
	if custom.Message != "email is required" || custom.Code != ErrValidation.Code {
		t.Fatalf("unexpected validation error: %+v", custom)
	}
	if ErrValidation.Message != "All fields are required" {
		t.Fatal("expected sentinel message to remain unchanged")
	}
}
