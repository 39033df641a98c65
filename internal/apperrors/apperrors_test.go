package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Invalid("bad"), http.StatusBadRequest},
		{New(Unauthorized, "no"), http.StatusUnauthorized},
		{New(Forbidden, "no"), http.StatusForbidden},
		{NotFoundf("ride"), http.StatusNotFound},
		{New(Conflict, "taken"), http.StatusConflict},
		{fmt.Errorf("wrapped: %w", New(Conflict, "taken")), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusCode(tt.err); got != tt.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPublic_HidesInternalCause(t *testing.T) {
	msg, details := Public(Wrap(Internal, "failed to save", errors.New("dial tcp: refused")))
	if msg != "Server error" || details != nil {
		t.Errorf("Expected generic message, got %q %v", msg, details)
	}

	msg, details = Public(Invalid("Invalid input", Detail{Field: "phone", Message: "must be 10 digits"}))
	if msg != "Invalid input" || len(details) != 1 {
		t.Errorf("Expected validation message with one detail, got %q %v", msg, details)
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("cause")
	err := Wrap(Conflict, "conflict", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to be reachable")
	}
	if !Is(err, Conflict) {
		t.Error("Expected Conflict kind")
	}
}
