package commonerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_IsMatchesByCode(t *testing.T) {
	wrapped := ErrUserNotFound.WithCause(errors.New("no rows"))

	if !errors.Is(wrapped, ErrUserNotFound) {
		t.Error("expected wrapped error to match its catalogue value")
	}
	if errors.Is(wrapped, ErrEmailAlreadyRegistered) {
		t.Error("expected different codes not to match")
	}
	if got := wrapped.Error(); got != "user not found: no rows" {
		t.Errorf("unexpected message %q", got)
	}
	if got := wrapped.Message(); got != "user not found" {
		t.Errorf("expected bare message, got %q", got)
	}
}

func TestInnermostDomainError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantOK   bool
		wantCode string
	}{
		{"nil", nil, false, ""},
		{"plain", errors.New("boom"), false, ""},
		{"single", ErrCircuitOpen, true, ErrCircuitOpen.Code()},
		{"remote over duplicate", ErrRemoteStore.WithCause(ErrEmailAlreadyRegistered), true, ErrEmailAlreadyRegistered.Code()},
		{"through fmt wrap", fmt.Errorf("call: %w", ErrRemoteStore.WithCause(ErrUserNotFound)), true, ErrUserNotFound.Code()},
		{"remote over plain", ErrRemoteStore.WithCause(errors.New("dial tcp")), true, ErrRemoteStore.Code()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			de, ok := InnermostDomainError(tc.err)
			if ok != tc.wantOK {
				t.Fatalf("expected ok=%v, got %v", tc.wantOK, ok)
			}
			if ok && de.Code() != tc.wantCode {
				t.Errorf("expected code %s, got %s", tc.wantCode, de.Code())
			}
		})
	}
}

func TestWithTraceIDKeepsCause(t *testing.T) {
	cause := errors.New("timeout")
	err := ErrRemoteStore.WithCause(cause).WithTraceID("trace-1")

	if err.TraceID() != "trace-1" {
		t.Errorf("expected trace id, got %q", err.TraceID())
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to survive WithTraceID")
	}
}
