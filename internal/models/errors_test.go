package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"validation", NewValidationError("name is required"), KindValidation},
		{"invalid join code", NewInvalidJoinCodeError("ABCDEF"), KindNotFound},
		{"already member", NewAlreadyMemberError("g1"), KindConflict},
		{"exhausted", NewCodeGenerationExhaustedError(10), KindConflict},
		{"permission", NewPermissionDeniedError("no"), KindPermission},
		{"orphan", NewOrphanedObjectError("photos/x", errors.New("boom")), KindPartialFailure},
		{"wrapped", fmt.Errorf("outer: %w", NewAlreadyMemberError("g1")), KindConflict},
		{"foreign", errors.New("connection reset"), KindRemote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRemoteError_KeepsMessage(t *testing.T) {
	cause := errors.New("AccessDenied: bucket policy")
	err := NewRemoteError(cause)

	if err.Message != cause.Error() {
		t.Errorf("Message = %q, want %q", err.Message, cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected remote error to unwrap to its cause")
	}
}

func TestAsRemote(t *testing.T) {
	if AsRemote(nil) != nil {
		t.Error("AsRemote(nil) should be nil")
	}

	typed := NewInvalidJoinCodeError("ZZZZZZ")
	if got := AsRemote(typed); got != typed {
		t.Errorf("AsRemote should pass typed errors through, got %v", got)
	}

	got := AsRemote(errors.New("timeout"))
	if KindOf(got) != KindRemote || CodeOf(got) != CodeRemote {
		t.Errorf("AsRemote(foreign) = %v, want remote error", got)
	}
}
