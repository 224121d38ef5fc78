package userstack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIdentificationError(t *testing.T) {
	err := &IdentificationError{StatusCode: 401, Message: "invalid credentials"}

	if err.Error() != "invalid credentials" {
		t.Errorf("Error() = %q, want the raw body", err.Error())
	}
	if !err.IsUnauthorized() {
		t.Error("IsUnauthorized() = false for 401")
	}
	if !errors.Is(err, ErrIdentification) {
		t.Error("errors.Is(err, ErrIdentification) = false")
	}
	if !errors.Is(err, &IdentificationError{StatusCode: 401}) {
		t.Error("should match an IdentificationError with the same status")
	}
	if errors.Is(err, &IdentificationError{StatusCode: 403}) {
		t.Error("should not match a different status")
	}

	empty := &IdentificationError{StatusCode: 502}
	if !strings.Contains(empty.Error(), "502") {
		t.Errorf("Error() with empty body = %q, want status", empty.Error())
	}
}

func TestTrackError(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		err := &TrackError{Feature: "app", Event: "pageview", StatusCode: 500}
		if !strings.Contains(err.Error(), "app/pageview") || !strings.Contains(err.Error(), "500") {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Code() != ErrCodeTrack {
			t.Errorf("Code() = %q", err.Code())
		}
		if err.Unwrap() != nil {
			t.Error("Unwrap() should be nil without a transport error")
		}
	})

	t.Run("transport", func(t *testing.T) {
		err := &TrackError{Feature: "search", Err: context.DeadlineExceeded}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Error("TrackError should unwrap to its cause")
		}
		if strings.Contains(err.Error(), "/") {
			t.Errorf("Error() = %q, no event expected", err.Error())
		}
		if err.Code() != ErrCodeNetwork {
			t.Errorf("Code() = %q", err.Code())
		}
	})
}

func TestStorageError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &StorageError{Op: "set", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("StorageError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "set") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestAsHelpers(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", &IdentificationError{StatusCode: 400})
	if idErr, ok := AsIdentificationError(wrapped); !ok || idErr.StatusCode != 400 {
		t.Errorf("AsIdentificationError() = %v, %v", idErr, ok)
	}
	if _, ok := AsIdentificationError(errors.New("plain")); ok {
		t.Error("AsIdentificationError matched a plain error")
	}

	wrapped = fmt.Errorf("outer: %w", &TrackError{Feature: "f"})
	if trackErr, ok := AsTrackError(wrapped); !ok || trackErr.Feature != "f" {
		t.Errorf("AsTrackError() = %v, %v", trackErr, ok)
	}
	if _, ok := AsTrackError(nil); ok {
		t.Error("AsTrackError(nil) matched")
	}
}

func TestErrorCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
	}{
		{nil, ""},
		{ErrMissingProjectKey, ErrCodeConfig},
		{fmt.Errorf("wrap: %w", ErrInvalidConfig), ErrCodeConfig},
		{ErrNilClient, ErrCodeScope},
		{ErrOutsideScope, ErrCodeScope},
		{ErrMissingToken, ErrCodeIdentify},
		{&IdentificationError{StatusCode: 401}, ErrCodeIdentify},
		{ErrMissingSession, ErrCodeTrack},
		{ErrMissingFeature, ErrCodeTrack},
		{&TrackError{StatusCode: 500}, ErrCodeTrack},
		{&TrackError{Err: errors.New("dial")}, ErrCodeNetwork},
		{&StorageError{Op: "get", Err: errors.New("x")}, ErrCodeStorage},
		{ErrClientClosed, ErrCodeInternal},
		{errors.New("unknown"), ErrCodeInternal},
	}

	for _, tt := range tests {
		name := "nil"
		if tt.err != nil {
			name = tt.err.Error()
		}
		t.Run(name, func(t *testing.T) {
			if got := ErrorCodeOf(tt.err); got != tt.want {
				t.Errorf("ErrorCodeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
