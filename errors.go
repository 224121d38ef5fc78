package userstack

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of error for metrics and logging.
type ErrorCode string

// Error codes for categorization.
const (
	ErrCodeConfig   ErrorCode = "CONFIG"   // Configuration errors
	ErrCodeIdentify ErrorCode = "IDENTIFY" // Identify call rejected by the backend
	ErrCodeTrack    ErrorCode = "TRACK"    // Track delivery failures
	ErrCodeNetwork  ErrorCode = "NETWORK"  // Network/connection errors
	ErrCodeStorage  ErrorCode = "STORAGE"  // Token storage errors
	ErrCodeScope    ErrorCode = "SCOPE"    // Client accessed outside its scope
	ErrCodeInternal ErrorCode = "INTERNAL" // Internal SDK errors
)

// Sentinel errors for configuration validation.
var (
	ErrMissingProjectKey = errors.New("userstack: project key is required")
	ErrMissingBaseURL    = errors.New("userstack: base URL is required")
	ErrInvalidConfig     = errors.New("userstack: invalid configuration")
)

// Sentinel errors for client usage.
var (
	ErrNilClient    = errors.New("userstack: client is nil")
	ErrClientClosed = errors.New("userstack: client is closed")

	// ErrOutsideScope is returned by FromContext when no client was provided
	// to the context. It signals a programming error, not a runtime condition.
	ErrOutsideScope = errors.New("userstack: client accessed outside of its providing scope")

	// ErrMissingSession marks a track call made without a stored session token.
	// It is logged and counted, never returned to the caller.
	ErrMissingSession = errors.New("userstack: no session token, event dropped")

	// ErrMissingToken is returned when identify succeeds without a jwt in the body.
	ErrMissingToken = errors.New("userstack: identify response did not contain a token")

	// ErrMissingFeature is returned when Track is called with an empty feature.
	ErrMissingFeature = errors.New("userstack: track feature is required")

	// ErrIdentification matches any *IdentificationError via errors.Is.
	ErrIdentification = errors.New("userstack: identification failed")
)

// CodedError is implemented by SDK errors that carry an ErrorCode.
type CodedError interface {
	error
	Code() ErrorCode
}

// IdentificationError is returned by Identify when the backend answers with a
// non-2xx status. Its message is the raw response body.
type IdentificationError struct {
	StatusCode int
	Message    string
}

// Error returns the response body verbatim.
func (e *IdentificationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("userstack: identify failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Is reports whether target is ErrIdentification or an IdentificationError
// with the same status code.
func (e *IdentificationError) Is(target error) bool {
	if target == ErrIdentification {
		return true
	}
	t, ok := target.(*IdentificationError)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// Code implements CodedError.
func (e *IdentificationError) Code() ErrorCode {
	return ErrCodeIdentify
}

// IsUnauthorized returns true for 401 responses.
func (e *IdentificationError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// TrackError describes a track request that failed in the background.
// It is delivered to the configured error handler and to the Pending result.
type TrackError struct {
	Feature    string
	Event      string
	StatusCode int   // zero when the request never got a response
	Err        error // underlying transport error, if any
}

// Error implements the error interface.
func (e *TrackError) Error() string {
	name := e.Feature
	if e.Event != "" {
		name += "/" + e.Event
	}
	if e.Err != nil {
		return fmt.Sprintf("userstack: track %s failed: %v", name, e.Err)
	}
	return fmt.Sprintf("userstack: track %s failed with status %d", name, e.StatusCode)
}

// Unwrap returns the underlying transport error.
func (e *TrackError) Unwrap() error {
	return e.Err
}

// Code implements CodedError.
func (e *TrackError) Code() ErrorCode {
	if e.StatusCode == 0 {
		return ErrCodeNetwork
	}
	return ErrCodeTrack
}

// StorageError wraps a failure of the configured token storage.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("userstack: storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Code implements CodedError.
func (e *StorageError) Code() ErrorCode {
	return ErrCodeStorage
}

var (
	_ CodedError = (*IdentificationError)(nil)
	_ CodedError = (*TrackError)(nil)
	_ CodedError = (*StorageError)(nil)
)

// AsIdentificationError extracts an IdentificationError from the error chain.
func AsIdentificationError(err error) (*IdentificationError, bool) {
	var idErr *IdentificationError
	if errors.As(err, &idErr) {
		return idErr, true
	}
	return nil, false
}

// AsTrackError extracts a TrackError from the error chain.
func AsTrackError(err error) (*TrackError, bool) {
	var trackErr *TrackError
	if errors.As(err, &trackErr) {
		return trackErr, true
	}
	return nil, false
}

// ErrorCodeOf returns the ErrorCode for any error produced by the SDK.
// Unknown errors are reported as ErrCodeInternal.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var coded CodedError
	if errors.As(err, &coded) {
		return coded.Code()
	}

	switch {
	case errors.Is(err, ErrMissingProjectKey),
		errors.Is(err, ErrMissingBaseURL),
		errors.Is(err, ErrInvalidConfig):
		return ErrCodeConfig
	case errors.Is(err, ErrOutsideScope), errors.Is(err, ErrNilClient):
		return ErrCodeScope
	case errors.Is(err, ErrMissingToken):
		return ErrCodeIdentify
	case errors.Is(err, ErrMissingSession), errors.Is(err, ErrMissingFeature):
		return ErrCodeTrack
	}
	return ErrCodeInternal
}
