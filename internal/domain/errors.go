package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrDecode            = errors.New("image decode failed")
	ErrTimeout           = errors.New("timeout")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrProviderFailure   = errors.New("provider failure")
	ErrNoImageInResponse = errors.New("no image in response")
	ErrBusy              = errors.New("request already in flight")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrUnavailable       = errors.New("unavailable")
)

// TimeoutError reports that the labelled operation did not finish within Duration.
type TimeoutError struct {
	Label    string
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Duration)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ProviderError is returned by try-on and background-removal backends.
// Kind is one of the sentinel errors above and drives errors.Is matching.
type ProviderError struct {
	Provider   string
	Kind       error
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	kind := e.Kind
	if kind == nil {
		kind = ErrProviderFailure
	}
	if target == kind {
		return true
	}
	// Missing image payloads are a provider failure subtype.
	return kind == ErrNoImageInResponse && target == ErrProviderFailure
}

// NewProviderError builds a ProviderError of the given kind.
func NewProviderError(provider string, kind error, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Message: message, Err: err}
}

// RetryAfter extracts the suggested backoff from a quota error, if any.
func RetryAfter(err error) time.Duration {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.RetryAfter
	}
	return 0
}
