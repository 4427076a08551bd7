package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned when a provider record fails validation.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUpstreamRequest is returned when a provider cannot be reached or answers with an error.
	ErrUpstreamRequest = errors.New("upstream request failed")
	// ErrInvalidConfiguration is returned when a required configuration value is missing or invalid.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Malformed formats a message and wraps it with ErrMalformedRecord.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

// InvalidConfig formats a message and wraps it with ErrInvalidConfiguration.
func InvalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}

// UpstreamRequestError describes a failed call to a provider.
type UpstreamRequestError struct {
	Source  string
	Status  int // HTTP status, 0 for transport errors
	Message string
	Err     error
}

func (e *UpstreamRequestError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Source, ErrUpstreamRequest, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Source, ErrUpstreamRequest, msg)
}

// Is makes errors.Is(err, ErrUpstreamRequest) match.
func (e *UpstreamRequestError) Is(target error) bool {
	return target == ErrUpstreamRequest
}

func (e *UpstreamRequestError) Unwrap() error {
	return e.Err
}
