package clinic

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a clinic ID is not in the current list.
var ErrNotFound = errors.New("clinic not found")

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	// KindConfiguration means credentials or identifiers are missing.
	KindConfiguration ErrorKind = "CONFIGURATION"
	// KindUpstream means a network or HTTP failure on a row fetch or geocode.
	KindUpstream ErrorKind = "UPSTREAM_UNAVAILABLE"
	// KindGeocodeMiss means an address could not be resolved.
	KindGeocodeMiss ErrorKind = "GEOCODE_MISS"
	// KindValidation means a row is missing required fields.
	KindValidation ErrorKind = "VALIDATION"
)

// Error is a classified pipeline error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// NewUpstreamError creates an upstream-unavailable error.
func NewUpstreamError(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// NewGeocodeMissError creates a geocode miss for address.
func NewGeocodeMissError(address string, err error) *Error {
	return &Error{Kind: KindGeocodeMiss, Message: "could not geocode " + address, Err: err}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// userMessage turns any failure into text fit for the retry banner.
func userMessage(err error) string {
	switch KindOf(err) {
	case KindConfiguration:
		return "The clinic directory is not configured. Please contact the site administrator."
	case KindUpstream:
		return "We could not load the clinic list right now. Please try again."
	default:
		return "Something went wrong while loading clinics. Please try again."
	}
}
