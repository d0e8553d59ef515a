package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingCredentials = errors.New("vendor credentials not configured")
)

// ValidationError reports malformed or missing caller input. It is always
// recoverable locally by re-prompting for the named field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// AuthError reports a failed client-credentials exchange. It is fatal for the
// current operation and must surface distinctly from vendor errors.
type AuthError struct {
	Status int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange: %v", e.Err)
	}
	return fmt.Sprintf("token exchange: status %d: %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// VendorErrorKind sub-classifies non-2xx vendor responses on submit.
type VendorErrorKind string

const (
	VendorValidation VendorErrorKind = "validation"
	VendorNotFound   VendorErrorKind = "not_found"
	VendorGeneric    VendorErrorKind = "generic"
)

// VendorError reports a non-2xx response from the vendor API.
type VendorError struct {
	Kind    VendorErrorKind
	Status  int
	Message string
}

func (e *VendorError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("vendor: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("vendor: status %d", e.Status)
}
