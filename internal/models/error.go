package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Login gate errors, all reported outward as a generic authentication failure
	ErrAccountDisabled   = errors.New("account is not activated")
	ErrAccountLocked     = errors.New("account is temporarily locked")
	ErrBadCredentials    = errors.New("bad credentials")
	ErrRateLimitExceeded = errors.New("too many failed attempts from this address")
)

// FieldError is a single user-facing validation problem
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ValidationFailure carries every field-level error found for a request
type ValidationFailure struct {
	Message string
	Errors  []FieldError
}

func (e *ValidationFailure) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Field != "" {
			parts = append(parts, fe.Field+": "+fe.Message)
		} else {
			parts = append(parts, fe.Message)
		}
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, "; "))
}

// HasField reports whether any error refers to the given field
func (e *ValidationFailure) HasField(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// AuthenticationFailure wraps any credential or code rejection.
// The message is kept for logs; the HTTP boundary never echoes it.
type AuthenticationFailure struct {
	Message string
	Err     error
}

func (e *AuthenticationFailure) Error() string {
	return "authentication failed: " + e.Message
}

func (e *AuthenticationFailure) Unwrap() error {
	return e.Err
}

// NewAuthenticationFailure wraps err, keeping its original message
func NewAuthenticationFailure(err error) *AuthenticationFailure {
	return &AuthenticationFailure{Message: err.Error(), Err: err}
}

// CodeIssuanceFailure reports a problem creating or dispatching a one-time code
type CodeIssuanceFailure struct {
	Factor  FactorType
	Message string
	Err     error
}

func (e *CodeIssuanceFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s code issuance failed: %s: %v", strings.ToLower(string(e.Factor)), e.Message, e.Err)
	}
	return fmt.Sprintf("%s code issuance failed: %s", strings.ToLower(string(e.Factor)), e.Message)
}

func (e *CodeIssuanceFailure) Unwrap() error {
	return e.Err
}

// ServiceFailure is the catch-all for unexpected collaborator or persistence errors
type ServiceFailure struct {
	Message string
	Err     error
}

func (e *ServiceFailure) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceFailure) Unwrap() error {
	return e.Err
}

// NewServiceFailure wraps err under a generic message
func NewServiceFailure(message string, err error) *ServiceFailure {
	return &ServiceFailure{Message: message, Err: err}
}
