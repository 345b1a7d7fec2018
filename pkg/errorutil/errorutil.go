package errorutil

import (
	"errors"
	"fmt"
)

// Error codes grouped by the failure taxonomy the console distinguishes.
const (
	CodeTransport        = "TRANSPORT_FAILED"
	CodeVersionMismatch  = "VERSION_MISMATCH"
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodePartialBatch     = "PARTIAL_BATCH"
	CodePersistence      = "PERSISTENCE_FAILED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeValidation       = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, Details: details}
}

// NewTransport wraps a network or HTTP failure. reason carries the wire-level
// detail, e.g. "http_502" or "network".
func NewTransport(reason string, err error) error {
	return &DomainError{
		Code:    CodeTransport,
		Message: "upstream request failed",
		Details: map[string]any{"reason": reason},
		Err:     err,
	}
}

// NewVersionMismatch reports a contract tag the console does not speak.
func NewVersionMismatch(got, want string) error {
	return &DomainError{
		Code:    CodeVersionMismatch,
		Message: "workspace contract version mismatch",
		Details: map[string]any{"got": got, "want": want},
	}
}

// NewInvalidPayload reports a structurally broken contract.
func NewInvalidPayload(field string) error {
	return &DomainError{
		Code:    CodeInvalidPayload,
		Message: "workspace contract payload invalid",
		Details: map[string]any{"field": field},
	}
}

// NewPartialBatch aggregates per-ticket failures of a bulk action.
func NewPartialBatch(failed int, entries []string) error {
	return &DomainError{
		Code:    CodePartialBatch,
		Message: fmt.Sprintf("%d ticket action(s) failed", failed),
		Details: map[string]any{"entries": entries},
	}
}

// NewPersistence wraps a local-store failure. Callers treat these as
// best-effort and degrade rather than abort.
func NewPersistence(err error) error {
	return &DomainError{Code: CodePersistence, Message: "local store unavailable", Err: err}
}

// NewPermissionDenied refuses an action before any network call is made.
func NewPermissionDenied(action string) error {
	return &DomainError{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("action %q is not permitted", action),
		Details: map[string]any{"action": action},
	}
}

// NewValidationError flags malformed operator input.
func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, details)
}

// NewNotFound flags a missing resource.
func NewNotFound(resource string, details map[string]any) error {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource), details)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) error {
	return &DomainError{Code: CodeInternal, Message: "internal error", Err: err}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{Code: CodeInternal, Message: "internal error", Err: err}
}

// Code extracts the taxonomy code of an error, or CodeInternal.
func Code(err error) string {
	de := ToDomainError(err)
	if de == nil {
		return ""
	}
	return de.Code
}
