// Package domainerrors defines the coded errors that cross the core
// boundary. Services translate infrastructure sentinels into these; handlers
// translate them into HTTP status codes. Nothing throws across the boundary:
// every exposed operation returns one of these or nil.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error. Callers depend on the distinctions (a
// company's decision page must tell "expired" apart from "not your request"),
// so codes are part of the contract, not decoration.
type Code string

const (
	// CodeInvalidInput marks malformed input caught at a trust boundary
	// (bad commune code, empty field, comment too short).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks a structurally invalid request body.
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a record or token that does not exist.
	CodeNotFound Code = "not_found"

	// CodeUnauthorized marks a missing or unverifiable identity.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks an identity acting outside its scope
	// ("not your request", "restricted to assistance companies").
	CodeForbidden Code = "forbidden"

	// CodeExpired marks a token past its validity window.
	CodeExpired Code = "expired"

	// CodeAlreadyUsed marks a token that was already consumed.
	CodeAlreadyUsed Code = "already_used"

	// CodeInvalidState marks an operation declined by a state guard
	// (wrong step, wrong status, coverage check failed).
	CodeInvalidState Code = "invalid_state"

	// CodeAdvancementFailed marks an approve decision whose journey
	// advancement failed afterwards: the approval is committed but the
	// citizen is stuck, which callers must surface distinctly.
	CodeAdvancementFailed Code = "advancement_failed"

	// CodeUnavailable marks a declined or unreachable external collaborator
	// (case-management service down).
	CodeUnavailable Code = "unavailable"

	// CodeInternal marks unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a caller-facing message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a coded error with a caller-facing message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error around an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool { return HasCode(err, code) }

// CodeOf extracts the code of err, defaulting to CodeInternal for uncoded
// errors so handlers never leak internals.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the caller-facing message of err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code onto an HTTP status for transport handlers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeExpired, CodeAlreadyUsed:
		return http.StatusGone
	case CodeInvalidState:
		return http.StatusConflict
	case CodeAdvancementFailed:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
