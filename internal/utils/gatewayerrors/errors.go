// Package gatewayerrors defines the error taxonomy shared by the gateway's
// domain and HTTP layers.
package gatewayerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type represents the category of a gateway error.
type Type string

const (
	// TypeInitialization marks a fatal session bootstrap failure after
	// bounded retries. The session stays disconnected.
	TypeInitialization Type = "INITIALIZATION"
	// TypeNotConnected marks a command issued against a session whose
	// transport is down. The caller should restart the session.
	TypeNotConnected Type = "NOT_CONNECTED"
	// TypeNotFound marks bad input: unknown account, conversation or message.
	TypeNotFound Type = "NOT_FOUND"
	// TypeConflict marks a benign uniqueness collision, treated as a no-op.
	TypeConflict Type = "CONFLICT"
	// TypeValidation marks malformed caller input.
	TypeValidation Type = "VALIDATION"
	// TypeInternal marks everything else.
	TypeInternal Type = "INTERNAL"
)

// GatewayError carries the category alongside the message and cause.
type GatewayError struct {
	Type    Type
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// New creates a GatewayError without a cause.
func New(t Type, message string) *GatewayError {
	return &GatewayError{Type: t, Message: message}
}

// Newf creates a GatewayError with a formatted message.
func Newf(t Type, format string, args ...any) *GatewayError {
	return &GatewayError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a GatewayError wrapping an underlying cause.
func Wrap(t Type, message string, err error) *GatewayError {
	return &GatewayError{Type: t, Message: message, Err: err}
}

// TypeOf returns the type of err, or TypeInternal for untyped errors.
func TypeOf(err error) Type {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Type
	}
	return TypeInternal
}

// IsType reports whether err carries the given gateway error type.
func IsType(err error, t Type) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Type == t
}

func IsNotFound(err error) bool     { return IsType(err, TypeNotFound) }
func IsNotConnected(err error) bool { return IsType(err, TypeNotConnected) }
func IsConflict(err error) bool     { return IsType(err, TypeConflict) }

// TypeToHTTPStatus maps an error type to the HTTP status the API returns.
func TypeToHTTPStatus(t Type) int {
	switch t {
	case TypeNotFound:
		return http.StatusNotFound
	case TypeNotConnected:
		return http.StatusConflict
	case TypeConflict:
		return http.StatusConflict
	case TypeValidation:
		return http.StatusBadRequest
	case TypeInitialization:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
