package errors

import (
	"fmt"
	"strings"
)

// InternalError is implemented by package-local error types that know how to
// transform themselves into the structured *Error form. AsError uses it so
// rich domain errors survive the conversion.
type InternalError interface {
	error
	Transform() *Error
}

// Helper to check if an error is of our Error type
func IsMetabridgeError(err error) bool {
	_, ok := err.(*Error)
	return ok
}

// Helper to extract context from our errors
func GetContext(err error) map[string]string {
	if bridgeErr, ok := err.(*Error); ok {
		return bridgeErr.Context
	}
	return nil
}

// Helper to get error code
func GetCode(err error) string {
	if bridgeErr, ok := err.(*Error); ok {
		return bridgeErr.Code.String()
	}
	return ""
}

// Helper to format error for logging
func FormatError(err error) string {
	if bridgeErr, ok := err.(*Error); ok {
		var parts []string
		parts = append(parts, fmt.Sprintf("Code: %s", bridgeErr.Code))
		parts = append(parts, fmt.Sprintf("Message: %s", bridgeErr.Message))

		if len(bridgeErr.Context) > 0 {
			parts = append(parts, "Context:")
			for k, v := range bridgeErr.Context {
				parts = append(parts, fmt.Sprintf("  %s: %v", k, v))
			}
		}

		if bridgeErr.Cause != nil {
			parts = append(parts, fmt.Sprintf("Cause: %v", bridgeErr.Cause))
		}

		return strings.Join(parts, "\n")
	}
	return err.Error()
}

// AsError converts any error to the internal *Error form:
// - InternalError types are transformed using their Transform() method
// - Existing *Error values are returned as-is
// - Standard Go errors are wrapped in a generic internal error
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	if ie, ok := err.(InternalError); ok {
		return ie.Transform()
	}

	if internalErr, ok := err.(*Error); ok {
		return internalErr
	}

	return New(CommonInternal, err.Error(), err)
}
