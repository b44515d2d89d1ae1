// Package errors provides structured error handling for the greeting ledger.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Greeting errors
	CodeGreetingNameEmpty          Code = "GREETING_NAME_EMPTY"
	CodeGreetingNameTooLong        Code = "GREETING_NAME_TOO_LONG"
	CodeGreetingUnauthorized       Code = "GREETING_UNAUTHORIZED"
	CodeGreetingNotInitialized     Code = "GREETING_NOT_INITIALIZED"
	CodeGreetingAlreadyInitialized Code = "GREETING_ALREADY_INITIALIZED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Numeric maps domain codes to the stable numeric identifiers reported across
// process boundaries. Codes without a reserved number map to 0.
func (c Code) Numeric() uint32 {
	switch c {
	case CodeGreetingNameEmpty:
		return 1
	case CodeGreetingNameTooLong:
		return 2
	case CodeGreetingUnauthorized:
		return 3
	case CodeGreetingNotInitialized:
		return 4
	case CodeGreetingAlreadyInitialized:
		return 5
	default:
		return 0
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeGreetingNameEmpty,
		CodeGreetingNameTooLong:
		return codes.InvalidArgument

	// PermissionDenied - caller is not the recorded admin
	case CodeGreetingUnauthorized:
		return codes.PermissionDenied

	// FailedPrecondition - initialization order violated
	case CodeGreetingNotInitialized,
		CodeGreetingAlreadyInitialized:
		return codes.FailedPrecondition

	// NotFound - resource doesn't exist
	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
