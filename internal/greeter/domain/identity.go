// Package domain holds the greeting ledger's identity, validation, and
// authorization rules. It is storage-free: callers look up recorded state and
// pass it in, so the rules stay pure and trivially testable.
package domain

// Identity is an opaque caller handle. The platform's caller-authentication
// collaborator has already verified it; inside the engine only equality matters.
type Identity string

// Authorize checks a caller against the recorded owner identity.
// It is a pure comparison; looking up the recorded owner is the caller's job.
func Authorize(caller, recordedOwner Identity) error {
	if caller != recordedOwner {
		return ErrUnauthorized
	}
	return nil
}
