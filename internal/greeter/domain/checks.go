package domain

// Check is a single validation predicate. Checks are pure: they inspect
// already-looked-up values and never touch storage.
type Check func() error

// Run executes checks left to right and stops at the first failure.
// Every mutating operation runs its full check sequence before its first write,
// so a rejected call never leaves partial state behind.
func Run(checks ...Check) error {
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// RequireInitialized fails with ErrNotInitialized when no admin is recorded.
func RequireInitialized(initialized bool) Check {
	return func() error {
		if !initialized {
			return ErrNotInitialized
		}
		return nil
	}
}

// RequireUninitialized fails with ErrAlreadyInitialized when an admin is
// already recorded. Used by initialization, where the presence check inverts.
func RequireUninitialized(initialized bool) Check {
	return func() error {
		if initialized {
			return ErrAlreadyInitialized
		}
		return nil
	}
}

// Authorized fails with ErrUnauthorized when the caller is not the recorded admin.
func Authorized(caller, admin Identity) Check {
	return func() error {
		return Authorize(caller, admin)
	}
}

// NameNotEmpty fails with ErrNameEmpty for a zero-length greeting name.
func NameNotEmpty(name string) Check {
	return func() error {
		if len(name) == 0 {
			return ErrNameEmpty
		}
		return nil
	}
}

// NameWithinLimit fails with ErrNameTooLong when the name is longer than
// limit. Length is measured in bytes and the limit is inclusive.
func NameWithinLimit(name string, limit uint32) Check {
	return func() error {
		if uint64(len(name)) > uint64(limit) {
			return nameTooLongError(len(name), limit)
		}
		return nil
	}
}
