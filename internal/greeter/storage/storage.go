// Package storage defines the two-tier keyed store the greeting engine runs on.
//
// The global tier holds small singleton values whose lifetimes are renewed
// together in one call. The scoped tier holds per-identity values, each with an
// independent lifetime. Backends decide what a time unit is (the in-memory
// store uses a logical clock, the SQLite store uses unix seconds); the engine
// only speaks in relative extensions.
package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/louisbranch/greeting.space/internal/greeter/domain"
	apperrors "github.com/louisbranch/greeting.space/internal/platform/errors"
)

// GlobalKey names a singleton value in the global tier.
type GlobalKey string

const (
	// KeyAdmin records the admin identity. Written once at initialization,
	// overwritten only by an admin transfer.
	KeyAdmin GlobalKey = "admin"
	// KeyGreetingCounter is the contract-wide greeting counter.
	KeyGreetingCounter GlobalKey = "greeting_counter"
	// KeyCharacterLimit is the inclusive upper bound on greeting name length.
	KeyCharacterLimit GlobalKey = "character_limit"
)

// ScopedKind names a per-identity record family in the scoped tier.
type ScopedKind string

const (
	// KindLastGreeting stores the last name an identity greeted with.
	KindLastGreeting ScopedKind = "last_greeting"
	// KindIdentityCounter counts successful greetings per identity.
	KindIdentityCounter ScopedKind = "identity_counter"
)

// DefaultCharacterLimit applies when no limit has been configured.
const DefaultCharacterLimit uint32 = 32

// GlobalTier stores singleton contract values under one shared lifetime.
type GlobalTier interface {
	// Has reports key presence without reading the value.
	Has(ctx context.Context, key GlobalKey) (bool, error)
	// Get returns the value for key and whether it is present and live.
	Get(ctx context.Context, key GlobalKey) (string, bool, error)
	// Set writes the value for key.
	Set(ctx context.Context, key GlobalKey, value string) error
	// Renew extends the shared lifetime of every global entry. After the call
	// the remaining lifetime is at least minUnits and at most maxUnits.
	// Renewal has a cost; callers renew only on the access paths that need it.
	Renew(ctx context.Context, minUnits, maxUnits uint32) error
}

// ScopedTier stores per-identity values, each with an independent lifetime.
type ScopedTier interface {
	// Get returns the value recorded for subject under kind.
	Get(ctx context.Context, kind ScopedKind, subject domain.Identity) (string, bool, error)
	// Set writes the value recorded for subject under kind.
	Set(ctx context.Context, kind ScopedKind, subject domain.Identity, value string) error
	// Renew extends the lifetime of the single entry (kind, subject) with the
	// same floor/ceiling semantics as GlobalTier.Renew.
	Renew(ctx context.Context, kind ScopedKind, subject domain.Identity, minUnits, maxUnits uint32) error
}

// Store bundles both tiers behind one backend handle.
type Store interface {
	Global() GlobalTier
	Scoped() ScopedTier
	Close() error
}

// AdminIdentity reads the recorded admin, reporting absence instead of erroring
// so callers decide what "uninitialized" means.
func AdminIdentity(ctx context.Context, tier GlobalTier) (domain.Identity, bool, error) {
	value, ok, err := tier.Get(ctx, KeyAdmin)
	if err != nil || !ok {
		return "", false, err
	}
	return domain.Identity(value), true, nil
}

// GlobalCounter reads an unsigned counter from the global tier, treating
// absence as zero. Absence is a valid pre-initialization state, never an error.
func GlobalCounter(ctx context.Context, tier GlobalTier, key GlobalKey) (uint32, error) {
	value, ok, err := tier.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return parseCounter(string(key), value)
}

// CharacterLimit reads the configured name length limit, falling back to
// DefaultCharacterLimit when unset.
func CharacterLimit(ctx context.Context, tier GlobalTier) (uint32, error) {
	value, ok, err := tier.Get(ctx, KeyCharacterLimit)
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultCharacterLimit, nil
	}
	return parseCounter(string(KeyCharacterLimit), value)
}

// ScopedCounter reads a per-identity counter, treating absence as zero.
func ScopedCounter(ctx context.Context, tier ScopedTier, kind ScopedKind, subject domain.Identity) (uint32, error) {
	value, ok, err := tier.Get(ctx, kind, subject)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return parseCounter(string(kind), value)
}

// FormatCounter encodes an unsigned counter for storage.
func FormatCounter(value uint32) string {
	return strconv.FormatUint(uint64(value), 10)
}

func parseCounter(name, value string) (uint32, error) {
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		// A non-numeric stored counter is backend corruption, not a domain
		// condition; it surfaces as an unknown error carrying the cause.
		return 0, apperrors.Wrap(
			apperrors.CodeUnknown,
			fmt.Sprintf("parse %s value %q", name, value),
			err,
		)
	}
	return uint32(parsed), nil
}
