// Package memory provides an in-memory two-tier store with a logical clock.
// It backs tests and ephemeral deployments; expiry and renewal behave exactly
// like the durable backends, just against an injectable clock.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/greeting.space/internal/greeter/domain"
	"github.com/louisbranch/greeting.space/internal/greeter/storage"
)

// DefaultInitialTTL is the lifetime granted to entries on creation, in clock
// units, before any explicit renewal.
const DefaultInitialTTL uint32 = 100

type scopedKey struct {
	kind    storage.ScopedKind
	subject domain.Identity
}

type scopedEntry struct {
	value     string
	liveUntil uint64
}

// Store is an in-memory storage.Store. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	now        func() uint64
	initialTTL uint32

	globals         map[storage.GlobalKey]string
	globalLiveUntil uint64

	scoped map[scopedKey]scopedEntry
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock. Tests use this to drive expiry deterministically.
func WithNow(now func() uint64) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithInitialTTL overrides the lifetime granted to newly created entries.
func WithInitialTTL(units uint32) Option {
	return func(s *Store) {
		s.initialTTL = units
	}
}

// New creates an empty store. The default clock counts unix seconds.
func New(opts ...Option) *Store {
	s := &Store{
		now:        func() uint64 { return uint64(time.Now().Unix()) },
		initialTTL: DefaultInitialTTL,
		globals:    make(map[storage.GlobalKey]string),
		scoped:     make(map[scopedKey]scopedEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Global returns the global tier view.
func (s *Store) Global() storage.GlobalTier { return globalTier{s} }

// Scoped returns the scoped tier view.
func (s *Store) Scoped() storage.ScopedTier { return scopedTier{s} }

// Close implements storage.Store. Nothing to release.
func (s *Store) Close() error { return nil }

// globalLive reports whether the global tier is still within its lifetime.
// Expired entries are dropped so a later re-create starts clean.
func (s *Store) globalLive() bool {
	if len(s.globals) == 0 {
		return false
	}
	if s.now() > s.globalLiveUntil {
		s.globals = make(map[storage.GlobalKey]string)
		s.globalLiveUntil = 0
		return false
	}
	return true
}

// clampLifetime applies the renewal floor and ceiling to a remaining lifetime.
func clampLifetime(remaining uint64, minUnits, maxUnits uint32) uint64 {
	if remaining < uint64(minUnits) {
		remaining = uint64(minUnits)
	}
	if remaining > uint64(maxUnits) {
		remaining = uint64(maxUnits)
	}
	return remaining
}

type globalTier struct {
	s *Store
}

func (t globalTier) Has(ctx context.Context, key storage.GlobalKey) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.s.globalLive() {
		return false, nil
	}
	_, ok := t.s.globals[key]
	return ok, nil
}

func (t globalTier) Get(ctx context.Context, key storage.GlobalKey) (string, bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.s.globalLive() {
		return "", false, nil
	}
	value, ok := t.s.globals[key]
	return value, ok, nil
}

func (t globalTier) Set(ctx context.Context, key storage.GlobalKey, value string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.s.globalLive() {
		t.s.globalLiveUntil = t.s.now() + uint64(t.s.initialTTL)
	}
	t.s.globals[key] = value
	return nil
}

func (t globalTier) Renew(ctx context.Context, minUnits, maxUnits uint32) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if !t.s.globalLive() {
		return nil
	}
	now := t.s.now()
	remaining := t.s.globalLiveUntil - now
	t.s.globalLiveUntil = now + clampLifetime(remaining, minUnits, maxUnits)
	return nil
}

type scopedTier struct {
	s *Store
}

func (t scopedTier) Get(ctx context.Context, kind storage.ScopedKind, subject domain.Identity) (string, bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	key := scopedKey{kind: kind, subject: subject}
	entry, ok := t.s.scoped[key]
	if !ok {
		return "", false, nil
	}
	if t.s.now() > entry.liveUntil {
		delete(t.s.scoped, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (t scopedTier) Set(ctx context.Context, kind storage.ScopedKind, subject domain.Identity, value string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	key := scopedKey{kind: kind, subject: subject}
	now := t.s.now()
	entry, ok := t.s.scoped[key]
	if !ok || now > entry.liveUntil {
		entry.liveUntil = now + uint64(t.s.initialTTL)
	}
	entry.value = value
	t.s.scoped[key] = entry
	return nil
}

func (t scopedTier) Renew(ctx context.Context, kind storage.ScopedKind, subject domain.Identity, minUnits, maxUnits uint32) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	key := scopedKey{kind: kind, subject: subject}
	entry, ok := t.s.scoped[key]
	now := t.s.now()
	if !ok || now > entry.liveUntil {
		return nil
	}
	entry.liveUntil = now + clampLifetime(entry.liveUntil-now, minUnits, maxUnits)
	t.s.scoped[key] = entry
	return nil
}
