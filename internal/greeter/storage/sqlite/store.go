// Package sqlite provides the SQLite-backed two-tier store.
//
// Time units are unix seconds by default. Expiry is enforced on read: entries
// whose live_until has passed report as absent; they are not physically
// deleted, matching the engine's no-delete policy.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/greeting.space/internal/greeter/domain"
	"github.com/louisbranch/greeting.space/internal/greeter/storage"
	"github.com/louisbranch/greeting.space/internal/greeter/storage/sqlite/migrations"
	"github.com/louisbranch/greeting.space/internal/platform/storage/sqlitemigrate"

	_ "modernc.org/sqlite"
)

// DefaultInitialTTL is the lifetime granted to entries on creation, in time
// units, before any explicit renewal.
const DefaultInitialTTL uint32 = 100

// Store is a SQLite-backed storage.Store.
type Store struct {
	sqlDB      *sql.DB
	now        func() int64
	initialTTL uint32
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the clock used for expiry and renewal arithmetic.
func WithNow(now func() int64) Option {
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

// Open opens a SQLite ledger store at the provided path and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{
		sqlDB:      sqlDB,
		now:        func() int64 { return time.Now().Unix() },
		initialTTL: DefaultInitialTTL,
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.LedgerFS, "ledger"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Global returns the global tier view.
func (s *Store) Global() storage.GlobalTier { return globalTier{s} }

// Scoped returns the scoped tier view.
func (s *Store) Scoped() storage.ScopedTier { return scopedTier{s} }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// globalLiveUntil reads the shared lifetime of the global tier.
// Returns ok=false when the tier has never been written.
func (s *Store) globalLiveUntil(ctx context.Context) (int64, bool, error) {
	var liveUntil int64
	row := s.sqlDB.QueryRowContext(ctx, "SELECT live_until FROM global_tier WHERE id = 1")
	if err := row.Scan(&liveUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("read global tier lifetime: %w", err)
	}
	return liveUntil, true, nil
}

func clampLifetime(remaining int64, minUnits, maxUnits uint32) int64 {
	if remaining < int64(minUnits) {
		remaining = int64(minUnits)
	}
	if remaining > int64(maxUnits) {
		remaining = int64(maxUnits)
	}
	return remaining
}

type globalTier struct {
	s *Store
}

func (t globalTier) Has(ctx context.Context, key storage.GlobalKey) (bool, error) {
	liveUntil, ok, err := t.s.globalLiveUntil(ctx)
	if err != nil {
		return false, err
	}
	if !ok || t.s.now() > liveUntil {
		return false, nil
	}
	var found int
	row := t.s.sqlDB.QueryRowContext(ctx, "SELECT 1 FROM global_entries WHERE key = ?", string(key))
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check global entry %s: %w", key, err)
	}
	return true, nil
}

func (t globalTier) Get(ctx context.Context, key storage.GlobalKey) (string, bool, error) {
	liveUntil, ok, err := t.s.globalLiveUntil(ctx)
	if err != nil {
		return "", false, err
	}
	if !ok || t.s.now() > liveUntil {
		return "", false, nil
	}
	var value string
	row := t.s.sqlDB.QueryRowContext(ctx, "SELECT value FROM global_entries WHERE key = ?", string(key))
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read global entry %s: %w", key, err)
	}
	return value, true, nil
}

func (t globalTier) Set(ctx context.Context, key storage.GlobalKey, value string) error {
	now := t.s.now()
	liveUntil, ok, err := t.s.globalLiveUntil(ctx)
	if err != nil {
		return err
	}
	if !ok || now > liveUntil {
		// First write (or write after expiry) starts a fresh tier lifetime
		// and clears any stale entries left behind by the expired tier.
		if _, err := t.s.sqlDB.ExecContext(ctx, "DELETE FROM global_entries"); err != nil {
			return fmt.Errorf("clear expired global tier: %w", err)
		}
		if _, err := t.s.sqlDB.ExecContext(ctx,
			"INSERT INTO global_tier (id, live_until) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET live_until = excluded.live_until",
			now+int64(t.s.initialTTL),
		); err != nil {
			return fmt.Errorf("start global tier lifetime: %w", err)
		}
	}
	if _, err := t.s.sqlDB.ExecContext(ctx,
		"INSERT INTO global_entries (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		string(key), value,
	); err != nil {
		return fmt.Errorf("write global entry %s: %w", key, err)
	}
	return nil
}

func (t globalTier) Renew(ctx context.Context, minUnits, maxUnits uint32) error {
	now := t.s.now()
	liveUntil, ok, err := t.s.globalLiveUntil(ctx)
	if err != nil {
		return err
	}
	if !ok || now > liveUntil {
		return nil
	}
	next := now + clampLifetime(liveUntil-now, minUnits, maxUnits)
	if _, err := t.s.sqlDB.ExecContext(ctx,
		"UPDATE global_tier SET live_until = ? WHERE id = 1", next,
	); err != nil {
		return fmt.Errorf("renew global tier: %w", err)
	}
	return nil
}

type scopedTier struct {
	s *Store
}

func (t scopedTier) Get(ctx context.Context, kind storage.ScopedKind, subject domain.Identity) (string, bool, error) {
	var value string
	row := t.s.sqlDB.QueryRowContext(ctx,
		"SELECT value FROM scoped_entries WHERE kind = ? AND subject = ? AND live_until >= ?",
		string(kind), string(subject), t.s.now(),
	)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read scoped entry %s/%s: %w", kind, subject, err)
	}
	return value, true, nil
}

func (t scopedTier) Set(ctx context.Context, kind storage.ScopedKind, subject domain.Identity, value string) error {
	now := t.s.now()
	if _, err := t.s.sqlDB.ExecContext(ctx, `
INSERT INTO scoped_entries (kind, subject, value, live_until) VALUES (?, ?, ?, ?)
ON CONFLICT(kind, subject) DO UPDATE SET
    value = excluded.value,
    live_until = CASE WHEN scoped_entries.live_until >= ? THEN scoped_entries.live_until ELSE excluded.live_until END`,
		string(kind), string(subject), value, now+int64(t.s.initialTTL), now,
	); err != nil {
		return fmt.Errorf("write scoped entry %s/%s: %w", kind, subject, err)
	}
	return nil
}

func (t scopedTier) Renew(ctx context.Context, kind storage.ScopedKind, subject domain.Identity, minUnits, maxUnits uint32) error {
	now := t.s.now()
	var liveUntil int64
	row := t.s.sqlDB.QueryRowContext(ctx,
		"SELECT live_until FROM scoped_entries WHERE kind = ? AND subject = ?",
		string(kind), string(subject),
	)
	if err := row.Scan(&liveUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("read scoped entry lifetime %s/%s: %w", kind, subject, err)
	}
	if now > liveUntil {
		return nil
	}
	next := now + clampLifetime(liveUntil-now, minUnits, maxUnits)
	if _, err := t.s.sqlDB.ExecContext(ctx,
		"UPDATE scoped_entries SET live_until = ? WHERE kind = ? AND subject = ?",
		next, string(kind), string(subject),
	); err != nil {
		return fmt.Errorf("renew scoped entry %s/%s: %w", kind, subject, err)
	}
	return nil
}
