package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/louisbranch/greeting.space/internal/greeter/storage"
)

type manualClock struct {
	now int64
}

func (c *manualClock) Now() int64 { return c.now }

func openClockedStore(t *testing.T, initialTTL uint32) (*Store, *manualClock) {
	t.Helper()
	clock := &manualClock{now: 1000}
	path := filepath.Join(t.TempDir(), "greeter.db")
	store, err := Open(path, WithNow(clock.Now), WithInitialTTL(initialTTL))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store, clock
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open("   "); err == nil {
		t.Fatal("expected error for blank path")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeter.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := store.Global().Set(context.Background(), storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening the same file must replay migrations without error and keep
	// the previously written state.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer store.Close()

	value, ok, err := store.Global().Get(context.Background(), storage.KeyAdmin)
	if err != nil || !ok {
		t.Fatalf("read admin after reopen: ok=%v err=%v", ok, err)
	}
	if value != "alice" {
		t.Fatalf("expected alice, got %q", value)
	}
}

func TestGlobalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openClockedStore(t, 100)
	global := store.Global()

	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected no admin before first write, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := global.Get(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected absent admin, got ok=%v err=%v", ok, err)
	}

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := global.Set(ctx, storage.KeyAdmin, "bob"); err != nil {
		t.Fatalf("overwrite admin: %v", err)
	}

	value, ok, err := global.Get(ctx, storage.KeyAdmin)
	if err != nil || !ok {
		t.Fatalf("read admin: ok=%v err=%v", ok, err)
	}
	if value != "bob" {
		t.Fatalf("expected bob, got %q", value)
	}
}

func TestGlobalTierExpiresTogether(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 100)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := global.Set(ctx, storage.KeyGreetingCounter, "3"); err != nil {
		t.Fatalf("set counter: %v", err)
	}

	clock.now += 100
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || !ok {
		t.Fatalf("expected admin live at the lifetime boundary, got ok=%v err=%v", ok, err)
	}

	clock.now++
	for _, key := range []storage.GlobalKey{storage.KeyAdmin, storage.KeyGreetingCounter} {
		if ok, err := global.Has(ctx, key); err != nil || ok {
			t.Fatalf("expected %s expired, got ok=%v err=%v", key, ok, err)
		}
	}
}

func TestGlobalSetAfterExpiryClearsStaleEntries(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 10)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := global.Set(ctx, storage.KeyGreetingCounter, "7"); err != nil {
		t.Fatalf("set counter: %v", err)
	}

	clock.now += 11
	if err := global.Set(ctx, storage.KeyAdmin, "bob"); err != nil {
		t.Fatalf("set after expiry: %v", err)
	}

	// The write after expiry starts a fresh tier: the old counter entry must
	// not come back to life alongside the new admin.
	value, ok, err := global.Get(ctx, storage.KeyAdmin)
	if err != nil || !ok {
		t.Fatalf("read new admin: ok=%v err=%v", ok, err)
	}
	if value != "bob" {
		t.Fatalf("expected bob, got %q", value)
	}
	if ok, err := global.Has(ctx, storage.KeyGreetingCounter); err != nil || ok {
		t.Fatalf("expected stale counter gone, got ok=%v err=%v", ok, err)
	}
}

func TestGlobalRenewClampsLifetime(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 10)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	if err := global.Renew(ctx, 100, 100); err != nil {
		t.Fatalf("renew: %v", err)
	}

	clock.now += 100
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || !ok {
		t.Fatalf("expected renewed tier live, got ok=%v err=%v", ok, err)
	}
	clock.now++
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected renewed tier expired past ceiling, got ok=%v err=%v", ok, err)
	}
}

func TestGlobalRenewOfExpiredTierIsNoop(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 10)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	clock.now += 11
	if err := global.Renew(ctx, 100, 100); err != nil {
		t.Fatalf("renew of expired tier should not fail: %v", err)
	}
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected tier to stay expired after renew, got ok=%v err=%v", ok, err)
	}
}

func TestScopedEntriesExpireIndependently(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 100)
	scoped := store.Scoped()

	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Ana"); err != nil {
		t.Fatalf("set alice: %v", err)
	}
	clock.now += 50
	if err := scoped.Set(ctx, storage.KindLastGreeting, "bob", "Bo"); err != nil {
		t.Fatalf("set bob: %v", err)
	}

	clock.now += 51
	if _, ok, err := scoped.Get(ctx, storage.KindLastGreeting, "alice"); err != nil || ok {
		t.Fatalf("expected alice expired, got ok=%v err=%v", ok, err)
	}
	value, ok, err := scoped.Get(ctx, storage.KindLastGreeting, "bob")
	if err != nil || !ok {
		t.Fatalf("expected bob live, got ok=%v err=%v", ok, err)
	}
	if value != "Bo" {
		t.Fatalf("expected Bo, got %q", value)
	}
}

func TestScopedSetKeepsLifetimeWhileLive(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 100)
	scoped := store.Scoped()

	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Ana"); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.now += 50
	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Anabel"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	// The overwrite must not restart the entry's lifetime.
	clock.now += 51
	if _, ok, err := scoped.Get(ctx, storage.KindLastGreeting, "alice"); err != nil || ok {
		t.Fatalf("expected entry expired on the original schedule, got ok=%v err=%v", ok, err)
	}
}

func TestScopedRenewTargetsSingleEntry(t *testing.T) {
	ctx := context.Background()
	store, clock := openClockedStore(t, 50)
	scoped := store.Scoped()

	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Ana"); err != nil {
		t.Fatalf("set greeting: %v", err)
	}
	if err := scoped.Set(ctx, storage.KindIdentityCounter, "alice", "1"); err != nil {
		t.Fatalf("set counter: %v", err)
	}

	if err := scoped.Renew(ctx, storage.KindLastGreeting, "alice", 100, 100); err != nil {
		t.Fatalf("renew: %v", err)
	}

	clock.now += 51
	if _, ok, err := scoped.Get(ctx, storage.KindIdentityCounter, "alice"); err != nil || ok {
		t.Fatalf("expected unrenewed counter expired, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := scoped.Get(ctx, storage.KindLastGreeting, "alice"); err != nil || !ok {
		t.Fatalf("expected renewed greeting live, got ok=%v err=%v", ok, err)
	}
}

func TestScopedRenewOfMissingEntryIsNoop(t *testing.T) {
	ctx := context.Background()
	store, _ := openClockedStore(t, 50)

	if err := store.Scoped().Renew(ctx, storage.KindLastGreeting, "ghost", 100, 100); err != nil {
		t.Fatalf("renew of missing entry should not fail: %v", err)
	}
}
