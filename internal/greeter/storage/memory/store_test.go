package memory

import (
	"context"
	"testing"

	"github.com/louisbranch/greeting.space/internal/greeter/storage"
)

// manualClock drives expiry deterministically in tests.
type manualClock struct {
	now uint64
}

func (c *manualClock) Now() uint64 { return c.now }

func newClockedStore(initialTTL uint32) (*Store, *manualClock) {
	clock := &manualClock{now: 1000}
	return New(WithNow(clock.Now), WithInitialTTL(initialTTL)), clock
}

func TestGlobalTierExpiresTogether(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(100)
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

func TestGlobalRenewExtendsSharedLifetime(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(10)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	if err := global.Renew(ctx, 100, 100); err != nil {
		t.Fatalf("renew: %v", err)
	}

	clock.now += 100
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || !ok {
		t.Fatalf("expected renewed entry live, got ok=%v err=%v", ok, err)
	}
	clock.now++
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected renewed entry expired past ceiling, got ok=%v err=%v", ok, err)
	}
}

func TestGlobalRenewCapsAtCeiling(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(200)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	// Remaining lifetime 200 exceeds the ceiling; renewal must shorten it.
	if err := global.Renew(ctx, 100, 100); err != nil {
		t.Fatalf("renew: %v", err)
	}

	clock.now += 101
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected lifetime capped at 100 units, got ok=%v err=%v", ok, err)
	}
}

func TestGlobalSetKeepsLifetimeWhileLive(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(100)
	global := store.Global()

	if err := global.Set(ctx, storage.KeyAdmin, "alice"); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	clock.now += 50
	if err := global.Set(ctx, storage.KeyGreetingCounter, "1"); err != nil {
		t.Fatalf("set counter: %v", err)
	}

	// The second write must not restart the shared lifetime.
	clock.now += 51
	if ok, err := global.Has(ctx, storage.KeyAdmin); err != nil || ok {
		t.Fatalf("expected tier expired on the original schedule, got ok=%v err=%v", ok, err)
	}
}

func TestScopedEntriesExpireIndependently(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(100)
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
		t.Fatalf("expected bob value Bo, got %q", value)
	}
}

func TestScopedRenewTargetsSingleEntry(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(50)
	scoped := store.Scoped()

	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Ana"); err != nil {
		t.Fatalf("set alice greeting: %v", err)
	}
	if err := scoped.Set(ctx, storage.KindIdentityCounter, "alice", "1"); err != nil {
		t.Fatalf("set alice counter: %v", err)
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
	store, _ := newClockedStore(50)

	if err := store.Scoped().Renew(ctx, storage.KindLastGreeting, "ghost", 100, 100); err != nil {
		t.Fatalf("renew of missing entry should not fail: %v", err)
	}
}

func TestSetAfterExpiryStartsFreshLifetime(t *testing.T) {
	ctx := context.Background()
	store, clock := newClockedStore(10)
	scoped := store.Scoped()

	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Ana"); err != nil {
		t.Fatalf("set: %v", err)
	}
	clock.now += 11
	if err := scoped.Set(ctx, storage.KindLastGreeting, "alice", "Anabel"); err != nil {
		t.Fatalf("set after expiry: %v", err)
	}

	clock.now += 10
	value, ok, err := scoped.Get(ctx, storage.KindLastGreeting, "alice")
	if err != nil || !ok {
		t.Fatalf("expected recreated entry live, got ok=%v err=%v", ok, err)
	}
	if value != "Anabel" {
		t.Fatalf("expected Anabel, got %q", value)
	}
}
