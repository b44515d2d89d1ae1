// Package engine implements the greeting ledger's command and query surface.
//
// The engine itself is stateless: every value it works with lives in the
// two-tier keyed store, and every mutating operation runs its full validation
// sequence before its first write.
package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/greeting.space/internal/greeter/domain"
	"github.com/louisbranch/greeting.space/internal/greeter/storage"
)

// GreetingAck is the fixed acknowledgement returned by a successful greeting.
const GreetingAck = "Hola"

// Lifetime renewal floor and ceiling, in store time units. Renewals happen on
// initialization and on every successful greeting; administrative operations
// do not renew.
const (
	renewMin uint32 = 100
	renewMax uint32 = 100
)

const tracerName = "github.com/louisbranch/greeting.space/internal/greeter/engine"

// Engine executes greeting ledger operations against a two-tier store.
type Engine struct {
	global storage.GlobalTier
	scoped storage.ScopedTier
	tracer trace.Tracer
}

// New creates an engine bound to the provided store.
func New(store storage.Store) *Engine {
	return &Engine{
		global: store.Global(),
		scoped: store.Scoped(),
		tracer: otel.Tracer(tracerName),
	}
}

// Initialize records the admin identity and seeds the global ledger values.
// Fails with ErrAlreadyInitialized, without writing, when an admin exists.
func (e *Engine) Initialize(ctx context.Context, admin domain.Identity) error {
	ctx, span := e.tracer.Start(ctx, "greeter.initialize")
	defer span.End()

	initialized, err := e.global.Has(ctx, storage.KeyAdmin)
	if err != nil {
		return err
	}
	if err := domain.Run(domain.RequireUninitialized(initialized)); err != nil {
		return err
	}

	if err := e.global.Set(ctx, storage.KeyAdmin, string(admin)); err != nil {
		return err
	}
	if err := e.global.Set(ctx, storage.KeyGreetingCounter, storage.FormatCounter(0)); err != nil {
		return err
	}
	if err := e.global.Renew(ctx, renewMin, renewMax); err != nil {
		return err
	}
	return e.global.Set(ctx, storage.KeyCharacterLimit, storage.FormatCounter(storage.DefaultCharacterLimit))
}

// Hello records a greeting for the caller and returns the acknowledgement.
// The shared counter, the caller's counter, and the caller's last greeting are
// always updated together; rejected names leave all three untouched.
func (e *Engine) Hello(ctx context.Context, caller domain.Identity, name string) (string, error) {
	ctx, span := e.tracer.Start(ctx, "greeter.hello")
	defer span.End()

	// The empty check runs before the limit lookup so a rejected call does
	// not even read configuration, mirroring the validation order callers see.
	if err := domain.Run(domain.NameNotEmpty(name)); err != nil {
		return "", err
	}
	limit, err := storage.CharacterLimit(ctx, e.global)
	if err != nil {
		return "", err
	}
	if err := domain.Run(domain.NameWithinLimit(name, limit)); err != nil {
		return "", err
	}

	counter, err := storage.GlobalCounter(ctx, e.global, storage.KeyGreetingCounter)
	if err != nil {
		return "", err
	}
	if err := e.global.Set(ctx, storage.KeyGreetingCounter, storage.FormatCounter(counter+1)); err != nil {
		return "", err
	}

	callerCount, err := storage.ScopedCounter(ctx, e.scoped, storage.KindIdentityCounter, caller)
	if err != nil {
		return "", err
	}
	if err := e.scoped.Set(ctx, storage.KindIdentityCounter, caller, storage.FormatCounter(callerCount+1)); err != nil {
		return "", err
	}

	if err := e.scoped.Set(ctx, storage.KindLastGreeting, caller, name); err != nil {
		return "", err
	}

	if err := e.scoped.Renew(ctx, storage.KindLastGreeting, caller, renewMin, renewMax); err != nil {
		return "", err
	}
	if err := e.global.Renew(ctx, renewMin, renewMax); err != nil {
		return "", err
	}

	return GreetingAck, nil
}

// Counter returns the shared greeting counter. Absence reads as zero so the
// query works before initialization.
func (e *Engine) Counter(ctx context.Context) (uint32, error) {
	return storage.GlobalCounter(ctx, e.global, storage.KeyGreetingCounter)
}

// LastGreeting returns the last name an identity greeted with, reporting
// absence for identities that never greeted.
func (e *Engine) LastGreeting(ctx context.Context, subject domain.Identity) (string, bool, error) {
	return e.scoped.Get(ctx, storage.KindLastGreeting, subject)
}

// IdentityCounter returns the per-identity greeting counter, zero if absent.
func (e *Engine) IdentityCounter(ctx context.Context, subject domain.Identity) (uint32, error) {
	return storage.ScopedCounter(ctx, e.scoped, storage.KindIdentityCounter, subject)
}

// ResetCounter sets the shared greeting counter back to zero. Admin only.
// Per-identity counters and last greetings are deliberately left alone.
func (e *Engine) ResetCounter(ctx context.Context, caller domain.Identity) error {
	ctx, span := e.tracer.Start(ctx, "greeter.reset_counter")
	defer span.End()

	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	return e.global.Set(ctx, storage.KeyGreetingCounter, storage.FormatCounter(0))
}

// TransferAdmin hands the admin role to a new identity. Admin only.
// No lifetime renewal happens here; administrative actions are infrequent.
func (e *Engine) TransferAdmin(ctx context.Context, caller, newAdmin domain.Identity) error {
	ctx, span := e.tracer.Start(ctx, "greeter.transfer_admin")
	defer span.End()

	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	return e.global.Set(ctx, storage.KeyAdmin, string(newAdmin))
}

// SetLimit overwrites the greeting name character limit. Admin only.
// Any unsigned value is accepted, including zero; the bound is the admin's
// responsibility.
func (e *Engine) SetLimit(ctx context.Context, caller domain.Identity, limit uint32) error {
	ctx, span := e.tracer.Start(ctx, "greeter.set_limit")
	defer span.End()

	if err := e.requireAdmin(ctx, caller); err != nil {
		return err
	}
	return e.global.Set(ctx, storage.KeyCharacterLimit, storage.FormatCounter(limit))
}

// requireAdmin runs the privileged-operation checks: an admin must be
// recorded, and the caller must be that admin.
func (e *Engine) requireAdmin(ctx context.Context, caller domain.Identity) error {
	admin, initialized, err := storage.AdminIdentity(ctx, e.global)
	if err != nil {
		return err
	}
	return domain.Run(
		domain.RequireInitialized(initialized),
		domain.Authorized(caller, admin),
	)
}
