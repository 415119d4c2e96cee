package trigger

import (
	"context"
	"log/slog"
)

// Window delivers connectivity notifications.
type Window interface {
	// OnOnline registers fn to be called whenever connectivity returns.
	// The returned function removes the registration.
	OnOnline(fn func()) (unsubscribe func())
}

// OnlineReporter is optionally implemented by a Window that knows the
// current connectivity state.
type OnlineReporter interface {
	Online() bool
}

// Registration is a handle to a platform background-sync facility.
type Registration interface {
	// Register asks for tag to be synced once connectivity allows.
	// Registering a tag that is already pending is a no-op.
	Register(ctx context.Context, tag string) error
}

// Availability is a tagged optional: either a usable Registration or nothing.
type Availability struct {
	reg Registration
	ok  bool
}

// Available wraps a usable registration.
func Available(reg Registration) Availability {
	return Availability{reg: reg, ok: reg != nil}
}

// Unavailable reports that background sync is not supported.
func Unavailable() Availability {
	return Availability{}
}

// Get returns the registration and whether it is usable.
func (a Availability) Get() (Registration, bool) {
	return a.reg, a.ok
}

// SyncCapability looks up the background-sync facility.
type SyncCapability interface {
	Lookup(ctx context.Context) Availability
}

// Unsupported is a SyncCapability for environments without background sync.
type Unsupported struct{}

// Lookup always reports Unavailable.
func (Unsupported) Lookup(context.Context) Availability {
	return Unavailable()
}

// RequestSync registers tag with capability if one is available.
// Returns true if the registration was accepted. Absence of the capability
// and registration failures are logged at debug level and otherwise ignored.
func RequestSync(ctx context.Context, capability SyncCapability, tag string, logger *slog.Logger) bool {
	if logger == nil {
		logger = slog.Default()
	}
	if capability == nil {
		return false
	}
	reg, ok := capability.Lookup(ctx).Get()
	if !ok {
		logger.Debug("background sync unavailable", "tag", tag)
		return false
	}
	if err := reg.Register(ctx, tag); err != nil {
		logger.Debug("background sync registration failed", "tag", tag, "error", err)
		return false
	}
	return true
}
