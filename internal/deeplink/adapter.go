package deeplink

import (
	"context"
	"errors"
)

// Capability names the delivery mechanism an Adapter covers.
type Capability int

const (
	StartupSnapshot Capability = iota
	LiveNotification
	ForeignCallbackBridge
)

func (c Capability) String() string {
	switch c {
	case StartupSnapshot:
		return "startup_snapshot"
	case LiveNotification:
		return "live_notification"
	case ForeignCallbackBridge:
		return "foreign_callback_bridge"
	default:
		return "unknown"
	}
}

// Ingester accepts normalized events from an adapter.
// It may be called from any goroutine.
type Ingester interface {
	Ingest(ctx context.Context, ev Event)
}

// Adapter turns one platform delivery mechanism into Events. Exactly one
// adapter is attached per process.
type Adapter interface {
	Capability() Capability
	Attach(ctx context.Context, in Ingester) error
}

var (
	// ErrRegistration is returned when the platform refuses the listener an
	// adapter needs. It is fatal to setup.
	ErrRegistration = errors.New("deeplink: listener registration failed")

	// ErrAlreadySetup is returned by a second Setup call.
	ErrAlreadySetup = errors.New("deeplink: adapter already attached")
)
