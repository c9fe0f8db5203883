// Package platform holds the ingestion adapters, one per delivery mechanism,
// and the build-time choice of which one a target platform uses.
package platform

import (
	"context"
	"encoding/json"
	"log/slog"
)

// StartupSource yields the URLs that were pending before the process
// finished starting. It is queried once.
type StartupSource interface {
	StartupURLs() []string
}

// OpenedNotifier delivers the recurring "opened with URL(s)" signal. The
// callback may run on any goroutine.
type OpenedNotifier interface {
	OnURLsOpened(fn func(urls []string)) (off func())
}

// Runtime is the foreign mobile-runtime plugin channel. Listen registers a
// persistent callback whose invocations arrive on the returned channel; Call
// is a synchronous request into the foreign side.
type Runtime interface {
	Listen(ctx context.Context, plugin, command string) (<-chan json.RawMessage, error)
	Call(ctx context.Context, plugin, command string, args any) (json.RawMessage, error)
}

// Deps carries the collaborators available to Select. Only the one the
// target platform needs has to be set.
type Deps struct {
	Startup  StartupSource
	Notifier OpenedNotifier
	Runtime  Runtime
	Plugin   string
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
