package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neboloop/deeplink/internal/deeplink"
)

// Live registers one persistent handler for the host's "opened with URL(s)"
// signal; every occurrence becomes one event.
type Live struct {
	notifier OpenedNotifier
	logger   *slog.Logger

	mu  sync.Mutex
	off func()
}

var _ deeplink.Adapter = (*Live)(nil)

// NewLive creates the live-notification adapter
func NewLive(notifier OpenedNotifier, logger *slog.Logger) *Live {
	if logger == nil {
		logger = slog.Default()
	}
	return &Live{notifier: notifier, logger: logger}
}

func (l *Live) Capability() deeplink.Capability { return deeplink.LiveNotification }

// Attach registers the handler. The handler context is detached from ctx
// because the signal lives as long as the process.
func (l *Live) Attach(ctx context.Context, in deeplink.Ingester) error {
	if l.notifier == nil {
		return fmt.Errorf("%w: no opened-url notifier", deeplink.ErrRegistration)
	}
	hctx := context.WithoutCancel(ctx)
	off := l.notifier.OnURLsOpened(func(urls []string) {
		ev := deeplink.NewEvent(deeplink.SourceLive, urls)
		if len(ev.URLs) != len(urls) {
			l.logger.Warn("[platform] opened signal carried malformed urls",
				"count", len(urls),
				"valid", len(ev.URLs))
		}
		in.Ingest(hctx, ev)
	})

	l.mu.Lock()
	l.off = off
	l.mu.Unlock()
	return nil
}

// Close detaches the handler.
func (l *Live) Close() error {
	l.mu.Lock()
	off := l.off
	l.off = nil
	l.mu.Unlock()
	if off != nil {
		off()
	}
	return nil
}
