package platform

import (
	"context"
	"log/slog"

	"github.com/neboloop/deeplink/internal/deeplink"
)

// Startup ingests the startup snapshot once, during Attach, so a link that
// arrived before any listener existed is both cached and published.
type Startup struct {
	source StartupSource
	logger *slog.Logger
}

var _ deeplink.Adapter = (*Startup)(nil)

// NewStartup creates the startup-snapshot adapter
func NewStartup(source StartupSource, logger *slog.Logger) *Startup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Startup{source: source, logger: logger}
}

func (s *Startup) Capability() deeplink.Capability { return deeplink.StartupSnapshot }

// Attach queries the source and ingests before returning.
func (s *Startup) Attach(ctx context.Context, in deeplink.Ingester) error {
	if s.source == nil {
		return nil
	}
	urls := s.source.StartupURLs()
	if len(urls) == 0 {
		s.logger.Debug("[platform] no startup link")
		return nil
	}
	ev := deeplink.NewEvent(deeplink.SourceStartup, urls)
	if ev.Empty() {
		s.logger.Warn("[platform] startup link had no well-formed url", "count", len(urls))
		return nil
	}
	s.logger.Info("[platform] startup link", "count", len(ev.URLs))
	in.Ingest(ctx, ev)
	return nil
}
