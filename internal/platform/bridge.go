package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neboloop/deeplink/internal/deeplink"
)

// Foreign plugin commands.
const (
	CommandSetEventHandler = "setEventHandler"
	CommandGetLastLink     = "getLastLink"
)

// DefaultPlugin is the foreign plugin identifier used when none is configured.
const DefaultPlugin = "app.nebo.deep_link"

// linkPayload is what the foreign side sends, both on the event channel and
// as the getLastLink answer. Either field may be absent.
type linkPayload struct {
	URL  *string           `json:"url"`
	URLs []json.RawMessage `json:"urls"`
}

// Bridge listens on a persistent foreign-runtime callback and answers
// last-link queries through a separate synchronous call.
type Bridge struct {
	runtime Runtime
	plugin  string
	logger  *slog.Logger

	wg sync.WaitGroup
}

var (
	_ deeplink.Adapter = (*Bridge)(nil)
	_ deeplink.Fetcher = (*Bridge)(nil)
)

// NewBridge creates the foreign-callback-bridge adapter
func NewBridge(runtime Runtime, plugin string, logger *slog.Logger) *Bridge {
	if plugin == "" {
		plugin = DefaultPlugin
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{runtime: runtime, plugin: plugin, logger: logger}
}

func (b *Bridge) Capability() deeplink.Capability { return deeplink.ForeignCallbackBridge }

// Attach registers the event handler with the foreign runtime and starts the
// listening goroutine. A registration failure is returned wrapped in
// deeplink.ErrRegistration.
func (b *Bridge) Attach(ctx context.Context, in deeplink.Ingester) error {
	if b.runtime == nil {
		return fmt.Errorf("%w: no foreign runtime", deeplink.ErrRegistration)
	}
	inbound, err := b.runtime.Listen(ctx, b.plugin, CommandSetEventHandler)
	if err != nil {
		return fmt.Errorf("%w: %s.%s: %v", deeplink.ErrRegistration, b.plugin, CommandSetEventHandler, err)
	}

	hctx := context.WithoutCancel(ctx)
	b.wg.Add(1)
	go b.listen(hctx, inbound, in)
	return nil
}

func (b *Bridge) listen(ctx context.Context, inbound <-chan json.RawMessage, in deeplink.Ingester) {
	defer b.wg.Done()
	for payload := range inbound {
		ev, ok := DecodePayload(deeplink.SourceBridge, payload)
		if !ok {
			b.logger.Warn("[platform] dropped foreign payload without a usable url",
				"plugin", b.plugin,
				"size", len(payload))
			continue
		}
		in.Ingest(ctx, ev)
	}
	b.logger.Debug("[platform] foreign event channel closed", "plugin", b.plugin)
}

// FetchLastLink asks the foreign side for the link it saw before the bridge
// was wired. Any failure reports none.
func (b *Bridge) FetchLastLink(ctx context.Context) (deeplink.Event, bool) {
	if b.runtime == nil {
		return deeplink.Event{}, false
	}
	raw, err := b.runtime.Call(ctx, b.plugin, CommandGetLastLink, nil)
	if err != nil {
		b.logger.Warn("[platform] last link query failed", "plugin", b.plugin, "error", err)
		return deeplink.Event{}, false
	}
	return DecodePayload(deeplink.SourceForeignQuery, raw)
}

// Wait blocks until the listening goroutine exits (its channel closed).
func (b *Bridge) Wait() {
	b.wg.Wait()
}

// DecodePayload turns a foreign payload into an event. It reports false for
// anything without at least one well-formed URL: invalid JSON, a missing url
// field, or only malformed entries.
func DecodePayload(source deeplink.Source, raw json.RawMessage) (deeplink.Event, bool) {
	if len(raw) == 0 {
		return deeplink.Event{}, false
	}
	var p linkPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return deeplink.Event{}, false
	}

	var entries []string
	switch {
	case len(p.URLs) > 0:
		entries = make([]string, 0, len(p.URLs))
		for _, item := range p.URLs {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				s = ""
			}
			entries = append(entries, s)
		}
	case p.URL != nil:
		entries = []string{*p.URL}
	default:
		return deeplink.Event{}, false
	}

	ev := deeplink.NewEvent(source, entries)
	if ev.Empty() {
		return deeplink.Event{}, false
	}
	return ev, true
}
