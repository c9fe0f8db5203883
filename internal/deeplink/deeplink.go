// Package deeplink owns the last-link cache and the new-link broadcaster and
// ties them to whichever platform adapter delivers activation URLs.
package deeplink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neboloop/deeplink/internal/emit"
	"github.com/neboloop/deeplink/internal/events"
	"github.com/neboloop/deeplink/internal/triggers"
)

// EventNewURL is the default name of the new-link broadcast channel.
const EventNewURL = "deep-link://new-url"

// Option configures a DeepLink
type Option func(*options)

type options struct {
	logger          *slog.Logger
	emitter         emit.Emitter
	eventName       string
	bufferSize      int
	dispatchTimeout time.Duration
	handlerTimeout  time.Duration
	syncDelivery    bool
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEmitter forwards the URL list of every ingested event to the front end
// on the event channel. The forwarder is subscribed before any adapter is
// attached, so a startup link reaches it too.
func WithEmitter(e emit.Emitter) Option {
	return func(o *options) {
		o.emitter = e
	}
}

// WithEventName overrides EventNewURL
func WithEventName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.eventName = name
		}
	}
}

// WithBroadcast tunes subscriber delivery (queue size, dispatch bound,
// per-handler deadline). Zero values keep the defaults.
func WithBroadcast(bufferSize int, dispatchTimeout, handlerTimeout time.Duration) Option {
	return func(o *options) {
		o.bufferSize = bufferSize
		o.dispatchTimeout = dispatchTimeout
		o.handlerTimeout = handlerTimeout
	}
}

// WithSyncDelivery runs subscriber handlers inline in Ingest
func WithSyncDelivery() Option {
	return func(o *options) {
		o.syncDelivery = true
	}
}

// Handler receives every event ingested after it subscribed.
type Handler func(ctx context.Context, ev Event) error

// DeepLink is the process-wide deep-link state. Build one with New and hand it
// to whatever owns application state; nothing here is global.
type DeepLink struct {
	cache    *Cache
	bus      *events.Broadcaster[Event]
	triggers *triggers.Manager
	logger   *slog.Logger
	name     string

	mu      sync.Mutex
	adapter Adapter
}

// New creates an empty DeepLink.
func New(opts ...Option) *DeepLink {
	o := options{eventName: EventNewURL}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	busOpts := []events.Option{
		events.WithLogger(o.logger),
		events.WithBufferSize(o.bufferSize),
		events.WithDispatchTimeout(o.dispatchTimeout),
		events.WithHandlerTimeout(o.handlerTimeout),
	}
	if o.syncDelivery {
		busOpts = append(busOpts, events.WithSyncDelivery())
	}

	d := &DeepLink{
		cache:    NewCache(),
		bus:      events.New[Event](busOpts...),
		triggers: triggers.NewManager(o.logger),
		logger:   o.logger,
		name:     o.eventName,
	}

	// Both broadcast paths are kept: the legacy global trigger carries the
	// JSON null-padded list, the emitter carries the raw URL list.
	d.Subscribe(func(_ context.Context, ev Event) error {
		d.triggers.Trigger(d.name, ev.LegacyPayload())
		return nil
	})
	if o.emitter != nil {
		d.Subscribe(d.forwarder(o.emitter))
	}
	return d
}

func (d *DeepLink) forwarder(e emit.Emitter) Handler {
	return func(ctx context.Context, ev Event) error {
		if err := e.Emit(d.name, ev.URLs); err != nil {
			return fmt.Errorf("emit %s: %w", d.name, err)
		}
		return nil
	}
}

// Setup attaches the platform adapter. An adapter that can also answer
// "last link" queries becomes the cache fallback before it is attached, and
// stops being one if the attach fails.
func (d *DeepLink) Setup(ctx context.Context, adapter Adapter) error {
	d.mu.Lock()
	if d.adapter != nil {
		d.mu.Unlock()
		return ErrAlreadySetup
	}
	d.adapter = adapter
	d.mu.Unlock()

	if f, ok := adapter.(Fetcher); ok {
		d.cache.SetFetcher(f)
	}

	d.logger.Info("[deeplink] attaching adapter", "capability", adapter.Capability().String())
	if err := adapter.Attach(ctx, d); err != nil {
		// A failed attach leaves nothing behind, so Setup can be retried.
		if _, ok := adapter.(Fetcher); ok {
			d.cache.SetFetcher(nil)
		}
		d.mu.Lock()
		d.adapter = nil
		d.mu.Unlock()
		return fmt.Errorf("attach %s adapter: %w", adapter.Capability(), err)
	}
	return nil
}

// Ingest stores ev as the last link, then publishes it. Anyone woken by the
// publish who calls GetLastLink sees ev or something newer.
func (d *DeepLink) Ingest(ctx context.Context, ev Event) {
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now()
	}
	d.cache.Replace(ev)
	d.logger.Debug("[deeplink] link ingested", "source", ev.Source, "count", len(ev.URLs))
	d.bus.Publish(ctx, ev.Clone())
}

// GetLastLink returns the URLs of the most recent event, or false if none
// has been seen.
func (d *DeepLink) GetLastLink(ctx context.Context) ([]string, bool) {
	ev, ok := d.cache.Get(ctx)
	if !ok {
		return nil, false
	}
	return ev.URLs, true
}

// LastEvent is GetLastLink with the event metadata.
func (d *DeepLink) LastEvent(ctx context.Context) (Event, bool) {
	return d.cache.Get(ctx)
}

// Subscribe registers fn for every event ingested from now on.
func (d *DeepLink) Subscribe(fn Handler) events.Subscription {
	return d.bus.Subscribe(events.Handler[Event](fn))
}

// Unsubscribe stops deliveries to the subscription with the given ID.
func (d *DeepLink) Unsubscribe(id string) {
	d.bus.Unsubscribe(id)
}

// Triggers exposes the legacy global trigger channel.
func (d *DeepLink) Triggers() *triggers.Manager {
	return d.triggers
}

// EventName is the channel name events are emitted and triggered on.
func (d *DeepLink) EventName() string {
	return d.name
}

// Close stops subscriber delivery and detaches the adapter when it supports it.
func (d *DeepLink) Close() {
	d.mu.Lock()
	adapter := d.adapter
	d.mu.Unlock()

	if c, ok := adapter.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			d.logger.Warn("[deeplink] adapter close failed", "error", err)
		}
	}
	d.bus.Close()
}
