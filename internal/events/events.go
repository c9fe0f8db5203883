package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Handler is the function called for each published value.
type Handler[T any] func(context.Context, T) error

// Option configures a Broadcaster
type Option func(*config)

type config struct {
	bufferSize      int
	dispatchTimeout time.Duration
	handlerTimeout  time.Duration
	syncDelivery    bool
	logger          *slog.Logger
}

// WithBufferSize sets the per-subscriber queue size
func WithBufferSize(size int) Option {
	return func(cfg *config) {
		if size > 0 {
			cfg.bufferSize = size
		}
	}
}

// WithDispatchTimeout bounds how long Publish waits on a full subscriber queue
// before dropping the value for that subscriber.
func WithDispatchTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.dispatchTimeout = d
		}
	}
}

// WithHandlerTimeout sets the deadline of the context handed to each handler call
func WithHandlerTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.handlerTimeout = d
		}
	}
}

// WithLogger sets a structured logger for delivery errors
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithSyncDelivery delivers on behalf of the publishing goroutine. Publish
// then returns once every handler has run or exceeded the handler timeout.
func WithSyncDelivery() Option {
	return func(cfg *config) {
		cfg.syncDelivery = true
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	ID          string
	CreatedAt   int64
	Unsubscribe func()
}

type subscriber[T any] struct {
	id      string
	handler Handler[T]
	queue   chan T
	done    chan struct{}
	once    sync.Once

	// mu orders stop against the start of a handler call.
	mu     sync.Mutex
	active bool
}

func (s *subscriber[T]) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		close(s.done)
	})
}

// begin reports whether a handler call may start. Once stop has returned it
// never does.
func (s *subscriber[T]) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Broadcaster fans each published value out to every current subscriber.
// Subscribers only see values published after they subscribed.
type Broadcaster[T any] struct {
	mu   sync.RWMutex
	subs map[string]*subscriber[T]

	config config
	closed atomic.Bool
	wg     sync.WaitGroup
}

// New creates a Broadcaster with optional configuration.
func New[T any](opts ...Option) *Broadcaster[T] {
	cfg := config{
		bufferSize:      64,
		dispatchTimeout: 5 * time.Second,
		handlerTimeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	return &Broadcaster[T]{
		subs:   make(map[string]*subscriber[T]),
		config: cfg,
	}
}

// Subscribe registers handler for every value published from now on.
func (b *Broadcaster[T]) Subscribe(handler Handler[T]) Subscription {
	sub := &subscriber[T]{
		id:      uuid.NewString(),
		handler: handler,
		queue:   make(chan T, b.config.bufferSize),
		done:    make(chan struct{}),
	}
	sub.active = true

	b.mu.Lock()
	if b.closed.Load() {
		b.mu.Unlock()
		sub.stop()
		return Subscription{ID: sub.id, CreatedAt: time.Now().UnixNano(), Unsubscribe: func() {}}
	}
	b.subs[sub.id] = sub
	if !b.config.syncDelivery {
		b.wg.Add(1)
		go b.run(sub)
	}
	b.mu.Unlock()

	return Subscription{
		ID:        sub.id,
		CreatedAt: time.Now().UnixNano(),
		Unsubscribe: func() {
			b.Unsubscribe(sub.id)
		},
	}
}

// Unsubscribe removes a subscription. Once it returns no value, queued or
// not, passes the subscriber's start check; a delivery that passed the check
// before that still runs its handler to completion.
func (b *Broadcaster[T]) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	delete(b.subs, id)
	b.mu.Unlock()
	if ok {
		sub.stop()
	}
}

// Len returns the number of current subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish hands value to every subscriber registered at call time.
func (b *Broadcaster[T]) Publish(ctx context.Context, value T) {
	if b.closed.Load() {
		return
	}

	b.mu.RLock()
	subs := make([]*subscriber[T], 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if b.config.syncDelivery {
			b.deliver(sub, value)
			continue
		}
		b.enqueue(ctx, sub, value)
	}
}

func (b *Broadcaster[T]) enqueue(ctx context.Context, sub *subscriber[T], value T) {
	select {
	case sub.queue <- value:
		return
	case <-sub.done:
		return
	default:
	}

	timer := time.NewTimer(b.config.dispatchTimeout)
	defer timer.Stop()

	select {
	case sub.queue <- value:
	case <-sub.done:
	case <-ctx.Done():
		b.config.logger.Warn("[events] dropped value, publish cancelled",
			"subscription_id", sub.id,
			"error", ctx.Err())
	case <-timer.C:
		b.config.logger.Warn("[events] dropped value for slow subscriber",
			"subscription_id", sub.id,
			"timeout", b.config.dispatchTimeout)
	}
}

// run drains one subscriber's queue so its values arrive in publish order
func (b *Broadcaster[T]) run(sub *subscriber[T]) {
	defer b.wg.Done()
	for {
		select {
		case <-sub.done:
			return
		case value := <-sub.queue:
			b.deliver(sub, value)
		}
	}
}

func (b *Broadcaster[T]) deliver(sub *subscriber[T], value T) {
	if !sub.begin() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.config.handlerTimeout)
	if !b.config.syncDelivery {
		defer cancel()
		b.report(sub, b.call(ctx, sub, value))
		return
	}

	// Inline delivery still must not hold the publisher past the handler
	// timeout; a handler that ignores its context is left running.
	result := make(chan error, 1)
	go func() {
		defer cancel()
		result <- b.call(ctx, sub, value)
	}()

	timer := time.NewTimer(b.config.handlerTimeout)
	defer timer.Stop()
	select {
	case err := <-result:
		b.report(sub, err)
	case <-timer.C:
		b.config.logger.Warn("[events] handler exceeded timeout, publish moved on",
			"subscription_id", sub.id,
			"timeout", b.config.handlerTimeout)
	}
}

func (b *Broadcaster[T]) report(sub *subscriber[T], err error) {
	if err == nil {
		return
	}
	b.config.logger.Warn("[events] handler error",
		"subscription_id", sub.id,
		"error", err,
		"delivery_mode", map[bool]string{true: "sync", false: "async"}[b.config.syncDelivery])
}

func (b *Broadcaster[T]) call(ctx context.Context, sub *subscriber[T], value T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ctx, value)
}

// Close stops every subscriber and waits briefly for in-flight handlers.
// Safe to call multiple times.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if !b.closed.CompareAndSwap(false, true) {
		b.mu.Unlock()
		return
	}
	subs := b.subs
	b.subs = make(map[string]*subscriber[T])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		b.config.logger.Warn("[events] timed out waiting for handlers to finish")
	}
}
