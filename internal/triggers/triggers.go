// Package triggers is the in-process global listener channel: named triggers
// carrying an optional string payload, dispatched synchronously.
package triggers

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Handler handles one trigger payload
type Handler func(payload string)

type entry struct {
	id      uint64
	handler Handler
}

// Manager manages trigger subscriptions and dispatching
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]entry
	nextID   atomic.Uint64
	logger   *slog.Logger
}

// NewManager creates an empty trigger registry
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		handlers: make(map[string][]entry),
		logger:   logger,
	}
}

// On registers a handler for a trigger name. The returned func removes it.
func (m *Manager) On(name string, handler Handler) (off func()) {
	id := m.nextID.Add(1)

	m.mu.Lock()
	m.handlers[name] = append(m.handlers[name], entry{id: id, handler: handler})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.handlers[name]
		for i, e := range list {
			if e.id == id {
				next := make([]entry, 0, len(list)-1)
				next = append(next, list[:i]...)
				m.handlers[name] = append(next, list[i+1:]...)
				break
			}
		}
		if len(m.handlers[name]) == 0 {
			delete(m.handlers, name)
		}
	}
}

// Trigger dispatches payload to every handler registered for name
func (m *Manager) Trigger(name, payload string) {
	m.mu.RLock()
	handlers := m.handlers[name]
	m.mu.RUnlock()

	m.logger.Debug("[triggers] firing", "name", name, "handlers", len(handlers))
	for _, e := range handlers {
		m.call(name, e.handler, payload)
	}
}

func (m *Manager) call(name string, h Handler, payload string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("[triggers] handler panic", "name", name, "error", r)
		}
	}()
	h(payload)
}
