// Package emit carries named events out to the front end (web view, browser
// clients, native shell).
package emit

import "errors"

// Emitter pushes a named event with its payload to front-end listeners.
type Emitter interface {
	Emit(name string, data any) error
}

// Func adapts a function to the Emitter interface.
type Func func(name string, data any) error

// Emit satisfies the Emitter interface.
func (f Func) Emit(name string, data any) error {
	if f == nil {
		return nil
	}
	return f(name, data)
}

// Nop emitter discards events.
type Nop struct{}

var _ Emitter = Nop{}

func (Nop) Emit(string, any) error { return nil }

// Fanout forwards events to multiple downstream emitters.
type Fanout struct {
	targets []Emitter
}

// NewFanout assembles an emitter that multicasts to the provided targets.
func NewFanout(targets ...Emitter) *Fanout {
	filtered := make([]Emitter, 0, len(targets))
	for _, target := range targets {
		if target != nil {
			filtered = append(filtered, target)
		}
	}
	return &Fanout{targets: filtered}
}

var _ Emitter = (*Fanout)(nil)

// Emit delivers the event to each target and joins the errors observed.
func (f *Fanout) Emit(name string, data any) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.Emit(name, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
