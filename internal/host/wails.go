//go:build desktop

package host

import (
	"github.com/wailsapp/wails/v3/pkg/application"
	"github.com/wailsapp/wails/v3/pkg/events"
)

// Wails adapts a Wails application: its "launched with URL" application event
// is the opened-URL notifier, and its event bus is the front-end emitter.
type Wails struct {
	app *application.App
}

// NewWails wraps app. Call before app.Run so the launch URL is not missed.
func NewWails(app *application.App) *Wails {
	return &Wails{app: app}
}

// OnURLsOpened registers fn for every URL activation. Wails reports one URL
// per application event.
func (w *Wails) OnURLsOpened(fn func(urls []string)) (off func()) {
	return w.app.Event.OnApplicationEvent(events.Common.ApplicationLaunchedWithUrl, func(event *application.ApplicationEvent) {
		url := event.Context().URL()
		if url == "" {
			fn(nil)
			return
		}
		fn([]string{url})
	})
}

// Emit sends a custom event to every window's front end.
func (w *Wails) Emit(name string, data any) error {
	w.app.Event.Emit(name, data)
	return nil
}
