package platform

import "github.com/neboloop/deeplink/internal/deeplink"

// Select returns the live-notification adapter: macOS and iOS hand URLs to a
// running app through the "opened" application event, including at launch.
func Select(d Deps) deeplink.Adapter {
	return NewLive(d.Notifier, d.logger())
}
