//go:build !darwin && !android

package platform

import "github.com/neboloop/deeplink/internal/deeplink"

// Select returns the startup-snapshot adapter: Linux and Windows launch a new
// process with the URL on its command line.
func Select(d Deps) deeplink.Adapter {
	return NewStartup(d.Startup, d.logger())
}
