package platform

import "github.com/neboloop/deeplink/internal/deeplink"

// Select returns the foreign-callback bridge to the Android plugin.
func Select(d Deps) deeplink.Adapter {
	return NewBridge(d.Runtime, d.Plugin, d.logger())
}
