//go:build !darwin && !android

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neboloop/deeplink/internal/deeplink"
)

func TestSelectUsesStartupSnapshot(t *testing.T) {
	a := Select(Deps{Startup: staticStartup{"myapp://x"}})
	assert.Equal(t, deeplink.StartupSnapshot, a.Capability())
	assert.IsType(t, &Startup{}, a)
}
