// Package host adapts the process and the native shell to the platform
// adapters' collaborator interfaces.
package host

import (
	"strings"

	"github.com/neboloop/deeplink/internal/deeplink"
)

// Args is the startup source for launchers that pass the activation URL on
// the command line.
type Args struct {
	args []string
}

// NewArgs builds an Args source over args (usually os.Args[1:]).
func NewArgs(args []string) *Args {
	return &Args{args: append([]string(nil), args...)}
}

// StartupURLs returns the URL-shaped arguments in command-line order. Flags
// and file paths are skipped.
func (a *Args) StartupURLs() []string {
	var urls []string
	for _, arg := range a.args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		scheme, _, found := strings.Cut(arg, ":")
		if !found || len(scheme) < 2 {
			// Single letters are Windows drive paths.
			continue
		}
		if !deeplink.ValidURL(arg) {
			continue
		}
		urls = append(urls, arg)
	}
	return urls
}
