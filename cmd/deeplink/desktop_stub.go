//go:build !desktop

package cli

import (
	"context"
	"fmt"
)

// RunDesktop falls back to headless mode when built without desktop support.
// Build with -tags desktop for the native shell.
func RunDesktop(ctx context.Context, args []string) error {
	fmt.Println("Desktop mode not available in this build. Running headless...")
	return RunServe(ctx, args)
}
