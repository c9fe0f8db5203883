package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/neboloop/deeplink/internal/host"
	"github.com/neboloop/deeplink/internal/platform"
	"github.com/neboloop/deeplink/internal/server"
)

// ServeCmd runs headless: the activation URLs come from the command line and
// front ends reach the state over HTTP.
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [url...]",
		Short: "Serve the last-link query and event stream without a native window",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunServe(cmd.Context(), args)
		},
	}
}

// DesktopCmd runs inside the native shell.
func DesktopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "desktop [url...]",
		Short: "Run inside the native window",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunDesktop(cmd.Context(), args)
		},
	}
}

// RunServe starts the headless surface. There is no native notifier here, so
// the startup snapshot is the only delivery path whatever the build target.
func RunServe(parent context.Context, args []string) error {
	env, err := loadRuntime()
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	hub := server.NewHub(env.logger)
	dl := env.newDeepLink(hub)
	defer dl.Close()

	if err := dl.Setup(ctx, platform.NewStartup(host.NewArgs(args), env.logger)); err != nil {
		return err
	}

	return server.New(dl, hub, env.logger).ListenAndServe(ctx, env.cfg.Server.Addr)
}
