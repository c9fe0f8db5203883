//go:build desktop

package cli

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/neboloop/deeplink/internal/host"
	"github.com/neboloop/deeplink/internal/platform"
	"github.com/neboloop/deeplink/internal/server"
)

// RunDesktop runs inside a Wails application. The adapter is the one the build
// target uses: macOS receives URLs through the application's opened event,
// Linux and Windows through the command line.
func RunDesktop(parent context.Context, args []string) error {
	env, err := loadRuntime()
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signalContext(parent)
	defer cancel()

	wailsApp := application.New(application.Options{
		Name: "Deep Link",
		Mac: application.MacOptions{
			ApplicationShouldTerminateAfterLastWindowClosed: true,
		},
		Linux: application.LinuxOptions{
			ProgramName: "deeplink",
		},
		OnShutdown: func() {
			cancel()
		},
	})

	// Registered before Run so the launch URL is not missed.
	shell := host.NewWails(wailsApp)
	hub := server.NewHub(env.logger)
	dl := env.newDeepLink(shell, hub)
	defer dl.Close()

	adapter := platform.Select(platform.Deps{
		Startup:  host.NewArgs(args),
		Notifier: shell,
		Plugin:   env.cfg.Plugin.Identifier,
		Logger:   env.logger,
	})
	if err := dl.Setup(ctx, adapter); err != nil {
		return err
	}

	srv := server.New(dl, hub, env.logger)
	go func() {
		if err := srv.ListenAndServe(ctx, env.cfg.Server.Addr); err != nil {
			env.logger.Error("[cli] server stopped", "error", err)
			wailsApp.Quit()
		}
	}()

	wailsApp.Window.NewWithOptions(application.WebviewWindowOptions{
		Name:   "main",
		Title:  "Deep Link",
		Width:  640,
		Height: 420,
		URL:    fmt.Sprintf("http://%s/plugin/deep-link/last", env.cfg.Server.Addr),
	})

	go func() {
		<-ctx.Done()
		wailsApp.Quit()
	}()

	return wailsApp.Run()
}
