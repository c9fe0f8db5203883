package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neboloop/deeplink/internal/bridge"
	"github.com/neboloop/deeplink/internal/platform"
	"github.com/neboloop/deeplink/internal/server"
)

// BridgeCmd attaches to a foreign mobile runtime instead of reading the
// command line.
func BridgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Capture deep links through the mobile runtime plugin channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunBridge(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&bridgeURL, "url", "", "foreign runtime WebSocket URL (default: bridge.url from config)")
	return cmd
}

// RunBridge connects to the foreign runtime, registers the event handler and
// serves the headless surface until the connection or the process ends.
func RunBridge(parent context.Context) error {
	env, err := loadRuntime()
	if err != nil {
		return err
	}
	defer env.close()

	url := bridgeURL
	if url == "" {
		url = env.cfg.Bridge.URL
	}
	if url == "" {
		return errors.New("no foreign runtime URL: pass --url or set bridge.url")
	}

	ctx, cancel := signalContext(parent)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, env.cfg.Bridge.DialTimeout)
	client, err := bridge.Dial(dialCtx, url, bridge.WithLogger(env.logger))
	dialCancel()
	if err != nil {
		return err
	}
	defer client.Close()

	hub := server.NewHub(env.logger)
	dl := env.newDeepLink(hub)
	defer dl.Close()

	adapter := platform.NewBridge(client, env.cfg.Plugin.Identifier, env.logger)
	if err := dl.Setup(ctx, adapter); err != nil {
		return err
	}
	env.logger.Info("[cli] attached to foreign runtime", "url", url)

	go func() {
		select {
		case <-client.Done():
			env.logger.Warn("[cli] foreign runtime disconnected", "error", client.Err())
			cancel()
		case <-ctx.Done():
		}
	}()

	err = server.New(dl, hub, env.logger).ListenAndServe(ctx, env.cfg.Server.Addr)
	if cerr := client.Err(); err == nil && cerr != nil {
		return fmt.Errorf("foreign runtime: %w", cerr)
	}
	return err
}
