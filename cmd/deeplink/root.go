package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neboloop/deeplink/internal/config"
	"github.com/neboloop/deeplink/internal/deeplink"
	"github.com/neboloop/deeplink/internal/defaults"
	"github.com/neboloop/deeplink/internal/emit"
	"github.com/neboloop/deeplink/internal/logging"
)

// runtimeEnv is what every long-running command builds before attaching an
// adapter.
type runtimeEnv struct {
	cfg     config.Config
	logger  *slog.Logger
	watcher *config.Watcher
}

// loadRuntime overlays --config (or the user config in the data directory) on
// the embedded defaults, sets up logging and starts watching the config file
// so log level changes apply live.
func loadRuntime() (*runtimeEnv, error) {
	c := config.Defaults()
	if ServerConfig != nil {
		c = *ServerConfig
	}
	base := c

	path := cfgFile
	if path == "" {
		if p, ok := defaults.UserConfig(); ok {
			path = p
		}
	}
	if path != "" {
		var err error
		c, err = config.LoadFile(base, path)
		if err != nil {
			return nil, err
		}
	}

	lvl := c.Log.Level
	if verbose {
		lvl = "debug"
	}
	logger, err := logging.Setup(os.Stderr, c.Log.Format, lvl)
	if err != nil {
		return nil, err
	}
	logger = logger.With("plugin", c.Plugin.Name)

	env := &runtimeEnv{cfg: c, logger: logger}
	if path != "" {
		w, err := config.Watch(path, base, func(next config.Config) {
			if verbose {
				return
			}
			if err := logging.SetLevel(next.Log.Level); err != nil {
				logger.Warn("[cli] ignoring log level", "error", err)
			}
		}, logger)
		if err != nil {
			logger.Warn("[cli] config watcher not started", "error", err)
		} else {
			env.watcher = w
		}
	}
	return env, nil
}

func (e *runtimeEnv) close() {
	if e.watcher != nil {
		e.watcher.Close()
	}
}

// newDeepLink builds the deep-link state from config, forwarding new links to
// the given front-end emitters.
func (e *runtimeEnv) newDeepLink(emitters ...emit.Emitter) *deeplink.DeepLink {
	opts := []deeplink.Option{
		deeplink.WithLogger(e.logger),
		deeplink.WithEventName(e.cfg.Plugin.EventName),
		deeplink.WithBroadcast(e.cfg.Broadcast.BufferSize, e.cfg.Broadcast.DispatchTimeout, e.cfg.Broadcast.HandlerTimeout),
	}
	switch len(emitters) {
	case 0:
	case 1:
		opts = append(opts, deeplink.WithEmitter(emitters[0]))
	default:
		opts = append(opts, deeplink.WithEmitter(emit.NewFanout(emitters...)))
	}
	if e.cfg.IsSyncNotify() {
		opts = append(opts, deeplink.WithSyncDelivery())
	}
	return deeplink.New(opts...)
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nReceived signal: %v - Shutting down...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
