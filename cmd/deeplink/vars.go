package cli

import (
	"github.com/spf13/cobra"

	"github.com/neboloop/deeplink/internal/config"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile   string
	verbose   bool
	headless  bool
	bridgeURL string
	serverURL string
)

// ServerConfig holds the loaded configuration (set by main)
var ServerConfig *config.Config

// EmbeddedConfig is the default YAML compiled into the binary (set by main)
var EmbeddedConfig []byte

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "deeplink",
		Short: "Deep-link capture for desktop and mobile hosts",
		Long: `deeplink records the URL an application was activated with and tells
the front end about every new one.

Run 'deeplink' to start inside the native shell, or use --headless to serve the
HTTP and WebSocket surface only.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if headless {
				return RunServe(cmd.Context(), args)
			}
			return RunDesktop(cmd.Context(), args)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file overlaid on the embedded defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Root-only flags
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without native window (HTTP server only)")

	// Launchers pass the activation URL as a bare argument.
	rootCmd.Args = cobra.ArbitraryArgs

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(BridgeCmd())
	rootCmd.AddCommand(DesktopCmd())
	rootCmd.AddCommand(LastCmd())
	rootCmd.AddCommand(ConfigCmd())

	return rootCmd
}
