package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neboloop/deeplink/internal/config"
	"github.com/neboloop/deeplink/internal/defaults"
)

// ConfigCmd inspects and initialises configuration.
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialise configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Defaults()
			if ServerConfig != nil {
				c = *ServerConfig
			}
			path := cfgFile
			if path == "" {
				if p, ok := defaults.UserConfig(); ok {
					path = p
				}
			}
			if path != "" {
				var err error
				if c, err = config.LoadFile(c, path); err != nil {
					return err
				}
			}
			out, err := yaml.Marshal(c)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default config to the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(EmbeddedConfig) == 0 {
				return errors.New("no embedded config in this build")
			}
			path, err := defaults.WriteUserConfig(EmbeddedConfig)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	return cmd
}
