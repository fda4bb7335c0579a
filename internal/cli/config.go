// Package cli — config.go implements the "dialer-setup config" command
// group, which manages the dialer application's config.json.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sipdialer/dialer-setup/internal/appconfig"
	"github.com/sipdialer/dialer-setup/internal/config"
	"github.com/sipdialer/dialer-setup/internal/model"
)

// NewConfigCommand creates the "config" command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the dialer's config.json",
	}

	cmd.PersistentFlags().String("app-config", "", "Path to the dialer's config.json")

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

// resolveAppConfigPath applies the default config.json location.
func resolveAppConfigPath(settings *config.Settings) string {
	if settings.AppConfig != "" {
		return settings.AppConfig
	}
	return appconfig.DefaultPath
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config.json for the dialer",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}
			path := resolveAppConfigPath(settings)

			if _, statErr := os.Stat(path); statErr == nil && !force {
				return model.NewCLIError(model.ExitConfigError,
					fmt.Sprintf("%s already exists, use --force to overwrite", path))
			}

			if err := appconfig.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), hintStyle.Render("Fill in your SIP account credentials before starting the dialer."))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.json")

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective dialer configuration",
		Long: `Print the dialer configuration with defaults applied.

The output is the merged result the dialer will actually see, not the raw
file contents: missing sections show their defaults and comments are gone.`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}

			cfg, err := appconfig.Load(resolveAppConfigPath(settings))
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(cfg, "", "    ")
			if err != nil {
				return model.WrapCLIError(model.ExitConfigError, "failed to encode config", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config.json location",

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(settingsFile, cmd.Flags())
			if err != nil {
				return err
			}

			path := resolveAppConfigPath(settings)
			if abs, absErr := filepath.Abs(path); absErr == nil {
				path = abs
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
