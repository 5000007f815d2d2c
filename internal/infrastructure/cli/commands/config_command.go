package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	appconfig "github.com/doeshing/agentguard/internal/application/config"
)

// NewConfigCommand creates the config command with all subcommands
func NewConfigCommand(load ContainerFunc) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect agentguard configuration",
	}

	configCmd.AddCommand(
		newConfigShowCommand(load),
		newConfigValidateCommand(load),
		newConfigPathCommand(load),
	)
	return configCmd
}

// newConfigShowCommand prints the effective configuration
func newConfigShowCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(container.Config)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// newConfigValidateCommand validates the configuration file
func newConfigValidateCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if err := appconfig.Validate(container.Config); err != nil {
				return fmt.Errorf("%s: %w", container.ConfigLoader.Path(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgConfigurationValid)
			return nil
		},
	}
}

// newConfigPathCommand prints the configuration file location
func newConfigPathCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), container.ConfigLoader.Path())
			return nil
		},
	}
}
