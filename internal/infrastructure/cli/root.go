package cli

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/internal/app"
	"github.com/doeshing/agentguard/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// ExitError is returned by commands that need a specific exit status.
type ExitError = commands.ExitError

// NewRootCmd wires the cobra root command. The container is built lazily
// on first use so --config and --rules are honored.
func NewRootCmd(opts Options) *cobra.Command {
	var (
		configPath string
		rulesPath  string
		debug      bool

		once      sync.Once
		container *app.Container
		buildErr  error
	)

	load := func(ctx context.Context) (*app.Container, error) {
		once.Do(func() {
			container, buildErr = app.BuildContainer(ctx, app.Options{
				ConfigPath: configPath,
				RulesPath:  rulesPath,
				Verbose:    opts.Verbose || debug,
			})
		})
		return container, buildErr
	}

	root := &cobra.Command{
		Use:   "agentguard",
		Short: "agentguard - policy engine for agent tool calls",
		Long: "agentguard decides whether a shell command or file operation requested by a coding " +
			"agent is allowed, needs confirmation, or is blocked.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if container != nil {
				_ = container.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.agentguard/config.yaml or $AGENTGUARD_CONFIG)")
	root.PersistentFlags().StringVar(&rulesPath, "rules", "", "Rule document (overrides policy.rules_file)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		commands.NewHookCommand(load),
		commands.NewCheckCommand(load),
		commands.NewDecomposeCommand(load),
		commands.NewRulesCommand(load),
		commands.NewHistoryCommand(load),
		commands.NewDoctorCommand(load),
		commands.NewServeCommand(load),
		commands.NewConfigCommand(load),
		commands.NewVersionCommand(),
	)
	return root
}
