package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/assets"
	"github.com/doeshing/agentguard/internal/app"
	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/config"
	"github.com/doeshing/agentguard/internal/infrastructure/policy"
	"github.com/doeshing/agentguard/internal/pkg/filesystem"
)

// NewRulesCommand creates the rules command with all subcommands
func NewRulesCommand(load ContainerFunc) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage the rule document",
	}

	rulesCmd.AddCommand(
		newRulesValidateCommand(load),
		newRulesShowCommand(load),
		newRulesInitCommand(load),
		newRulesPathCommand(load),
	)
	return rulesCmd
}

// newRulesValidateCommand compiles a rule document and reports per-family counts
func newRulesValidateCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Compile a rule document and report the first error",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			path := container.Config.Policy.RulesFile
			if len(args) == 1 {
				path = config.ExpandPath(args[0])
			}
			doc, err := compileFile(container, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: ok\n", doc.Source)
			for _, family := range domain.RuleFamilies {
				fmt.Fprintf(out, "  %-24s %d\n", family, len(doc.Rules(family)))
			}
			return nil
		},
	}
}

func compileFile(container *app.Container, path string) (*domain.RuleDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == container.Config.Policy.RulesFile {
			return policy.Parse(assets.DefaultRulesYAML, policy.EmbeddedSource, ruleOptions(container)...)
		}
		return nil, err
	}
	return policy.Parse(data, path, ruleOptions(container)...)
}

func ruleOptions(container *app.Container) []policy.Option {
	return []policy.Option{
		policy.WithMatchBudget(container.Config.GetMaxMatchInput()),
		policy.WithHomeDir(filesystem.UserHomeDir()),
	}
}

// newRulesShowCommand prints the rule document in effect
func newRulesShowCommand(load ContainerFunc) *cobra.Command {
	var family string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the rules currently in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if container.RulesErr != nil {
				return container.RulesErr
			}
			families := domain.RuleFamilies
			if family != "" {
				f, ok := domain.ParseRuleFamily(family)
				if !ok {
					return fmt.Errorf("unknown family %q", family)
				}
				families = []domain.RuleFamily{f}
			}
			displayRules(cmd.OutOrStdout(), container.Rules.Current(), families)
			return nil
		},
	}

	cmd.Flags().StringVar(&family, "family", "", "Only show one family (e.g. blockedCommandPatterns)")
	return cmd
}

func displayRules(out io.Writer, doc *domain.RuleDocument, families []domain.RuleFamily) {
	fmt.Fprintf(out, "# source: %s\n", doc.Source)
	for _, family := range families {
		rules := doc.Rules(family)
		fmt.Fprintf(out, "%s (%d)\n", family, len(rules))
		for _, rule := range rules {
			ref := rule.Ref()
			ask := ""
			if rule.Ask {
				ask = " ask"
			}
			fmt.Fprintf(out, "  [%d] line %-4d %-7s%s %q  %s\n", ref.Index, ref.Line, ref.Kind, ask, ref.Pattern, ref.Reason)
		}
	}
}

// newRulesInitCommand writes the built-in defaults to the rules file
func newRulesInitCommand(load ContainerFunc) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in default rules to the rules file",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			path := container.Config.Policy.RulesFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
				return err
			}
			if err := os.WriteFile(path, assets.DefaultRulesYAML, domain.SecureFilePermissions); err != nil {
				return fmt.Errorf("failed to write rules: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default rules to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing rules file")
	return cmd
}

// newRulesPathCommand prints where rules are loaded from
func newRulesPathCommand(load ContainerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the rules file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, container.Config.Policy.RulesFile)
			if container.RulesSource.UsesFallback() {
				fmt.Fprintln(out, "(file missing; embedded defaults in effect)")
			}
			return nil
		},
	}
}
