package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/cli/helpers"
)

// NewCheckCommand creates the check command
func NewCheckCommand(load ContainerFunc) *cobra.Command {
	var (
		kind     string
		workDir  string
		asJSON   bool
		exitCode bool
	)

	cmd := &cobra.Command{
		Use:   "check <command or path>",
		Short: "Show the verdict for a command or path without recording it",
		Long:  "Evaluates the argument against the rule document. Use - to read it from stdin.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			actionKind, ok := domain.ParseActionKind(kind)
			if !ok {
				return fmt.Errorf("unknown --kind %q (want execute|write|delete|read)", kind)
			}
			text, err := subjectText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if workDir == "" {
				workDir, _ = os.Getwd()
			}

			verdict := container.Decisions.Decide(domain.ActionEvent{
				Kind:    actionKind,
				RawText: text,
				WorkDir: workDir,
			})
			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, verdict); err != nil {
					return err
				}
			} else {
				displayVerdict(out, verdict, helpers.IsTerminal(out))
			}
			if exitCode {
				if code := verdictExitCode(verdict); code != ExitAllow {
					return &ExitError{Code: code}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "execute", "Action kind (execute|write|delete|read)")
	cmd.Flags().StringVar(&workDir, "workdir", "", "Directory relative paths resolve against (default: current)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the verdict as JSON")
	cmd.Flags().BoolVar(&exitCode, "exit-code", false, "Exit 2 on block and 3 on ask")
	return cmd
}

func subjectText(in io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	return strings.Join(args, " "), nil
}

func verdictExitCode(v domain.Verdict) int {
	switch v.Decision {
	case domain.DecisionBlock:
		return ExitBlock
	case domain.DecisionAsk:
		return ExitAsk
	default:
		return ExitAllow
	}
}

func displayVerdict(out io.Writer, v domain.Verdict, color bool) {
	fmt.Fprintln(out, helpers.DecisionLabel(v.Decision, color))
	if v.Explanation != "" {
		fmt.Fprintf(out, "  %s\n", v.Explanation)
	}
	if v.Rule != nil {
		fmt.Fprintf(out, "  rule: %s[%d]", v.Rule.Family, v.Rule.Index)
		if v.Rule.Line > 0 {
			fmt.Fprintf(out, " (line %d)", v.Rule.Line)
		}
		fmt.Fprintln(out)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// NewDecomposeCommand creates the decompose command
func NewDecomposeCommand(load ContainerFunc) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "decompose <command>",
		Short: "Print the fragments a command line is split into",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			text, err := subjectText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			fragments := container.Engine.Decomposer.Decompose(text)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), fragments)
			}
			displayFragments(cmd.OutOrStdout(), fragments)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print fragments as JSON")
	return cmd
}

func displayFragments(out io.Writer, fragments []domain.Fragment) {
	for i, f := range fragments {
		fmt.Fprintf(out, "%2d. [%s, depth %d] %s\n", i+1, f.Origin, f.Depth, f.Text)
		for _, r := range f.Redirects {
			fmt.Fprintf(out, "      %s %s\n", r.Op, r.Target)
		}
		if f.Suspicious {
			fmt.Fprintf(out, "      suspicious: %s\n", f.Note)
		}
	}
}
