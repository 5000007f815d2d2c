package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/internal/app"
	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/daemon"
	"github.com/doeshing/agentguard/internal/infrastructure/hook"
)

// failClosedCode is what the host treats as a hard block.
const failClosedCode = 2

// NewHookCommand creates the hook command
func NewHookCommand(load ContainerFunc) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Evaluate one pre-tool-use request read from stdin",
		Long: "Reads a hook request (native or Claude Code shape) from stdin, writes the verdict " +
			"to stdout and exits 2 when the action must be blocked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), load, format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Response format (native|claude); detected from the request by default")
	return cmd
}

// runHook never lets an error turn into an allow: every failure path
// writes a block verdict and exits 2.
func runHook(ctx context.Context, in io.Reader, out, errOut io.Writer, load ContainerFunc, format string) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return failClosed(out, errOut, pickFormat(format, "", ""), fmt.Sprintf("read hook request: %v", err))
	}
	req, decodeErr := hook.DecodeRequest(data)

	container, err := load(ctx)
	if err != nil {
		return failClosed(out, errOut, pickFormat(format, req.Format, ""), fmt.Sprintf("configuration failed to load: %v", err))
	}
	f := pickFormat(format, req.Format, container.Config.GetHookFormat())
	if decodeErr != nil {
		return failClosed(out, errOut, f, decodeErr.Error())
	}
	if container.RulesErr != nil {
		return failClosed(out, errOut, f, fmt.Sprintf("rule document failed to load: %v", container.RulesErr))
	}
	if req.Skip {
		return hook.Write(out, f, domain.Verdict{Decision: domain.DecisionAllow})
	}

	verdict := evaluateHook(ctx, container, data, req)
	if err := hook.Write(out, f, verdict); err != nil {
		return err
	}
	if code := hook.ExitCode(f, verdict); code != 0 {
		fmt.Fprintln(errOut, explanation(verdict))
		return &ExitError{Code: code}
	}
	return nil
}

// evaluateHook asks a running daemon when one is configured and falls
// back to evaluating in process.
func evaluateHook(ctx context.Context, container *app.Container, data []byte, req hook.Request) domain.Verdict {
	if socket := container.Config.Hook.Socket; socket != "" {
		resp, err := daemon.Query(ctx, socket, data)
		if err == nil {
			return resp.Verdict
		}
		container.Logger.Debug("daemon unavailable, evaluating in process", map[string]interface{}{
			"socket": socket,
			"error":  err.Error(),
		})
	}
	return container.Decisions.Evaluate(req.Event)
}

func failClosed(out, errOut io.Writer, format, reason string) error {
	verdict := domain.Verdict{Decision: domain.DecisionBlock, Explanation: "agentguard: " + reason}
	_ = hook.Write(out, format, verdict)
	fmt.Fprintln(errOut, verdict.Explanation)
	return &ExitError{Code: failClosedCode}
}

func pickFormat(flag, detected, configured string) string {
	for _, f := range []string{flag, detected, configured} {
		if f == domain.HookFormatNative || f == domain.HookFormatClaude {
			return f
		}
	}
	return domain.HookFormatNative
}

func explanation(v domain.Verdict) string {
	if v.Explanation != "" {
		return v.Explanation
	}
	if v.Rule != nil && v.Rule.Reason != "" {
		return v.Rule.Reason
	}
	return "blocked by policy"
}
