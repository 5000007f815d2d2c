package hook

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/doeshing/agentguard/internal/domain"
)

// Response is the native boundary message.
type Response struct {
	PermissionDecision domain.Decision `json:"permissionDecision"`
	Reason             string          `json:"reason,omitempty"`
}

// HookOutput is the Claude Code PreToolUse response.
type HookOutput struct {
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries the permission decision for PreToolUse.
type HookSpecificOutput struct {
	HookEventName            string `json:"hookEventName"`
	PermissionDecision       string `json:"permissionDecision"`
	PermissionDecisionReason string `json:"permissionDecisionReason,omitempty"`
}

// Emit renders a verdict as a native response. Block and ask always carry a
// reason, allow never does.
func Emit(v domain.Verdict) Response {
	switch v.Decision {
	case domain.DecisionBlock:
		return Response{PermissionDecision: domain.DecisionBlock, Reason: reason(v, "blocked by policy")}
	case domain.DecisionAsk:
		return Response{PermissionDecision: domain.DecisionAsk, Reason: reason(v, "confirmation required by policy")}
	default:
		return Response{PermissionDecision: domain.DecisionAllow}
	}
}

// EmitClaude renders a verdict for Claude Code. Allow returns nil so the
// host falls through to its normal permission flow.
func EmitClaude(v domain.Verdict) *HookOutput {
	var decision string
	switch v.Decision {
	case domain.DecisionBlock:
		decision = "deny"
	case domain.DecisionAsk:
		decision = "ask"
	default:
		return nil
	}
	r := Emit(v)
	return &HookOutput{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:            PreToolUse,
		PermissionDecision:       decision,
		PermissionDecisionReason: r.Reason,
	}}
}

// Write encodes the response for format onto w.
func Write(w io.Writer, format string, v domain.Verdict) error {
	var payload interface{}
	switch format {
	case domain.HookFormatClaude:
		out := EmitClaude(v)
		if out == nil {
			return nil
		}
		payload = out
	default:
		payload = Emit(v)
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("write hook response: %w", err)
	}
	return nil
}

// ExitCode is the process status for a verdict. Claude Code treats 2 as a
// hard block and feeds stderr back to the agent.
func ExitCode(format string, v domain.Verdict) int {
	if format == domain.HookFormatClaude && v.Decision == domain.DecisionBlock {
		return 2
	}
	return 0
}

func reason(v domain.Verdict, fallback string) string {
	if v.Explanation != "" {
		return v.Explanation
	}
	if v.Rule != nil && v.Rule.Reason != "" {
		return v.Rule.Reason
	}
	return fallback
}
