package hook

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/agentguard/internal/domain"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   domain.ActionEvent
		format string
		skip   bool
	}{
		{
			name:   "native bash",
			input:  `{"hookType":"PreToolUse","toolName":"Bash","toolKind":"Bash","payload":{"command":"rm -rf /"}}`,
			want:   domain.ActionEvent{Kind: domain.ActionExecute, RawText: "rm -rf /", ToolName: "Bash"},
			format: domain.HookFormatNative,
		},
		{
			name:   "native write",
			input:  `{"hookType":"PreToolUse","toolName":"Write","toolKind":"Write","payload":{"filePath":".env"}}`,
			want:   domain.ActionEvent{Kind: domain.ActionWriteOrEdit, RawText: ".env", ToolName: "Write"},
			format: domain.HookFormatNative,
		},
		{
			name:   "native other hook",
			input:  `{"hookType":"PostToolUse","toolKind":"Bash","payload":{"command":"ls"}}`,
			format: domain.HookFormatNative,
			skip:   true,
		},
		{
			name:   "claude bash",
			input:  `{"session_id":"abc","hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"git push"},"cwd":"/repo"}`,
			want:   domain.ActionEvent{Kind: domain.ActionExecute, RawText: "git push", ToolName: "Bash", SessionID: "abc", WorkDir: "/repo"},
			format: domain.HookFormatClaude,
		},
		{
			name:   "claude edit",
			input:  `{"hook_event_name":"PreToolUse","tool_name":"Edit","tool_input":{"file_path":"/repo/.env","old_string":"a","new_string":"b"}}`,
			want:   domain.ActionEvent{Kind: domain.ActionWriteOrEdit, RawText: "/repo/.env", ToolName: "Edit"},
			format: domain.HookFormatClaude,
		},
		{
			name:   "claude notebook",
			input:  `{"hook_event_name":"PreToolUse","tool_name":"NotebookEdit","tool_input":{"notebook_path":"a.ipynb"}}`,
			want:   domain.ActionEvent{Kind: domain.ActionWriteOrEdit, RawText: "a.ipynb", ToolName: "NotebookEdit"},
			format: domain.HookFormatClaude,
		},
		{
			name:   "claude read",
			input:  `{"hook_event_name":"PreToolUse","tool_name":"Read","tool_input":{"file_path":"~/.ssh/id_rsa"}}`,
			want:   domain.ActionEvent{Kind: domain.ActionRead, RawText: "~/.ssh/id_rsa", ToolName: "Read"},
			format: domain.HookFormatClaude,
		},
		{
			name:   "claude unrelated tool",
			input:  `{"hook_event_name":"PreToolUse","tool_name":"WebSearch","tool_input":{"query":"go"}}`,
			format: domain.HookFormatClaude,
			skip:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeRequest error: %v", err)
			}
			if req.Format != tt.format || req.Skip != tt.skip {
				t.Fatalf("format=%s skip=%v, want %s %v", req.Format, req.Skip, tt.format, tt.skip)
			}
			if tt.skip {
				return
			}
			if diff := cmp.Diff(tt.want, req.Event); diff != "" {
				t.Fatalf("event mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeRequestErrors(t *testing.T) {
	if _, err := DecodeRequest([]byte("  ")); !errors.Is(err, ErrEmptyRequest) {
		t.Fatalf("empty input error = %v", err)
	}
	if _, err := DecodeRequest([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
	if _, err := DecodeRequest([]byte(`{"hookType":"PreToolUse","payload":{}}`)); err == nil {
		t.Fatal("expected error for missing tool kind")
	}
}

func TestEmit(t *testing.T) {
	rule := &domain.RuleRef{Family: domain.FamilyBlockedCommands, Pattern: "rm -rf", Reason: "recursive delete"}
	tests := []struct {
		verdict domain.Verdict
		want    Response
	}{
		{domain.Verdict{Decision: domain.DecisionAllow, Explanation: "ignored"}, Response{PermissionDecision: domain.DecisionAllow}},
		{domain.Verdict{Decision: domain.DecisionAsk, Explanation: "matched ask pattern"}, Response{PermissionDecision: domain.DecisionAsk, Reason: "matched ask pattern"}},
		{domain.Verdict{Decision: domain.DecisionBlock, Rule: rule}, Response{PermissionDecision: domain.DecisionBlock, Reason: "recursive delete"}},
		{domain.Verdict{Decision: domain.DecisionBlock}, Response{PermissionDecision: domain.DecisionBlock, Reason: "blocked by policy"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Emit(tt.verdict)); diff != "" {
			t.Errorf("Emit(%+v) mismatch (-want +got):\n%s", tt.verdict, diff)
		}
	}
}

func TestEmitClaude(t *testing.T) {
	if out := EmitClaude(domain.Verdict{Decision: domain.DecisionAllow}); out != nil {
		t.Fatalf("allow should render nothing, got %+v", out)
	}
	out := EmitClaude(domain.Verdict{Decision: domain.DecisionBlock, Explanation: "no"})
	want := &HookOutput{HookSpecificOutput: &HookSpecificOutput{
		HookEventName:            PreToolUse,
		PermissionDecision:       "deny",
		PermissionDecisionReason: "no",
	}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("EmitClaude mismatch (-want +got):\n%s", diff)
	}
	if got := EmitClaude(domain.Verdict{Decision: domain.DecisionAsk}).HookSpecificOutput.PermissionDecision; got != "ask" {
		t.Fatalf("ask rendered as %q", got)
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, domain.HookFormatNative, domain.Verdict{Decision: domain.DecisionBlock, Explanation: "nope"}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"permissionDecision":"block","reason":"nope"}` {
		t.Fatalf("native output = %s", got)
	}

	buf.Reset()
	if err := Write(&buf, domain.HookFormatClaude, domain.Verdict{Decision: domain.DecisionAllow}); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("claude allow should write nothing, got %q", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	block := domain.Verdict{Decision: domain.DecisionBlock}
	if ExitCode(domain.HookFormatClaude, block) != 2 {
		t.Fatal("claude block should exit 2")
	}
	if ExitCode(domain.HookFormatNative, block) != 0 {
		t.Fatal("native block should exit 0")
	}
	if ExitCode(domain.HookFormatClaude, domain.Verdict{Decision: domain.DecisionAsk}) != 0 {
		t.Fatal("claude ask should exit 0")
	}
}
