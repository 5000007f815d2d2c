package domain

import "strings"

// ActionKind is the category of an intercepted tool call.
type ActionKind string

const (
	ActionExecute     ActionKind = "execute"
	ActionWriteOrEdit ActionKind = "writeOrEdit"
	ActionDelete      ActionKind = "delete"
	// ActionRead is only checked against zero-access paths.
	ActionRead ActionKind = "read"
)

// ParseActionKind accepts the canonical names plus a few CLI friendly aliases.
func ParseActionKind(value string) (ActionKind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "execute", "exec", "bash", "command", "":
		return ActionExecute, true
	case "writeoredit", "write", "edit":
		return ActionWriteOrEdit, true
	case "delete", "rm", "remove":
		return ActionDelete, true
	case "read":
		return ActionRead, true
	default:
		return "", false
	}
}

// ActionEvent is one intercepted candidate operation awaiting a verdict.
type ActionEvent struct {
	Kind    ActionKind
	RawText string
	// ToolName and SessionID are carried for logging only.
	ToolName  string
	SessionID string
	// WorkDir resolves relative paths; empty leaves them relative.
	WorkDir string
}
