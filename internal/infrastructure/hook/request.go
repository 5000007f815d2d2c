// Package hook adapts the engine to agent hook protocols: it decodes the
// host's pre-tool-use request into an action event and renders verdicts.
package hook

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
)

// PreToolUse is the only hook event the engine evaluates.
const PreToolUse = "PreToolUse"

// ErrEmptyRequest is returned when stdin carried nothing to decode.
var ErrEmptyRequest = errors.New("empty hook request")

// Request is a decoded hook invocation.
type Request struct {
	Event domain.ActionEvent
	// Skip marks tools and hook events the engine has no opinion on; the
	// host proceeds with its own handling.
	Skip bool
	// Format is the wire shape the request arrived in.
	Format string
}

type wireRequest struct {
	// Native shape.
	HookType string       `json:"hookType"`
	ToolName string       `json:"toolName"`
	ToolKind string       `json:"toolKind"`
	Payload  *wirePayload `json:"payload"`
	WorkDir  string       `json:"workDir"`

	// Claude Code shape.
	HookEventName string          `json:"hook_event_name"`
	ClaudeTool    string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	CWD           string          `json:"cwd"`
	SessionID     string          `json:"session_id"`
}

type wirePayload struct {
	Command  string `json:"command"`
	FilePath string `json:"filePath"`
}

type toolInput struct {
	Command      string `json:"command"`
	FilePath     string `json:"file_path"`
	NotebookPath string `json:"notebook_path"`
	Path         string `json:"path"`
}

// ReadRequest decodes one request from r.
func ReadRequest(r io.Reader) (Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Request{}, fmt.Errorf("read hook request: %w", err)
	}
	return DecodeRequest(data)
}

// DecodeRequest maps either request shape to an action event.
func DecodeRequest(data []byte) (Request, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Request{}, ErrEmptyRequest
	}
	var wire wireRequest
	if err := json.Unmarshal(data, &wire); err != nil {
		return Request{}, fmt.Errorf("decode hook request: %w", err)
	}
	if wire.ClaudeTool != "" || wire.HookEventName != "" || len(wire.ToolInput) > 0 {
		return decodeClaude(wire)
	}
	return decodeNative(wire)
}

func decodeNative(wire wireRequest) (Request, error) {
	req := Request{Format: domain.HookFormatNative}
	if wire.HookType != "" && wire.HookType != PreToolUse {
		req.Skip = true
		return req, nil
	}
	tool := wire.ToolKind
	if tool == "" {
		tool = wire.ToolName
	}
	var payload wirePayload
	if wire.Payload != nil {
		payload = *wire.Payload
	}

	event := domain.ActionEvent{ToolName: firstNonEmpty(wire.ToolName, wire.ToolKind), WorkDir: wire.WorkDir}
	switch strings.ToLower(tool) {
	case "bash", "shell", "execute":
		event.Kind = domain.ActionExecute
		event.RawText = payload.Command
	case "edit", "write", "multiedit", "writeoredit":
		event.Kind = domain.ActionWriteOrEdit
		event.RawText = payload.FilePath
	case "delete":
		event.Kind = domain.ActionDelete
		event.RawText = firstNonEmpty(payload.FilePath, payload.Command)
	case "read":
		event.Kind = domain.ActionRead
		event.RawText = payload.FilePath
	case "":
		return Request{}, errors.New("decode hook request: missing toolKind")
	default:
		req.Skip = true
		return req, nil
	}
	req.Event = event
	return req, nil
}

func decodeClaude(wire wireRequest) (Request, error) {
	req := Request{Format: domain.HookFormatClaude}
	if wire.HookEventName != "" && wire.HookEventName != PreToolUse {
		req.Skip = true
		return req, nil
	}
	var input toolInput
	if len(wire.ToolInput) > 0 && string(wire.ToolInput) != "null" {
		if err := json.Unmarshal(wire.ToolInput, &input); err != nil {
			return Request{}, fmt.Errorf("decode tool_input: %w", err)
		}
	}

	event := domain.ActionEvent{ToolName: wire.ClaudeTool, SessionID: wire.SessionID, WorkDir: wire.CWD}
	switch wire.ClaudeTool {
	case "Bash":
		event.Kind = domain.ActionExecute
		event.RawText = input.Command
	case "Edit", "Write", "MultiEdit":
		event.Kind = domain.ActionWriteOrEdit
		event.RawText = input.FilePath
	case "NotebookEdit":
		event.Kind = domain.ActionWriteOrEdit
		event.RawText = firstNonEmpty(input.NotebookPath, input.FilePath)
	case "Read":
		event.Kind = domain.ActionRead
		event.RawText = input.FilePath
	case "Grep", "Glob":
		if input.Path == "" {
			req.Skip = true
			return req, nil
		}
		event.Kind = domain.ActionRead
		event.RawText = input.Path
	default:
		req.Skip = true
		return req, nil
	}
	req.Event = event
	return req, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
