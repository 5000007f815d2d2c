package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/doeshing/agentguard/internal/domain"
)

// Query sends one raw hook request to the daemon at socketPath. Any error
// means the caller should evaluate in process instead.
func Query(ctx context.Context, socketPath string, request []byte) (Response, error) {
	dialer := net.Dialer{Timeout: domain.DefaultDaemonDialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("dial daemon: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(domain.DefaultDaemonRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	// The server reads a single line.
	var line bytes.Buffer
	if err := json.Compact(&line, request); err != nil {
		return Response{}, fmt.Errorf("compact request: %w", err)
	}
	line.WriteByte('\n')
	if _, err := conn.Write(line.Bytes()); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	if resp.Verdict.Decision == "" {
		return Response{}, errors.New("daemon returned no decision")
	}
	return resp, nil
}
