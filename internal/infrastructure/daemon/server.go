// Package daemon serves verdicts over a Unix socket so hook invocations can
// skip loading and compiling the rule document on every call.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/infrastructure/hook"
	"github.com/doeshing/agentguard/internal/ports"
)

// maxRequestBytes bounds one request line.
const maxRequestBytes = 1 << 20

// Evaluator decides one action event.
type Evaluator interface {
	Evaluate(event domain.ActionEvent) domain.Verdict
}

// Reloader rebuilds the rule document in effect.
type Reloader interface {
	Reload(ctx context.Context) (*domain.RuleDocument, error)
}

// Response is the daemon's answer to one hook request.
type Response struct {
	Verdict domain.Verdict `json:"verdict"`
	// Skip mirrors hook.Request.Skip: the engine has no opinion.
	Skip  bool   `json:"skip,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server accepts one JSON hook request per connection.
type Server struct {
	SocketPath  string
	Evaluator   Evaluator
	Reloader    Reloader
	Logger      ports.Logger
	IdleTimeout time.Duration

	listener     net.Listener
	shuttingDown atomic.Bool
	wg           sync.WaitGroup
	ready        chan struct{}
	once         sync.Once
	readyOnce    sync.Once
}

// Ready is closed once the socket is first listening. It stays closed
// across later runs of the same server.
func (s *Server) Ready() <-chan struct{} {
	s.once.Do(func() { s.ready = make(chan struct{}) })
	return s.ready
}

// Run listens until ctx is done, SIGINT/SIGTERM arrives or the server has
// been idle for IdleTimeout. SIGHUP reloads the rule document.
func (s *Server) Run(ctx context.Context) error {
	if s.Evaluator == nil {
		return errors.New("daemon: evaluator is required")
	}
	if err := os.MkdirAll(filepath.Dir(s.SocketPath), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}
	if conn, err := net.DialTimeout("unix", s.SocketPath, domain.DefaultDaemonDialTimeout); err == nil {
		_ = conn.Close()
		return fmt.Errorf("daemon already running at %s", s.SocketPath)
	}
	_ = os.Remove(s.SocketPath)

	listener, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("daemon: listen: %w", err)
	}
	if err := os.Chmod(s.SocketPath, domain.SecureFilePermissions); err != nil {
		_ = listener.Close()
		return fmt.Errorf("daemon: %w", err)
	}
	s.listener = listener
	s.shuttingDown.Store(false)
	s.Ready()
	s.readyOnce.Do(func() { close(s.ready) })

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)
	defer signal.Stop(stopCh)
	defer signal.Stop(hupCh)

	activity := make(chan struct{}, 1)
	go s.accept(activity)

	var idle <-chan time.Time
	var timer *time.Timer
	if s.IdleTimeout > 0 {
		timer = time.NewTimer(s.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}
	s.info("daemon listening", map[string]interface{}{"socket": s.SocketPath})

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return nil
		case sig := <-stopCh:
			s.info("daemon stopping", map[string]interface{}{"signal": sig.String()})
			s.Shutdown()
			return nil
		case <-idle:
			s.info("daemon idle, stopping", nil)
			s.Shutdown()
			return nil
		case <-hupCh:
			s.reload(ctx)
		case <-activity:
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.IdleTimeout)
			}
		}
	}
}

func (s *Server) accept(activity chan<- struct{}) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.shuttingDown.Load() {
				return
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		select {
		case activity <- struct{}{}:
		default:
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(domain.DefaultDaemonRequestTimeout))

	reader := bufio.NewReader(io.LimitReader(conn, maxRequestBytes))
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		s.respond(conn, Response{
			Verdict: domain.Verdict{Decision: domain.DecisionBlock, Explanation: "daemon: empty request"},
			Error:   "empty request",
		})
		return
	}
	s.respond(conn, s.Answer(line))
}

// Answer decodes one hook request and evaluates it. Malformed requests are
// blocked.
func (s *Server) Answer(data []byte) Response {
	req, err := hook.DecodeRequest(data)
	if err != nil {
		return Response{
			Verdict: domain.Verdict{Decision: domain.DecisionBlock, Explanation: err.Error()},
			Error:   err.Error(),
		}
	}
	if req.Skip {
		return Response{Verdict: domain.Verdict{Decision: domain.DecisionAllow}, Skip: true}
	}
	return Response{Verdict: s.Evaluator.Evaluate(req.Event)}
}

func (s *Server) respond(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil && s.Logger != nil {
		s.Logger.Warn("daemon: write response failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) reload(ctx context.Context) {
	if s.Reloader == nil {
		return
	}
	doc, err := s.Reloader.Reload(ctx)
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("rule reload failed, keeping previous document", err, nil)
		}
		return
	}
	s.info("rules reloaded", map[string]interface{}{"rules": doc.Count(), "source": doc.Source})
}

// Shutdown stops accepting, waits for in-flight requests and removes the
// socket file.
func (s *Server) Shutdown() {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	_ = os.Remove(s.SocketPath)
}

func (s *Server) info(msg string, fields map[string]interface{}) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields)
	}
}
