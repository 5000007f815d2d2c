package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/agentguard/internal/infrastructure/config"
	"github.com/doeshing/agentguard/internal/infrastructure/daemon"
)

// NewServeCommand creates the serve command
func NewServeCommand(load ContainerFunc) *cobra.Command {
	var socket string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer hook requests over a Unix socket (SIGHUP reloads rules)",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if container.RulesErr != nil {
				return fmt.Errorf("refusing to serve: %w", container.RulesErr)
			}
			idle, err := container.Config.GetDaemonIdleTimeout()
			if err != nil {
				return err
			}
			if socket == "" {
				socket = container.Config.Daemon.Socket
			}

			if store := container.HistoryStore; store != nil {
				cutoff := time.Now().AddDate(0, 0, -container.Config.GetHistoryRetentionDays())
				if removed, err := store.PruneBefore(cutoff); err != nil {
					container.Logger.Warn("history prune failed", map[string]interface{}{"error": err.Error()})
				} else if removed > 0 {
					container.Logger.Info("history pruned", map[string]interface{}{"removed": removed})
				}
			}

			srv := &daemon.Server{
				SocketPath:  config.ExpandPath(socket),
				Evaluator:   container.Decisions,
				Reloader:    container.Rules,
				Logger:      container.Logger,
				IdleTimeout: idle,
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "agentguard serving on %s\n", srv.SocketPath)
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Socket path (default from daemon.socket)")
	return cmd
}
