package config

import (
	"strings"
	"testing"

	"github.com/doeshing/agentguard/internal/domain"
)

func validConfig() domain.Config {
	return domain.Config{
		ConfigFormatVersion: "1",
		Policy:              domain.PolicySettings{RulesFile: "/tmp/rules.yaml"},
		Logging:             domain.LoggingSettings{Level: "info"},
		History:             domain.HistorySettings{Enabled: true, Path: "/tmp/decisions.db", RetentionDays: 7},
		Hook:                domain.HookSettings{Format: "claude"},
		Daemon:              domain.DaemonSettings{IdleTimeout: "10m"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.Config) {}},
		{name: "version", mutate: func(c *domain.Config) { c.ConfigFormatVersion = "2" }, wantErr: "config_format_version"},
		{name: "rules file", mutate: func(c *domain.Config) { c.Policy.RulesFile = " " }, wantErr: "policy.rules_file"},
		{name: "negative bounds", mutate: func(c *domain.Config) { c.Policy.MaxDepth = -1 }, wantErr: "negative"},
		{name: "hook format", mutate: func(c *domain.Config) { c.Hook.Format = "xml" }, wantErr: "hook.format"},
		{name: "log level", mutate: func(c *domain.Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "history path", mutate: func(c *domain.Config) { c.History.Path = "" }, wantErr: "history.path"},
		{name: "retention", mutate: func(c *domain.Config) { c.History.RetentionDays = -1 }, wantErr: "retention_days"},
		{name: "idle timeout", mutate: func(c *domain.Config) { c.Daemon.IdleTimeout = "soon" }, wantErr: "idle_timeout"},
		{name: "negative idle", mutate: func(c *domain.Config) { c.Daemon.IdleTimeout = "-1m" }, wantErr: "idle_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
