package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/pkg/filesystem"
	"github.com/doeshing/agentguard/internal/ports"
)

// EnvConfigPath overrides the config location.
const EnvConfigPath = "AGENTGUARD_CONFIG"

// FileLoader loads YAML configuration from ~/.agentguard/config.yaml.
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader. An empty path falls back to
// AGENTGUARD_CONFIG and then the default location.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider. A missing file is created with
// defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			// Read-only homes still get a working config.
			_ = writeDefault(path, cfg)
			return cfg, nil
		}
		return domain.Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return hydrateDefaults(cfg), nil
}

// Path resolves the config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return ExpandPath(custom)
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Dir is the agentguard state directory.
func Dir() string {
	return filepath.Join(filesystem.UserHomeDir(), ".agentguard")
}

func writeDefault(path string, cfg domain.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() domain.Config {
	dir := Dir()
	return domain.Config{
		ConfigFormatVersion: "1",
		Policy: domain.PolicySettings{
			RulesFile:     filepath.Join(dir, "rules.yaml"),
			MaxDepth:      domain.DefaultMaxDepth,
			MaxFragments:  domain.DefaultMaxFragments,
			MaxMatchInput: domain.DefaultMaxMatchInput,
		},
		Logging: domain.LoggingSettings{
			Level: "warn",
			File:  filepath.Join(dir, "agentguard.log"),
		},
		History: domain.HistorySettings{
			Enabled:       true,
			Path:          filepath.Join(dir, "decisions.db"),
			RetentionDays: domain.DefaultHistoryRetainDays,
		},
		Hook: domain.HookSettings{
			Format: domain.HookFormatNative,
		},
		Daemon: domain.DaemonSettings{
			Socket:      filepath.Join(dir, "agentguard.sock"),
			IdleTimeout: domain.DefaultDaemonIdleTimeout.String(),
		},
	}
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	defaults := DefaultConfig()
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = defaults.ConfigFormatVersion
	}
	if cfg.Policy.RulesFile == "" {
		cfg.Policy.RulesFile = defaults.Policy.RulesFile
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.History.Path == "" {
		cfg.History.Path = defaults.History.Path
	}
	if cfg.Hook.Format == "" {
		cfg.Hook.Format = defaults.Hook.Format
	}
	if cfg.Daemon.Socket == "" {
		cfg.Daemon.Socket = defaults.Daemon.Socket
	}
	cfg.Policy.RulesFile = ExpandPath(cfg.Policy.RulesFile)
	cfg.Logging.File = ExpandPath(cfg.Logging.File)
	cfg.History.Path = ExpandPath(cfg.History.Path)
	cfg.Hook.Socket = ExpandPath(cfg.Hook.Socket)
	cfg.Daemon.Socket = ExpandPath(cfg.Daemon.Socket)
	return cfg
}

// ExpandPath resolves a leading ~ against the user's home.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		return filesystem.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(filesystem.UserHomeDir(), path[2:])
	}
	return filepath.Clean(path)
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
