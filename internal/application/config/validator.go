package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if cfg.ConfigFormatVersion != "" && cfg.ConfigFormatVersion != "1" {
		return fmt.Errorf("unsupported config_format_version %q", cfg.ConfigFormatVersion)
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if err := validateLogging(cfg.Logging); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return validateDaemon(cfg)
}

func validateLogging(logging domain.LoggingSettings) error {
	if logging.Level == "" {
		return nil
	}
	if !logLevels[strings.ToLower(logging.Level)] {
		return fmt.Errorf("logging.level must be debug|info|warn|error, got %s", logging.Level)
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must be >= 0")
	}
	return nil
}

func validateDaemon(cfg domain.Config) error {
	timeout, err := cfg.GetDaemonIdleTimeout()
	if err != nil {
		return err
	}
	if timeout < 0 {
		return errors.New("daemon.idle_timeout must not be negative")
	}
	return nil
}
