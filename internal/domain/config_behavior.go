package domain

import (
	"fmt"
	"strings"
	"time"
)

// Rich Domain Model: 將業務邏輯封裝在 Domain 實體中

// GetMaxDepth returns the nesting bound for command decomposition.
func (c *Config) GetMaxDepth() int {
	if c.Policy.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.Policy.MaxDepth
}

// GetMaxFragments returns the fragment bound for one command line.
func (c *Config) GetMaxFragments() int {
	if c.Policy.MaxFragments <= 0 {
		return DefaultMaxFragments
	}
	return c.Policy.MaxFragments
}

// GetMaxMatchInput returns the per-evaluation subject size budget.
func (c *Config) GetMaxMatchInput() int {
	if c.Policy.MaxMatchInput <= 0 {
		return DefaultMaxMatchInput
	}
	return c.Policy.MaxMatchInput
}

// GetLogLevel returns the configured log level, defaulting to warn.
func (c *Config) GetLogLevel() string {
	if strings.TrimSpace(c.Logging.Level) == "" {
		return "warn"
	}
	return strings.ToLower(c.Logging.Level)
}

// IsHistoryEnabled checks if verdicts should be written to the decision log.
func (c *Config) IsHistoryEnabled() bool {
	return c.History.Enabled
}

// GetHistoryRetentionDays returns the number of days to retain history
func (c *Config) GetHistoryRetentionDays() int {
	if c.History.RetentionDays <= 0 {
		return DefaultHistoryRetainDays
	}
	return c.History.RetentionDays
}

// GetHookFormat returns the hook wire format, native unless claude is asked for.
func (c *Config) GetHookFormat() string {
	if strings.EqualFold(c.Hook.Format, HookFormatClaude) {
		return HookFormatClaude
	}
	return HookFormatNative
}

// GetDaemonIdleTimeout parses daemon.idle_timeout. Zero disables the idle stop.
func (c *Config) GetDaemonIdleTimeout() (time.Duration, error) {
	if strings.TrimSpace(c.Daemon.IdleTimeout) == "" {
		return DefaultDaemonIdleTimeout, nil
	}
	d, err := time.ParseDuration(c.Daemon.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("daemon.idle_timeout %q: %w", c.Daemon.IdleTimeout, err)
	}
	return d, nil
}

// ValidateConsistency checks the internal consistency of the configuration
func (c *Config) ValidateConsistency() error {
	if strings.TrimSpace(c.Policy.RulesFile) == "" {
		return fmt.Errorf("policy.rules_file must be set")
	}
	if c.Policy.MaxDepth < 0 || c.Policy.MaxFragments < 0 || c.Policy.MaxMatchInput < 0 {
		return fmt.Errorf("policy bounds must not be negative")
	}
	switch strings.ToLower(c.Hook.Format) {
	case "", HookFormatNative, HookFormatClaude:
	default:
		return fmt.Errorf("hook.format must be %s|%s, got %s", HookFormatNative, HookFormatClaude, c.Hook.Format)
	}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	if _, err := c.GetDaemonIdleTimeout(); err != nil {
		return err
	}
	return nil
}
