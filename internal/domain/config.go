package domain

// Config mirrors ~/.agentguard/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version"`
	Policy              PolicySettings  `yaml:"policy"`
	Logging             LoggingSettings `yaml:"logging"`
	History             HistorySettings `yaml:"history"`
	Hook                HookSettings    `yaml:"hook"`
	Daemon              DaemonSettings  `yaml:"daemon"`
}

// PolicySettings points at the rule document and bounds evaluation.
type PolicySettings struct {
	RulesFile     string `yaml:"rules_file"`
	MaxDepth      int    `yaml:"max_depth"`
	MaxFragments  int    `yaml:"max_fragments"`
	MaxMatchInput int    `yaml:"max_match_input"`
}

// LoggingSettings controls operational logging (never stdout).
type LoggingSettings struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// HistorySettings configures the decision log.
type HistorySettings struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// HookSettings selects the wire format written by `agentguard hook`.
type HookSettings struct {
	Format string `yaml:"format"`
	// Socket, when set, makes the hook ask a running daemon first.
	Socket string `yaml:"socket"`
}

// DaemonSettings configures `agentguard serve`.
type DaemonSettings struct {
	Socket      string `yaml:"socket"`
	IdleTimeout string `yaml:"idle_timeout"`
}
