package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Evaluation bounds
const (
	// DefaultMaxDepth bounds nested subshells, substitutions and sh -c strings.
	DefaultMaxDepth = 8
	// DefaultMaxFragments bounds how many fragments one command line may yield.
	DefaultMaxFragments = 256
	// DefaultMaxMatchInput is the largest subject a matcher evaluates before
	// the evaluation counts as timed out.
	DefaultMaxMatchInput = 64 * 1024
	// MaxRegexLength caps regex patterns accepted by the rule loader.
	MaxRegexLength = 4096
	// MaxPathSegments is the deepest path the classifier matches. Deeper
	// paths are treated as suspicious and blocked.
	MaxPathSegments = 256
)

// Hook formats
const (
	HookFormatNative = "native"
	HookFormatClaude = "claude"
)

// Daemon constants
const (
	// DefaultDaemonIdleTimeout stops an idle daemon.
	DefaultDaemonIdleTimeout = 30 * time.Minute
	// DefaultDaemonDialTimeout bounds how long the hook waits for a daemon.
	DefaultDaemonDialTimeout = 200 * time.Millisecond
	// DefaultDaemonRequestTimeout bounds one request/response exchange.
	DefaultDaemonRequestTimeout = 5 * time.Second
)

// History constants
const (
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
	// DefaultHistorySearchLimit is the default number of search results to return
	DefaultHistorySearchLimit = 50
	// DefaultHistoryRetainDays is the default number of days to retain history
	DefaultHistoryRetainDays = 30
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
