package commands

import "github.com/doeshing/agentguard/internal/domain"

// History display defaults
const (
	DefaultHistoryLimit       = domain.DefaultHistoryLimit
	DefaultHistorySearchLimit = domain.DefaultHistorySearchLimit
	DefaultHistoryRetainDays  = domain.DefaultHistoryRetainDays
	// MaxHistoryAnalysisRecords bounds how many records `history stats` reads.
	MaxHistoryAnalysisRecords = 5000
	TimestampFormat           = domain.TimestampFormat
)

// Exit codes for `check --exit-code`.
const (
	ExitAllow = 0
	ExitBlock = 2
	ExitAsk   = 3
)

// Error messages
const (
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable (history.enabled is false)"
	ErrQueryRequired            = "--query required"
	ErrInvalidRetainDays        = "--days must be > 0"
)

// Success messages
const (
	MsgConfigurationValid = "Configuration valid"
	MsgNoHistoryRecorded  = "No decisions recorded yet."
)
