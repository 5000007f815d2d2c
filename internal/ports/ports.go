// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The decision engine only sees these interfaces, so the
// shell parser, the rule store and the decision log can be swapped or stubbed
// without touching policy logic.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., CommandDecomposer, RuleSource)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"
	"time"

	"github.com/doeshing/agentguard/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.agentguard/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// RuleSource hands out the rule document in effect. The returned document is
// immutable; callers keep it for the duration of one evaluation.
type RuleSource interface {
	Current() *domain.RuleDocument
}

// CommandDecomposer splits a shell command line into independently reachable
// fragments. It never fails.
type CommandDecomposer interface {
	Decompose(command string) []domain.Fragment
}

// PathClassifier matches a path against the path families that apply to an
// operation.
type PathClassifier interface {
	Classify(doc *domain.RuleDocument, path string, op domain.ActionKind, workDir string) domain.Classification
}

// DecisionLog persists audited verdicts. Nothing read back from it ever
// influences a decision.
type DecisionLog interface {
	Save(domain.DecisionRecord) error
	Records(limit int, search string) ([]domain.DecisionRecord, error)
	Clear() error
	PruneBefore(cutoff time.Time) (int, error)
	ExportJSON(dest string) error
	Path() string
}

// Logger provides structured logging abstraction for the application layer.
// Implementations must never write to stdout, which carries the hook protocol.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
