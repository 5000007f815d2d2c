package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/ports"
)

// selfTestCommand must never be allowed by a sane policy.
const selfTestCommand = "rm -rf /"

// Decider is the part of the decision engine the self-test needs.
type Decider interface {
	Decide(event domain.ActionEvent, doc *domain.RuleDocument) domain.Verdict
}

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Rules          ports.RuleSource
	// RulesErr is the error the rule document failed to load with, if any.
	RulesErr error
	Decider  Decider
	Log      ports.DecisionLog
}

// Run executes checks and returns a report. The error is only set when the
// configuration itself cannot be loaded.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))
	}

	doc := s.rulesCheck(&checks)
	checks = append(checks, s.selfTest(doc))
	checks = append(checks, s.logCheck(cfg))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) rulesCheck(checks *[]domain.HealthCheck) *domain.RuleDocument {
	if s.RulesErr != nil {
		*checks = append(*checks, fail("Rule document", s.RulesErr.Error()))
		return nil
	}
	if s.Rules == nil || s.Rules.Current() == nil {
		*checks = append(*checks, fail("Rule document", "not loaded"))
		return nil
	}
	doc := s.Rules.Current()
	if doc.Count() == 0 {
		*checks = append(*checks, warn("Rule document", fmt.Sprintf("%s has no rules; everything is allowed", doc.Source)))
		return doc
	}
	*checks = append(*checks, ok("Rule document", fmt.Sprintf("%d rules from %s", doc.Count(), doc.Source)))
	return doc
}

func (s *Service) selfTest(doc *domain.RuleDocument) domain.HealthCheck {
	if s.Decider == nil {
		return warn("Self-test", "decision engine not initialized")
	}
	if doc == nil {
		return warn("Self-test", "skipped: no rule document")
	}
	verdict := s.Decider.Decide(domain.ActionEvent{Kind: domain.ActionExecute, RawText: selfTestCommand}, doc)
	if verdict.Allowed() {
		return fail("Self-test", fmt.Sprintf("%q is allowed by the current rules", selfTestCommand))
	}
	return ok("Self-test", fmt.Sprintf("%q -> %s", selfTestCommand, verdict.Decision))
}

func (s *Service) logCheck(cfg domain.Config) domain.HealthCheck {
	if !cfg.IsHistoryEnabled() {
		return warn("Decision log", "disabled")
	}
	if s.Log == nil {
		return warn("Decision log", "not initialized")
	}
	dir := filepath.Dir(s.Log.Path())
	info, err := os.Stat(dir)
	if err != nil {
		return warn("Decision log", fmt.Sprintf("%s not created yet", dir))
	}
	if !info.IsDir() {
		return fail("Decision log", fmt.Sprintf("%s is not a directory", dir))
	}
	return ok("Decision log", s.Log.Path())
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
