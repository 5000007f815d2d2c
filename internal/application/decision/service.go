package decision

import (
	"time"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/ports"
)

// Service evaluates events against the rule document currently in effect
// and audits the outcome.
type Service struct {
	Engine *Engine
	Rules  ports.RuleSource
	Log    ports.DecisionLog
	Logger ports.Logger
	// LoadErr, when set, is the reason the rule document could not be
	// loaded. Every event is then blocked.
	LoadErr error
}

// Evaluate takes one snapshot of the rule document and decides event
// against it. Audit failures are logged and never change the verdict.
func (s *Service) Evaluate(event domain.ActionEvent) domain.Verdict {
	start := time.Now()
	verdict := s.Decide(event)
	elapsed := time.Since(start)

	if s.Logger != nil {
		s.Logger.Debug("decision", map[string]interface{}{
			"kind":     event.Kind,
			"tool":     event.ToolName,
			"decision": verdict.Decision,
			"elapsed":  elapsed.String(),
		})
	}
	if s.Log != nil {
		if err := s.Log.Save(domain.NewDecisionRecord(event, verdict, elapsed)); err != nil && s.Logger != nil {
			s.Logger.Warn("decision log write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return verdict
}

// Decide returns the verdict without auditing it.
func (s *Service) Decide(event domain.ActionEvent) domain.Verdict {
	if s.LoadErr != nil {
		return domain.Verdict{
			Decision:    domain.DecisionBlock,
			Explanation: "rule document failed to load: " + s.LoadErr.Error(),
		}
	}
	if s.Engine == nil || s.Rules == nil {
		return domain.Verdict{Decision: domain.DecisionBlock, Explanation: "decision engine not initialized"}
	}
	return s.Engine.Decide(event, s.Rules.Current())
}
