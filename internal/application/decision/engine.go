// Package decision turns intercepted agent actions into allow/ask/block
// verdicts. Decide is a pure function of the event and the rule document.
package decision

import (
	"fmt"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/ports"
)

// Engine evaluates action events against a rule document.
type Engine struct {
	Decomposer ports.CommandDecomposer
	Classifier ports.PathClassifier
}

// Decide returns the verdict for event under doc. A nil document blocks
// everything.
func (e *Engine) Decide(event domain.ActionEvent, doc *domain.RuleDocument) domain.Verdict {
	if doc == nil {
		return domain.Verdict{Decision: domain.DecisionBlock, Explanation: "no rule document loaded"}
	}
	text := strings.TrimSpace(event.RawText)
	if text == "" {
		return domain.Verdict{Decision: domain.DecisionAllow}
	}

	switch event.Kind {
	case domain.ActionExecute:
		return e.decideCommand(text, event.WorkDir, doc)
	case domain.ActionDelete:
		if isDeletionCommandLine(text) {
			return e.decideDeletionCommand(text, event.WorkDir, doc)
		}
		return e.decidePath(text, event.Kind, event.WorkDir, doc)
	case domain.ActionWriteOrEdit, domain.ActionRead:
		return e.decidePath(text, event.Kind, event.WorkDir, doc)
	default:
		return domain.Verdict{
			Decision:    domain.DecisionBlock,
			Explanation: fmt.Sprintf("unknown action kind %q", event.Kind),
		}
	}
}

func (e *Engine) decideCommand(text, workDir string, doc *domain.RuleDocument) domain.Verdict {
	fragments := e.Decomposer.Decompose(text)
	blocked := doc.Rules(domain.FamilyBlockedCommands)
	ask := doc.Rules(domain.FamilyAskCommands)

	var pending *domain.Verdict
	var suspicious *domain.Fragment
	remember := func(v domain.Verdict) {
		if pending == nil {
			pending = &v
		}
	}

	for i := range fragments {
		f := fragments[i]

		for _, rule := range blocked {
			hit, err := matchFragment(rule, f)
			if !hit {
				continue
			}
			v := commandVerdict(rule, f, err)
			if v.Decision == domain.DecisionBlock {
				return v
			}
			remember(v)
		}

		if v, ok := e.checkReferences(f, workDir, doc); ok {
			if v.Decision == domain.DecisionBlock {
				return v
			}
			remember(v)
		}

		if pending == nil {
			for _, rule := range ask {
				hit, err := matchFragment(rule, f)
				if hit {
					remember(commandVerdict(rule, f, err))
					break
				}
			}
		}

		if f.Suspicious && suspicious == nil {
			suspicious = &fragments[i]
		}
	}

	if suspicious != nil {
		return domain.Verdict{
			Decision:    domain.DecisionBlock,
			Explanation: fmt.Sprintf("unparseable or suspicious structure (%s): %q", suspicious.Note, suspicious.Text),
			Subject:     suspicious.Text,
		}
	}
	if pending != nil {
		return *pending
	}
	return domain.Verdict{Decision: domain.DecisionAllow}
}

// checkReferences classifies the paths a fragment touches and returns the
// most restrictive protected hit.
func (e *Engine) checkReferences(f domain.Fragment, workDir string, doc *domain.RuleDocument) (domain.Verdict, bool) {
	if f.Origin == domain.OriginCommandLine || f.Suspicious || e.Classifier == nil {
		return domain.Verdict{}, false
	}
	var found *domain.Verdict
	for _, ref := range pathReferences(f) {
		c := e.Classifier.Classify(doc, ref.Path, ref.Op, workDir)
		if !c.Protected {
			continue
		}
		v := pathVerdict(c, ref.Op)
		v.Explanation += fmt.Sprintf(" (from %q)", f.Text)
		if v.Decision == domain.DecisionBlock {
			return v, true
		}
		if found == nil {
			found = &v
		}
	}
	if found == nil {
		return domain.Verdict{}, false
	}
	return *found, true
}

// decideDeletionCommand evaluates a delete event whose text is a command
// line. Command rules and the referenced paths are checked as for execute;
// a command that names no path falls back to classifying the text itself.
func (e *Engine) decideDeletionCommand(text, workDir string, doc *domain.RuleDocument) domain.Verdict {
	v := e.decideCommand(text, workDir, doc)
	if v.Decision == domain.DecisionBlock {
		return v
	}
	for _, f := range e.Decomposer.Decompose(text) {
		if f.Origin != domain.OriginCommandLine && len(pathReferences(f)) > 0 {
			return v
		}
	}
	if p := e.decidePath(text, domain.ActionDelete, workDir, doc); p.Decision.Severity() > v.Decision.Severity() {
		return p
	}
	return v
}

func (e *Engine) decidePath(p string, op domain.ActionKind, workDir string, doc *domain.RuleDocument) domain.Verdict {
	if e.Classifier == nil {
		return domain.Verdict{Decision: domain.DecisionBlock, Explanation: "no path classifier configured"}
	}
	c := e.Classifier.Classify(doc, p, op, workDir)
	if !c.Protected {
		return domain.Verdict{Decision: domain.DecisionAllow, Subject: c.Path}
	}
	return pathVerdict(c, op)
}

// matchFragment tries every subject of the fragment. A matcher error is a
// hit.
func matchFragment(rule domain.Rule, f domain.Fragment) (bool, error) {
	if rule.Matcher == nil {
		return false, nil
	}
	for _, subject := range f.Subjects() {
		matched, err := rule.Matcher.Match(subject)
		if matched || err != nil {
			return true, err
		}
	}
	return false, nil
}

func commandVerdict(rule domain.Rule, f domain.Fragment, err error) domain.Verdict {
	ref := rule.Ref()
	label := "blocked"
	if rule.Family == domain.FamilyAskCommands {
		label = "ask"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "matched %s pattern %q (%s): %s", label, ref.Pattern, ref.Kind, ref.Reason)
	if f.Origin == domain.OriginCommand || f.Origin == domain.OriginCommandLine {
		fmt.Fprintf(&b, " in %q", f.Text)
	} else {
		fmt.Fprintf(&b, " in %s %q", f.Origin, f.Text)
	}
	if err != nil {
		fmt.Fprintf(&b, " (evaluation failed: %v)", err)
	}
	return domain.Verdict{
		Decision:    rule.Decision(),
		Rule:        &ref,
		Explanation: b.String(),
		Subject:     f.Text,
	}
}

func pathVerdict(c domain.Classification, op domain.ActionKind) domain.Verdict {
	if c.Rule == nil {
		return domain.Verdict{
			Decision:    domain.DecisionBlock,
			Explanation: fmt.Sprintf("%s %q denied: %v", operationLabel(op), c.Path, c.Err),
			Subject:     c.Path,
		}
	}
	ref := c.Rule.Ref()
	outcome := "denied"
	if c.Decision == domain.DecisionAsk {
		outcome = "needs confirmation"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %q %s: matches %s pattern %q (%s): %s",
		operationLabel(op), c.Path, outcome, ref.Family, ref.Pattern, ref.Kind, ref.Reason)
	if c.Err != nil {
		fmt.Fprintf(&b, " (evaluation failed: %v)", c.Err)
	}
	return domain.Verdict{
		Decision:    c.Decision,
		Rule:        &ref,
		Explanation: b.String(),
		Subject:     c.Path,
	}
}

func operationLabel(op domain.ActionKind) string {
	switch op {
	case domain.ActionDelete:
		return "delete of"
	case domain.ActionRead:
		return "read of"
	default:
		return "write to"
	}
}
