package domain_test

import (
	"testing"

	"github.com/doeshing/agentguard/internal/domain"
)

func TestMoreRestrictive(t *testing.T) {
	tests := []struct {
		a, b, want domain.Decision
	}{
		{domain.DecisionAllow, domain.DecisionAsk, domain.DecisionAsk},
		{domain.DecisionAsk, domain.DecisionBlock, domain.DecisionBlock},
		{domain.DecisionBlock, domain.DecisionAsk, domain.DecisionBlock},
		{domain.DecisionAllow, domain.DecisionAllow, domain.DecisionAllow},
	}
	for _, tt := range tests {
		if got := domain.MoreRestrictive(tt.a, tt.b); got != tt.want {
			t.Errorf("MoreRestrictive(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestPathFamiliesFor(t *testing.T) {
	tests := []struct {
		kind domain.ActionKind
		want []domain.RuleFamily
	}{
		{domain.ActionWriteOrEdit, []domain.RuleFamily{domain.FamilyZeroAccess, domain.FamilyReadOnly}},
		{domain.ActionDelete, []domain.RuleFamily{domain.FamilyZeroAccess, domain.FamilyNoDelete}},
		{domain.ActionRead, []domain.RuleFamily{domain.FamilyZeroAccess}},
		{domain.ActionExecute, nil},
	}
	for _, tt := range tests {
		got := domain.PathFamiliesFor(tt.kind)
		if len(got) != len(tt.want) {
			t.Fatalf("PathFamiliesFor(%s) = %v, want %v", tt.kind, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("PathFamiliesFor(%s) = %v, want %v", tt.kind, got, tt.want)
			}
		}
	}
}

func TestRuleDecision(t *testing.T) {
	blocked := domain.Rule{Family: domain.FamilyBlockedCommands}
	if blocked.Decision() != domain.DecisionBlock {
		t.Fatalf("blocked rule decision = %s", blocked.Decision())
	}
	blocked.Ask = true
	if blocked.Decision() != domain.DecisionAsk {
		t.Fatalf("ask-downgraded blocked rule decision = %s", blocked.Decision())
	}
	ask := domain.Rule{Family: domain.FamilyAskCommands}
	if ask.Decision() != domain.DecisionAsk {
		t.Fatalf("ask rule decision = %s", ask.Decision())
	}
}

func TestRuleRefDefaultsReason(t *testing.T) {
	rule := domain.Rule{Family: domain.FamilyNoDelete, Pattern: "migrations/**", Kind: domain.MatchGlob}
	ref := rule.Ref()
	if ref.Reason != domain.FamilyNoDelete.DefaultReason() {
		t.Fatalf("Ref().Reason = %q", ref.Reason)
	}
}

func TestNewRuleDocumentCopiesInput(t *testing.T) {
	rules := map[domain.RuleFamily][]domain.Rule{
		domain.FamilyBlockedCommands: {{Family: domain.FamilyBlockedCommands, Pattern: "rm -rf"}},
		domain.FamilyAskCommands:     {{Family: domain.FamilyAskCommands, Pattern: "git push"}},
	}
	doc := domain.NewRuleDocument("test", rules)
	rules[domain.FamilyBlockedCommands][0].Pattern = "mutated"

	if got := doc.Rules(domain.FamilyBlockedCommands)[0].Pattern; got != "rm -rf" {
		t.Fatalf("document observed caller mutation: %q", got)
	}
	if got := doc.CommandRules(); len(got) != 2 || got[0].Family != domain.FamilyBlockedCommands {
		t.Fatalf("CommandRules() = %+v", got)
	}
	if doc.PathRules(domain.FamilyAskCommands) != nil {
		t.Fatal("PathRules must not return command families")
	}
	if doc.Count() != 2 {
		t.Fatalf("Count() = %d", doc.Count())
	}
}
