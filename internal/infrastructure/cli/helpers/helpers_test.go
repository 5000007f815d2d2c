package helpers

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/agentguard/internal/domain"
)

func TestAnalyzeDecisions(t *testing.T) {
	records := []domain.DecisionRecord{
		{Kind: domain.ActionExecute, Decision: domain.DecisionBlock, Rule: "blockedCommandPatterns: rm -rf", DurationMicros: 30},
		{Kind: domain.ActionExecute, Decision: domain.DecisionBlock, Rule: "blockedCommandPatterns: rm -rf", DurationMicros: 10},
		{Kind: domain.ActionWriteOrEdit, Decision: domain.DecisionAsk, Rule: "readOnlyPaths: .git", DurationMicros: 20},
		{Kind: domain.ActionExecute, Decision: domain.DecisionAllow, DurationMicros: 20},
	}
	stats := AnalyzeDecisions(records, 5)
	if stats.Total != 4 || stats.AvgMicros != 20 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.ByDecision[domain.DecisionBlock] != 2 || stats.ByKind[domain.ActionExecute] != 3 {
		t.Fatalf("unexpected distribution: %+v", stats)
	}
	want := []RuleStatistic{
		{Rule: "blockedCommandPatterns: rm -rf", Count: 2},
		{Rule: "readOnlyPaths: .git", Count: 1},
	}
	if diff := cmp.Diff(want, stats.TopRules); diff != "" {
		t.Fatalf("top rules mismatch (-want +got):\n%s", diff)
	}
}

func TestTopRulesLimit(t *testing.T) {
	got := TopRules(map[string]int{"b": 1, "a": 1, "c": 3}, 2)
	want := []RuleStatistic{{Rule: "c", Count: 3}, {Rule: "a", Count: 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecisionLabel(t *testing.T) {
	if got := DecisionLabel(domain.DecisionAsk, false); got != "ASK" {
		t.Fatalf("plain label = %q", got)
	}
	if got := DecisionLabel(domain.DecisionBlock, true); got != ansiRed+"BLOCK"+ansiReset {
		t.Fatalf("colored label = %q", got)
	}
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatalf("buffer reported as terminal")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefghij", 6, "abc..."},
		{"abcdef", 2, "ab"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
