package helpers

import (
	"sort"

	"github.com/doeshing/agentguard/internal/domain"
)

// RuleStatistic counts how often one rule fired.
type RuleStatistic struct {
	Rule  string
	Count int
}

// DecisionStats summarizes a slice of decision records.
type DecisionStats struct {
	Total      int
	ByDecision map[domain.Decision]int
	ByKind     map[domain.ActionKind]int
	TopRules   []RuleStatistic
	// AvgMicros is the mean evaluation time.
	AvgMicros int64
}

// AnalyzeDecisions computes counts per decision and kind plus the most
// frequently matched rules.
func AnalyzeDecisions(records []domain.DecisionRecord, topN int) DecisionStats {
	stats := DecisionStats{
		Total:      len(records),
		ByDecision: make(map[domain.Decision]int),
		ByKind:     make(map[domain.ActionKind]int),
	}
	ruleFreq := make(map[string]int)
	var totalMicros int64
	for _, rec := range records {
		stats.ByDecision[rec.Decision]++
		stats.ByKind[rec.Kind]++
		if rec.Rule != "" {
			ruleFreq[rec.Rule]++
		}
		totalMicros += rec.DurationMicros
	}
	if len(records) > 0 {
		stats.AvgMicros = totalMicros / int64(len(records))
	}
	stats.TopRules = TopRules(ruleFreq, topN)
	return stats
}

// TopRules returns the limit most frequent rules, ties broken by name.
// A limit of zero or less returns all of them.
func TopRules(frequency map[string]int, limit int) []RuleStatistic {
	out := make([]RuleStatistic, 0, len(frequency))
	for rule, count := range frequency {
		out = append(out, RuleStatistic{Rule: rule, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Rule < out[j].Rule
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		return out[:limit]
	}
	return out
}

// Percent returns part as a percentage of total.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
