package domain

// Decision enumerates verdict outcomes.
type Decision string

const (
	DecisionAllow Decision = "allow"
	DecisionAsk   Decision = "ask"
	DecisionBlock Decision = "block"
)

// Severity orders decisions so that block > ask > allow.
func (d Decision) Severity() int {
	switch d {
	case DecisionBlock:
		return 2
	case DecisionAsk:
		return 1
	default:
		return 0
	}
}

// MoreRestrictive returns whichever of the two decisions is stricter.
func MoreRestrictive(a, b Decision) Decision {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

// RuleRef identifies the rule that produced a verdict.
type RuleRef struct {
	Family  RuleFamily  `json:"family"`
	Index   int         `json:"index"`
	Line    int         `json:"line,omitempty"`
	Pattern string      `json:"pattern"`
	Kind    MatcherKind `json:"kind"`
	Reason  string      `json:"reason,omitempty"`
	Ask     bool        `json:"ask,omitempty"`
}

// Verdict is the engine's answer for one action event.
type Verdict struct {
	Decision    Decision `json:"decision"`
	Rule        *RuleRef `json:"matchedRule,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	// Subject is the fragment or canonical path that triggered the rule.
	Subject string `json:"subject,omitempty"`
}

// Allowed reports whether the verdict lets the action through untouched.
func (v Verdict) Allowed() bool {
	return v.Decision == DecisionAllow || v.Decision == ""
}
