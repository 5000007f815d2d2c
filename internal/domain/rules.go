package domain

import "strings"

// MatcherKind tags how a rule pattern is interpreted.
type MatcherKind string

const (
	MatchLiteral MatcherKind = "literal"
	MatchGlob    MatcherKind = "glob"
	MatchRegex   MatcherKind = "regex"
)

// ParseMatcherKind validates a kind string from the rule document.
func ParseMatcherKind(value string) (MatcherKind, bool) {
	switch MatcherKind(strings.ToLower(strings.TrimSpace(value))) {
	case MatchLiteral:
		return MatchLiteral, true
	case MatchGlob:
		return MatchGlob, true
	case MatchRegex, "regexp", "re":
		return MatchRegex, true
	default:
		return "", false
	}
}

// RuleFamily names one top-level list of the rule document.
type RuleFamily string

const (
	FamilyBlockedCommands RuleFamily = "blockedCommandPatterns"
	FamilyAskCommands     RuleFamily = "askCommandPatterns"
	FamilyZeroAccess      RuleFamily = "zeroAccessPaths"
	FamilyNoDelete        RuleFamily = "noDeletePaths"
	FamilyReadOnly        RuleFamily = "readOnlyPaths"
)

// RuleFamilies lists every family in document order.
var RuleFamilies = []RuleFamily{
	FamilyBlockedCommands,
	FamilyAskCommands,
	FamilyZeroAccess,
	FamilyNoDelete,
	FamilyReadOnly,
}

// ParseRuleFamily maps a document key to its family.
func ParseRuleFamily(key string) (RuleFamily, bool) {
	for _, family := range RuleFamilies {
		if string(family) == key {
			return family, true
		}
	}
	return "", false
}

// IsCommandFamily reports whether the family holds command patterns.
func (f RuleFamily) IsCommandFamily() bool {
	return f == FamilyBlockedCommands || f == FamilyAskCommands
}

// DefaultReason is used when a rule entry carries no reason of its own.
func (f RuleFamily) DefaultReason() string {
	switch f {
	case FamilyBlockedCommands:
		return "dangerous command"
	case FamilyAskCommands:
		return "command requires confirmation"
	case FamilyZeroAccess:
		return "path is off limits"
	case FamilyNoDelete:
		return "path must not be deleted"
	case FamilyReadOnly:
		return "path is read-only"
	default:
		return "policy rule"
	}
}

// PathFamiliesFor returns the path families that apply to an operation.
func PathFamiliesFor(kind ActionKind) []RuleFamily {
	switch kind {
	case ActionWriteOrEdit:
		return []RuleFamily{FamilyZeroAccess, FamilyReadOnly}
	case ActionDelete:
		return []RuleFamily{FamilyZeroAccess, FamilyNoDelete}
	case ActionRead:
		return []RuleFamily{FamilyZeroAccess}
	default:
		return nil
	}
}

// Matcher evaluates one compiled pattern. An error means the evaluation
// could not complete and callers must treat it as a match.
type Matcher interface {
	Match(subject string) (bool, error)
}

// Rule is one validated entry of the rule document.
type Rule struct {
	Family  RuleFamily
	Index   int
	Line    int
	Pattern string
	Kind    MatcherKind
	Reason  string
	Ask     bool
	Matcher Matcher
}

// Ref returns the serializable identity of the rule.
func (r Rule) Ref() RuleRef {
	reason := r.Reason
	if reason == "" {
		reason = r.Family.DefaultReason()
	}
	return RuleRef{
		Family:  r.Family,
		Index:   r.Index,
		Line:    r.Line,
		Pattern: r.Pattern,
		Kind:    r.Kind,
		Reason:  reason,
		Ask:     r.Ask,
	}
}

// Decision is the outcome a hit on this rule produces.
func (r Rule) Decision() Decision {
	if r.Ask || r.Family == FamilyAskCommands {
		return DecisionAsk
	}
	return DecisionBlock
}

// Anchored reports whether a path pattern is absolute.
func (r Rule) Anchored() bool {
	return strings.HasPrefix(r.Pattern, "/")
}

// RuleDocument is the validated policy in effect for a session. It is
// immutable once built; reloads produce a new value.
type RuleDocument struct {
	Source string
	rules  map[RuleFamily][]Rule
}

// NewRuleDocument builds a document from per-family rule lists. The slices
// are copied so later mutation by the caller cannot leak in.
func NewRuleDocument(source string, rules map[RuleFamily][]Rule) *RuleDocument {
	doc := &RuleDocument{Source: source, rules: make(map[RuleFamily][]Rule, len(rules))}
	for family, list := range rules {
		doc.rules[family] = append([]Rule(nil), list...)
	}
	return doc
}

// Rules returns the ordered rules of one family.
func (d *RuleDocument) Rules(family RuleFamily) []Rule {
	if d == nil {
		return nil
	}
	return d.rules[family]
}

// CommandRules returns blocked rules followed by ask rules.
func (d *RuleDocument) CommandRules() []Rule {
	blocked := d.Rules(FamilyBlockedCommands)
	ask := d.Rules(FamilyAskCommands)
	out := make([]Rule, 0, len(blocked)+len(ask))
	out = append(out, blocked...)
	return append(out, ask...)
}

// PathRules returns the ordered rules of a path family.
func (d *RuleDocument) PathRules(family RuleFamily) []Rule {
	if family.IsCommandFamily() {
		return nil
	}
	return d.Rules(family)
}

// Count returns the total number of rules across all families.
func (d *RuleDocument) Count() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, list := range d.rules {
		total += len(list)
	}
	return total
}
