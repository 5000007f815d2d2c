// Package policy loads and validates the declarative rule document.
//
// A document is compiled eagerly: every pattern must be well formed for its
// declared kind, and a single bad entry fails the whole load. There is no
// partially loaded policy.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/pkg/filesystem"
)

// Option tunes how a document is compiled.
type Option func(*options)

type options struct {
	matchBudget int
	homeDir     string
}

// WithMatchBudget sets the largest subject a matcher evaluates before it
// reports ErrEvaluationTimeout. Zero or less disables the budget.
func WithMatchBudget(limit int) Option {
	return func(o *options) { o.matchBudget = limit }
}

// WithHomeDir sets the directory ~ expands to in path patterns.
func WithHomeDir(home string) Option {
	return func(o *options) { o.homeDir = home }
}

func buildOptions(opts []Option) options {
	o := options{matchBudget: domain.DefaultMaxMatchInput}
	for _, opt := range opts {
		opt(&o)
	}
	if o.homeDir == "" {
		o.homeDir = filesystem.UserHomeDir()
	}
	return o
}

// entry is the on-disk shape of one rule.
type entry struct {
	Pattern string
	Kind    string
	Reason  string
	Ask     bool
}

var entryKeys = map[string]bool{"pattern": true, "kind": true, "reason": true, "ask": true}

// Parse decodes and compiles a rule document. YAML and JSON are both
// accepted. source is only used in error messages.
func Parse(data []byte, source string, opts ...Option) (*domain.RuleDocument, error) {
	o := buildOptions(opts)

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Source: source, Index: -1, Err: err}
	}

	rules := make(map[domain.RuleFamily][]domain.Rule)
	top := &root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	if top.Kind == 0 || (top.Kind == yaml.ScalarNode && top.Tag == "!!null") {
		return domain.NewRuleDocument(source, rules), nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ConfigError{Source: source, Line: top.Line, Index: -1, Err: errors.New("top level must be a mapping of rule families")}
	}

	seen := make(map[domain.RuleFamily]bool)
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		family, ok := domain.ParseRuleFamily(key.Value)
		if !ok {
			return nil, &ConfigError{Source: source, Line: key.Line, Index: -1, Err: fmt.Errorf("unknown key %q", key.Value)}
		}
		if seen[family] {
			return nil, &ConfigError{Source: source, Family: family, Line: key.Line, Index: -1, Err: errors.New("family declared twice")}
		}
		seen[family] = true

		list, err := parseFamily(source, family, value, o)
		if err != nil {
			return nil, err
		}
		rules[family] = list
	}

	return domain.NewRuleDocument(source, rules), nil
}

func parseFamily(source string, family domain.RuleFamily, node *yaml.Node, o options) ([]domain.Rule, error) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &ConfigError{Source: source, Family: family, Line: node.Line, Index: -1, Err: errors.New("must be a list of entries")}
	}

	list := make([]domain.Rule, 0, len(node.Content))
	for idx, item := range node.Content {
		e, err := decodeEntry(item)
		if err != nil {
			return nil, &ConfigError{Source: source, Family: family, Index: idx, Line: item.Line, Err: err}
		}
		rule, err := compileRule(family, idx, item.Line, e, o)
		if err != nil {
			return nil, &ConfigError{Source: source, Family: family, Index: idx, Line: item.Line, Pattern: e.Pattern, Err: err}
		}
		list = append(list, rule)
	}
	return list, nil
}

func decodeEntry(item *yaml.Node) (entry, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		return entry{Pattern: item.Value}, nil
	case yaml.MappingNode:
	default:
		return entry{}, errors.New("entry must be a pattern string or a mapping")
	}

	var e entry
	for i := 0; i+1 < len(item.Content); i += 2 {
		key, value := item.Content[i], item.Content[i+1]
		if !entryKeys[key.Value] {
			return entry{}, fmt.Errorf("unknown field %q", key.Value)
		}
		var err error
		switch key.Value {
		case "pattern":
			err = value.Decode(&e.Pattern)
		case "kind":
			err = value.Decode(&e.Kind)
		case "reason":
			err = value.Decode(&e.Reason)
		case "ask":
			err = value.Decode(&e.Ask)
		}
		if err != nil {
			return entry{}, fmt.Errorf("field %q: %w", key.Value, err)
		}
	}
	return e, nil
}

func compileRule(family domain.RuleFamily, idx, line int, e entry, o options) (domain.Rule, error) {
	if strings.TrimSpace(e.Pattern) == "" {
		return domain.Rule{}, errors.New("pattern must not be empty")
	}

	kind := defaultKind(family)
	if e.Kind != "" {
		parsed, ok := domain.ParseMatcherKind(e.Kind)
		if !ok {
			return domain.Rule{}, fmt.Errorf("unknown kind %q (want literal|glob|regex)", e.Kind)
		}
		kind = parsed
	}

	rule := domain.Rule{
		Family:  family,
		Index:   idx,
		Line:    line,
		Pattern: e.Pattern,
		Kind:    kind,
		Reason:  strings.TrimSpace(e.Reason),
		Ask:     e.Ask,
	}

	var err error
	if family.IsCommandFamily() {
		rule.Matcher, err = compileCommandMatcher(kind, e.Pattern, o.matchBudget)
	} else {
		rule.Pattern = normalizePathPattern(kind, e.Pattern, o.homeDir)
		rule.Matcher, err = compilePathMatcher(kind, rule.Pattern, o.matchBudget)
	}
	if err != nil {
		return domain.Rule{}, err
	}
	return rule, nil
}

// defaultKind applies when an entry omits kind: command patterns are
// literal substrings, path patterns are globs.
func defaultKind(family domain.RuleFamily) domain.MatcherKind {
	if family.IsCommandFamily() {
		return domain.MatchLiteral
	}
	return domain.MatchGlob
}
