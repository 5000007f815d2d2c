package policy

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"github.com/doeshing/agentguard/internal/domain"
)

// compiledMatcher wraps one compiled pattern behind the evaluation budget.
type compiledMatcher struct {
	limit int
	match func(string) bool
}

// Match implements domain.Matcher. Subjects over the budget and panics
// during evaluation both report a match together with ErrEvaluationTimeout.
func (m compiledMatcher) Match(subject string) (matched bool, err error) {
	if m.limit > 0 && len(subject) > m.limit {
		return true, fmt.Errorf("%w: subject of %d bytes exceeds %d", ErrEvaluationTimeout, len(subject), m.limit)
	}
	defer func() {
		if r := recover(); r != nil {
			matched = true
			err = fmt.Errorf("%w: %v", ErrEvaluationTimeout, r)
		}
	}()
	return m.match(subject), nil
}

// compileCommandMatcher builds a matcher over whole command fragments.
// Literals match as substrings, globs must cover the whole fragment and
// regexes search anywhere in it.
func compileCommandMatcher(kind domain.MatcherKind, pattern string, limit int) (domain.Matcher, error) {
	switch kind {
	case domain.MatchLiteral:
		return compiledMatcher{limit: limit, match: func(s string) bool {
			return strings.Contains(s, pattern)
		}}, nil
	case domain.MatchGlob:
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob: %w", err)
		}
		return compiledMatcher{limit: limit, match: g.Match}, nil
	case domain.MatchRegex:
		re, err := compileRegex(pattern)
		if err != nil {
			return nil, err
		}
		return compiledMatcher{limit: limit, match: re.MatchString}, nil
	default:
		return nil, fmt.Errorf("unknown matcher kind %q", kind)
	}
}

// compilePathMatcher builds a matcher over path candidates produced by the
// classifier. Literals compare for equality, globs treat '/' as separator,
// regexes search the canonical path.
func compilePathMatcher(kind domain.MatcherKind, pattern string, limit int) (domain.Matcher, error) {
	switch kind {
	case domain.MatchLiteral:
		return compiledMatcher{limit: limit, match: func(s string) bool {
			return s == pattern
		}}, nil
	case domain.MatchGlob:
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("glob: %w", err)
		}
		base, ok := strings.CutSuffix(pattern, "/**")
		if !ok || base == "" {
			return compiledMatcher{limit: limit, match: g.Match}, nil
		}
		// dir/** also covers dir itself.
		dir, err := glob.Compile(base, '/')
		if err != nil {
			return nil, fmt.Errorf("glob: %w", err)
		}
		return compiledMatcher{limit: limit, match: func(s string) bool {
			return g.Match(s) || dir.Match(s)
		}}, nil
	case domain.MatchRegex:
		re, err := compileRegex(pattern)
		if err != nil {
			return nil, err
		}
		return compiledMatcher{limit: limit, match: re.MatchString}, nil
	default:
		return nil, fmt.Errorf("unknown matcher kind %q", kind)
	}
}

func compileRegex(pattern string) (*regexp.Regexp, error) {
	if len(pattern) > domain.MaxRegexLength {
		return nil, fmt.Errorf("regex pattern too long (%d > %d chars)", len(pattern), domain.MaxRegexLength)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("regex: %w", err)
	}
	return re, nil
}

// normalizePathPattern applies the same canonical form the classifier
// applies to paths: forward slashes, ~ expanded, no trailing slash.
func normalizePathPattern(kind domain.MatcherKind, pattern, home string) string {
	if kind == domain.MatchRegex {
		return pattern
	}
	p := strings.ReplaceAll(strings.TrimSpace(pattern), `\`, "/")
	switch {
	case p == "~":
		p = home
	case strings.HasPrefix(p, "~/"):
		p = strings.TrimSuffix(home, "/") + p[1:]
	}
	if p == "/" {
		return p
	}
	return path.Clean(p)
}
