// Package pathclass decides whether a file path falls under a protected
// path family.
package pathclass

import (
	"fmt"
	"path"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
	"github.com/doeshing/agentguard/internal/pkg/filesystem"
)

// Classifier canonicalizes paths and matches them against the path
// families of a rule document.
type Classifier struct {
	Home string
}

// New returns a classifier that expands ~ to home. An empty home uses the
// current user's home directory.
func New(home string) *Classifier {
	if home == "" {
		home = filesystem.UserHomeDir()
	}
	return &Classifier{Home: home}
}

// Classify checks p for the given operation. Within a family the first
// matching rule wins; across families the most restrictive decision wins.
// An empty path or an operation without path families is never protected.
// A path deeper than domain.MaxPathSegments is blocked without matching.
func (c *Classifier) Classify(doc *domain.RuleDocument, p string, op domain.ActionKind, workDir string) domain.Classification {
	canonical := c.Canonical(p, workDir)
	result := domain.Classification{Path: canonical, Decision: domain.DecisionAllow}
	families := domain.PathFamiliesFor(op)
	if canonical == "" || len(families) == 0 {
		return result
	}

	cands := newCandidates(canonical, c.Canonical(p, ""))
	if n := len(cands.segments); n > domain.MaxPathSegments {
		result.Protected = true
		result.Decision = domain.DecisionBlock
		result.Err = fmt.Errorf("path has %d segments, more than %d", n, domain.MaxPathSegments)
		return result
	}
	for _, family := range families {
		for _, rule := range doc.PathRules(family) {
			matched, err := cands.match(rule)
			if !matched {
				continue
			}
			decision := rule.Decision()
			if !result.Protected || decision.Severity() > result.Decision.Severity() {
				r := rule
				result.Protected = true
				result.Decision = decision
				result.Rule = &r
				result.Err = err
			}
			break
		}
	}
	return result
}

// Canonical returns the normalized absolute (or, without a workDir,
// cleaned relative) form of p: forward slashes, ~ and $HOME expanded,
// dot segments resolved.
func (c *Classifier) Canonical(p, workDir string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = c.expand(strings.ReplaceAll(p, `\`, "/"))
	if !isAbs(p) && workDir != "" {
		p = path.Join(c.expand(strings.ReplaceAll(workDir, `\`, "/")), p)
	}
	return path.Clean(p)
}

func (c *Classifier) expand(p string) string {
	home := strings.TrimSuffix(strings.ReplaceAll(c.Home, `\`, "/"), "/")
	for _, prefix := range []string{"~", "$HOME", "${HOME}"} {
		if p == prefix {
			return home
		}
		if strings.HasPrefix(p, prefix+"/") {
			return home + p[len(prefix):]
		}
	}
	return p
}

func isAbs(p string) bool {
	if strings.HasPrefix(p, "/") {
		return true
	}
	// C:/ style drive paths.
	return len(p) >= 3 && p[1] == ':' && p[2] == '/'
}

// candidates are the strings a path rule may match for one canonical path.
// Prefixes and windows are substrings of trimmed addressed by segment
// offsets, so nothing is built until a rule asks for it.
type candidates struct {
	full  string
	given string
	// trimmed is full without leading or trailing slashes.
	trimmed  string
	rooted   bool
	drive    bool
	segments []string
	ends     []int
}

func newCandidates(canonical, given string) candidates {
	c := candidates{
		full:    canonical,
		given:   given,
		trimmed: strings.Trim(canonical, "/"),
		rooted:  strings.HasPrefix(canonical, "/"),
	}
	c.drive = !c.rooted && isAbs(canonical)
	if c.trimmed == "" {
		return c
	}
	c.segments = strings.Split(c.trimmed, "/")
	c.ends = make([]int, len(c.segments))
	offset := 0
	for i, seg := range c.segments {
		offset += len(seg)
		c.ends[i] = offset
		offset++
	}
	return c
}

func (c candidates) start(i int) int {
	if i == 0 {
		return 0
	}
	return c.ends[i-1] + 1
}

// match applies the rule to the candidate set that fits its shape.
// Anchored patterns see root prefixes, floating patterns with a slash see
// every run of whole segments, bare names see single segments and regexes
// see the full path and the path as given.
func (c candidates) match(rule domain.Rule) (bool, error) {
	if rule.Matcher == nil {
		return false, nil
	}
	switch {
	case rule.Kind == domain.MatchRegex:
		if matched, err := rule.Matcher.Match(c.full); matched {
			return true, err
		}
		if c.given != "" && c.given != c.full {
			return rule.Matcher.Match(c.given)
		}
		return false, nil
	case rule.Anchored() || isAbs(rule.Pattern):
		if !c.rooted && !c.drive {
			return false, nil
		}
		if c.rooted {
			if matched, err := rule.Matcher.Match("/"); matched {
				return true, err
			}
		}
		for _, end := range c.ends {
			s := c.trimmed[:end]
			if c.rooted {
				s = c.full[:end+1]
			}
			if matched, err := rule.Matcher.Match(s); matched {
				return true, err
			}
		}
	case strings.Contains(rule.Pattern, "/"):
		for i := range c.segments {
			from := c.start(i)
			for _, end := range c.ends[i:] {
				if matched, err := rule.Matcher.Match(c.trimmed[from:end]); matched {
					return true, err
				}
			}
		}
	default:
		for _, seg := range c.segments {
			if matched, err := rule.Matcher.Match(seg); matched {
				return true, err
			}
		}
	}
	return false, nil
}
