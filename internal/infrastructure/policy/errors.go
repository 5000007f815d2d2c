package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
)

var (
	// ErrConfig marks every failure to load a rule document.
	ErrConfig = errors.New("invalid rule document")
	// ErrEvaluationTimeout is returned by a matcher that gave up on its
	// subject. Callers treat it as a match.
	ErrEvaluationTimeout = errors.New("matcher evaluation budget exceeded")
)

// ConfigError pinpoints the rule entry that made a load fail.
type ConfigError struct {
	Source  string
	Family  domain.RuleFamily
	Index   int
	Line    int
	Pattern string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("rule document")
	if e.Source != "" {
		b.WriteString(" ")
		b.WriteString(e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " line %d", e.Line)
	}
	if e.Family != "" {
		if e.Index >= 0 {
			fmt.Fprintf(&b, ": %s[%d]", e.Family, e.Index)
		} else {
			fmt.Fprintf(&b, ": %s", e.Family)
		}
	}
	if e.Pattern != "" {
		fmt.Fprintf(&b, " pattern %q", e.Pattern)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both ErrConfig and the underlying cause to errors.Is.
func (e *ConfigError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConfig}
	}
	return []error{ErrConfig, e.Err}
}
