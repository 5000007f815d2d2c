package helpers

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/doeshing/agentguard/internal/domain"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// DecisionLabel renders a decision in upper case, colored when color is set.
func DecisionLabel(d domain.Decision, color bool) string {
	label := strings.ToUpper(string(d))
	switch d {
	case domain.DecisionBlock:
		return colorize(label, ansiRed, color)
	case domain.DecisionAsk:
		return colorize(label, ansiYellow, color)
	default:
		return colorize(label, ansiGreen, color)
	}
}

// StatusLabel renders a doctor status like the decision labels.
func StatusLabel(s domain.HealthStatus, color bool) string {
	switch s {
	case domain.HealthError:
		return colorize(strings.ToUpper(string(s)), ansiRed, color)
	case domain.HealthWarn:
		return colorize(strings.ToUpper(string(s)), ansiYellow, color)
	default:
		return colorize(strings.ToUpper(string(s)), ansiGreen, color)
	}
}

func colorize(text, code string, color bool) string {
	if !color {
		return text
	}
	return code + text + ansiReset
}

// Truncate shortens s to max runes with a trailing ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
