// Package shellparse splits a shell command line into every fragment that
// could independently reach the operating system. It never executes or
// expands anything; unexpanded variables stay in the fragment text.
package shellparse

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/doeshing/agentguard/internal/domain"
)

// Decomposer walks the bash syntax tree of a command line.
type Decomposer struct {
	MaxDepth     int
	MaxFragments int
}

// New returns a decomposer with the given bounds. Non-positive values fall
// back to the defaults.
func New(maxDepth, maxFragments int) *Decomposer {
	if maxDepth <= 0 {
		maxDepth = domain.DefaultMaxDepth
	}
	if maxFragments <= 0 {
		maxFragments = domain.DefaultMaxFragments
	}
	return &Decomposer{MaxDepth: maxDepth, MaxFragments: maxFragments}
}

// Decompose returns the ordered fragments of command. It never fails: input
// it cannot parse is split conservatively and the whole line is always
// evaluated too. Empty input yields no fragments.
func (d *Decomposer) Decompose(command string) []domain.Fragment {
	line := strings.TrimSpace(command)
	if line == "" {
		return nil
	}
	w := &walker{maxDepth: d.MaxDepth, maxFragments: d.MaxFragments}
	if w.maxDepth <= 0 {
		w.maxDepth = domain.DefaultMaxDepth
	}
	if w.maxFragments <= 0 {
		w.maxFragments = domain.DefaultMaxFragments
	}
	w.script(line, 0, domain.OriginCommand)

	if len(w.out) > 1 {
		w.out = append(w.out, domain.Fragment{
			Text:   collapseSpace(line),
			Raw:    line,
			Origin: domain.OriginCommandLine,
		})
	}
	return w.out
}

type walker struct {
	maxDepth     int
	maxFragments int
	out          []domain.Fragment
	overflow     bool
}

func newParser() *syntax.Parser {
	return syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
}

// script parses src as a standalone shell program.
func (w *walker) script(src string, depth int, origin domain.Origin) {
	if w.overflow {
		return
	}
	if depth > w.maxDepth {
		w.suspicious(src, depth, fmt.Sprintf("nesting deeper than %d levels", w.maxDepth))
		return
	}
	file, err := newParser().Parse(strings.NewReader(src), "")
	if err != nil {
		w.fallback(src, depth, origin, err)
		return
	}
	w.stmts(src, file.Stmts, depth, origin)
}

func (w *walker) stmts(src string, list []*syntax.Stmt, depth int, origin domain.Origin) {
	if len(list) == 0 || w.overflow {
		return
	}
	if depth > w.maxDepth {
		raw := slice(src, list[0].Pos(), list[len(list)-1].End())
		w.suspicious(raw, depth, fmt.Sprintf("nesting deeper than %d levels", w.maxDepth))
		return
	}
	if len(list) > 1 && origin == domain.OriginCommand {
		origin = domain.OriginSequence
	}
	for _, s := range list {
		w.stmt(src, s, depth, origin)
	}
}

func (w *walker) stmt(src string, s *syntax.Stmt, depth int, origin domain.Origin) {
	if s == nil || w.overflow {
		return
	}
	switch cmd := s.Cmd.(type) {
	case nil:
		// Bare redirection such as "> file".
		raw := stmtRaw(src, s)
		w.emit(domain.Fragment{
			Text:      collapseSpace(raw),
			Raw:       raw,
			Origin:    origin,
			Redirects: redirects(src, s.Redirs),
			Depth:     depth,
		})
		w.substitutions(src, s, depth)
		return
	case *syntax.CallExpr:
		w.call(src, s, cmd, depth, origin)
		return
	case *syntax.BinaryCmd:
		next := origin
		switch cmd.Op {
		case syntax.AndStmt:
			next = domain.OriginAnd
		case syntax.OrStmt:
			next = domain.OriginOr
		case syntax.Pipe, syntax.PipeAll:
			next = domain.OriginPipeline
		}
		w.stmt(src, cmd.X, depth, next)
		w.stmt(src, cmd.Y, depth, next)
	case *syntax.Subshell:
		w.stmts(src, cmd.Stmts, depth+1, domain.OriginSubshell)
	case *syntax.Block:
		w.stmts(src, cmd.Stmts, depth, origin)
	case *syntax.IfClause:
		for clause := cmd; clause != nil; clause = clause.Else {
			w.stmts(src, clause.Cond, depth, origin)
			w.stmts(src, clause.Then, depth, origin)
		}
	case *syntax.WhileClause:
		w.stmts(src, cmd.Cond, depth, origin)
		w.stmts(src, cmd.Do, depth, origin)
	case *syntax.ForClause:
		if cmd.Loop != nil {
			w.substitutions(src, cmd.Loop, depth)
		}
		w.stmts(src, cmd.Do, depth, origin)
	case *syntax.CaseClause:
		if cmd.Word != nil {
			w.substitutions(src, cmd.Word, depth)
		}
		for _, item := range cmd.Items {
			w.stmts(src, item.Stmts, depth, origin)
		}
	case *syntax.FuncDecl:
		w.stmt(src, cmd.Body, depth, origin)
	case *syntax.TimeClause:
		w.stmt(src, cmd.Stmt, depth, origin)
	case *syntax.CoprocClause:
		w.stmt(src, cmd.Stmt, depth, origin)
	default:
		// declare, let, (( )), [[ ]]: evaluated as written.
		raw := stmtRaw(src, s)
		w.emit(domain.Fragment{
			Text:      collapseSpace(raw),
			Raw:       raw,
			Origin:    origin,
			Redirects: redirects(src, s.Redirs),
			Depth:     depth,
		})
		w.substitutions(src, s, depth)
		return
	}

	// Redirections attached to a compound command apply to all of it.
	if len(s.Redirs) > 0 {
		raw := stmtRaw(src, s)
		w.emit(domain.Fragment{
			Text:      collapseSpace(raw),
			Raw:       raw,
			Origin:    origin,
			Redirects: redirects(src, s.Redirs),
			Depth:     depth,
		})
		for _, r := range s.Redirs {
			w.substitutions(src, r, depth)
		}
	}
}

func (w *walker) call(src string, s *syntax.Stmt, call *syntax.CallExpr, depth int, origin domain.Origin) {
	args := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		args = append(args, wordValue(src, word))
	}
	raw := stmtRaw(src, s)
	text := strings.Join(args, " ")
	if len(args) == 0 {
		// Assignments only: FOO=$(...)
		text = collapseSpace(raw)
	}
	w.emit(domain.Fragment{
		Text:      text,
		Raw:       raw,
		Origin:    origin,
		Args:      args,
		Redirects: redirects(src, s.Redirs),
		Depth:     depth,
	})
	w.substitutions(src, s, depth)
	if len(args) == 0 {
		return
	}

	args = w.unwrap(args, depth)
	if script, ok := shellScript(args); ok {
		w.script(script, depth+1, domain.OriginNestedShell)
		return
	}
	if isShell(args[0]) {
		for _, body := range heredocBodies(src, s.Redirs) {
			w.script(body, depth+1, domain.OriginNestedShell)
		}
	}
}

// unwrap emits the command hidden behind path qualification or wrapper
// programs and returns the innermost argument list.
func (w *walker) unwrap(args []string, depth int) []string {
	for guard := 0; guard < maxUnwrap && len(args) > 0 && !w.overflow; guard++ {
		if base := commandName(args[0]); base != args[0] {
			args = append([]string{base}, args[1:]...)
			w.emit(domain.Fragment{
				Text:   strings.Join(args, " "),
				Origin: domain.OriginWrapper,
				Args:   args,
				Depth:  depth,
				Note:   "path-qualified command",
			})
		}
		for _, inner := range findExec(args) {
			w.emit(domain.Fragment{
				Text:   strings.Join(inner, " "),
				Origin: domain.OriginWrapper,
				Args:   inner,
				Depth:  depth,
				Note:   "find -exec",
			})
			if script, ok := shellScript(inner); ok {
				w.script(script, depth+1, domain.OriginNestedShell)
			}
		}
		inner, ok := stripWrapper(args)
		if !ok {
			break
		}
		args = inner
		w.emit(domain.Fragment{
			Text:   strings.Join(args, " "),
			Origin: domain.OriginWrapper,
			Args:   args,
			Depth:  depth,
		})
	}
	return args
}

// substitutions descends into every $(...), `...`, <(...) and >(...) under
// node. Each body is one level deeper.
func (w *walker) substitutions(src string, node syntax.Node, depth int) {
	syntax.Walk(node, func(n syntax.Node) bool {
		if w.overflow {
			return false
		}
		switch n := n.(type) {
		case *syntax.CmdSubst:
			w.stmts(src, n.Stmts, depth+1, domain.OriginSubstitution)
			return false
		case *syntax.ProcSubst:
			w.stmts(src, n.Stmts, depth+1, domain.OriginSubstitution)
			return false
		}
		return true
	})
}

func (w *walker) emit(f domain.Fragment) {
	if w.overflow {
		return
	}
	if len(w.out) >= w.maxFragments {
		w.overflow = true
		w.out = append(w.out, domain.Fragment{
			Text:       collapseSpace(f.Raw + " " + f.Text),
			Raw:        f.Raw,
			Origin:     domain.OriginUnparseable,
			Depth:      f.Depth,
			Suspicious: true,
			Note:       fmt.Sprintf("more than %d fragments", w.maxFragments),
		})
		return
	}
	w.out = append(w.out, f)
}

func (w *walker) suspicious(raw string, depth int, note string) {
	if w.overflow {
		return
	}
	w.out = append(w.out, domain.Fragment{
		Text:       collapseSpace(raw),
		Raw:        raw,
		Origin:     domain.OriginUnparseable,
		Depth:      depth,
		Suspicious: true,
		Note:       note,
	})
}

// fallback handles input the parser rejected: a quote aware split on the
// compounding operators, each piece evaluated as its own fragment.
func (w *walker) fallback(src string, depth int, origin domain.Origin, cause error) {
	note := "parse error: " + cause.Error()
	parts := splitCompound(src)
	for _, part := range parts {
		args := splitWords(part)
		w.emit(domain.Fragment{
			Text:   strings.Join(args, " "),
			Raw:    part,
			Origin: origin,
			Args:   args,
			Depth:  depth,
			Note:   note,
		})
		if len(args) > 0 {
			w.unwrap(args, depth)
		}
	}
	if depth > 0 && len(parts) != 1 {
		w.emit(domain.Fragment{
			Text:   collapseSpace(src),
			Raw:    src,
			Origin: origin,
			Depth:  depth,
			Note:   note,
		})
	}
}

func redirects(src string, redirs []*syntax.Redirect) []domain.Redirect {
	var out []domain.Redirect
	for _, r := range redirs {
		if r.Word == nil {
			continue
		}
		target := wordValue(src, r.Word)
		var op domain.RedirectOp
		switch r.Op {
		case syntax.RdrOut, syntax.AppOut, syntax.ClbOut, syntax.RdrAll, syntax.AppAll, syntax.RdrInOut:
			op = domain.RedirectWrite
		case syntax.RdrIn:
			op = domain.RedirectRead
		case syntax.DplOut:
			// >&file is a write; >&2 and >&- are descriptor juggling.
			if target == "-" || isDigits(target) {
				continue
			}
			op = domain.RedirectWrite
		default:
			continue
		}
		out = append(out, domain.Redirect{Op: op, Target: target})
	}
	return out
}

// heredocBodies returns the script text fed through << and <<<.
func heredocBodies(src string, redirs []*syntax.Redirect) []string {
	var out []string
	for _, r := range redirs {
		switch r.Op {
		case syntax.Hdoc, syntax.DashHdoc:
			if r.Hdoc != nil && len(r.Hdoc.Parts) > 0 {
				out = append(out, slice(src, r.Hdoc.Pos(), r.Hdoc.End()))
			}
		case syntax.WordHdoc:
			if r.Word != nil {
				out = append(out, wordValue(src, r.Word))
			}
		}
	}
	return out
}

// stmtRaw is the statement source without its trailing ; or &.
func stmtRaw(src string, s *syntax.Stmt) string {
	end := s.End()
	if s.Semicolon.IsValid() {
		end = s.Semicolon
	}
	return slice(src, s.Pos(), end)
}

func slice(src string, from, to syntax.Pos) string {
	start, end := int(from.Offset()), int(to.Offset())
	if start < 0 || start > len(src) {
		return ""
	}
	if end > len(src) || end < start {
		end = len(src)
	}
	return strings.TrimSpace(src[start:end])
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
