package decision

import (
	"path"
	"strings"

	"github.com/doeshing/agentguard/internal/domain"
)

// pathRef is one path a command touches and how it touches it.
type pathRef struct {
	Path string
	Op   domain.ActionKind
}

var deleteCommands = map[string]bool{
	"rm": true, "rmdir": true, "unlink": true, "shred": true, "srm": true, "trash": true, "trash-put": true,
}

var copyCommands = map[string]bool{
	"cp": true, "install": true, "ln": true, "rsync": true, "scp": true,
}

var createCommands = map[string]bool{
	"tee": true, "touch": true, "truncate": true, "mkdir": true,
}

var ownershipCommands = map[string]bool{
	"chmod": true, "chown": true, "chgrp": true,
}

// isDeletionCommandLine reports whether a delete event carries a command
// such as "rm x" instead of a bare path.
func isDeletionCommandLine(text string) bool {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return false
	}
	name := baseName(fields[0])
	return deleteCommands[name] || (name == "git" && fields[1] == "rm")
}

// pathReferences lists the paths a fragment reads, writes or deletes.
// Unknown commands have every operand treated as a read.
func pathReferences(f domain.Fragment) []pathRef {
	var refs []pathRef
	add := func(p string, op domain.ActionKind) {
		if skipTarget(p) {
			return
		}
		if op == domain.ActionRead && (strings.ContainsAny(p, " \t\n") || strings.Contains(p, "://")) {
			return
		}
		refs = append(refs, pathRef{Path: p, Op: op})
	}

	for _, r := range f.Redirects {
		if r.Op == domain.RedirectWrite {
			add(r.Target, domain.ActionWriteOrEdit)
		} else {
			add(r.Target, domain.ActionRead)
		}
	}
	if len(f.Args) == 0 {
		return refs
	}

	name := baseName(f.Args[0])
	args := f.Args[1:]
	if name == "git" && len(args) > 0 && args[0] == "rm" {
		name, args = "git rm", args[1:]
	}
	ops := operands(args)

	switch {
	case deleteCommands[name] || name == "git rm":
		for _, p := range ops {
			add(p, domain.ActionDelete)
		}
	case name == "mv":
		for i, p := range ops {
			if i == len(ops)-1 && len(ops) > 1 {
				add(p, domain.ActionWriteOrEdit)
			} else {
				add(p, domain.ActionDelete)
			}
		}
	case copyCommands[name]:
		for i, p := range ops {
			if i == len(ops)-1 && len(ops) > 1 {
				add(p, domain.ActionWriteOrEdit)
			} else {
				add(p, domain.ActionRead)
			}
		}
	case createCommands[name]:
		for _, p := range operands(skipValues(args, "-s", "--size", "-m", "--mode", "-r", "--reference")) {
			add(p, domain.ActionWriteOrEdit)
		}
	case ownershipCommands[name]:
		for i, p := range operands(skipValues(args, "--reference")) {
			if i == 0 {
				continue
			}
			add(p, domain.ActionWriteOrEdit)
		}
	case name == "find":
		findReferences(args, add)
	case name == "sed" || name == "perl":
		inPlaceReferences(name, args, add)
	case name == "dd":
		for _, a := range args {
			if v, ok := strings.CutPrefix(a, "of="); ok {
				add(v, domain.ActionWriteOrEdit)
			} else if v, ok := strings.CutPrefix(a, "if="); ok {
				add(v, domain.ActionRead)
			}
		}
	default:
		for _, a := range args {
			if strings.HasPrefix(a, "--") {
				if _, v, ok := strings.Cut(a, "="); ok {
					add(v, domain.ActionRead)
				}
				continue
			}
			if strings.HasPrefix(a, "-") {
				continue
			}
			add(a, domain.ActionRead)
		}
	}
	return refs
}

// operands drops option words. Everything after "--" is an operand.
func operands(args []string) []string {
	var out []string
	for i, a := range args {
		if a == "--" {
			return append(out, args[i+1:]...)
		}
		if len(a) > 1 && strings.HasPrefix(a, "-") {
			continue
		}
		out = append(out, a)
	}
	return out
}

// skipValues removes the listed options together with their value word.
func skipValues(args []string, valueFlags ...string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		flagged := false
		for _, f := range valueFlags {
			if args[i] == f {
				flagged = true
				break
			}
		}
		if flagged {
			i++
			continue
		}
		out = append(out, args[i])
	}
	return out
}

// findReferences treats the search roots as deleted when find deletes what
// it matches, and as read otherwise.
func findReferences(args []string, add func(string, domain.ActionKind)) {
	var roots []string
	for _, a := range args {
		if strings.HasPrefix(a, "-") || a == "(" || a == "!" {
			break
		}
		roots = append(roots, a)
	}
	op := domain.ActionRead
	for i, a := range args {
		if a == "-delete" {
			op = domain.ActionDelete
			break
		}
		if (a == "-exec" || a == "-execdir" || a == "-ok" || a == "-okdir") && i+1 < len(args) && deleteCommands[baseName(args[i+1])] {
			op = domain.ActionDelete
			break
		}
	}
	for _, r := range roots {
		add(r, op)
	}
}

// inPlaceReferences handles sed -i and perl -i, whose file operands are
// rewritten.
func inPlaceReferences(name string, args []string, add func(string, domain.ActionKind)) {
	inPlace := false
	scriptGiven := false
	var files []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-e" || a == "-f" || a == "--expression" || a == "--file" || a == "-E" && name == "perl":
			scriptGiven = true
			i++
		case strings.HasPrefix(a, "--in-place"):
			inPlace = true
		case strings.HasPrefix(a, "--"):
		case strings.HasPrefix(a, "-") && len(a) > 1:
			if strings.HasPrefix(a, "-i") || (!strings.ContainsAny(a, "=") && strings.Contains(a[1:], "i")) {
				inPlace = true
			}
			if strings.HasSuffix(a, "e") && name == "perl" {
				scriptGiven = true
				i++
			}
		default:
			files = append(files, a)
		}
	}
	if !scriptGiven && len(files) > 0 {
		files = files[1:]
	}
	op := domain.ActionRead
	if inPlace {
		op = domain.ActionWriteOrEdit
	}
	for _, f := range files {
		add(f, op)
	}
}

func skipTarget(p string) bool {
	switch {
	case p == "", p == "-", p == "{}":
		return true
	case strings.HasPrefix(p, "/dev/"), strings.HasPrefix(p, "/proc/self/"):
		return true
	}
	return false
}

func baseName(arg string) string {
	if !strings.Contains(arg, "/") || strings.HasSuffix(arg, "/") {
		return arg
	}
	return path.Base(arg)
}
