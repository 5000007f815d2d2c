package shellparse

import "strings"

// maxUnwrap bounds how many wrapper layers are peeled off one command.
const maxUnwrap = 8

// wrapperSpec describes a program that runs another program given as its
// trailing operands.
type wrapperSpec struct {
	valueFlags  map[string]bool
	positional  int
	assignments bool
}

func flags(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

var wrappers = map[string]wrapperSpec{
	"sudo": {valueFlags: flags("-u", "-g", "-h", "-p", "-C", "-D", "-r", "-t", "-U", "-T",
		"--user", "--group", "--host", "--prompt", "--chdir", "--role", "--type", "--other-user", "--close-from", "--command-timeout")},
	"doas":     {valueFlags: flags("-u", "-C")},
	"env":      {valueFlags: flags("-u", "--unset", "-C", "--chdir", "-S", "--split-string"), assignments: true},
	"nohup":    {},
	"time":     {valueFlags: flags("-f", "--format", "-o", "--output")},
	"timeout":  {valueFlags: flags("-s", "--signal", "-k", "--kill-after"), positional: 1},
	"nice":     {valueFlags: flags("-n", "--adjustment")},
	"ionice":   {valueFlags: flags("-c", "--class", "-n", "--classdata", "-p", "--pid")},
	"stdbuf":   {valueFlags: flags("-i", "-o", "-e", "--input", "--output", "--error")},
	"exec":     {valueFlags: flags("-a")},
	"command":  {},
	"builtin":  {},
	"unbuffer": {},
	"xargs": {valueFlags: flags("-I", "-L", "-n", "-P", "-s", "-d", "-E", "-a",
		"--arg-file", "--delimiter", "--max-args", "--max-procs", "--max-chars", "--replace", "--eof")},
	"chroot": {positional: 1},
	"watch":  {valueFlags: flags("-n", "--interval")},
}

// stripWrapper returns the wrapped command of a wrapper invocation.
func stripWrapper(args []string) ([]string, bool) {
	spec, ok := wrappers[commandName(args[0])]
	if !ok {
		return nil, false
	}
	i := 1
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if spec.assignments && isAssignment(a) {
			i++
			continue
		}
		if len(a) > 1 && strings.HasPrefix(a, "-") {
			if spec.valueFlags[a] {
				i += 2
			} else {
				i++
			}
			continue
		}
		break
	}
	i += spec.positional
	if i >= len(args) {
		return nil, false
	}
	return args[i:], true
}

func isAssignment(arg string) bool {
	idx := strings.IndexByte(arg, '=')
	if idx <= 0 {
		return false
	}
	for i, r := range arg[:idx] {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

var shells = map[string]bool{
	"sh": true, "bash": true, "zsh": true, "dash": true, "ksh": true, "mksh": true, "ash": true,
}

func isShell(name string) bool {
	return shells[commandName(name)]
}

// shellScript returns the script text an invocation hands to a shell:
// sh -c, bash -lc, su -c and eval.
func shellScript(args []string) (string, bool) {
	name := commandName(args[0])
	switch {
	case name == "eval":
		if len(args) < 2 {
			return "", false
		}
		return strings.Join(args[1:], " "), true
	case name == "su":
		for i := 1; i < len(args); i++ {
			if (args[i] == "-c" || args[i] == "--command") && i+1 < len(args) {
				return args[i+1], true
			}
			if v, ok := strings.CutPrefix(args[i], "--command="); ok {
				return v, true
			}
		}
		return "", false
	case !shells[name]:
		return "", false
	}

	for i := 1; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--" || a == "-":
			return "", false
		case a == "--rcfile" || a == "--init-file":
			i++
		case strings.HasPrefix(a, "--"):
		case a == "-o" || a == "+o" || a == "-O" || a == "+O":
			i++
		case strings.HasPrefix(a, "-"):
			if strings.ContainsRune(a[1:], 'c') {
				if i+1 < len(args) {
					return args[i+1], true
				}
				return "", false
			}
		case strings.HasPrefix(a, "+"):
		default:
			// A script file operand.
			return "", false
		}
	}
	return "", false
}

// findExec returns the commands find runs through -exec and friends.
func findExec(args []string) [][]string {
	if commandName(args[0]) != "find" {
		return nil
	}
	var out [][]string
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "-exec", "-execdir", "-ok", "-okdir":
		default:
			continue
		}
		j := i + 1
		for j < len(args) && args[j] != ";" && args[j] != "+" {
			j++
		}
		if j > i+1 {
			out = append(out, append([]string(nil), args[i+1:j]...))
		}
		i = j
	}
	return out
}
