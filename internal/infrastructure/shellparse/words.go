package shellparse

import (
	"path"
	"strings"
	"unicode/utf8"

	"mvdan.cc/sh/v3/syntax"
)

// wordValue renders a word the way the shell would see it after quote
// removal. Parts that need runtime expansion keep their source form.
func wordValue(src string, word *syntax.Word) string {
	var b strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(unescapeBare(p.Value))
		case *syntax.SglQuoted:
			if p.Dollar {
				b.WriteString(decodeANSIC(p.Value))
			} else {
				b.WriteString(p.Value)
			}
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					b.WriteString(unescapeDouble(lit.Value))
					continue
				}
				b.WriteString(slice(src, inner.Pos(), inner.End()))
			}
		default:
			b.WriteString(slice(src, part.Pos(), part.End()))
		}
	}
	return b.String()
}

// unescapeBare removes backslash quoting from an unquoted literal.
func unescapeBare(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			if s[i] != '\n' {
				b.WriteByte(s[i])
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// unescapeDouble removes the escapes that are special inside "...".
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '$', '`', '"', '\\':
				b.WriteByte(s[i+1])
				i++
				continue
			case '\n':
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// decodeANSIC expands the escapes of a $'...' string.
func decodeANSIC(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'e', 'E':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '\\', '\'', '"', '?':
			b.WriteByte(s[i])
		case 'c':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i] & 0x1f)
			}
		case 'x':
			v, next := readDigits(s, i+1, 2, 16)
			if next == i+1 {
				b.WriteString(`\x`)
				continue
			}
			b.WriteByte(byte(v))
			i = next - 1
		case 'u', 'U':
			width := 4
			if s[i] == 'U' {
				width = 8
			}
			v, next := readDigits(s, i+1, width, 16)
			if next == i+1 {
				b.WriteByte('\\')
				b.WriteByte(s[i])
				continue
			}
			if v > utf8.MaxRune {
				v = utf8.RuneError
			}
			b.WriteRune(rune(v))
			i = next - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v, next := readDigits(s, i, 3, 8)
			b.WriteByte(byte(v))
			i = next - 1
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func readDigits(s string, start, max, base int) (int, int) {
	v, i := 0, start
	for ; i < len(s) && i-start < max; i++ {
		d := digitValue(s[i])
		if d < 0 || d >= base {
			break
		}
		v = v*base + d
	}
	return v, i
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	default:
		return -1
	}
}

// commandName strips the directory from a path-qualified command.
func commandName(arg string) string {
	if !strings.Contains(arg, "/") || strings.HasSuffix(arg, "/") {
		return arg
	}
	return path.Base(arg)
}

// splitCompound is the fallback splitter for input the parser rejected.
// Operator characters inside quotes do not split; substitution openers do,
// even inside double quotes, since their bodies still run.
func splitCompound(command string) []string {
	var segments []string
	var current strings.Builder
	inSingle, inDouble := false, false
	substDepth := 0
	flush := func() {
		if seg := strings.TrimSpace(current.String()); seg != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	for i := 0; i < len(command); i++ {
		ch := command[i]
		switch {
		case ch == '\\' && !inSingle && i+1 < len(command):
			current.WriteByte(ch)
			current.WriteByte(command[i+1])
			i++
			continue
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteByte(ch)
			continue
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteByte(ch)
			continue
		case inSingle:
			current.WriteByte(ch)
			continue
		}

		if ch == '$' && i+1 < len(command) && command[i+1] == '(' {
			flush()
			substDepth++
			i++
			continue
		}
		if ch == ')' && substDepth > 0 {
			flush()
			substDepth--
			continue
		}
		if ch == '`' {
			flush()
			continue
		}
		if inDouble {
			current.WriteByte(ch)
			continue
		}
		switch ch {
		case '&', '|':
			flush()
			if i+1 < len(command) && command[i+1] == ch {
				i++
			}
		case ';', '\n', '(', ')':
			flush()
		default:
			current.WriteByte(ch)
		}
	}
	flush()
	if len(segments) == 0 {
		return []string{strings.TrimSpace(command)}
	}
	return segments
}

// splitWords is a quote aware field splitter for fallback fragments.
func splitWords(segment string) []string {
	var words []string
	var current strings.Builder
	inWord, inSingle, inDouble := false, false, false
	for i := 0; i < len(segment); i++ {
		ch := segment[i]
		switch {
		case inSingle:
			if ch == '\'' {
				inSingle = false
			} else {
				current.WriteByte(ch)
			}
		case inDouble:
			if ch == '"' {
				inDouble = false
			} else if ch == '\\' && i+1 < len(segment) && strings.IndexByte("$`\"\\", segment[i+1]) >= 0 {
				i++
				current.WriteByte(segment[i])
			} else {
				current.WriteByte(ch)
			}
		case ch == '\'':
			inSingle, inWord = true, true
		case ch == '"':
			inDouble, inWord = true, true
		case ch == '\\' && i+1 < len(segment):
			i++
			current.WriteByte(segment[i])
			inWord = true
		case ch == ' ' || ch == '\t' || ch == '\n':
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteByte(ch)
			inWord = true
		}
	}
	if inWord {
		words = append(words, current.String())
	}
	return words
}
