package templater

import "strings"

// Smart indentation: rewriting an inserted template's list markup to match
// the list structure at the insertion point.

// MarkerKind classifies the list marker opening a line.
type MarkerKind int

const (
	MarkerNone MarkerKind = iota
	MarkerBullet
	MarkerNumbered
	MarkerTask
)

// IndentationContext describes the line a template is inserted into: its
// leading whitespace and its list-marker kind.
type IndentationContext struct {
	Indent string
	Kind   MarkerKind
}

// ContextForLine derives the indentation context from an insertion line.
func ContextForLine(line string) IndentationContext {
	indent, kind, _, ok := parseListMarker(line)
	if !ok {
		return IndentationContext{}
	}
	return IndentationContext{Indent: indent, Kind: kind}
}

// parseListMarker splits a line into leading whitespace, marker kind, and
// the text after the marker. ok is false for non-list lines.
func parseListMarker(line string) (indent string, kind MarkerKind, rest string, ok bool) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
		i++
	}
	indent = line[:i]
	s := line[i:]

	if len(s) >= 5 && (s[0] == '-' || s[0] == '*') && s[1] == ' ' && s[2] == '[' &&
		(s[3] == ' ' || s[3] == 'x' || s[3] == 'X') && s[4] == ']' {
		rest = strings.TrimPrefix(s[5:], " ")
		return indent, MarkerTask, rest, true
	}
	if len(s) >= 2 && (s[0] == '-' || s[0] == '*') && s[1] == ' ' {
		return indent, MarkerBullet, s[2:], true
	}
	j := 0
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j > 0 && j+1 < len(s) && s[j] == '.' && s[j+1] == ' ' {
		return indent, MarkerNumbered, s[j+2:], true
	}
	return "", MarkerNone, "", false
}

// AdjustIndentation rewrites template text for insertion at the given
// context. A template that does not open with a list line is set off with
// a blank line and left alone. A template opening with the same marker
// kind continues the existing item: its first marker is stripped and the
// rest preserved. A different list kind is set off with a blank line and
// each indentable line picks up the context's indentation, until the
// first line that is neither a list line, blank, nor a backslash
// continuation; from there the remainder passes through verbatim.
func AdjustIndentation(template string, ictx IndentationContext) string {
	lines := strings.Split(template, "\n")
	_, kind, rest, ok := parseListMarker(lines[0])
	if !ok {
		return "\n" + template
	}

	if kind == ictx.Kind {
		lines[0] = rest
		return strings.Join(lines, "\n")
	}

	out := make([]string, 0, len(lines)+1)
	out = append(out, "")
	halted := false
	for _, line := range lines {
		switch {
		case halted:
			out = append(out, line)
		case strings.TrimSpace(line) == "":
			out = append(out, line)
		case strings.HasSuffix(line, "\\"):
			out = append(out, line)
		default:
			if _, _, _, isList := parseListMarker(line); isList {
				out = append(out, ictx.Indent+line)
			} else {
				halted = true
				out = append(out, line)
			}
		}
	}
	return strings.Join(out, "\n")
}
