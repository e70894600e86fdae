package templater

import "strings"

// Document scanning. One linear pass tokenizes a document into expression
// or link spans with their line context attached, so the rewriting stages
// never re-scan substrings to classify a match. Expressions and links stay
// within a single line; an unclosed marker is plain text.

type exprSpan struct {
	start, end int // byte offsets, braces included
	inTask     bool
	inLink     bool
}

type linkSpan struct {
	start, end int // byte offsets, double brackets included
}

type braceSpan struct {
	start, end int
}

// scanExpressions returns every brace expression in doc in document order,
// each classified by its enclosing line and link context.
func scanExpressions(doc string) []exprSpan {
	var spans []exprSpan
	forEachLine(doc, func(lineStart int, line string) {
		task := isTaskLine(line)
		i := 0
		for i < len(line) {
			switch {
			case line[i] == '[' && i+1 < len(line) && line[i+1] == '[':
				close := strings.Index(line[i+2:], "]]")
				if close < 0 {
					i += 2
					continue
				}
				body := line[i+2 : i+2+close]
				for _, bs := range scanBraces(body) {
					spans = append(spans, exprSpan{
						start:  lineStart + i + 2 + bs.start,
						end:    lineStart + i + 2 + bs.end,
						inTask: task,
						inLink: true,
					})
				}
				i += close + 4
			case line[i] == '{':
				bs, ok := closeBrace(line, i)
				if !ok {
					i++
					continue
				}
				spans = append(spans, exprSpan{
					start:  lineStart + bs.start,
					end:    lineStart + bs.end,
					inTask: task,
				})
				i = bs.end
			default:
				i++
			}
		}
	})
	return spans
}

// scanLinks returns every [[...]] region in doc in document order.
func scanLinks(doc string) []linkSpan {
	var spans []linkSpan
	forEachLine(doc, func(lineStart int, line string) {
		i := 0
		for i < len(line) {
			if line[i] == '[' && i+1 < len(line) && line[i+1] == '[' {
				close := strings.Index(line[i+2:], "]]")
				if close >= 0 {
					spans = append(spans, linkSpan{
						start: lineStart + i,
						end:   lineStart + i + close + 4,
					})
					i += close + 4
					continue
				}
				i += 2
				continue
			}
			i++
		}
	})
	return spans
}

// scanBraces finds brace expressions inside a single-line fragment.
func scanBraces(s string) []braceSpan {
	var spans []braceSpan
	i := 0
	for i < len(s) {
		if s[i] == '{' {
			if bs, ok := closeBrace(s, i); ok {
				spans = append(spans, bs)
				i = bs.end
				continue
			}
		}
		i++
	}
	return spans
}

func closeBrace(s string, open int) (braceSpan, bool) {
	rel := strings.IndexByte(s[open+1:], '}')
	if rel < 0 {
		return braceSpan{}, false
	}
	return braceSpan{start: open, end: open + rel + 2}, true
}

func forEachLine(doc string, fn func(lineStart int, line string)) {
	lineStart := 0
	for lineStart <= len(doc) {
		rel := strings.IndexByte(doc[lineStart:], '\n')
		if rel < 0 {
			fn(lineStart, doc[lineStart:])
			return
		}
		fn(lineStart, doc[lineStart:lineStart+rel])
		lineStart += rel + 1
	}
}

func isTaskLine(line string) bool {
	_, kind, _, ok := parseListMarker(line)
	return ok && kind == MarkerTask
}
