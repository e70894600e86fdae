package templater

import (
	"strconv"
	"strings"
	"time"
)

// Footnote records one substituted expression: its 1-based index in scan
// order, the rendered value, and the original bracket text.
type Footnote struct {
	Index  int
	Value  string
	Source string
}

// substituteExpressions rewrites every evaluable bracket expression in doc.
// Results inside links or task lines are substituted inline; elsewhere the
// value becomes a footnote reference and an entry is collected. Directives
// on task lines are left for the task stage, and unhandled expressions stay
// verbatim.
func substituteExpressions(doc string, ref time.Time, suppressFootnotes bool) (string, []Footnote) {
	spans := scanExpressions(doc)
	if len(spans) == 0 {
		return doc, nil
	}
	var b strings.Builder
	b.Grow(len(doc))
	var notes []Footnote
	prev := 0
	for _, s := range spans {
		b.WriteString(doc[prev:s.start])
		prev = s.end
		raw := doc[s.start:s.end]
		if s.inTask {
			if _, _, isDirective := splitDirective(raw); isDirective {
				b.WriteString(raw)
				continue
			}
		}
		res := Evaluate(raw, ref)
		if res.Kind == KindUnhandled {
			b.WriteString(raw)
			continue
		}
		value := res.Render()
		if s.inLink {
			// Inside a link the value becomes part of a note name, so
			// dates use the daily-note long form.
			b.WriteString(renderLinkText(res))
			continue
		}
		if s.inTask || suppressFootnotes {
			b.WriteString(value)
			continue
		}
		n := len(notes) + 1
		b.WriteString("[")
		b.WriteString(value)
		b.WriteString("][^")
		b.WriteString(strconv.Itoa(n))
		b.WriteString("]")
		notes = append(notes, Footnote{Index: n, Value: value, Source: raw})
	}
	b.WriteString(doc[prev:])
	return b.String(), notes
}

// appendFootnoteBlock writes the collected entries at the end of the
// document, each as "[^N]: [<value>]()" followed by the original
// expression, in ascending order.
func appendFootnoteBlock(doc string, notes []Footnote) string {
	if len(notes) == 0 {
		return doc
	}
	var b strings.Builder
	b.WriteString(doc)
	if !strings.HasSuffix(doc, "\n") {
		b.WriteString("\n")
	}
	for _, n := range notes {
		b.WriteString("\n[^")
		b.WriteString(strconv.Itoa(n.Index))
		b.WriteString("]: [")
		b.WriteString(n.Value)
		b.WriteString("]()\n")
		b.WriteString(n.Source)
		b.WriteString("\n")
	}
	return b.String()
}
