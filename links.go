package templater

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// linkParts is one [[...]] reference split into its syntactic pieces: an
// optional leading flag, the note path, and the trailing #section and
// |alias modifiers.
type linkParts struct {
	optional bool // '?': link only when the note already exists
	silent   bool // '_': drop the reference entirely when it is missing
	body     string
	section  string
	alias    string
}

func parseLinkParts(inner string) linkParts {
	var p linkParts
	if strings.HasPrefix(inner, "?") {
		p.optional = true
		inner = inner[1:]
	} else if strings.HasPrefix(inner, "_") {
		p.silent = true
		inner = inner[1:]
	}
	if i := strings.IndexByte(inner, '|'); i >= 0 {
		p.alias = inner[i+1:]
		inner = inner[:i]
	}
	if i := strings.IndexByte(inner, '#'); i >= 0 {
		p.section = inner[i+1:]
		inner = inner[:i]
	}
	p.body = inner
	return p
}

// splitTarget splits an evaluated note path into (tag, name) on the last
// slash. A path without a slash is all name.
func splitTarget(body string) (tag, name string) {
	if i := strings.LastIndexByte(body, '/'); i >= 0 {
		return body[:i], body[i+1:]
	}
	return "", body
}

// renderLinkText renders an evaluation result for use inside a link body.
// Date results use the daily-note long form regardless of time-of-day so
// the link lands on a daily note; bare times keep their clock form.
func renderLinkText(res Result) string {
	switch res.Kind {
	case KindDate, KindDateTime:
		return LongDate(res.Instant)
	case KindTime:
		return clockTime(res.Instant)
	}
	return res.Render()
}

// evalLinkText substitutes every evaluable bracket expression inside a link
// fragment. Date results render long-form; unhandled expressions stay
// verbatim.
func evalLinkText(s string, ref time.Time) string {
	spans := scanBraces(s)
	if len(spans) == 0 {
		return s
	}
	var b strings.Builder
	prev := 0
	for _, bs := range spans {
		b.WriteString(s[prev:bs.start])
		prev = bs.end
		res := Evaluate(s[bs.start:bs.end], ref)
		if res.Kind == KindUnhandled {
			b.WriteString(s[bs.start:bs.end])
			continue
		}
		b.WriteString(renderLinkText(res))
	}
	b.WriteString(s[prev:])
	return b.String()
}

// sectionAnchor normalizes a section heading into a URL fragment: spaces
// become underscores, then the whole fragment is escaped.
func sectionAnchor(section string) string {
	return url.PathEscape(strings.ReplaceAll(section, " ", "_"))
}

// resolveLinks rewrites every [[...]] reference in doc into a markdown link
// against the note store: find-or-create by default, lookup-only under the
// '?' and '_' flags. Store failures abort the pass; the host owns their
// recovery.
func resolveLinks(ctx context.Context, store NoteStore, doc string, ref time.Time) (string, error) {
	spans := scanLinks(doc)
	if len(spans) == 0 {
		return doc, nil
	}
	var b strings.Builder
	b.Grow(len(doc))
	prev := 0
	for _, s := range spans {
		b.WriteString(doc[prev:s.start])
		prev = s.end
		rendered, err := resolveLink(ctx, store, doc[s.start+2:s.end-2], ref)
		if err != nil {
			return "", err
		}
		b.WriteString(rendered)
	}
	b.WriteString(doc[prev:])
	return b.String(), nil
}

func resolveLink(ctx context.Context, store NoteStore, inner string, ref time.Time) (string, error) {
	p := parseLinkParts(inner)
	unflagged := inner
	if p.optional || p.silent {
		unflagged = inner[1:]
	}
	p.body = evalLinkText(p.body, ref)
	p.section = evalLinkText(p.section, ref)
	tag, name := splitTarget(p.body)
	if name == "" {
		// Nothing to link to; keep the raw reference.
		return "[[" + inner + "]]", nil
	}

	note, err := store.FindNote(ctx, NoteQuery{Name: name, Tag: tag})
	if err != nil {
		return "", fmt.Errorf("find note %q: %w", name, err)
	}
	if note == nil {
		switch {
		case p.silent:
			return "", nil
		case p.optional:
			// Lookup-only miss: the reference stays as bracket text with
			// the flag stripped, and no note is created.
			return "[[" + unflagged + "]]", nil
		}
		var tags []string
		if tag != "" {
			tags = []string{tag}
		}
		note, err = store.CreateNote(ctx, name, tags)
		if err != nil {
			return "", fmt.Errorf("create note %q: %w", name, err)
		}
	}

	target := note.URL()
	if p.section != "" {
		target += "#" + sectionAnchor(p.section)
	}
	return "[" + linkDisplay(p, name) + "](" + target + ")", nil
}

// linkDisplay is the visible text of a resolved link: the alias when one
// was given, otherwise name plus any section suffix.
func linkDisplay(p linkParts, name string) string {
	if p.alias != "" {
		return p.alias
	}
	if p.section != "" {
		return name + "#" + p.section
	}
	return name
}
