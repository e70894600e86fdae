package templater

import (
	"strings"
	"time"
)

// Evaluate resolves one brace-delimited expression against a reference
// instant. Date phrases win over arithmetic; a quoted leading specifier
// ("MM/DD/YYYY":tomorrow) renders the resolved instant through the
// calendar formatter. Anything the grammar does not fully consume comes
// back Unhandled, never an error: callers leave the original text alone.
func Evaluate(raw string, ref time.Time) Result {
	inner, ok := stripBraces(raw)
	if !ok {
		return unhandled()
	}
	layout, phrase, hasLayout := splitFormatSpecifier(inner)
	if t, sig, ok := ResolveDatePhrase(phrase, ref); ok {
		if hasLayout {
			s, ok := formatCalendar(layout, t)
			if !ok {
				return unhandled()
			}
			return Result{Kind: KindFormattedText, Text: s}
		}
		return resultForInstant(t, sig)
	}
	// A format specifier only applies to instants.
	if hasLayout {
		return unhandled()
	}
	if v, ok := evaluateMath(phrase); ok {
		return Result{Kind: KindMath, Number: v}
	}
	return unhandled()
}

// stripBraces peels exactly one outer brace pair. Nested braces and empty
// content are malformed and collapse to Unhandled upstream.
func stripBraces(raw string) (string, bool) {
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return "", false
	}
	inner := raw[1 : len(raw)-1]
	if strings.ContainsAny(inner, "{}") {
		return "", false
	}
	if strings.TrimSpace(inner) == "" {
		return "", false
	}
	return inner, true
}

// splitFormatSpecifier strips a leading quoted format followed by a colon.
// Content that merely begins with a quote but never completes the
// specifier is left intact for the grammar to reject.
func splitFormatSpecifier(inner string) (layout, phrase string, ok bool) {
	trimmed := strings.TrimSpace(inner)
	if !strings.HasPrefix(trimmed, `"`) {
		return "", inner, false
	}
	rest := trimmed[1:]
	end := strings.IndexByte(rest, '"')
	if end < 0 || end+1 >= len(rest) || rest[end+1] != ':' {
		return "", inner, false
	}
	return rest[:end], rest[end+2:], true
}
