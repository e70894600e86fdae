package templater

import (
	"strconv"
	"strings"
)

// Word-to-number resolution for phrases like "three days ago" or
// "twenty four weeks from now". Unresolvable words make the whole phrase
// unhandled upstream.

var wordUnits = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
}

var wordTens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
}

// parseWordNumber resolves a spelled-out cardinal. Accepts single words
// ("three"), tens with an optional unit ("twenty", "twenty four"),
// hyphenated compounds ("twenty-four"), and the articles "a"/"an" as one.
func parseWordNumber(words []string) (int, bool) {
	switch len(words) {
	case 0:
		return 0, false
	case 1:
		w := words[0]
		if w == "a" || w == "an" {
			return 1, true
		}
		if i := strings.IndexByte(w, '-'); i > 0 {
			return combineTens(w[:i], w[i+1:])
		}
		if n, ok := wordUnits[w]; ok {
			return n, true
		}
		if n, ok := wordTens[w]; ok {
			return n, true
		}
		return 0, false
	case 2:
		return combineTens(words[0], words[1])
	default:
		return 0, false
	}
}

func combineTens(tens, unit string) (int, bool) {
	t, ok := wordTens[tens]
	if !ok {
		return 0, false
	}
	u, ok := wordUnits[unit]
	if !ok || u == 0 || u >= 10 {
		return 0, false
	}
	return t + u, true
}

// parseCount resolves the numeric part of a relative phrase: one or more
// tokens that are either a signed decimal integer or a spelled-out number.
func parseCount(words []string) (int, bool) {
	if len(words) == 1 {
		if n, err := strconv.Atoi(words[0]); err == nil {
			return n, true
		}
	}
	return parseWordNumber(words)
}
