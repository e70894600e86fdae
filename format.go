package templater

import (
	"fmt"
	"strings"
	"time"
)

// Calendar token formatter for format specifiers and the long-form date
// renderings. The token language is the calendar-style one users write in
// documents ("MMMM Do, YYYY"), not the Go reference layout. Text inside
// square brackets is copied literally.

// Tried in order; longer tokens first so Do wins over D, MMMM over MMM.
var calendarTokens = []string{
	"YYYY", "MMMM", "dddd",
	"MMM", "ddd",
	"YY", "MM", "Do", "DD", "HH", "hh", "mm", "ss",
	"M", "D", "H", "h", "m", "s", "A", "a",
}

// formatCalendar renders t through a token layout. ok is false when the
// layout contains an alphabetic run that is not a recognized token or an
// unterminated literal bracket.
func formatCalendar(layout string, t time.Time) (string, bool) {
	var b strings.Builder
	i := 0
	for i < len(layout) {
		c := layout[i]
		if c == '[' {
			end := strings.IndexByte(layout[i:], ']')
			if end < 0 {
				return "", false
			}
			b.WriteString(layout[i+1 : i+end])
			i += end + 1
			continue
		}
		if !isMathLetter(c) {
			b.WriteByte(c)
			i++
			continue
		}
		matched := false
		for _, tok := range calendarTokens {
			if strings.HasPrefix(layout[i:], tok) {
				b.WriteString(renderCalendarToken(tok, t))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			return "", false
		}
	}
	return b.String(), true
}

func renderCalendarToken(tok string, t time.Time) string {
	switch tok {
	case "YYYY":
		return fmt.Sprintf("%04d", t.Year())
	case "YY":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "MMMM":
		return t.Month().String()
	case "MMM":
		return t.Month().String()[:3]
	case "MM":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "M":
		return fmt.Sprintf("%d", int(t.Month()))
	case "Do":
		return ordinalDay(t.Day())
	case "DD":
		return fmt.Sprintf("%02d", t.Day())
	case "D":
		return fmt.Sprintf("%d", t.Day())
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return fmt.Sprintf("%d", t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12(t))
	case "h":
		return fmt.Sprintf("%d", hour12(t))
	case "mm":
		return fmt.Sprintf("%02d", t.Minute())
	case "m":
		return fmt.Sprintf("%d", t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return fmt.Sprintf("%d", t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	case "a":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	}
	return tok
}

func hour12(t time.Time) int {
	h := t.Hour() % 12
	if h == 0 {
		return 12
	}
	return h
}

func ordinalDay(d int) string {
	suffix := "th"
	if d%100 < 11 || d%100 > 13 {
		switch d % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", d, suffix)
}

// LongDate renders an instant as a daily-note style date, e.g.
// "June 9th, 2014". Date results inside links render this way so links to
// them land on daily notes.
func LongDate(t time.Time) string {
	s, _ := formatCalendar("MMMM Do, YYYY", t)
	return s
}

func longDateTime(t time.Time) string {
	s, _ := formatCalendar("MMMM Do, YYYY [at] h:mm A", t)
	return s
}

func clockTime(t time.Time) string {
	s, _ := formatCalendar("h:mm A", t)
	return s
}
