package templater

import (
	"strconv"
	"strings"
	"time"
)

// Natural-language date and time phrase resolution.
//
// The grammar is an ordered list of independent matcher functions. Each
// matcher either consumes the whole phrase and returns an instant or
// declines, and the first match wins. Order encodes priority: combined
// date+time forms, then compound relative forms, then literals, absolute
// dates, relative dates, and finally bare times; a phrase no rule consumes
// is unhandled. Weeks start on Sunday throughout.

// Significance tags how much of an instant is meaningful.
type Significance int

const (
	// SigDate marks a midnight-normalized calendar date.
	SigDate Significance = iota
	// SigDateTime marks a date with a meaningful time of day.
	SigDateTime
	// SigTime marks a time of day on the reference date.
	SigTime
)

// weekStart anchors all week arithmetic in the grammar.
const weekStart = time.Sunday

type dateMatcher func(tokens []string, ref time.Time) (time.Time, Significance, bool)

// dateMatchers is populated in init: several matchers recurse through
// resolvePhrase, so a static initializer would be an initialization cycle.
var dateMatchers []dateMatcher

func init() {
	dateMatchers = []dateMatcher{
		matchDateAtTime,
		matchWeekdayTime,
		matchMonthDayTime,
		matchUnitsBeforeAfter,
		matchFirstLastOfMonth,
		matchOrdinalWeekdayOfMonth,
		matchLiteral,
		matchMonthDay,
		matchBareWeekday,
		matchEdgeOfMonth,
		matchNextLastWeekday,
		matchNextLastUnit,
		matchRelativeCount,
		matchWeekdayOfAdjacentWeek,
		matchEdgeOfUnit,
		matchThisUnit,
		matchBareTime,
	}
}

// ResolveDatePhrase resolves a phrase against a reference instant. ok is
// false when no grammar rule consumes the whole phrase.
func ResolveDatePhrase(phrase string, ref time.Time) (time.Time, Significance, bool) {
	return resolvePhrase(strings.Fields(strings.ToLower(phrase)), ref)
}

func resolvePhrase(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) == 0 {
		return time.Time{}, 0, false
	}
	for _, m := range dateMatchers {
		if t, sig, ok := m(tokens, ref); ok {
			return t, sig, true
		}
	}
	return time.Time{}, 0, false
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var monthNames = map[string]time.Month{
	"january":   time.January,
	"february":  time.February,
	"march":     time.March,
	"april":     time.April,
	"may":       time.May,
	"june":      time.June,
	"july":      time.July,
	"august":    time.August,
	"september": time.September,
	"october":   time.October,
	"november":  time.November,
	"december":  time.December,
}

// Singular and plural spellings map to a canonical unit.
var unitNames = map[string]string{
	"day": "day", "days": "day",
	"week": "week", "weeks": "week",
	"month": "month", "months": "month",
	"year": "year", "years": "year",
	"hour": "hour", "hours": "hour",
	"minute": "minute", "minutes": "minute",
	"second": "second", "seconds": "second",
}

var ordinalNames = map[string]int{
	"second": 2, "third": 3, "fourth": 4, "fifth": 5,
}

// --- Combined date+time -----------------------------------------------

// "<date-phrase> at <time-phrase>", e.g. "tomorrow at 3pm".
func matchDateAtTime(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	at := -1
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i] == "at" {
			at = i
			break
		}
	}
	if at <= 0 || at >= len(tokens)-1 {
		return time.Time{}, 0, false
	}
	base, sig, ok := resolvePhrase(tokens[:at], ref)
	if !ok || sig == SigTime {
		return time.Time{}, 0, false
	}
	h, m, ok := parseTimeOfDay(strings.Join(tokens[at+1:], " "), true)
	if !ok {
		return time.Time{}, 0, false
	}
	return atClock(base, h, m), SigDateTime, true
}

// "<weekday> <time>", e.g. "friday 3pm".
func matchWeekdayTime(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) < 2 {
		return time.Time{}, 0, false
	}
	wd, ok := weekdayNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	h, m, ok := parseTimeOfDay(strings.Join(tokens[1:], " "), false)
	if !ok {
		return time.Time{}, 0, false
	}
	return atClock(weekdayInWeek(ref, wd), h, m), SigDateTime, true
}

// "<month> <day> <time>", e.g. "june 9 3pm".
func matchMonthDayTime(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) < 3 {
		return time.Time{}, 0, false
	}
	month, ok := monthNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	day, ok := parseDayNumber(tokens[1])
	if !ok {
		return time.Time{}, 0, false
	}
	h, m, ok := parseTimeOfDay(strings.Join(tokens[2:], " "), false)
	if !ok {
		return time.Time{}, 0, false
	}
	t := time.Date(ref.Year(), month, day, h, m, 0, 0, ref.Location())
	return t, SigDateTime, true
}

// --- Compound relative --------------------------------------------------

// "<N> <unit> before|after [the] <nested phrase>".
func matchUnitsBeforeAfter(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	pivot := -1
	sign := 0
	for i, tok := range tokens {
		if tok == "before" {
			pivot, sign = i, -1
			break
		}
		if tok == "after" {
			pivot, sign = i, 1
			break
		}
	}
	if pivot < 2 || pivot >= len(tokens)-1 {
		return time.Time{}, 0, false
	}
	n, ok := parseCount(tokens[:pivot-1])
	if !ok {
		return time.Time{}, 0, false
	}
	unit, ok := unitNames[tokens[pivot-1]]
	if !ok {
		return time.Time{}, 0, false
	}
	rest := tokens[pivot+1:]
	if rest[0] == "the" {
		rest = rest[1:]
	}
	base, baseSig, ok := resolvePhrase(rest, ref)
	if !ok {
		return time.Time{}, 0, false
	}
	return shiftFrom(base, baseSig, sign*n, unit)
}

// "first|last weekday|<weekday> of <nested phrase>". The nested phrase
// picks the month; the keyword "weekday" means a business day.
func matchFirstLastOfMonth(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) < 4 || tokens[2] != "of" {
		return time.Time{}, 0, false
	}
	first := false
	switch tokens[0] {
	case "first":
		first = true
	case "last":
	default:
		return time.Time{}, 0, false
	}
	wd, named := weekdayNames[tokens[1]]
	if !named && tokens[1] != "weekday" {
		return time.Time{}, 0, false
	}
	base, _, ok := resolvePhrase(tokens[3:], ref)
	if !ok {
		return time.Time{}, 0, false
	}
	year, month := base.Year(), base.Month()
	last := daysInMonth(year, month)
	day := 0
	if first {
		for d := 1; d <= last; d++ {
			if monthDayMatches(year, month, d, wd, named, ref.Location()) {
				day = d
				break
			}
		}
	} else {
		for d := last; d >= 1; d-- {
			if monthDayMatches(year, month, d, wd, named, ref.Location()) {
				day = d
				break
			}
		}
	}
	if day == 0 {
		return time.Time{}, 0, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, ref.Location()), SigDate, true
}

func monthDayMatches(year int, month time.Month, day int, wd time.Weekday, named bool, loc *time.Location) bool {
	got := time.Date(year, month, day, 0, 0, 0, 0, loc).Weekday()
	if named {
		return got == wd
	}
	return got != time.Saturday && got != time.Sunday
}

// "<second..fifth> <weekday> of <month>". A nonexistent occurrence (a
// fifth Monday in a four-Monday month) declines, which leaves the phrase
// unhandled.
func matchOrdinalWeekdayOfMonth(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 4 || tokens[2] != "of" {
		return time.Time{}, 0, false
	}
	n, ok := ordinalNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	wd, ok := weekdayNames[tokens[1]]
	if !ok {
		return time.Time{}, 0, false
	}
	month, ok := monthNames[tokens[3]]
	if !ok {
		return time.Time{}, 0, false
	}
	year := ref.Year()
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, ref.Location())
	offset := (int(wd) - int(firstDay.Weekday()) + 7) % 7
	day := 1 + offset + 7*(n-1)
	if day > daysInMonth(year, month) {
		return time.Time{}, 0, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, ref.Location()), SigDate, true
}

// --- Literals ------------------------------------------------------------

func matchLiteral(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 1 {
		return time.Time{}, 0, false
	}
	switch tokens[0] {
	case "today":
		return startOfDay(ref), SigDate, true
	case "tomorrow":
		return startOfDay(ref).AddDate(0, 0, 1), SigDate, true
	case "yesterday":
		return startOfDay(ref).AddDate(0, 0, -1), SigDate, true
	case "now":
		return ref, SigDateTime, true
	}
	return time.Time{}, 0, false
}

// --- Absolute -------------------------------------------------------------

// Bare month name, or "<month> <day>[st|nd|rd|th]". Out-of-range days roll
// into the following month, so April 31st is May 1st and February 29th on
// a non-leap year is March 1st.
func matchMonthDay(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	month, ok := monthNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	day := 1
	switch len(tokens) {
	case 1:
	case 2:
		day, ok = parseDayNumber(tokens[1])
		if !ok {
			return time.Time{}, 0, false
		}
	default:
		return time.Time{}, 0, false
	}
	return time.Date(ref.Year(), month, day, 0, 0, 0, 0, ref.Location()), SigDate, true
}

// A bare weekday is that weekday within the current Sunday-start week. It
// may land before, on, or after the reference day.
func matchBareWeekday(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 1 {
		return time.Time{}, 0, false
	}
	wd, ok := weekdayNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	return weekdayInWeek(ref, wd), SigDate, true
}

// "end|beginning of <month name>".
func matchEdgeOfMonth(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 3 || tokens[1] != "of" {
		return time.Time{}, 0, false
	}
	end, ok := parseEdge(tokens[0])
	if !ok {
		return time.Time{}, 0, false
	}
	month, ok := monthNames[tokens[2]]
	if !ok {
		return time.Time{}, 0, false
	}
	year := ref.Year()
	day := 1
	if end {
		day = daysInMonth(year, month)
	}
	return time.Date(year, month, day, 0, 0, 0, 0, ref.Location()), SigDate, true
}

// --- Relative ---------------------------------------------------------------

// "next|last <weekday>": strictly the next or previous occurrence, never
// the reference day itself.
func matchNextLastWeekday(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 2 {
		return time.Time{}, 0, false
	}
	wd, ok := weekdayNames[tokens[1]]
	if !ok {
		return time.Time{}, 0, false
	}
	day := startOfDay(ref)
	switch tokens[0] {
	case "next":
		delta := (int(wd) - int(day.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return day.AddDate(0, 0, delta), SigDate, true
	case "last":
		delta := (int(day.Weekday()) - int(wd) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return day.AddDate(0, 0, -delta), SigDate, true
	}
	return time.Time{}, 0, false
}

// "next|last <unit>".
func matchNextLastUnit(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 2 {
		return time.Time{}, 0, false
	}
	unit, ok := unitNames[tokens[1]]
	if !ok {
		return time.Time{}, 0, false
	}
	switch tokens[0] {
	case "next":
		return shiftFrom(ref, SigDate, 1, unit)
	case "last":
		return shiftFrom(ref, SigDate, -1, unit)
	}
	return time.Time{}, 0, false
}

// "in <N> <unit>", "<N> <unit> from now", "<N> <unit> ago". N may be a
// signed integer or a spelled-out number.
func matchRelativeCount(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	var countTokens []string
	var unitToken string
	sign := 1
	switch {
	case tokens[0] == "in" && len(tokens) >= 3:
		countTokens = tokens[1 : len(tokens)-1]
		unitToken = tokens[len(tokens)-1]
	case len(tokens) >= 4 && tokens[len(tokens)-2] == "from" && tokens[len(tokens)-1] == "now":
		countTokens = tokens[:len(tokens)-3]
		unitToken = tokens[len(tokens)-3]
	case len(tokens) >= 3 && tokens[len(tokens)-1] == "ago":
		countTokens = tokens[:len(tokens)-2]
		unitToken = tokens[len(tokens)-2]
		sign = -1
	default:
		return time.Time{}, 0, false
	}
	n, ok := parseCount(countTokens)
	if !ok {
		return time.Time{}, 0, false
	}
	unit, ok := unitNames[unitToken]
	if !ok {
		return time.Time{}, 0, false
	}
	return shiftFrom(ref, SigDate, sign*n, unit)
}

// "<weekday> of last|next week".
func matchWeekdayOfAdjacentWeek(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 4 || tokens[1] != "of" || tokens[3] != "week" {
		return time.Time{}, 0, false
	}
	wd, ok := weekdayNames[tokens[0]]
	if !ok {
		return time.Time{}, 0, false
	}
	var shift int
	switch tokens[2] {
	case "next":
		shift = 7
	case "last":
		shift = -7
	default:
		return time.Time{}, 0, false
	}
	return weekdayInWeek(ref.AddDate(0, 0, shift), wd), SigDate, true
}

// "end|beginning of [next|last|this] <unit>".
func matchEdgeOfUnit(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) < 3 || len(tokens) > 4 || tokens[1] != "of" {
		return time.Time{}, 0, false
	}
	end, ok := parseEdge(tokens[0])
	if !ok {
		return time.Time{}, 0, false
	}
	shift := 0
	unitToken := tokens[2]
	if len(tokens) == 4 {
		switch tokens[2] {
		case "next":
			shift = 1
		case "last":
			shift = -1
		case "this":
		default:
			return time.Time{}, 0, false
		}
		unitToken = tokens[3]
	}
	unit, ok := unitNames[unitToken]
	if !ok {
		return time.Time{}, 0, false
	}
	return unitEdge(ref, unit, shift, end)
}

// "this <unit>" resolves to the end-of-unit boundary.
func matchThisUnit(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	if len(tokens) != 2 || tokens[0] != "this" {
		return time.Time{}, 0, false
	}
	unit, ok := unitNames[tokens[1]]
	if !ok {
		return time.Time{}, 0, false
	}
	return unitEdge(ref, unit, 0, true)
}

// --- Bare time ---------------------------------------------------------------

func matchBareTime(tokens []string, ref time.Time) (time.Time, Significance, bool) {
	h, m, ok := parseTimeOfDay(strings.Join(tokens, " "), false)
	if !ok {
		return time.Time{}, 0, false
	}
	return atClock(startOfDay(ref), h, m), SigTime, true
}

// --- Helpers --------------------------------------------------------------

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns midnight of the weekStart day opening the week
// containing t.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	return d.AddDate(0, 0, -int((d.Weekday()-weekStart+7)%7))
}

func weekdayInWeek(ref time.Time, wd time.Weekday) time.Time {
	return startOfWeek(ref).AddDate(0, 0, int((wd-weekStart+7)%7))
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func atClock(day time.Time, h, m int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}

func parseEdge(tok string) (end bool, ok bool) {
	switch tok {
	case "end":
		return true, true
	case "beginning", "start":
		return false, true
	}
	return false, false
}

// shiftFrom moves base by n units. Calendar units use normalizing date
// addition and produce a midnight date unless the base already carried a
// time of day; clock units always carry one.
func shiftFrom(base time.Time, baseSig Significance, n int, unit string) (time.Time, Significance, bool) {
	switch unit {
	case "day", "week", "month", "year":
		t := base
		switch unit {
		case "day":
			t = t.AddDate(0, 0, n)
		case "week":
			t = t.AddDate(0, 0, 7*n)
		case "month":
			t = t.AddDate(0, n, 0)
		case "year":
			t = t.AddDate(n, 0, 0)
		}
		if baseSig == SigDate {
			return startOfDay(t), SigDate, true
		}
		return t, SigDateTime, true
	case "hour":
		return base.Add(time.Duration(n) * time.Hour), SigDateTime, true
	case "minute":
		return base.Add(time.Duration(n) * time.Minute), SigDateTime, true
	case "second":
		return base.Add(time.Duration(n) * time.Second), SigDateTime, true
	}
	return time.Time{}, 0, false
}

// unitEdge resolves the start or end boundary of the unit window holding
// ref, optionally shifted by one whole unit first. Day-or-larger
// boundaries are dates; end-of-day and clock units carry a time.
func unitEdge(ref time.Time, unit string, shift int, end bool) (time.Time, Significance, bool) {
	base := ref
	switch unit {
	case "day":
		base = base.AddDate(0, 0, shift)
		if !end {
			return startOfDay(base), SigDate, true
		}
		return atClock(base, 23, 59).Add(59 * time.Second), SigDateTime, true
	case "week":
		base = base.AddDate(0, 0, 7*shift)
		ws := startOfWeek(base)
		if !end {
			return ws, SigDate, true
		}
		return ws.AddDate(0, 0, 6), SigDate, true
	case "month":
		base = base.AddDate(0, shift, 0)
		if !end {
			return time.Date(base.Year(), base.Month(), 1, 0, 0, 0, 0, base.Location()), SigDate, true
		}
		return time.Date(base.Year(), base.Month(), daysInMonth(base.Year(), base.Month()), 0, 0, 0, 0, base.Location()), SigDate, true
	case "year":
		base = base.AddDate(shift, 0, 0)
		if !end {
			return time.Date(base.Year(), time.January, 1, 0, 0, 0, 0, base.Location()), SigDate, true
		}
		return time.Date(base.Year(), time.December, 31, 0, 0, 0, 0, base.Location()), SigDate, true
	case "hour":
		base = base.Add(time.Duration(shift) * time.Hour)
		top := time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), 0, 0, 0, base.Location())
		if !end {
			return top, SigDateTime, true
		}
		return top.Add(59*time.Minute + 59*time.Second), SigDateTime, true
	case "minute":
		base = base.Add(time.Duration(shift) * time.Minute)
		top := time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), base.Minute(), 0, 0, base.Location())
		if !end {
			return top, SigDateTime, true
		}
		return top.Add(59 * time.Second), SigDateTime, true
	}
	return time.Time{}, 0, false
}

// parseDayNumber reads a day-of-month token with an optional ordinal
// suffix: "9", "9th", "31st".
func parseDayNumber(tok string) (int, bool) {
	for _, suffix := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(tok, suffix) && len(tok) > len(suffix) {
			tok = tok[:len(tok)-len(suffix)]
			break
		}
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 1 || n > 31 {
		return 0, false
	}
	return n, true
}

// parseTimeOfDay reads "3pm", "3:45 am", "15:30". A bare hour with no
// colon or meridiem only parses when allowBareHour is set (after "at").
func parseTimeOfDay(s string, allowBareHour bool) (int, int, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	meridiem := ""
	for _, m := range []string{"am", "pm"} {
		if strings.HasSuffix(s, m) {
			meridiem = m
			s = strings.TrimSpace(strings.TrimSuffix(s, m))
			break
		}
	}
	if s == "" {
		return 0, 0, false
	}
	hourPart, minutePart := s, ""
	if i := strings.IndexByte(s, ':'); i >= 0 {
		hourPart, minutePart = s[:i], s[i+1:]
	} else if meridiem == "" && !allowBareHour {
		return 0, 0, false
	}
	if len(hourPart) == 0 || len(hourPart) > 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hourPart)
	if err != nil {
		return 0, 0, false
	}
	m := 0
	if minutePart != "" {
		if len(minutePart) != 2 {
			return 0, 0, false
		}
		m, err = strconv.Atoi(minutePart)
		if err != nil || m > 59 {
			return 0, 0, false
		}
	}
	if meridiem != "" {
		if h < 1 || h > 12 {
			return 0, 0, false
		}
		h %= 12
		if meridiem == "pm" {
			h += 12
		}
	} else if h > 23 {
		return 0, 0, false
	}
	return h, m, true
}
