package templater

import (
	"math"
	"strconv"
	"time"
)

// ResultKind tags an evaluation result and determines how callers render
// its value.
type ResultKind int

const (
	// KindUnhandled marks bracket content no grammar rule consumed. The
	// original text is preserved verbatim by every caller.
	KindUnhandled ResultKind = iota
	// KindMath carries a numeric value.
	KindMath
	// KindDate carries a midnight-normalized instant.
	KindDate
	// KindDateTime carries an instant with a meaningful time of day.
	KindDateTime
	// KindTime carries a time of day on the reference date.
	KindTime
	// KindFormattedText carries an instant already rendered through a
	// format specifier.
	KindFormattedText
)

func (k ResultKind) String() string {
	switch k {
	case KindMath:
		return "math"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindTime:
		return "time"
	case KindFormattedText:
		return "text"
	default:
		return "unhandled"
	}
}

// Result is the outcome of evaluating one bracket expression.
type Result struct {
	Kind    ResultKind
	Number  float64   // KindMath
	Instant time.Time // KindDate, KindDateTime, KindTime
	Text    string    // KindFormattedText
}

func unhandled() Result { return Result{Kind: KindUnhandled} }

// IsDateKind reports whether the result carries an instant.
func (r Result) IsDateKind() bool {
	return r.Kind == KindDate || r.Kind == KindDateTime || r.Kind == KindTime
}

// Render returns the inline display text for a result. Unhandled results
// render empty; callers keep the original expression text instead.
func (r Result) Render() string {
	switch r.Kind {
	case KindMath:
		return formatNumber(r.Number)
	case KindDate:
		return LongDate(r.Instant)
	case KindDateTime:
		return longDateTime(r.Instant)
	case KindTime:
		return clockTime(r.Instant)
	case KindFormattedText:
		return r.Text
	default:
		return ""
	}
}

func resultForInstant(t time.Time, sig Significance) Result {
	switch sig {
	case SigDateTime:
		return Result{Kind: KindDateTime, Instant: t}
	case SigTime:
		return Result{Kind: KindTime, Instant: t}
	default:
		return Result{Kind: KindDate, Instant: t}
	}
}

// formatNumber renders a float the way a calculator would: no exponent
// notation, no trailing zeros, and the conventional spellings for the
// non-finite values.
func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.IsNaN(v):
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
