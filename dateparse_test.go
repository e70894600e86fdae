package templater

import (
	"testing"
	"time"
)

func TestResolveDatePhrase(t *testing.T) {
	cases := []struct {
		phrase string
		want   time.Time
		sig    Significance
	}{
		{"today", utcDate(2024, time.June, 12), SigDate},
		{"Tomorrow", utcDate(2024, time.June, 13), SigDate},
		{"yesterday", utcDate(2024, time.June, 11), SigDate},
		{"now", testRef, SigDateTime},

		{"next friday", utcDate(2024, time.June, 14), SigDate},
		{"next wednesday", utcDate(2024, time.June, 19), SigDate},
		{"last monday", utcDate(2024, time.June, 10), SigDate},
		{"last wednesday", utcDate(2024, time.June, 5), SigDate},
		{"last saturday", utcDate(2024, time.June, 8), SigDate},

		{"next week", utcDate(2024, time.June, 19), SigDate},
		{"last week", utcDate(2024, time.June, 5), SigDate},
		{"next month", utcDate(2024, time.July, 12), SigDate},
		{"next year", utcDate(2025, time.June, 12), SigDate},
		{"next hour", utcClock(2024, time.June, 12, 11, 30, 0), SigDateTime},

		{"in 3 days", utcDate(2024, time.June, 15), SigDate},
		{"in three days", utcDate(2024, time.June, 15), SigDate},
		{"2 weeks from now", utcDate(2024, time.June, 26), SigDate},
		{"twenty one days from now", utcDate(2024, time.July, 3), SigDate},
		{"4 days ago", utcDate(2024, time.June, 8), SigDate},
		{"a week ago", utcDate(2024, time.June, 5), SigDate},
		{"in -2 days", utcDate(2024, time.June, 10), SigDate},
		{"in 6 months", utcDate(2024, time.December, 12), SigDate},
		{"in 90 minutes", utcClock(2024, time.June, 12, 12, 0, 0), SigDateTime},
		{"in one hour", utcClock(2024, time.June, 12, 11, 30, 0), SigDateTime},

		{"june", utcDate(2024, time.June, 1), SigDate},
		{"june 9", utcDate(2024, time.June, 9), SigDate},
		{"June 9th", utcDate(2024, time.June, 9), SigDate},
		{"august 1st", utcDate(2024, time.August, 1), SigDate},
		{"april 31st", utcDate(2024, time.May, 1), SigDate},
		{"february 29", utcDate(2024, time.February, 29), SigDate},

		{"end of june", utcDate(2024, time.June, 30), SigDate},
		{"beginning of june", utcDate(2024, time.June, 1), SigDate},
		{"end of february", utcDate(2024, time.February, 29), SigDate},

		{"first monday of july", utcDate(2024, time.July, 1), SigDate},
		{"last friday of june", utcDate(2024, time.June, 28), SigDate},
		{"first weekday of june", utcDate(2024, time.June, 3), SigDate},
		{"last weekday of june", utcDate(2024, time.June, 28), SigDate},
		{"first monday of next month", utcDate(2024, time.July, 1), SigDate},

		{"second tuesday of june", utcDate(2024, time.June, 11), SigDate},
		{"third monday of january", utcDate(2024, time.January, 15), SigDate},
		{"fourth friday of june", utcDate(2024, time.June, 28), SigDate},

		{"monday of next week", utcDate(2024, time.June, 17), SigDate},
		{"friday of last week", utcDate(2024, time.June, 7), SigDate},

		{"beginning of week", utcDate(2024, time.June, 9), SigDate},
		{"start of week", utcDate(2024, time.June, 9), SigDate},
		{"end of week", utcDate(2024, time.June, 15), SigDate},
		{"end of next week", utcDate(2024, time.June, 22), SigDate},
		{"beginning of month", utcDate(2024, time.June, 1), SigDate},
		{"end of month", utcDate(2024, time.June, 30), SigDate},
		{"beginning of next month", utcDate(2024, time.July, 1), SigDate},
		{"end of last month", utcDate(2024, time.May, 31), SigDate},
		{"end of year", utcDate(2024, time.December, 31), SigDate},
		{"end of day", utcClock(2024, time.June, 12, 23, 59, 59), SigDateTime},
		{"beginning of hour", utcClock(2024, time.June, 12, 10, 0, 0), SigDateTime},
		{"end of hour", utcClock(2024, time.June, 12, 10, 59, 59), SigDateTime},

		{"this week", utcDate(2024, time.June, 15), SigDate},
		{"this month", utcDate(2024, time.June, 30), SigDate},
		{"this day", utcClock(2024, time.June, 12, 23, 59, 59), SigDateTime},

		{"2 days before the end of month", utcDate(2024, time.June, 28), SigDate},
		{"three days after tomorrow", utcDate(2024, time.June, 16), SigDate},
		{"one week after next friday", utcDate(2024, time.June, 21), SigDate},
		{"2 hours after now", utcClock(2024, time.June, 12, 12, 30, 0), SigDateTime},

		{"tomorrow at 3pm", utcClock(2024, time.June, 13, 15, 0, 0), SigDateTime},
		{"today at 9:05am", utcClock(2024, time.June, 12, 9, 5, 0), SigDateTime},
		{"monday at 8am", utcClock(2024, time.June, 10, 8, 0, 0), SigDateTime},
		{"tomorrow at 15", utcClock(2024, time.June, 13, 15, 0, 0), SigDateTime},
		{"next friday at 10:30pm", utcClock(2024, time.June, 14, 22, 30, 0), SigDateTime},
		{"end of month at 5pm", utcClock(2024, time.June, 30, 17, 0, 0), SigDateTime},

		{"friday 3pm", utcClock(2024, time.June, 14, 15, 0, 0), SigDateTime},
		{"friday 15:45", utcClock(2024, time.June, 14, 15, 45, 0), SigDateTime},
		{"june 9 3pm", utcClock(2024, time.June, 9, 15, 0, 0), SigDateTime},
		{"june 9th 10:15am", utcClock(2024, time.June, 9, 10, 15, 0), SigDateTime},

		{"3pm", utcClock(2024, time.June, 12, 15, 0, 0), SigTime},
		{"15:30", utcClock(2024, time.June, 12, 15, 30, 0), SigTime},
		{"3:45 am", utcClock(2024, time.June, 12, 3, 45, 0), SigTime},
		{"12am", utcClock(2024, time.June, 12, 0, 0, 0), SigTime},
		{"12pm", utcClock(2024, time.June, 12, 12, 0, 0), SigTime},
	}
	for _, tc := range cases {
		got, sig, ok := ResolveDatePhrase(tc.phrase, testRef)
		if !ok {
			t.Fatalf("expected %q to resolve", tc.phrase)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("expected %q to resolve to %v, got %v", tc.phrase, tc.want, got)
		}
		if sig != tc.sig {
			t.Fatalf("expected %q significance %v, got %v", tc.phrase, tc.sig, sig)
		}
	}
}

func TestResolveDatePhraseUnhandled(t *testing.T) {
	for _, phrase := range []string{
		"",
		"febtember 10th",
		"june 32",
		"fifth monday of june",
		"today at noon",
		"today at 25",
		"7",
		"99:99",
		"0am",
		"13pm",
		"3:5pm",
		"soon",
		"next",
		"2 days before christmas",
	} {
		if got, _, ok := ResolveDatePhrase(phrase, testRef); ok {
			t.Fatalf("expected %q to be unhandled, got %v", phrase, got)
		}
	}
}

// A bare weekday names a day of the current Sunday-start week, so it may
// land before, on, or after the reference day.
func TestBareWeekdayStaysInCurrentWeek(t *testing.T) {
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for i, name := range names {
		got, sig, ok := ResolveDatePhrase(name, testRef)
		if !ok {
			t.Fatalf("expected %q to resolve", name)
		}
		want := utcDate(2024, time.June, 9+i)
		if !got.Equal(want) {
			t.Fatalf("expected %q to resolve to %v, got %v", name, want, got)
		}
		if sig != SigDate {
			t.Fatalf("expected %q significance %v, got %v", name, SigDate, sig)
		}
	}
}

func TestMonthDayOverflowRolls(t *testing.T) {
	ref := time.Date(2023, time.March, 10, 8, 0, 0, 0, time.UTC)
	got, _, ok := ResolveDatePhrase("february 29", ref)
	if !ok {
		t.Fatalf("expected february 29 to resolve")
	}
	want := utcDate(2023, time.March, 1)
	if !got.Equal(want) {
		t.Fatalf("expected february 29 in a non-leap year to roll to %v, got %v", want, got)
	}
}

func TestResolveKeepsLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	ref := time.Date(2024, time.June, 12, 10, 30, 0, 0, loc)
	got, _, ok := ResolveDatePhrase("tomorrow at 3pm", ref)
	if !ok {
		t.Fatalf("expected phrase to resolve")
	}
	want := time.Date(2024, time.June, 13, 15, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got.Location() != loc {
		t.Fatalf("expected result in the reference location, got %v", got.Location())
	}
}
