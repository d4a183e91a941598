package recurrence

import (
	"errors"
	"testing"
	"time"
)

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := ParseDate(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return d
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(DateLayout)
	}
	return out
}

func assertDates(t *testing.T, got []time.Time, want ...string) {
	t.Helper()
	g := formatDates(got)
	if len(g) != len(want) {
		t.Fatalf("want %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("want %v, got %v", want, g)
		}
	}
}

func mustRule(t *testing.T) func(Rule, error) Rule {
	t.Helper()
	return func(r Rule, err error) Rule {
		t.Helper()
		if err != nil {
			t.Fatalf("build rule: %v", err)
		}
		return r
	}
}

func TestWeeklyMondayFriday(t *testing.T) {
	r := mustRule(t)(NewWeekly(1, []Weekday{Monday, Friday}))
	got := r.DatesInWindow(date(t, "2024-01-01"), date(t, "2024-01-01"), date(t, "2024-01-14"), 0)
	assertDates(t, got, "2024-01-01", "2024-01-05", "2024-01-08", "2024-01-12")
}

func TestMonthlyDay31ClampsToMonthEnd(t *testing.T) {
	r := mustRule(t)(NewMonthlyOnDay(1, 31))
	got := r.DatesInWindow(date(t, "2024-01-31"), date(t, "2024-01-31"), date(t, "2024-04-30"), 0)
	assertDates(t, got, "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30")

	got = r.DatesInWindow(date(t, "2023-01-31"), date(t, "2023-02-01"), date(t, "2023-03-05"), 0)
	assertDates(t, got, "2023-02-28")
}

func TestDailyMaxOccurrences(t *testing.T) {
	r := mustRule(t)(NewDaily(1, Count(3)))
	got := r.DatesInWindow(date(t, "2024-06-01"), date(t, "2024-06-01"), date(t, "2025-06-01"), 0)
	assertDates(t, got, "2024-06-01", "2024-06-02", "2024-06-03")
}

func TestDailyIntervalKeepsAnchorPhase(t *testing.T) {
	anchor := date(t, "2024-03-01")
	for _, interval := range []int{1, 2, 3, 5, 10} {
		r := mustRule(t)(NewDaily(interval))
		start, end := date(t, "2024-03-04"), date(t, "2024-04-20")
		got := r.DatesInWindow(anchor, start, end, 0)

		var want []string
		for d := anchor; !d.After(end); d = AddDays(d, interval) {
			if !d.Before(start) {
				want = append(want, d.Format(DateLayout))
			}
		}
		assertDates(t, got, want...)
	}
}

func TestWeeklyProperties(t *testing.T) {
	r := mustRule(t)(NewWeekly(1, []Weekday{Monday, Wednesday}))
	got := r.DatesInWindow(date(t, "2024-02-07"), date(t, "2024-02-01"), date(t, "2024-05-31"), 0)
	if len(got) == 0 {
		t.Fatal("expected occurrences")
	}
	last := map[time.Weekday]time.Time{}
	for i, d := range got {
		if wd := d.Weekday(); wd != time.Monday && wd != time.Wednesday {
			t.Fatalf("unexpected weekday %s on %s", wd, d.Format(DateLayout))
		}
		if i > 0 && !got[i-1].Before(d) {
			t.Fatalf("dates not strictly increasing at %d", i)
		}
		if prev, ok := last[d.Weekday()]; ok && DaysBetween(prev, d) != 7 {
			t.Fatalf("same weekday gap %d days between %s and %s", DaysBetween(prev, d), prev.Format(DateLayout), d.Format(DateLayout))
		}
		last[d.Weekday()] = d
	}
	if got[0].Format(DateLayout) != "2024-02-07" {
		t.Fatalf("expected first occurrence on the anchor, got %s", got[0].Format(DateLayout))
	}
}

func TestWeeklyDefaultsToAnchorWeekday(t *testing.T) {
	r := mustRule(t)(NewWeekly(2, nil))
	got := r.DatesInWindow(date(t, "2024-01-03"), date(t, "2024-01-10"), date(t, "2024-02-15"), 0)
	assertDates(t, got, "2024-01-17", "2024-01-31", "2024-02-14")
}

func TestMonthlyDefaultsToFirstDay(t *testing.T) {
	r := mustRule(t)(NewMonthly(2))
	got := r.DatesInWindow(date(t, "2024-01-01"), date(t, "2024-01-01"), date(t, "2024-07-31"), 0)
	assertDates(t, got, "2024-01-01", "2024-03-01", "2024-05-01", "2024-07-01")
}

func TestMonthlyNthWeekday(t *testing.T) {
	second := mustRule(t)(NewMonthlyOnWeekday(1, NthWeekday{Week: 2, Weekday: Tuesday}))
	got := second.DatesInWindow(date(t, "2024-01-01"), date(t, "2024-01-01"), date(t, "2024-03-31"), 0)
	assertDates(t, got, "2024-01-09", "2024-02-13", "2024-03-12")

	last := mustRule(t)(NewMonthlyOnWeekday(1, NthWeekday{Week: -1, Weekday: Friday}))
	got = last.DatesInWindow(date(t, "2024-01-01"), date(t, "2024-01-01"), date(t, "2024-03-31"), 0)
	assertDates(t, got, "2024-01-26", "2024-02-23", "2024-03-29")

	fifth := mustRule(t)(NewMonthlyOnWeekday(1, NthWeekday{Week: 5, Weekday: Monday}))
	got = fifth.DatesInWindow(date(t, "2024-01-01"), date(t, "2024-01-01"), date(t, "2024-04-30"), 0)
	assertDates(t, got, "2024-01-29", "2024-04-29")
}

func TestYearlyLeapDayAnchor(t *testing.T) {
	r := mustRule(t)(NewYearly(1))
	got := r.DatesInWindow(date(t, "2024-02-29"), date(t, "2024-01-01"), date(t, "2028-12-31"), 0)
	assertDates(t, got, "2024-02-29", "2025-02-28", "2026-02-28", "2027-02-28", "2028-02-29")
}

func TestYearlyInterval(t *testing.T) {
	r := mustRule(t)(NewYearly(2))
	got := r.DatesInWindow(date(t, "2020-07-15"), date(t, "2021-01-01"), date(t, "2026-12-31"), 0)
	assertDates(t, got, "2022-07-15", "2024-07-15", "2026-07-15")
}

func TestEndDateIsInclusive(t *testing.T) {
	r := mustRule(t)(NewDaily(1, Until(date(t, "2024-06-03"))))
	got := r.DatesInWindow(date(t, "2024-06-01"), date(t, "2024-06-01"), date(t, "2024-06-30"), 0)
	assertDates(t, got, "2024-06-01", "2024-06-02", "2024-06-03")
}

func TestEndDateAndCountWhicheverFirst(t *testing.T) {
	byCount := mustRule(t)(NewDaily(1, Until(date(t, "2024-06-10")), Count(2)))
	assertDates(t, byCount.DatesInWindow(date(t, "2024-06-01"), date(t, "2024-06-01"), date(t, "2024-06-30"), 0),
		"2024-06-01", "2024-06-02")

	byEnd := mustRule(t)(NewDaily(1, Until(date(t, "2024-06-02")), Count(10)))
	assertDates(t, byEnd.DatesInWindow(date(t, "2024-06-01"), date(t, "2024-06-01"), date(t, "2024-06-30"), 0),
		"2024-06-01", "2024-06-02")
}

func TestCountAcrossWindows(t *testing.T) {
	r := mustRule(t)(NewDaily(1, Count(5)))
	anchor := date(t, "2024-06-01")
	start := date(t, "2024-06-04")
	before := r.OccurrencesBefore(anchor, start)
	if before != 3 {
		t.Fatalf("want 3 occurrences before window, got %d", before)
	}
	got := r.DatesInWindow(anchor, start, date(t, "2024-06-30"), before)
	assertDates(t, got, "2024-06-04", "2024-06-05")

	if got := r.DatesInWindow(anchor, start, date(t, "2024-06-30"), 5); len(got) != 0 {
		t.Fatalf("expected nothing once the cap is reached, got %v", formatDates(got))
	}
}

func TestExcludedDatesAreSkipped(t *testing.T) {
	r := mustRule(t)(NewDaily(1, Count(3), Except(date(t, "2024-06-02"))))
	got := r.DatesInWindow(date(t, "2024-06-01"), date(t, "2024-06-01"), date(t, "2024-06-30"), 0)
	assertDates(t, got, "2024-06-01", "2024-06-03", "2024-06-04")
}

func TestWindowBeforeAnchorAndInverted(t *testing.T) {
	r := mustRule(t)(NewDaily(1))
	got := r.DatesInWindow(date(t, "2024-06-10"), date(t, "2024-06-01"), date(t, "2024-06-11"), 0)
	assertDates(t, got, "2024-06-10", "2024-06-11")

	if got := r.DatesInWindow(date(t, "2024-06-10"), date(t, "2024-06-12"), date(t, "2024-06-11"), 0); len(got) != 0 {
		t.Fatalf("inverted window should be empty, got %v", formatDates(got))
	}
}

func TestTimeOfDayIsIgnored(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	r := mustRule(t)(NewDaily(1))
	anchor := time.Date(2024, 6, 1, 23, 30, 0, 0, loc)
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, loc)
	end := time.Date(2024, 6, 2, 1, 0, 0, 0, loc)
	assertDates(t, r.DatesInWindow(anchor, start, end, 0), "2024-06-01", "2024-06-02")
}

func TestNext(t *testing.T) {
	r := mustRule(t)(NewWeekly(1, []Weekday{Thursday}))
	next, ok := r.Next(date(t, "2024-01-01"), date(t, "2024-01-05"))
	if !ok || next.Format(DateLayout) != "2024-01-11" {
		t.Fatalf("want 2024-01-11, got %v (%t)", next, ok)
	}

	capped := mustRule(t)(NewDaily(1, Count(2)))
	if _, ok := capped.Next(date(t, "2024-01-01"), date(t, "2024-01-03")); ok {
		t.Fatal("expected no next occurrence after the cap")
	}
}

func TestInvalidRules(t *testing.T) {
	day31 := 31
	cases := []struct {
		name string
		p    Pattern
	}{
		{"zero interval", Pattern{Type: Daily, Interval: 0}},
		{"negative interval", Pattern{Type: Weekly, Interval: -1}},
		{"huge interval", Pattern{Type: Yearly, Interval: MaxInterval + 1}},
		{"empty weekday set", Pattern{Type: Weekly, Interval: 1, Weekdays: []Weekday{}}},
		{"weekday out of range", Pattern{Type: Weekly, Interval: 1, Weekdays: []Weekday{8}}},
		{"ambiguous monthly", Pattern{Type: Monthly, Interval: 1, MonthDay: &day31, NthWeekday: &NthWeekday{Week: 1, Weekday: Monday}}},
		{"bad nth week", Pattern{Type: Monthly, Interval: 1, NthWeekday: &NthWeekday{Week: 6, Weekday: Monday}}},
		{"custom", Pattern{Type: Custom, Interval: 1}},
		{"unknown", Pattern{Type: "hourly", Interval: 1}},
		{"missing type", Pattern{Interval: 1}},
		{"weekdays on daily", Pattern{Type: Daily, Interval: 1, Weekdays: []Weekday{Monday}}},
		{"bad end date", Pattern{Type: Daily, Interval: 1, EndDate: "31.12.2024"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.p.Rule()
			var ruleErr *InvalidRuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("want InvalidRuleError, got %v", err)
			}
		})
	}

	zero := 0
	if err := (Pattern{Type: Daily, Interval: 1, MaxOccurrences: &zero}).Validate(); err == nil {
		t.Fatal("expected zero maxOccurrences to be rejected")
	}
}

func TestPackageDatesInWindow(t *testing.T) {
	day := 15
	p := Pattern{Type: Monthly, Interval: 1, MonthDay: &day}
	got, err := DatesInWindow(p, date(t, "2024-01-15"), date(t, "2024-01-01"), date(t, "2024-03-01"), 0)
	if err != nil {
		t.Fatalf("DatesInWindow: %v", err)
	}
	assertDates(t, got, "2024-01-15", "2024-02-15")

	if _, err := DatesInWindow(Pattern{Type: Custom, Interval: 1}, date(t, "2024-01-15"), date(t, "2024-01-01"), date(t, "2024-03-01"), 0); err == nil {
		t.Fatal("expected custom rule to be rejected")
	}
}
