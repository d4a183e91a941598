package recurrence

import "time"

// DatesInWindow returns the occurrence dates inside [windowStart, windowEnd]
// in increasing order. Expansion starts at max(anchor, windowStart).
// occurrencesBeforeWindow is the number of occurrences the rule produced
// before windowStart; it only matters when the rule carries a Count cap.
// Excluded dates are skipped and do not use up the cap.
func (r Rule) DatesInWindow(anchor, windowStart, windowEnd time.Time, occurrencesBeforeWindow int) []time.Time {
	if r.interval <= 0 {
		return nil
	}
	anchor = DateOf(anchor)
	from, limit := DateOf(windowStart), DateOf(windowEnd)
	if anchor.After(from) {
		from = anchor
	}
	if !r.endDate.IsZero() && r.endDate.Before(limit) {
		limit = r.endDate
	}

	count := occurrencesBeforeWindow
	if r.maxOccurrences > 0 && count >= r.maxOccurrences {
		return nil
	}

	var dates []time.Time
	r.walk(anchor, from, limit, func(d time.Time) bool {
		if r.isExcluded(d) {
			return true
		}
		if r.maxOccurrences > 0 && count >= r.maxOccurrences {
			return false
		}
		count++
		dates = append(dates, d)
		return true
	})
	return dates
}

// DatesInWindow validates p and expands it. See Rule.DatesInWindow.
func DatesInWindow(p Pattern, anchor, windowStart, windowEnd time.Time, occurrencesBeforeWindow int) ([]time.Time, error) {
	r, err := p.Rule()
	if err != nil {
		return nil, err
	}
	return r.DatesInWindow(anchor, windowStart, windowEnd, occurrencesBeforeWindow), nil
}

// OccurrencesBefore counts the occurrences in [anchor, date), capped at the
// rule's Count when it has one.
func (r Rule) OccurrencesBefore(anchor, date time.Time) int {
	anchor, date = DateOf(anchor), DateOf(date)
	if !date.After(anchor) {
		return 0
	}
	return len(r.DatesInWindow(anchor, anchor, AddDays(date, -1), 0))
}

// Next returns the first occurrence on or after on. The search is bounded by
// the rule's end date, or by thirty intervals of years when unbounded, which
// covers the full weekday/leap cycle.
func (r Rule) Next(anchor, on time.Time) (time.Time, bool) {
	if r.interval <= 0 {
		return time.Time{}, false
	}
	anchor, on = DateOf(anchor), DateOf(on)
	if r.maxOccurrences > 0 && r.OccurrencesBefore(anchor, on) >= r.maxOccurrences {
		return time.Time{}, false
	}
	from, limit := on, on.AddDate(30*r.interval, 0, 0)
	if anchor.After(from) {
		from = anchor
	}
	if !r.endDate.IsZero() && r.endDate.Before(limit) {
		limit = r.endDate
	}

	var next time.Time
	found := false
	r.walk(anchor, from, limit, func(d time.Time) bool {
		if r.isExcluded(d) {
			return true
		}
		next, found = d, true
		return false
	})
	return next, found
}

// walk calls yield for every pattern date in [from, limit] in order, ignoring
// exclusions and the occurrence cap. from must not precede anchor. Periods
// are aligned on the anchor: day, ISO week, month or year of the anchor,
// then every interval periods after it.
func (r Rule) walk(anchor, from, limit time.Time, yield func(time.Time) bool) {
	if limit.Before(from) {
		return
	}
	switch r.freq {
	case Daily:
		k := ceilDiv(DaysBetween(anchor, from), r.interval)
		for d := AddDays(anchor, k*r.interval); !d.After(limit); d = AddDays(d, r.interval) {
			if !yield(d) {
				return
			}
		}
	case Weekly:
		days := r.weekdays
		if days == nil {
			days = []Weekday{WeekdayOf(anchor)}
		}
		base := mondayOf(anchor)
		k := ceilDiv(DaysBetween(base, mondayOf(from))/7, r.interval)
		for week := AddDays(base, 7*k*r.interval); !week.After(limit); week = AddDays(week, 7*r.interval) {
			for _, wd := range days {
				d := AddDays(week, int(wd)-1)
				if d.Before(from) {
					continue
				}
				if d.After(limit) || !yield(d) {
					return
				}
			}
		}
	case Monthly:
		base := monthIndex(anchor)
		k := ceilDiv(monthIndex(from)-base, r.interval)
		for m := base + k*r.interval; !firstOfMonth(m).After(limit); m += r.interval {
			d, ok := r.monthlyDate(m)
			if !ok || d.Before(from) {
				continue
			}
			if d.After(limit) || !yield(d) {
				return
			}
		}
	case Yearly:
		base := anchor.Year()
		k := ceilDiv(from.Year()-base, r.interval)
		for y := base + k*r.interval; y <= limit.Year(); y += r.interval {
			d := clampDate(y, anchor.Month(), anchor.Day())
			if d.Before(from) {
				continue
			}
			if d.After(limit) || !yield(d) {
				return
			}
		}
	}
}

func (r Rule) monthlyDate(index int) (time.Time, bool) {
	first := firstOfMonth(index)
	if r.nth != nil {
		return r.nth.in(first.Year(), first.Month())
	}
	day := r.monthDay
	if day == 0 {
		day = 1
	}
	return clampDate(first.Year(), first.Month(), day), true
}
