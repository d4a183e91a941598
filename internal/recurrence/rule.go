// Package recurrence turns recurring task rules into concrete calendar dates.
//
// A Rule is built through one constructor per frequency and is always valid
// once constructed. Pattern is its loosely typed storage form; Pattern.Rule
// performs the validation. Expansion works on calendar dates only: every
// time.Time that enters the package is reduced with DateOf.
package recurrence

import (
	"sort"
	"time"
)

// Frequency is the rule discriminant.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
	Custom  Frequency = "custom"
)

// MaxInterval bounds the repeat interval so date arithmetic stays in range.
const MaxInterval = 1000

// Rule is a validated recurrence rule.
type Rule struct {
	freq     Frequency
	interval int

	weekdays []Weekday // weekly; nil repeats on the anchor's weekday
	monthDay int       // monthly by day of month
	nth      *NthWeekday

	endDate        time.Time // zero when unbounded
	maxOccurrences int       // zero when unbounded
	excludes       []time.Time
	excluded       map[string]struct{}
}

// Option adds a termination or exclusion constraint to a rule.
type Option func(*Rule) error

// Until stops the rule after end (inclusive).
func Until(end time.Time) Option {
	return func(r *Rule) error {
		if end.IsZero() {
			return invalid("endDate", "must not be zero")
		}
		r.endDate = DateOf(end)
		return nil
	}
}

// Count caps the total number of occurrences over the rule's whole history.
func Count(n int) Option {
	return func(r *Rule) error {
		if n <= 0 {
			return invalid("maxOccurrences", "must be positive, got %d", n)
		}
		r.maxOccurrences = n
		return nil
	}
}

// Except skips the given dates even when they match the pattern.
func Except(dates ...time.Time) Option {
	return func(r *Rule) error {
		if r.excluded == nil {
			r.excluded = make(map[string]struct{}, len(dates))
		}
		for _, d := range dates {
			d = DateOf(d)
			key := d.Format(DateLayout)
			if _, dup := r.excluded[key]; dup {
				continue
			}
			r.excluded[key] = struct{}{}
			r.excludes = append(r.excludes, d)
		}
		sort.Slice(r.excludes, func(i, j int) bool { return r.excludes[i].Before(r.excludes[j]) })
		return nil
	}
}

func newRule(freq Frequency, interval int, opts []Option) (Rule, error) {
	if interval <= 0 {
		return Rule{}, invalid("interval", "must be positive, got %d", interval)
	}
	if interval > MaxInterval {
		return Rule{}, invalid("interval", "must be at most %d, got %d", MaxInterval, interval)
	}
	r := Rule{freq: freq, interval: interval}
	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return Rule{}, err
		}
	}
	return r, nil
}

// NewDaily repeats every interval days.
func NewDaily(interval int, opts ...Option) (Rule, error) {
	return newRule(Daily, interval, opts)
}

// NewWeekly repeats on the given weekdays every interval weeks. A nil set
// means the anchor's weekday; an empty non-nil set is rejected.
func NewWeekly(interval int, weekdays []Weekday, opts ...Option) (Rule, error) {
	r, err := newRule(Weekly, interval, opts)
	if err != nil {
		return Rule{}, err
	}
	if weekdays == nil {
		return r, nil
	}
	if len(weekdays) == 0 {
		return Rule{}, invalid("weekdays", "weekly rule with an empty weekday set")
	}
	seen := make(map[Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		if !d.Valid() {
			return Rule{}, invalid("weekdays", "weekday %d out of range 1-7", int(d))
		}
		if !seen[d] {
			seen[d] = true
			r.weekdays = append(r.weekdays, d)
		}
	}
	sort.Slice(r.weekdays, func(i, j int) bool { return r.weekdays[i] < r.weekdays[j] })
	return r, nil
}

// NewMonthly repeats on the first day of every interval months.
func NewMonthly(interval int, opts ...Option) (Rule, error) {
	return NewMonthlyOnDay(interval, 1, opts...)
}

// NewMonthlyOnDay repeats on a day of month, clamped to shorter months.
func NewMonthlyOnDay(interval, day int, opts ...Option) (Rule, error) {
	if day < 1 || day > 31 {
		return Rule{}, invalid("monthDay", "day %d out of range 1-31", day)
	}
	r, err := newRule(Monthly, interval, opts)
	if err != nil {
		return Rule{}, err
	}
	r.monthDay = day
	return r, nil
}

// NewMonthlyOnWeekday repeats on the nth weekday of every interval months.
func NewMonthlyOnWeekday(interval int, nth NthWeekday, opts ...Option) (Rule, error) {
	if err := nth.validate(); err != nil {
		return Rule{}, err
	}
	r, err := newRule(Monthly, interval, opts)
	if err != nil {
		return Rule{}, err
	}
	r.nth = &nth
	return r, nil
}

// NewYearly repeats on the anchor's month and day every interval years.
// A Feb 29 anchor falls on Feb 28 in common years.
func NewYearly(interval int, opts ...Option) (Rule, error) {
	return newRule(Yearly, interval, opts)
}

func (r Rule) Frequency() Frequency { return r.freq }
func (r Rule) Interval() int         { return r.interval }

// EndDate reports the inclusive upper bound, if any.
func (r Rule) EndDate() (time.Time, bool) {
	return r.endDate, !r.endDate.IsZero()
}

// MaxOccurrences returns the occurrence cap, zero when unbounded.
func (r Rule) MaxOccurrences() int { return r.maxOccurrences }

func (r Rule) isExcluded(d time.Time) bool {
	if len(r.excluded) == 0 {
		return false
	}
	_, ok := r.excluded[d.Format(DateLayout)]
	return ok
}
