package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Pattern is the persisted form of a rule. Optional fields are pointers or
// nil slices so that "unset" and "empty" stay distinguishable.
type Pattern struct {
	Type           Frequency   `json:"type"`
	Interval       int         `json:"interval"`
	Weekdays       []Weekday   `json:"weekdays,omitempty"`
	MonthDay       *int        `json:"monthDay,omitempty"`
	NthWeekday     *NthWeekday `json:"nthWeekday,omitempty"`
	EndDate        string      `json:"endDate,omitempty"`
	MaxOccurrences *int        `json:"maxOccurrences,omitempty"`
	ExcludeDates   []string    `json:"excludeDates,omitempty"`
}

// Rule validates the pattern and builds the matching Rule.
func (p Pattern) Rule() (Rule, error) {
	opts, err := p.options()
	if err != nil {
		return Rule{}, err
	}
	if p.Type != Weekly && p.Weekdays != nil {
		return Rule{}, invalid("weekdays", "only valid for weekly rules")
	}
	if p.Type != Monthly && (p.MonthDay != nil || p.NthWeekday != nil) {
		return Rule{}, invalid("monthDay", "only valid for monthly rules")
	}

	switch p.Type {
	case Daily:
		return NewDaily(p.Interval, opts...)
	case Weekly:
		return NewWeekly(p.Interval, p.Weekdays, opts...)
	case Monthly:
		switch {
		case p.MonthDay != nil && p.NthWeekday != nil:
			return Rule{}, invalid("monthDay", "monthDay and nthWeekday are mutually exclusive")
		case p.MonthDay != nil:
			return NewMonthlyOnDay(p.Interval, *p.MonthDay, opts...)
		case p.NthWeekday != nil:
			return NewMonthlyOnWeekday(p.Interval, *p.NthWeekday, opts...)
		default:
			return NewMonthly(p.Interval, opts...)
		}
	case Yearly:
		return NewYearly(p.Interval, opts...)
	case Custom:
		return Rule{}, invalid("type", "custom rules are not supported")
	case "":
		return Rule{}, invalid("type", "missing")
	default:
		return Rule{}, invalid("type", "unknown frequency %q", p.Type)
	}
}

// Validate reports whether the pattern builds a valid rule.
func (p Pattern) Validate() error {
	_, err := p.Rule()
	return err
}

func (p Pattern) options() ([]Option, error) {
	var opts []Option
	if p.EndDate != "" {
		end, err := ParseDate(p.EndDate)
		if err != nil {
			return nil, invalid("endDate", "%v", err)
		}
		opts = append(opts, Until(end))
	}
	if p.MaxOccurrences != nil {
		opts = append(opts, Count(*p.MaxOccurrences))
	}
	if len(p.ExcludeDates) > 0 {
		dates := make([]time.Time, 0, len(p.ExcludeDates))
		for _, raw := range p.ExcludeDates {
			d, err := ParseDate(raw)
			if err != nil {
				return nil, invalid("excludeDates", "%v", err)
			}
			dates = append(dates, d)
		}
		opts = append(opts, Except(dates...))
	}
	return opts, nil
}

// Pattern returns the storage form of the rule.
func (r Rule) Pattern() Pattern {
	p := Pattern{Type: r.freq, Interval: r.interval}
	if r.weekdays != nil {
		p.Weekdays = append([]Weekday(nil), r.weekdays...)
	}
	if r.freq == Monthly {
		if r.nth != nil {
			nth := *r.nth
			p.NthWeekday = &nth
		} else {
			day := r.monthDay
			p.MonthDay = &day
		}
	}
	if !r.endDate.IsZero() {
		p.EndDate = r.endDate.Format(DateLayout)
	}
	if r.maxOccurrences > 0 {
		n := r.maxOccurrences
		p.MaxOccurrences = &n
	}
	for _, d := range r.excludes {
		p.ExcludeDates = append(p.ExcludeDates, d.Format(DateLayout))
	}
	return p
}

// String renders the pattern in the text syntax accepted by ParseText.
func (p Pattern) String() string {
	if p.Type == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(p.Type))
	if p.Interval != 1 {
		fmt.Fprintf(&b, "/%d", p.Interval)
	}
	if len(p.Weekdays) > 0 {
		names := make([]string, len(p.Weekdays))
		for i, d := range p.Weekdays {
			names[i] = d.String()
		}
		fmt.Fprintf(&b, " days=%s", strings.Join(names, ","))
	}
	if p.MonthDay != nil {
		fmt.Fprintf(&b, " day=%d", *p.MonthDay)
	}
	if p.NthWeekday != nil {
		fmt.Fprintf(&b, " nth=%d:%s", p.NthWeekday.Week, p.NthWeekday.Weekday)
	}
	if p.EndDate != "" {
		fmt.Fprintf(&b, " until=%s", p.EndDate)
	}
	if p.MaxOccurrences != nil {
		fmt.Fprintf(&b, " count=%d", *p.MaxOccurrences)
	}
	if len(p.ExcludeDates) > 0 {
		fmt.Fprintf(&b, " except=%s", strings.Join(p.ExcludeDates, ","))
	}
	return b.String()
}
