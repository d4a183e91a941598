package recurrence

import (
	"strconv"
	"strings"
)

// ParseText reads the compact rule syntax used by the bot and the CLI:
//
//	daily
//	weekly/2 days=mon,fri
//	monthly day=31 until=2025-12-31
//	monthly nth=-1:fri count=12
//	yearly except=2025-03-01
//
// The returned pattern has already been validated.
func ParseText(text string) (Pattern, error) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return Pattern{}, invalid("type", "missing")
	}

	head, rawInterval, hasInterval := strings.Cut(fields[0], "/")
	p := Pattern{Type: Frequency(head), Interval: 1}
	if hasInterval {
		n, err := strconv.Atoi(rawInterval)
		if err != nil {
			return Pattern{}, invalid("interval", "%q is not a number", rawInterval)
		}
		p.Interval = n
	}

	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok || value == "" {
			return Pattern{}, invalid("", "expected key=value, got %q", field)
		}
		switch key {
		case "days":
			p.Weekdays = []Weekday{}
			for _, name := range strings.Split(value, ",") {
				d, err := ParseWeekday(name)
				if err != nil {
					return Pattern{}, invalid("weekdays", "%v", err)
				}
				p.Weekdays = append(p.Weekdays, d)
			}
		case "day":
			day, err := strconv.Atoi(value)
			if err != nil {
				return Pattern{}, invalid("monthDay", "%q is not a number", value)
			}
			p.MonthDay = &day
		case "nth":
			rawWeek, rawDay, ok := strings.Cut(value, ":")
			if !ok {
				return Pattern{}, invalid("nthWeekday", "expected week:weekday, got %q", value)
			}
			week, err := strconv.Atoi(rawWeek)
			if rawWeek == "last" {
				week, err = -1, nil
			}
			if err != nil {
				return Pattern{}, invalid("nthWeekday", "%q is not a week number", rawWeek)
			}
			wd, err := ParseWeekday(rawDay)
			if err != nil {
				return Pattern{}, invalid("nthWeekday", "%v", err)
			}
			p.NthWeekday = &NthWeekday{Week: week, Weekday: wd}
		case "until":
			p.EndDate = value
		case "count":
			n, err := strconv.Atoi(value)
			if err != nil {
				return Pattern{}, invalid("maxOccurrences", "%q is not a number", value)
			}
			p.MaxOccurrences = &n
		case "except":
			p.ExcludeDates = append(p.ExcludeDates, strings.Split(value, ",")...)
		default:
			return Pattern{}, invalid("", "unknown option %q", key)
		}
	}

	if err := p.Validate(); err != nil {
		return Pattern{}, err
	}
	return p, nil
}
