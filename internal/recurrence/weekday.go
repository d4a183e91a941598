package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Weekday numbers days ISO-style: 1 is Monday, 7 is Sunday.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var (
	weekdayNames     = [...]string{"", "mon", "tue", "wed", "thu", "fri", "sat", "sun"}
	weekdayFullNames = [...]string{"", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
)

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// Time converts to the standard library weekday.
func (d Weekday) Time() time.Weekday {
	return time.Weekday(int(d) % 7)
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf returns the ISO weekday of a date.
func WeekdayOf(t time.Time) Weekday {
	if t.Weekday() == time.Sunday {
		return Sunday
	}
	return Weekday(t.Weekday())
}

// ParseWeekday accepts names (mon, monday, ...) or the numbers 1-7.
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	for i := Monday; i <= Sunday; i++ {
		if value == weekdayNames[i] || value == weekdayFullNames[i] {
			return i, nil
		}
	}
	if len(value) == 1 && value[0] >= '1' && value[0] <= '7' {
		return Weekday(value[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown weekday %q", raw)
}

// NthWeekday selects the Week-th Weekday of a month. Week runs 1..5, or -1
// for the last such weekday.
type NthWeekday struct {
	Week    int     `json:"week"`
	Weekday Weekday `json:"weekday"`
}

func (n NthWeekday) validate() error {
	if !n.Weekday.Valid() {
		return invalid("nthWeekday", "weekday %d out of range 1-7", int(n.Weekday))
	}
	if n.Week == 0 || n.Week < -1 || n.Week > 5 {
		return invalid("nthWeekday", "week %d must be 1-5 or -1", n.Week)
	}
	return nil
}

// in returns the matching date in the given month. A month without a fifth
// such weekday has no match.
func (n NthWeekday) in(year int, month time.Month) (time.Time, bool) {
	if n.Week == -1 {
		last := daysIn(year, month)
		lastDate := time.Date(year, month, last, 0, 0, 0, 0, time.UTC)
		offset := (int(lastDate.Weekday()) - int(n.Weekday.Time()) + 7) % 7
		return AddDays(lastDate, -offset), true
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(n.Weekday.Time()) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (n.Week-1)*7
	if day > daysIn(year, month) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}
