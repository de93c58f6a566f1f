package pipeline

import (
	"time"

	"github.com/jdejaegh/ics-fusion/internal/config"
)

// applyText rewrites one text field value. RedactAs replaces the value
// outright; otherwise prefix and suffix wrap it, either side optional.
func applyText(value string, rule *config.TextModify) string {
	if rule == nil {
		return value
	}
	if rule.RedactAs != nil {
		return *rule.RedactAs
	}
	return rule.AddPrefix + value + rule.AddSuffix
}

// applyShift moves a timestamp by the configured calendar offset: years and
// months first, with the day clamped to the target month's length (Jan 31
// plus one month is Feb 28, not an overflow into March), then whole days,
// then hours and minutes as a plain duration.
func applyShift(t time.Time, s config.TimeShift) time.Time {
	if t.IsZero() || s.IsZero() {
		return t
	}

	t = addYearsMonths(t, s.Year, s.Month)
	t = t.AddDate(0, 0, s.Day)
	return t.Add(time.Duration(s.Hour)*time.Hour + time.Duration(s.Minute)*time.Minute)
}

func addYearsMonths(t time.Time, years, months int) time.Time {
	if years == 0 && months == 0 {
		return t
	}

	year := t.Year() + years
	month := int(t.Month()) - 1 + months
	year += month / 12
	month %= 12
	if month < 0 {
		month += 12
		year--
	}

	m := time.Month(month + 1)
	day := t.Day()
	if last := daysIn(year, m); day > last {
		day = last
	}

	return time.Date(year, m, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month; day 0 of the next
// month normalizes to the last day of this one.
func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
