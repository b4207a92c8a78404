package utils

import "time"

// DateLayout is the wire format for civil dates in the operating zone
const DateLayout = "2006-01-02"

// CivilDate formats an instant as a civil date in the given zone
func CivilDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// ParseDate parses a "YYYY-MM-DD" civil date
func ParseDate(date string) (time.Time, error) {
	return time.Parse(DateLayout, date)
}

// NextDay returns the civil date one day after the given one
func NextDay(date string) string {
	return AddDays(date, 1)
}

// PrevDay returns the civil date one day before the given one
func PrevDay(date string) string {
	return AddDays(date, -1)
}

// AddDays shifts a civil date by n days
func AddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// DaysBetween returns b - a in whole days; 0 if either date is malformed
func DaysBetween(a, b string) int {
	ta, err := ParseDate(a)
	if err != nil {
		return 0
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}

// MonthRange returns the first and last civil dates of a month
func MonthRange(year, month int) (string, string) {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}
