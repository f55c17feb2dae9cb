package core

// ISOWeekNumber returns the ISO-8601 week number of the date: weeks start
// on Monday, week 1 is the week containing the first Thursday of the year.
func ISOWeekNumber(d Date) int {
	_, week := d.ISOWeek()
	return week
}

// ISOWeekday returns the ISO weekday index, Monday=1 .. Sunday=7.
func ISOWeekday(d Date) int {
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return wd
}

// MondayOf returns the Monday on or before the date. Any user-picked date
// is normalized through this before anchoring a week.
func MondayOf(d Date) Date {
	return d.AddDays(1 - ISOWeekday(d))
}
