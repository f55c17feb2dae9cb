package core

import "testing"

func TestParseClockMinutes(t *testing.T) {
	cases := []struct {
		in  string
		out int
	}{
		{"00:00", 0},
		{"07:10", 430},
		{"11:55", 715},
		{"23:59", 1439},
		{"8:05", 485},
		{"garbage", 0},
		{"", 0},
		{"12h30", 0},
		{"ab:cd", 0},
	}
	for _, tc := range cases {
		if got := ParseClockMinutes(tc.in); got != tc.out {
			t.Errorf("ParseClockMinutes(%q) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestEntryDuration(t *testing.T) {
	cases := []struct {
		name  string
		entry TimeEntry
		out   int
	}{
		{"morning span", TimeEntry{Start: "07:10", End: "08:30"}, 80},
		{"lunch span", TimeEntry{Start: "11:55", End: "13:50"}, 115},
		{"zero span", TimeEntry{Start: "09:00", End: "09:00"}, 0},
		{"overnight goes negative", TimeEntry{Start: "22:00", End: "06:00"}, -960},
		{"malformed end counts as midnight", TimeEntry{Start: "08:00", End: "oops"}, -480},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EntryDuration(tc.entry); got != tc.out {
				t.Fatalf("got %d, want %d", got, tc.out)
			}
		})
	}
}

func TestWeekTotalEqualsDaySums(t *testing.T) {
	week := Week{
		Days: []Day{
			{Date: NewDate(2025, 9, 1), Entries: []TimeEntry{
				{Start: "07:10", End: "08:30"},
				{Start: "11:55", End: "13:50"},
			}},
			{Date: NewDate(2025, 9, 2), Entries: []TimeEntry{
				{Start: "09:00", End: "12:00"},
			}},
		},
	}

	daySum := 0
	entrySum := 0
	for _, day := range week.Days {
		daySum += DayTotal(day)
		for _, entry := range day.Entries {
			entrySum += EntryDuration(entry)
		}
	}
	if got := WeekTotal(week); got != daySum || got != entrySum {
		t.Fatalf("WeekTotal = %d, day sum = %d, entry sum = %d", got, daySum, entrySum)
	}
	if got := WeekTotal(week); got != 80+115+180 {
		t.Fatalf("WeekTotal = %d, want %d", got, 80+115+180)
	}

	// A negative entry reduces the total without clamping.
	week.Days[0].Entries = append(week.Days[0].Entries, TimeEntry{Start: "15:00", End: "14:00"})
	if got := WeekTotal(week); got != 80+115+180-60 {
		t.Fatalf("WeekTotal with negative entry = %d, want %d", got, 80+115+180-60)
	}
}

func TestTemplateTotal(t *testing.T) {
	template := WeekTemplate{
		Days: []DayTemplate{
			{Weekday: 1, Entries: []TimeEntry{
				{Start: "07:10", End: "08:30"},
				{Start: "11:55", End: "13:50"},
			}},
		},
	}
	if got := TemplateTotal(template); got != 195 {
		t.Fatalf("TemplateTotal = %d, want 195", got)
	}
}

func TestFormatMinutesHM(t *testing.T) {
	cases := []struct {
		in  int
		out string
	}{
		{0, "0h 00m"},
		{5, "0h 05m"},
		{60, "1h 00m"},
		{195, "3h 15m"},
		{1439, "23h 59m"},
		{-30, "0h 00m"}, // display floor, not stored
	}
	for _, tc := range cases {
		if got := FormatMinutesHM(tc.in); got != tc.out {
			t.Errorf("FormatMinutesHM(%d) = %q, want %q", tc.in, got, tc.out)
		}
	}
}

func TestMinutesToHours(t *testing.T) {
	cases := []struct {
		in  int
		out float64
	}{
		{0, 0},
		{60, 1},
		{90, 1.5},
		{100, 1.67},
		{195, 3.25},
		{-30, -0.5},
	}
	for _, tc := range cases {
		if got := MinutesToHours(tc.in); got != tc.out {
			t.Errorf("MinutesToHours(%d) = %v, want %v", tc.in, got, tc.out)
		}
	}
}

// Round-trip through 2-decimal hours drifts at most one minute for totals
// under ~10 hours.
func TestHourRoundTripDrift(t *testing.T) {
	for m := 0; m <= 600; m++ {
		back := int(MinutesToHours(m) * 60)
		drift := back - m
		if drift < -1 || drift > 1 {
			t.Fatalf("minutes %d round-trips to %d (drift %d)", m, back, drift)
		}
	}
}
