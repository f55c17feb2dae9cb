// Package core provides the pure time-accounting computations.
//
// This file handles "HH:MM" clock parsing and the entry/day/week/template
// duration sums. Everything returns whole minutes; a malformed clock string
// degrades to zero minutes instead of failing the enclosing total.
package core

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ParseClockMinutes converts a "HH:MM" string to minutes since midnight.
// On malformed input it logs the problem and returns 0, so a single bad
// entry degrades a total rather than aborting it.
func ParseClockMinutes(clock string) int {
	h, m, ok := strings.Cut(clock, ":")
	if !ok {
		slog.Error("Invalid time string", "value", clock)
		return 0
	}
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		slog.Error("Invalid time string", "value", clock, "error", err)
		return 0
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		slog.Error("Invalid time string", "value", clock, "error", err)
		return 0
	}
	return hours*60 + minutes
}

// EntryDuration returns end minus start in minutes. The result is negative
// for overnight or malformed entries; callers sum without clamping.
func EntryDuration(entry TimeEntry) int {
	return ParseClockMinutes(entry.End) - ParseClockMinutes(entry.Start)
}

// DayTotal sums the durations of all entries in a day.
func DayTotal(day Day) int {
	total := 0
	for _, entry := range day.Entries {
		total += EntryDuration(entry)
	}
	return total
}

// WeekTotal sums the day totals of a week.
func WeekTotal(week Week) int {
	total := 0
	for _, day := range week.Days {
		total += DayTotal(day)
	}
	return total
}

// TemplateTotal sums entry durations over every weekday definition in a
// template. Mirrors WeekTotal for entries that carry no identifier yet.
func TemplateTotal(template WeekTemplate) int {
	total := 0
	for _, day := range template.Days {
		for _, entry := range day.Entries {
			total += EntryDuration(entry)
		}
	}
	return total
}

// FormatMinutesHM formats minutes as "<H>h <MM>m" with zero-padded minutes.
// Negative input is floored to zero; this is display-only and does not
// touch stored totals.
func FormatMinutesHM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// MinutesToHours converts minutes to decimal hours rounded to 2 places,
// for charting and CSV output.
func MinutesToHours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}
