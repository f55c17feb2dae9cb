package core

import (
	"math"
	"sort"
	"strconv"
)

// DefaultReason labels adjustments recorded without a reason.
const DefaultReason = "Non spécifié"

type (
	// Totals is the rolled-up progress of one user against the annual target.
	// All values are whole minutes; RemainingMinutes goes negative past the
	// target.
	Totals struct {
		TotalMinutes     int
		RemainingMinutes int
		MonthlyMinutes   int
		WeeksRecorded    int
	}

	// WeekPoint is one bar of the trailing-weeks series.
	WeekPoint struct {
		Label      string
		WeekNumber int
		Hours      float64
	}
)

// UserTotals rolls up a user's weeks and manual adjustments. The monthly
// figure covers the calendar month of the most recently started week's
// Monday; now is only the fallback anchor when the user has no weeks yet.
// Inputs are filtered to the user and never mutated.
func UserTotals(user User, weeks []Week, adjustments []ManualAdjustment, now Date) Totals {
	userWeeks := WeeksOf(user.ID, weeks)
	userAdjustments := AdjustmentsOf(user.ID, adjustments)

	total := 0
	for _, w := range userWeeks {
		total += WeekTotal(w)
	}
	for _, a := range userAdjustments {
		total += adjustmentMinutes(a)
	}

	anchor := now
	if latest, ok := latestWeek(userWeeks); ok {
		anchor = latest.StartDate
	}
	monthly := 0
	for _, w := range userWeeks {
		if w.StartDate.SameMonth(anchor) {
			monthly += WeekTotal(w)
		}
	}
	for _, a := range userAdjustments {
		if a.Date.SameMonth(anchor) {
			monthly += adjustmentMinutes(a)
		}
	}

	return Totals{
		TotalMinutes:     total,
		RemainingMinutes: user.AnnualTarget*60 - total,
		MonthlyMinutes:   monthly,
		WeeksRecorded:    len(userWeeks),
	}
}

// AdjustmentsByReason groups signed hour deltas by reason, summing each
// group rounded to 2 decimals. Adjustments without a reason fall under
// DefaultReason; groups summing to exactly zero are dropped.
func AdjustmentsByReason(adjustments []ManualAdjustment) map[string]float64 {
	grouped := map[string]float64{}
	for _, a := range adjustments {
		reason := a.Reason
		if reason == "" {
			reason = DefaultReason
		}
		grouped[reason] += a.Hours
	}
	out := map[string]float64{}
	for reason, hours := range grouped {
		rounded := math.Round(hours*100) / 100
		if rounded != 0 {
			out[reason] = rounded
		}
	}
	return out
}

// TrailingWeeks returns the n most recently started weeks ordered
// oldest-first, each with its "S<weekNumber>" label and decimal-hour total.
// The input slice is left untouched.
func TrailingWeeks(weeks []Week, n int) []WeekPoint {
	sorted := append([]Week(nil), weeks...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartDate.After(sorted[j].StartDate.Time)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	points := make([]WeekPoint, len(sorted))
	for i, w := range sorted {
		points[len(sorted)-1-i] = WeekPoint{
			Label:      weekLabel(w.WeekNumber),
			WeekNumber: w.WeekNumber,
			Hours:      MinutesToHours(WeekTotal(w)),
		}
	}
	return points
}

// HolidaySplit sums week totals separately for classic and holiday weeks.
func HolidaySplit(weeks []Week) (classic, holiday int) {
	for _, w := range weeks {
		if w.IsHolidayWeek {
			holiday += WeekTotal(w)
		} else {
			classic += WeekTotal(w)
		}
	}
	return classic, holiday
}

func adjustmentMinutes(a ManualAdjustment) int {
	return int(math.Round(a.Hours * 60))
}

func latestWeek(weeks []Week) (Week, bool) {
	if len(weeks) == 0 {
		return Week{}, false
	}
	latest := weeks[0]
	for _, w := range weeks[1:] {
		if w.StartDate.After(latest.StartDate.Time) {
			latest = w
		}
	}
	return latest, true
}

func weekLabel(weekNumber int) string {
	return "S" + strconv.Itoa(weekNumber)
}
