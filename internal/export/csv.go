// Package export renders a user's recorded weeks and adjustments as a
// CSV report suitable for spreadsheet import.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"pointage/internal/core"
)

// utf8BOM makes Excel detect the encoding of accented headers.
const utf8BOM = "\ufeff"

var csvHeader = []string{"Date", "Type", "Description/Raison", "Total Heures"}

// Filename returns the report file name for a user.
func Filename(user core.User) string {
	return fmt.Sprintf("rapport_heures_%s.csv", strings.ToLower(user.Name))
}

// WriteCSV writes the hour report for one user: one row per recorded week
// followed by one row per manual adjustment, each group most recent first.
func WriteCSV(w io.Writer, user core.User, weeks []core.Week, adjustments []core.ManualAdjustment) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	userWeeks := core.WeeksOf(user.ID, weeks)
	sort.Slice(userWeeks, func(i, j int) bool {
		return userWeeks[i].StartDate.After(userWeeks[j].StartDate.Time)
	})
	for _, week := range userWeeks {
		row := []string{
			week.StartDate.Format("02/01/2006"),
			"Semaine",
			fmt.Sprintf("S%d - %s", week.WeekNumber, week.Type),
			core.FormatMinutesHM(core.WeekTotal(week)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write week row: %w", err)
		}
	}

	userAdjustments := core.AdjustmentsOf(user.ID, adjustments)
	sort.Slice(userAdjustments, func(i, j int) bool {
		return userAdjustments[i].Date.After(userAdjustments[j].Date.Time)
	})
	for _, adj := range userAdjustments {
		row := []string{
			adj.Date.Format("02/01/2006"),
			"Ajustement",
			adj.Reason,
			formatSignedHours(adj.Hours),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write adjustment row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatSignedHours renders an adjustment as "+2h" or "-1.5h".
func formatSignedHours(hours float64) string {
	s := strconv.FormatFloat(hours, 'f', -1, 64)
	if hours > 0 {
		s = "+" + s
	}
	return s + "h"
}
