package export

import (
	"strings"
	"testing"

	"pointage/internal/core"
)

func reportLines(t *testing.T, user core.User, weeks []core.Week, adjustments []core.ManualAdjustment) []string {
	t.Helper()
	var buf strings.Builder
	if err := WriteCSV(&buf, user, weeks, adjustments); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := strings.TrimPrefix(buf.String(), "\ufeff")
	if out == buf.String() {
		t.Fatal("missing BOM prefix")
	}
	return strings.Split(strings.TrimRight(out, "\n"), "\n")
}

func TestWriteCSV(t *testing.T) {
	user := core.User{ID: "julien", Name: "Julien", AnnualTarget: 1607}
	weeks := []core.Week{
		{
			ID: "w1", UserID: "julien", WeekNumber: 35,
			StartDate: core.NewDate(2025, 8, 25),
			Days: []core.Day{{Date: core.NewDate(2025, 8, 25), Entries: []core.TimeEntry{
				{ID: "e1", Start: "08:00", End: "12:30"},
			}}},
			Type: "Semaine Type (30h)",
		},
		{
			ID: "w2", UserID: "julien", WeekNumber: 36,
			StartDate: core.NewDate(2025, 9, 1),
			Type:      "Semaine Vacances",
		},
		{ID: "w3", UserID: "marie", WeekNumber: 36, StartDate: core.NewDate(2025, 9, 1)},
	}
	adjustments := []core.ManualAdjustment{
		{ID: "a1", UserID: "julien", Date: core.NewDate(2025, 6, 10), Hours: -2.5, Reason: "Récupération"},
		{ID: "a2", UserID: "julien", Date: core.NewDate(2025, 7, 1), Hours: 1, Reason: "Réunion, hors planning"},
		{ID: "a3", UserID: "marie", Date: core.NewDate(2025, 7, 1), Hours: 4, Reason: "Autre"},
	}

	lines := reportLines(t, user, weeks, adjustments)

	if len(lines) != 5 {
		t.Fatalf("got %d lines, want header + 2 weeks + 2 adjustments:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if lines[0] != "Date,Type,Description/Raison,Total Heures" {
		t.Errorf("header = %q", lines[0])
	}
	// Weeks first, most recent first.
	if lines[1] != "01/09/2025,Semaine,S36 - Semaine Vacances,0h 00m" {
		t.Errorf("week row = %q", lines[1])
	}
	if lines[2] != "25/08/2025,Semaine,S35 - Semaine Type (30h),4h 30m" {
		t.Errorf("week row = %q", lines[2])
	}
	// Then adjustments, most recent first. A reason containing a comma is quoted.
	if lines[3] != `01/07/2025,Ajustement,"Réunion, hors planning",+1h` {
		t.Errorf("adjustment row = %q", lines[3])
	}
	if lines[4] != "10/06/2025,Ajustement,Récupération,-2.5h" {
		t.Errorf("adjustment row = %q", lines[4])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	user := core.User{ID: "julien", Name: "Julien"}
	lines := reportLines(t, user, nil, nil)
	if len(lines) != 1 {
		t.Fatalf("empty report should only have header, got %d lines", len(lines))
	}
}

func TestFilename(t *testing.T) {
	got := Filename(core.User{ID: "julien", Name: "Julien"})
	if got != "rapport_heures_julien.csv" {
		t.Errorf("Filename = %q", got)
	}
}

func TestFormatSignedHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{1, "+1h"},
		{2.5, "+2.5h"},
		{-2.5, "-2.5h"},
		{0, "0h"},
		{0.33, "+0.33h"},
	}
	for _, tt := range tests {
		if got := formatSignedHours(tt.hours); got != tt.want {
			t.Errorf("formatSignedHours(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}
