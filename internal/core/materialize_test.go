package core

import "testing"

func sampleTemplate() WeekTemplate {
	return WeekTemplate{
		ID:       "tpl-1",
		UserID:   "julien",
		Name:     "Semaine Type (30h)",
		Category: Classique,
		Days: []DayTemplate{
			{Weekday: 1, Entries: []TimeEntry{
				{Start: "07:10", End: "08:30", Description: "Accueil du matin"},
				{Start: "11:55", End: "13:50", Description: "Midi"},
			}},
			{Weekday: 3, Entries: []TimeEntry{
				{Start: "07:10", End: "13:00", Description: "Mercredi Matin"},
			}},
			{Weekday: 5, Entries: []TimeEntry{
				{Start: "16:30", End: "17:50", Description: "Accueil du soir"},
			}},
		},
	}
}

func TestMaterialize(t *testing.T) {
	template := sampleTemplate()
	monday := NewDate(2025, 9, 1)

	week := Materialize(template, monday)

	if week.ID == "" {
		t.Fatal("expected a generated week id")
	}
	if week.UserID != "julien" || week.TemplateID != "tpl-1" {
		t.Fatalf("owner/back-reference wrong: %+v", week)
	}
	if week.WeekNumber != 36 {
		t.Fatalf("WeekNumber = %d, want 36", week.WeekNumber)
	}
	if week.Type != template.Name || week.IsHolidayWeek {
		t.Fatalf("type label/holiday flag wrong: %q %v", week.Type, week.IsHolidayWeek)
	}
	if len(week.Days) != len(template.Days) {
		t.Fatalf("got %d days, want %d", len(week.Days), len(template.Days))
	}

	wantDates := []Date{monday, monday.AddDays(2), monday.AddDays(4)}
	seen := map[string]bool{}
	for i, day := range week.Days {
		if !day.Date.Equal(wantDates[i].Time) {
			t.Errorf("day %d dated %s, want %s", i, day.Date, wantDates[i])
		}
		for _, entry := range day.Entries {
			if entry.ID == "" {
				t.Error("materialized entry missing id")
			}
			if seen[entry.ID] {
				t.Errorf("duplicate entry id %s", entry.ID)
			}
			seen[entry.ID] = true
		}
	}

	if WeekTotal(week) != TemplateTotal(template) {
		t.Fatalf("WeekTotal %d != TemplateTotal %d", WeekTotal(week), TemplateTotal(template))
	}
}

func TestMaterializeHolidayCategory(t *testing.T) {
	template := sampleTemplate()
	template.Category = Vacances
	week := Materialize(template, NewDate(2025, 10, 20))
	if !week.IsHolidayWeek {
		t.Fatal("vacances template must produce a holiday week")
	}
}

func TestResyncOverwritesLinkedWeeks(t *testing.T) {
	template := sampleTemplate()
	monday := NewDate(2025, 9, 1)
	week := Materialize(template, monday)
	week.Notes = "semaine chargée"

	// User edits an entry directly, then the template changes.
	week.Days[0].Entries[0].End = "09:45"
	template.Name = "Semaine Type (32h)"
	template.Category = Vacances
	template.Days[0].Entries = append(template.Days[0].Entries,
		TimeEntry{Start: "15:00", End: "16:00", Description: "Prépa"})

	oldEntryIDs := map[string]bool{}
	for _, day := range week.Days {
		for _, e := range day.Entries {
			oldEntryIDs[e.ID] = true
		}
	}

	synced := Resync(template, []Week{week})[0]

	if synced.ID != week.ID || !synced.StartDate.Equal(monday.Time) || synced.WeekNumber != week.WeekNumber {
		t.Fatalf("resync must preserve identity and anchor: %+v", synced)
	}
	if synced.Notes != "semaine chargée" {
		t.Fatalf("resync must preserve notes, got %q", synced.Notes)
	}
	if synced.Type != "Semaine Type (32h)" || !synced.IsHolidayWeek {
		t.Fatalf("resync must refresh label and holiday flag: %+v", synced)
	}
	if WeekTotal(synced) != TemplateTotal(template) {
		t.Fatalf("resynced total %d != template total %d", WeekTotal(synced), TemplateTotal(template))
	}
	// Direct edit is gone and every entry id is fresh.
	for _, day := range synced.Days {
		for _, e := range day.Entries {
			if e.End == "09:45" {
				t.Fatal("direct entry edit survived resync")
			}
			if oldEntryIDs[e.ID] {
				t.Fatalf("entry id %s survived resync", e.ID)
			}
		}
	}
}

func TestResyncLeavesUnrelatedWeeksAlone(t *testing.T) {
	template := sampleTemplate()
	linked := Materialize(template, NewDate(2025, 9, 1))
	detached := linked
	detached.ID = "week-detached"
	detached.TemplateID = ""
	foreign := linked
	foreign.ID = "week-foreign"
	foreign.TemplateID = "tpl-other"

	template.Name = "Renommé"
	out := Resync(template, []Week{detached, foreign})

	if out[0].Type != linked.Type || out[1].Type != linked.Type {
		t.Fatal("resync touched a week it does not own")
	}
	if out[0].Days[0].Entries[0].ID != detached.Days[0].Entries[0].ID {
		t.Fatal("resync regenerated entries of a detached week")
	}
}

func TestDuplicateTemplate(t *testing.T) {
	template := sampleTemplate()
	copied := DuplicateTemplate(template)

	if copied.ID == template.ID || copied.ID == "" {
		t.Fatalf("duplicate must get a new id, got %q", copied.ID)
	}
	if copied.Name != "Semaine Type (30h) (Copie)" {
		t.Fatalf("duplicate name = %q", copied.Name)
	}
	if len(copied.Days) != len(template.Days) {
		t.Fatalf("duplicate day count = %d", len(copied.Days))
	}

	// Deep copy: editing the duplicate leaves the original untouched.
	copied.Days[0].Entries[0].Start = "06:00"
	if template.Days[0].Entries[0].Start != "07:10" {
		t.Fatal("duplicate shares entry storage with the original")
	}
}
