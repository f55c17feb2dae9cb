package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"pointage/internal/core"
)

// Built-in defaults used when the database is empty: the two teams with
// their statutory 1607h annual target and a pair of starter templates for
// the first user.
var seedUsers = []core.User{
	{ID: "julien", Name: "Julien", Team: "ÉLÉMENTAIRE", AnnualTarget: 1607},
	{ID: "harmonie", Name: "Harmonie", Team: "ÉLÉMENTAIRE", AnnualTarget: 1607},
	{ID: "nicolas", Name: "Nicolas", Team: "ÉLÉMENTAIRE", AnnualTarget: 1607},
	{ID: "virginie", Name: "Virginie", Team: "MATERNELLE", AnnualTarget: 1607},
	{ID: "aurore", Name: "Aurore", Team: "MATERNELLE", AnnualTarget: 1607},
	{ID: "marie", Name: "Marie", Team: "MATERNELLE", AnnualTarget: 1607},
}

func seedTemplates(userID string) []core.WeekTemplate {
	holidayDays := make([]core.DayTemplate, 0, 5)
	for wd := 1; wd <= 5; wd++ {
		holidayDays = append(holidayDays, core.DayTemplate{
			Weekday: wd,
			Entries: []core.TimeEntry{
				{Start: "07:30", End: "13:00", Description: "Matin"},
				{Start: "13:30", End: "17:00", Description: "Aprem"},
			},
		})
	}

	return []core.WeekTemplate{
		{
			ID:       uuid.NewString(),
			UserID:   userID,
			Name:     "Semaine Type (30h)",
			Category: core.Classique,
			Days: []core.DayTemplate{
				{Weekday: 1, Entries: []core.TimeEntry{
					{Start: "07:10", End: "08:30", Description: "Accueil du matin"},
					{Start: "11:55", End: "13:50", Description: "Midi"},
					{Start: "15:00", End: "16:00", Description: "Prépa"},
					{Start: "16:30", End: "18:30", Description: "Accueil du soir"},
				}},
				{Weekday: 2, Entries: []core.TimeEntry{
					{Start: "11:55", End: "13:50", Description: "Midi"},
					{Start: "16:30", End: "18:45", Description: "Accueil du soir"},
				}},
				{Weekday: 3, Entries: []core.TimeEntry{
					{Start: "07:10", End: "13:00", Description: "Mercredi Matin"},
					{Start: "13:30", End: "16:40", Description: "Mercredi Aprem"},
				}},
				{Weekday: 4, Entries: []core.TimeEntry{
					{Start: "11:55", End: "13:50", Description: "Midi"},
					{Start: "16:30", End: "18:15", Description: "Accueil du soir"},
				}},
				{Weekday: 5, Entries: []core.TimeEntry{
					{Start: "07:10", End: "08:30", Description: "Accueil du matin"},
					{Start: "11:55", End: "13:50", Description: "Midi"},
					{Start: "16:30", End: "17:50", Description: "Accueil du soir"},
				}},
			},
		},
		{
			ID:       uuid.NewString(),
			UserID:   userID,
			Name:     "Semaine Vacances",
			Category: core.Vacances,
			Days:     holidayDays,
		},
	}
}

// SeedIfEmpty loads the built-in defaults into an empty database. A
// populated database is left untouched.
func (r *SQLiteRepository) SeedIfEmpty(ctx context.Context) error {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, user := range seedUsers {
		if err := r.UpsertUser(ctx, user); err != nil {
			return err
		}
	}
	for _, template := range seedTemplates(seedUsers[0].ID) {
		if err := r.SaveTemplate(ctx, template); err != nil {
			return err
		}
	}
	if err := r.SetActiveUserID(ctx, seedUsers[0].ID); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Seeded empty database",
		"users", len(seedUsers),
		"templates", 2,
		"active_user", seedUsers[0].ID)
	return nil
}
