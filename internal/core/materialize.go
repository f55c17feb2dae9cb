package core

import "github.com/google/uuid"

// Materialize expands a template into a concrete week anchored at monday.
// One Day is built per weekday definition, dated monday + (weekday-1) days,
// with a fresh identifier assigned to every entry. The week copies the
// template's name as its type label and its holiday flag from the category;
// both are frozen at this instant and do not follow later template renames
// except through Resync.
func Materialize(template WeekTemplate, monday Date) Week {
	return Week{
		ID:            uuid.NewString(),
		UserID:        template.UserID,
		WeekNumber:    ISOWeekNumber(monday),
		StartDate:     monday,
		Days:          materializeDays(template, monday),
		Type:          template.Name,
		IsHolidayWeek: template.Category == Vacances,
		TemplateID:    template.ID,
	}
}

// Resync re-expands every week that still references the template, anchored
// at each week's existing Monday. It is a full overwrite of the week's days,
// not a merge: entry-level edits made directly to a materialized week are
// lost, and all entry identifiers are regenerated even when content is
// unchanged. Weeks referencing another template, or none, pass through
// untouched. The input slice is not mutated.
func Resync(template WeekTemplate, weeks []Week) []Week {
	out := make([]Week, len(weeks))
	for i, week := range weeks {
		if week.TemplateID != template.ID {
			out[i] = week
			continue
		}
		week.Days = materializeDays(template, week.StartDate)
		week.Type = template.Name
		week.IsHolidayWeek = template.Category == Vacances
		out[i] = week
	}
	return out
}

// DuplicateTemplate deep-copies a template under a new identifier with a
// copy suffix on the name. Existing weeks are unaffected.
func DuplicateTemplate(template WeekTemplate) WeekTemplate {
	copied := template
	copied.ID = uuid.NewString()
	copied.Name = template.Name + " (Copie)"
	copied.Days = make([]DayTemplate, len(template.Days))
	for i, day := range template.Days {
		copied.Days[i] = DayTemplate{
			Weekday: day.Weekday,
			Entries: append([]TimeEntry(nil), day.Entries...),
		}
	}
	return copied
}

func materializeDays(template WeekTemplate, monday Date) []Day {
	days := make([]Day, 0, len(template.Days))
	for _, dayTpl := range template.Days {
		entries := make([]TimeEntry, len(dayTpl.Entries))
		for i, entry := range dayTpl.Entries {
			entry.ID = uuid.NewString()
			entries[i] = entry
		}
		days = append(days, Day{
			Date:    monday.AddDays(dayTpl.Weekday - 1),
			Entries: entries,
		})
	}
	return days
}
