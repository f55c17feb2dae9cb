package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Classique TemplateCategory = "classique"
	Vacances  TemplateCategory = "vacances"
)

type (
	TemplateCategory string

	Date struct {
		time.Time
	}

	// TimeEntry is one contiguous work span within a day. Entries inside a
	// template carry no ID; entries inside a materialized week always do.
	TimeEntry struct {
		ID          string `json:"id,omitempty"`
		Start       string `json:"start"` // "HH:MM"
		End         string `json:"end"`   // "HH:MM"
		Description string `json:"description"`
		Reason      string `json:"reason,omitempty"`
	}

	Day struct {
		Date    Date        `json:"date"`
		Entries []TimeEntry `json:"entries"`
	}

	// Week is a dated instantiation of a template, or freestanding history
	// once detached (TemplateID empty).
	Week struct {
		ID            string `json:"id"`
		UserID        string `json:"userId"`
		WeekNumber    int    `json:"weekNumber"`
		StartDate     Date   `json:"startDate"` // always a Monday
		Days          []Day  `json:"days"`
		Type          string `json:"type"` // template name at materialization time
		Notes         string `json:"notes,omitempty"`
		IsHolidayWeek bool   `json:"isHolidayWeek"`
		TemplateID    string `json:"templateId,omitempty"`
	}

	// DayTemplate defines the entries for one weekday, 1=Monday .. 7=Sunday.
	// Templates are sparse: weekdays without entries are simply absent.
	DayTemplate struct {
		Weekday int         `json:"dayOfWeek"`
		Entries []TimeEntry `json:"entries"`
	}

	WeekTemplate struct {
		ID       string           `json:"id"`
		UserID   string           `json:"userId"`
		Name     string           `json:"name"`
		Category TemplateCategory `json:"category"`
		Days     []DayTemplate    `json:"days"`
	}

	// ManualAdjustment is a standalone signed hour correction, never linked
	// to a week or template and never mutated after creation.
	ManualAdjustment struct {
		ID     string  `json:"id"`
		UserID string  `json:"userId"`
		Date   Date    `json:"date"`
		Hours  float64 `json:"hours"`
		Reason string  `json:"reason"`
	}

	User struct {
		ID           string `json:"id"`
		Name         string `json:"name"`
		Team         string `json:"team"`
		AnnualTarget int    `json:"annualTarget"` // whole hours per year
	}
)

var (
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrInvalidCategory = errors.New("invalid template category")
	ErrInvalidWeekday  = errors.New("weekday out of range 1..7")
	ErrDuplicateDay    = errors.New("duplicate weekday definition")
	ErrInvalidTarget   = errors.New("invalid annual target")
	ErrMissingDate     = errors.New("missing date")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date at midnight local time.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// SameMonth reports whether two dates fall in the same calendar month.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c TemplateCategory) Validate() error {
	switch c {
	case Classique, Vacances:
		return nil
	default:
		return ErrInvalidCategory
	}
}

func (t WeekTemplate) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	seen := map[int]bool{}
	for _, day := range t.Days {
		if day.Weekday < 1 || day.Weekday > 7 {
			return ErrInvalidWeekday
		}
		if seen[day.Weekday] {
			return ErrDuplicateDay
		}
		seen[day.Weekday] = true
	}
	return nil
}

func (w Week) Validate() error {
	if strings.TrimSpace(w.UserID) == "" {
		return ErrEmptyOwner
	}
	if w.StartDate.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (a ManualAdjustment) Validate() error {
	if strings.TrimSpace(a.UserID) == "" {
		return ErrEmptyOwner
	}
	if a.Date.IsZero() {
		return ErrMissingDate
	}
	return nil
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if u.AnnualTarget < 0 {
		return ErrInvalidTarget
	}
	return nil
}

// WeeksOf filters weeks down to the given owner. Collections are shared
// across users, so every consumer filters explicitly.
func WeeksOf(userID string, weeks []Week) []Week {
	var out []Week
	for _, w := range weeks {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out
}

// AdjustmentsOf filters adjustments down to the given owner.
func AdjustmentsOf(userID string, adjustments []ManualAdjustment) []ManualAdjustment {
	var out []ManualAdjustment
	for _, a := range adjustments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out
}
