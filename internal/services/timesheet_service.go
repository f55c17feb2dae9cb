package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pointage/internal/amqp"
	"pointage/internal/core"
	"pointage/internal/storage"
)

// TimesheetService orchestrates timesheet operations across SQLite and AMQP
type TimesheetService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

// Summary is the display-ready rollup served to the reports views.
type Summary struct {
	User            core.User          `json:"user"`
	Totals          core.Totals        `json:"totals"`
	ClassicMinutes  int                `json:"classicMinutes"`
	HolidayMinutes  int                `json:"holidayMinutes"`
	ProgressPercent float64            `json:"progressPercent"`
	TrailingWeeks   []core.WeekPoint   `json:"trailingWeeks"`
	ByReason        map[string]float64 `json:"adjustmentsByReason"`
}

func NewTimesheetService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TimesheetService {
	return &TimesheetService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Users lists every registered user
func (s *TimesheetService) Users(ctx context.Context) ([]core.User, error) {
	return s.storage.ListUsers(ctx)
}

// UserByID loads one user
func (s *TimesheetService) UserByID(ctx context.Context, id string) (core.User, error) {
	return s.storage.GetUser(ctx, id)
}

// ActiveUser returns the currently selected user
func (s *TimesheetService) ActiveUser(ctx context.Context) (core.User, error) {
	id, err := s.storage.ActiveUserID(ctx)
	if err != nil {
		return core.User{}, fmt.Errorf("load active user id: %w", err)
	}
	if id == "" {
		return core.User{}, storage.ErrNotFound
	}
	return s.storage.GetUser(ctx, id)
}

// SetActiveUser switches the selected user
func (s *TimesheetService) SetActiveUser(ctx context.Context, userID string) error {
	if _, err := s.storage.GetUser(ctx, userID); err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := s.storage.SetActiveUserID(ctx, userID); err != nil {
		return fmt.Errorf("set active user: %w", err)
	}
	slog.InfoContext(ctx, "Active user switched", "user_id", userID)
	return nil
}

// Weeks lists a user's recorded weeks, most recent first
func (s *TimesheetService) Weeks(ctx context.Context, userID string) ([]core.Week, error) {
	return s.storage.ListWeeks(ctx, userID)
}

// CreateWeekFromTemplate materializes a template into a new dated week.
// The date may fall anywhere in the target week. A missing template, or
// one owned by another user, is a silent no-op and the returned bool is
// false.
func (s *TimesheetService) CreateWeekFromTemplate(ctx context.Context, userID, templateID string, anyDate core.Date, notes string) (core.Week, bool, error) {
	template, err := s.storage.GetTemplate(ctx, templateID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Week creation skipped, template missing",
			"user_id", userID, "template_id", templateID)
		return core.Week{}, false, nil
	}
	if err != nil {
		return core.Week{}, false, fmt.Errorf("load template: %w", err)
	}
	if template.UserID != userID {
		slog.WarnContext(ctx, "Week creation skipped, template owned by another user",
			"user_id", userID, "template_id", templateID)
		return core.Week{}, false, nil
	}

	week := core.Materialize(template, core.MondayOf(anyDate))
	week.Notes = notes
	if err := s.storage.SaveWeek(ctx, week); err != nil {
		return core.Week{}, false, fmt.Errorf("save week: %w", err)
	}

	slog.InfoContext(ctx, "Week created from template",
		"user_id", userID,
		"week_id", week.ID,
		"week_number", week.WeekNumber,
		"template_id", templateID)

	s.publishChange(ctx, userID, amqp.KindWeek)
	return week, true, nil
}

// UpdateWeek stores direct edits to an existing week
func (s *TimesheetService) UpdateWeek(ctx context.Context, week core.Week) error {
	if err := week.Validate(); err != nil {
		return fmt.Errorf("validate week: %w", err)
	}
	if _, err := s.storage.GetWeek(ctx, week.ID); err != nil {
		return fmt.Errorf("lookup week: %w", err)
	}
	if err := s.storage.SaveWeek(ctx, week); err != nil {
		return fmt.Errorf("save week: %w", err)
	}

	slog.InfoContext(ctx, "Week updated", "user_id", week.UserID, "week_id", week.ID)
	s.publishChange(ctx, week.UserID, amqp.KindWeek)
	return nil
}

// Templates lists a user's schedule templates
func (s *TimesheetService) Templates(ctx context.Context, userID string) ([]core.WeekTemplate, error) {
	return s.storage.ListTemplates(ctx, userID)
}

// SaveTemplate creates or updates a template. Updating rewrites every week
// still linked to the template: their days are rebuilt from the new
// definition and any direct edit made to those weeks is lost.
func (s *TimesheetService) SaveTemplate(ctx context.Context, template core.WeekTemplate) (core.WeekTemplate, error) {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	if err := template.Validate(); err != nil {
		return core.WeekTemplate{}, fmt.Errorf("validate template: %w", err)
	}
	if err := s.storage.SaveTemplate(ctx, template); err != nil {
		return core.WeekTemplate{}, fmt.Errorf("save template: %w", err)
	}

	linked, err := s.storage.WeeksByTemplate(ctx, template.ID)
	if err != nil {
		return core.WeekTemplate{}, fmt.Errorf("load linked weeks: %w", err)
	}
	for _, week := range core.Resync(template, linked) {
		if err := s.storage.SaveWeek(ctx, week); err != nil {
			return core.WeekTemplate{}, fmt.Errorf("resync week %s: %w", week.ID, err)
		}
	}

	slog.InfoContext(ctx, "Template saved",
		"user_id", template.UserID,
		"template_id", template.ID,
		"linked_weeks", len(linked))

	s.publishChange(ctx, template.UserID, amqp.KindTemplate)
	return template, nil
}

// DuplicateTemplate deep-copies a template under a new identity
func (s *TimesheetService) DuplicateTemplate(ctx context.Context, templateID string) (core.WeekTemplate, error) {
	template, err := s.storage.GetTemplate(ctx, templateID)
	if err != nil {
		return core.WeekTemplate{}, fmt.Errorf("load template: %w", err)
	}

	dup := core.DuplicateTemplate(template)
	if err := s.storage.SaveTemplate(ctx, dup); err != nil {
		return core.WeekTemplate{}, fmt.Errorf("save duplicate: %w", err)
	}

	slog.InfoContext(ctx, "Template duplicated",
		"user_id", template.UserID,
		"template_id", templateID,
		"duplicate_id", dup.ID)

	s.publishChange(ctx, template.UserID, amqp.KindTemplate)
	return dup, nil
}

// DeleteTemplate removes a template and returns the owner's id. Weeks built
// from it survive: they are detached and keep their current days.
func (s *TimesheetService) DeleteTemplate(ctx context.Context, templateID string) (string, error) {
	template, err := s.storage.GetTemplate(ctx, templateID)
	if err != nil {
		return "", fmt.Errorf("load template: %w", err)
	}
	if err := s.storage.DeleteTemplate(ctx, templateID); err != nil {
		return "", fmt.Errorf("delete template: %w", err)
	}

	slog.InfoContext(ctx, "Template deleted", "user_id", template.UserID, "template_id", templateID)
	s.publishChange(ctx, template.UserID, amqp.KindTemplate)
	return template.UserID, nil
}

// Adjustments lists a user's manual adjustments
func (s *TimesheetService) Adjustments(ctx context.Context, userID string) ([]core.ManualAdjustment, error) {
	return s.storage.ListAdjustments(ctx, userID)
}

// AddAdjustment records a signed correction to a user's total
func (s *TimesheetService) AddAdjustment(ctx context.Context, adjustment core.ManualAdjustment) (core.ManualAdjustment, error) {
	if adjustment.ID == "" {
		adjustment.ID = uuid.NewString()
	}
	if err := adjustment.Validate(); err != nil {
		return core.ManualAdjustment{}, fmt.Errorf("validate adjustment: %w", err)
	}
	if err := s.storage.AddAdjustment(ctx, adjustment); err != nil {
		return core.ManualAdjustment{}, fmt.Errorf("save adjustment: %w", err)
	}

	slog.InfoContext(ctx, "Adjustment added",
		"user_id", adjustment.UserID,
		"adjustment_id", adjustment.ID,
		"hours", adjustment.Hours)

	s.publishChange(ctx, adjustment.UserID, amqp.KindAdjustment)
	return adjustment, nil
}

// DeleteAdjustment removes a recorded adjustment
func (s *TimesheetService) DeleteAdjustment(ctx context.Context, userID, adjustmentID string) error {
	if err := s.storage.DeleteAdjustment(ctx, adjustmentID); err != nil {
		return fmt.Errorf("delete adjustment: %w", err)
	}

	slog.InfoContext(ctx, "Adjustment deleted", "user_id", userID, "adjustment_id", adjustmentID)
	s.publishChange(ctx, userID, amqp.KindAdjustment)
	return nil
}

// Summary rolls up one user's hours for the dashboard and reports views
func (s *TimesheetService) Summary(ctx context.Context, userID string, trailing int) (Summary, error) {
	user, err := s.storage.GetUser(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load user: %w", err)
	}
	weeks, err := s.storage.ListWeeks(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load weeks: %w", err)
	}
	adjustments, err := s.storage.ListAdjustments(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load adjustments: %w", err)
	}

	now := time.Now()
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())
	totals := core.UserTotals(user, weeks, adjustments, today)
	classic, holiday := core.HolidaySplit(weeks)

	var progress float64
	if user.AnnualTarget > 0 {
		progress = float64(totals.TotalMinutes) / float64(user.AnnualTarget*60) * 100
	}

	return Summary{
		User:            user,
		Totals:          totals,
		ClassicMinutes:  classic,
		HolidayMinutes:  holiday,
		ProgressPercent: progress,
		TrailingWeeks:   core.TrailingWeeks(weeks, trailing),
		ByReason:        core.AdjustmentsByReason(adjustments),
	}, nil
}

func (s *TimesheetService) publishChange(ctx context.Context, userID, kind string) {
	if s.amqpClient == nil {
		return
	}
	// Change events drive report regeneration only, a publish failure
	// must not fail the request.
	if err := s.amqpClient.PublishTimesheetChanged(ctx, userID, kind); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"user_id", userID, "kind", kind, "error", err)
	}
}

// Close closes both storage and AMQP connections
func (s *TimesheetService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close timesheet service: %v", errs)
	}

	return nil
}
