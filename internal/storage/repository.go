// Package storage persists the timesheet collections in SQLite.
//
// Weeks and templates keep their nested day/entry structure as JSON columns:
// the core treats them as opaque JSON-shaped records and the database only
// ever filters on the flat columns (owner, dates, template references).
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"pointage/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("record not found")

const activeUserKey = "active_user"

type SQLiteRepository struct {
	db *sqlx.DB
}

func New(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Team         string `db:"team"`
	AnnualTarget int    `db:"annual_target"`
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, team, annual_target FROM users ORDER BY team, name`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]core.User, len(rows))
	for i, row := range rows {
		users[i] = core.User(row)
	}
	return users, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT id, name, team, annual_target FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return core.User(row), nil
}

func (r *SQLiteRepository) UpsertUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, name, team, annual_target) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, team = excluded.team, annual_target = excluded.annual_target`,
		u.ID, u.Name, u.Team, u.AnnualTarget)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

// ActiveUserID returns the stored active user selection, empty if unset.
func (r *SQLiteRepository) ActiveUserID(ctx context.Context) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id, `SELECT value FROM app_state WHERE key = ?`, activeUserKey)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active user: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) SetActiveUserID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		activeUserKey, id)
	if err != nil {
		return fmt.Errorf("set active user: %w", err)
	}
	return nil
}

// --- weeks ---

type weekRow struct {
	ID            string         `db:"id"`
	UserID        string         `db:"user_id"`
	WeekNumber    int            `db:"week_number"`
	StartDate     string         `db:"start_date"`
	Type          string         `db:"type"`
	Notes         string         `db:"notes"`
	IsHolidayWeek bool           `db:"is_holiday_week"`
	TemplateID    sql.NullString `db:"template_id"`
	Days          string         `db:"days"`
}

func (row weekRow) toWeek() (core.Week, error) {
	startDate, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.Week{}, fmt.Errorf("week %s start date: %w", row.ID, err)
	}
	var days []core.Day
	if err := json.Unmarshal([]byte(row.Days), &days); err != nil {
		return core.Week{}, fmt.Errorf("week %s days: %w", row.ID, err)
	}
	return core.Week{
		ID:            row.ID,
		UserID:        row.UserID,
		WeekNumber:    row.WeekNumber,
		StartDate:     startDate,
		Days:          days,
		Type:          row.Type,
		Notes:         row.Notes,
		IsHolidayWeek: row.IsHolidayWeek,
		TemplateID:    row.TemplateID.String,
	}, nil
}

const weekColumns = `id, user_id, week_number, start_date, type, notes, is_holiday_week, template_id, days`

func (r *SQLiteRepository) ListWeeks(ctx context.Context, userID string) ([]core.Week, error) {
	var rows []weekRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+weekColumns+` FROM weeks WHERE user_id = ? ORDER BY start_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	return rowsToWeeks(rows)
}

// WeeksByTemplate returns every week still referencing the given template.
func (r *SQLiteRepository) WeeksByTemplate(ctx context.Context, templateID string) ([]core.Week, error) {
	var rows []weekRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+weekColumns+` FROM weeks WHERE template_id = ? ORDER BY start_date`, templateID)
	if err != nil {
		return nil, fmt.Errorf("weeks by template: %w", err)
	}
	return rowsToWeeks(rows)
}

func (r *SQLiteRepository) GetWeek(ctx context.Context, id string) (core.Week, error) {
	var row weekRow
	err := r.db.GetContext(ctx, &row, `SELECT `+weekColumns+` FROM weeks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Week{}, ErrNotFound
	}
	if err != nil {
		return core.Week{}, fmt.Errorf("get week %s: %w", id, err)
	}
	return row.toWeek()
}

// SaveWeek inserts or fully replaces a week record.
func (r *SQLiteRepository) SaveWeek(ctx context.Context, w core.Week) error {
	days, err := json.Marshal(w.Days)
	if err != nil {
		return fmt.Errorf("marshal week days: %w", err)
	}
	templateID := sql.NullString{String: w.TemplateID, Valid: w.TemplateID != ""}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO weeks (id, user_id, week_number, start_date, type, notes, is_holiday_week, template_id, days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			week_number = excluded.week_number,
			start_date = excluded.start_date,
			type = excluded.type,
			notes = excluded.notes,
			is_holiday_week = excluded.is_holiday_week,
			template_id = excluded.template_id,
			days = excluded.days`,
		w.ID, w.UserID, w.WeekNumber, w.StartDate.String(), w.Type, w.Notes, w.IsHolidayWeek, templateID, string(days))
	if err != nil {
		return fmt.Errorf("save week %s: %w", w.ID, err)
	}
	return nil
}

// --- templates ---

type templateRow struct {
	ID       string `db:"id"`
	UserID   string `db:"user_id"`
	Name     string `db:"name"`
	Category string `db:"category"`
	Days     string `db:"days"`
}

func (row templateRow) toTemplate() (core.WeekTemplate, error) {
	var days []core.DayTemplate
	if err := json.Unmarshal([]byte(row.Days), &days); err != nil {
		return core.WeekTemplate{}, fmt.Errorf("template %s days: %w", row.ID, err)
	}
	return core.WeekTemplate{
		ID:       row.ID,
		UserID:   row.UserID,
		Name:     row.Name,
		Category: core.TemplateCategory(row.Category),
		Days:     days,
	}, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context, userID string) ([]core.WeekTemplate, error) {
	var rows []templateRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, name, category, days FROM week_templates WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	templates := make([]core.WeekTemplate, 0, len(rows))
	for _, row := range rows {
		tpl, err := row.toTemplate()
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.WeekTemplate, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row, `SELECT id, user_id, name, category, days FROM week_templates WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WeekTemplate{}, ErrNotFound
	}
	if err != nil {
		return core.WeekTemplate{}, fmt.Errorf("get template %s: %w", id, err)
	}
	return row.toTemplate()
}

// SaveTemplate inserts or fully replaces a template. Weekdays without
// entries are dropped before writing: templates are stored sparse.
func (r *SQLiteRepository) SaveTemplate(ctx context.Context, t core.WeekTemplate) error {
	kept := make([]core.DayTemplate, 0, len(t.Days))
	for _, day := range t.Days {
		if len(day.Entries) > 0 {
			kept = append(kept, day)
		}
	}
	days, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("marshal template days: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO week_templates (id, user_id, name, category, days) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			days = excluded.days`,
		t.ID, t.UserID, t.Name, string(t.Category), string(days))
	if err != nil {
		return fmt.Errorf("save template %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTemplate removes the template and detaches its weeks in one
// transaction. The weeks keep their last-materialized entries as frozen
// history.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete template: %w", err)
	}
	defer tx.Rollback()

	detached, err := tx.ExecContext(ctx, `UPDATE weeks SET template_id = NULL WHERE template_id = ?`, id)
	if err != nil {
		return fmt.Errorf("detach weeks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM week_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete template: %w", err)
	}

	if n, err := detached.RowsAffected(); err == nil && n > 0 {
		slog.InfoContext(ctx, "Detached weeks from deleted template", "template_id", id, "weeks", n)
	}
	return nil
}

// --- adjustments ---

type adjustmentRow struct {
	ID     string  `db:"id"`
	UserID string  `db:"user_id"`
	Date   string  `db:"date"`
	Hours  float64 `db:"hours"`
	Reason string  `db:"reason"`
}

func (r *SQLiteRepository) ListAdjustments(ctx context.Context, userID string) ([]core.ManualAdjustment, error) {
	var rows []adjustmentRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, user_id, date, hours, reason FROM manual_adjustments WHERE user_id = ? ORDER BY date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	adjustments := make([]core.ManualAdjustment, 0, len(rows))
	for _, row := range rows {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("adjustment %s date: %w", row.ID, err)
		}
		adjustments = append(adjustments, core.ManualAdjustment{
			ID:     row.ID,
			UserID: row.UserID,
			Date:   date,
			Hours:  row.Hours,
			Reason: row.Reason,
		})
	}
	return adjustments, nil
}

func (r *SQLiteRepository) AddAdjustment(ctx context.Context, a core.ManualAdjustment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO manual_adjustments (id, user_id, date, hours, reason) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Date.String(), a.Hours, a.Reason)
	if err != nil {
		return fmt.Errorf("add adjustment %s: %w", a.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAdjustment(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM manual_adjustments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete adjustment %s: %w", id, err)
	}
	return nil
}

func rowsToWeeks(rows []weekRow) ([]core.Week, error) {
	weeks := make([]core.Week, 0, len(rows))
	for _, row := range rows {
		week, err := row.toWeek()
		if err != nil {
			return nil, err
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}
