package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"pointage/internal/amqp"
	"pointage/internal/core"
	"pointage/internal/export"
	"pointage/internal/storage"
)

// ReportWorker keeps per-user CSV report snapshots on disk up to date.
// Change messages trigger a rebuild for one user; a periodic full pass
// covers messages lost while the worker was down.
type ReportWorker struct {
	storage   *storage.SQLiteRepository
	reportDir string
}

func NewReportWorker(storage *storage.SQLiteRepository, reportDir string) *ReportWorker {
	return &ReportWorker{
		storage:   storage,
		reportDir: reportDir,
	}
}

// HandleChangeMessage processes a single timesheet change message from AMQP
func (w *ReportWorker) HandleChangeMessage(ctx context.Context, msg *amqp.TimesheetChangedMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"user_id", msg.UserID,
		"kind", msg.Kind)

	user, err := w.storage.GetUser(ctx, msg.UserID)
	if err != nil {
		return fmt.Errorf("get user from storage: %w", err)
	}

	if err := w.regenerate(ctx, user); err != nil {
		return fmt.Errorf("regenerate report: %w", err)
	}

	return nil
}

// RegenerateAll rebuilds the report of every user concurrently
func (w *ReportWorker) RegenerateAll(ctx context.Context) error {
	users, err := w.storage.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	slog.InfoContext(ctx, "Regenerating all reports", "users", len(users))

	g, ctx := errgroup.WithContext(ctx)
	for _, user := range users {
		user := user
		g.Go(func() error {
			if err := w.regenerate(ctx, user); err != nil {
				return fmt.Errorf("user %s: %w", user.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// regenerate writes one user's report. The file is written to a temp name
// and renamed so readers never see a half-written report.
func (w *ReportWorker) regenerate(ctx context.Context, user core.User) error {
	weeks, err := w.storage.ListWeeks(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list weeks: %w", err)
	}
	adjustments, err := w.storage.ListAdjustments(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list adjustments: %w", err)
	}

	if err := os.MkdirAll(w.reportDir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	path := filepath.Join(w.reportDir, export.Filename(user))
	tmp, err := os.CreateTemp(w.reportDir, ".report-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := export.WriteCSV(tmp, user, weeks, adjustments); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace report: %w", err)
	}

	slog.InfoContext(ctx, "Report regenerated",
		"user_id", user.ID,
		"report_path", path,
		"weeks", len(weeks),
		"adjustments", len(adjustments))

	return nil
}
