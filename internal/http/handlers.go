package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"pointage/internal/core"
	"pointage/internal/export"
	"pointage/internal/log"
	"pointage/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps storage/validation failures to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, msg+": not found")
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), msg, log.FieldError, err)
	writeError(w, http.StatusInternalServerError, msg)
}

// resolveUser picks the user from the userId query parameter, falling back
// to the active user.
func (s *Server) resolveUser(r *http.Request) (core.User, error) {
	if id := r.URL.Query().Get("userId"); id != "" {
		return s.service.UserByID(r.Context(), id)
	}
	return s.service.ActiveUser(r.Context())
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.Users(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleActiveUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.service.ActiveUser(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "active user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSetActiveUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	if err := s.service.SetActiveUser(r.Context(), req.UserID); err != nil {
		writeServiceError(w, r, err, "set active user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWeeks(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	weeks, err := s.service.Weeks(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list weeks")
		return
	}
	if weeks == nil {
		weeks = []core.Week{}
	}
	writeJSON(w, http.StatusOK, weeks)
}

func (s *Server) handleCreateWeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string `json:"userId"`
		TemplateID string `json:"templateId"`
		Date       string `json:"date"`
		Notes      string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "templateId is required")
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted as 2006-01-02")
		return
	}

	userID := req.UserID
	if userID == "" {
		user, err := s.service.ActiveUser(r.Context())
		if err != nil {
			writeServiceError(w, r, err, "resolve user")
			return
		}
		userID = user.ID
	}

	week, created, err := s.service.CreateWeekFromTemplate(r.Context(), userID, req.TemplateID, date, req.Notes)
	if err != nil {
		writeServiceError(w, r, err, "create week")
		return
	}
	if !created {
		writeError(w, http.StatusNotFound, "template not found for user")
		return
	}
	s.summaryCache.Delete(userID)
	writeJSON(w, http.StatusCreated, week)
}

func (s *Server) handleUpdateWeek(w http.ResponseWriter, r *http.Request) {
	var week core.Week
	if err := json.NewDecoder(r.Body).Decode(&week); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	week.ID = mux.Vars(r)["id"]

	if err := s.service.UpdateWeek(r.Context(), week); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "week not found")
			return
		}
		if isValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err, "update week")
		return
	}
	s.summaryCache.Delete(week.UserID)
	writeJSON(w, http.StatusOK, week)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	templates, err := s.service.Templates(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list templates")
		return
	}
	if templates == nil {
		templates = []core.WeekTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	template, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	template.ID = "" // POST always creates

	saved, err := s.service.SaveTemplate(r.Context(), template)
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err, "save template")
		return
	}
	s.summaryCache.Delete(saved.UserID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	template, ok := s.decodeTemplate(w, r)
	if !ok {
		return
	}
	template.ID = mux.Vars(r)["id"]

	saved, err := s.service.SaveTemplate(r.Context(), template)
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err, "update template")
		return
	}
	s.summaryCache.Delete(saved.UserID)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) decodeTemplate(w http.ResponseWriter, r *http.Request) (core.WeekTemplate, bool) {
	var template core.WeekTemplate
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return core.WeekTemplate{}, false
	}
	return template, true
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	owner, err := s.service.DeleteTemplate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err, "delete template")
		return
	}
	s.summaryCache.Delete(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	dup, err := s.service.DuplicateTemplate(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err, "duplicate template")
		return
	}
	s.summaryCache.Delete(dup.UserID)
	writeJSON(w, http.StatusCreated, dup)
}

func (s *Server) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	adjustments, err := s.service.Adjustments(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list adjustments")
		return
	}
	if adjustments == nil {
		adjustments = []core.ManualAdjustment{}
	}
	writeJSON(w, http.StatusOK, adjustments)
}

func (s *Server) handleAddAdjustment(w http.ResponseWriter, r *http.Request) {
	var adjustment core.ManualAdjustment
	if err := json.NewDecoder(r.Body).Decode(&adjustment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if adjustment.UserID == "" {
		user, err := s.service.ActiveUser(r.Context())
		if err != nil {
			writeServiceError(w, r, err, "resolve user")
			return
		}
		adjustment.UserID = user.ID
	}

	saved, err := s.service.AddAdjustment(r.Context(), adjustment)
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeServiceError(w, r, err, "add adjustment")
		return
	}
	s.summaryCache.Delete(saved.UserID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	if err := s.service.DeleteAdjustment(r.Context(), user.ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err, "delete adjustment")
		return
	}
	s.summaryCache.Delete(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	if cached, found := s.summaryCache.Get(user.ID); found {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Summary cache hit", log.FieldUserID, user.ID)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	summary, err := s.service.Summary(r.Context(), user.ID, s.trailingWeeks)
	if err != nil {
		writeServiceError(w, r, err, "summary")
		return
	}
	s.summaryCache.Set(user.ID, summary)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	user, err := s.resolveUser(r)
	if err != nil {
		writeServiceError(w, r, err, "resolve user")
		return
	}
	weeks, err := s.service.Weeks(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list weeks")
		return
	}
	adjustments, err := s.service.Adjustments(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err, "list adjustments")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(user)))
	if err := export.WriteCSV(w, user, weeks, adjustments); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed", log.FieldError, err, log.FieldUserID, user.ID)
	}
}

// isValidation reports whether err comes from a core Validate method.
func isValidation(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName,
		core.ErrEmptyOwner,
		core.ErrInvalidCategory,
		core.ErrInvalidWeekday,
		core.ErrDuplicateDay,
		core.ErrInvalidTarget,
		core.ErrMissingDate,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
