package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"pointage/internal/core"
	"pointage/internal/services"
	"pointage/internal/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.New(filepath.Join(t.TempDir(), "pointage.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	svc := services.NewTimesheetService(repo, nil)
	t.Cleanup(func() { svc.Close() })

	ctx := context.Background()
	if err := repo.SeedIfEmpty(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewServer(":0", svc, 12)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s := testServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
	}
}

func TestUsersAPI(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users = %d", rec.Code)
	}
	users := decodeBody[[]core.User](t, rec)
	if len(users) == 0 {
		t.Fatal("no seeded users")
	}

	rec = doJSON(t, s, http.MethodGet, "/api/users/active", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active user = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/users/active", map[string]string{"userId": users[1].ID})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set active user = %d: %s", rec.Code, rec.Body.String())
	}
	active := decodeBody[core.User](t, doJSON(t, s, http.MethodGet, "/api/users/active", nil))
	if active.ID != users[1].ID {
		t.Errorf("active = %s, want %s", active.ID, users[1].ID)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/users/active", map[string]string{"userId": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPut, "/api/users/active", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing userId = %d", rec.Code)
	}
}

func TestWeekLifecycleAPI(t *testing.T) {
	s := testServer(t)

	templates := decodeBody[[]core.WeekTemplate](t, doJSON(t, s, http.MethodGet, "/api/templates", nil))
	if len(templates) == 0 {
		t.Fatal("no seeded templates")
	}

	rec := doJSON(t, s, http.MethodPost, "/api/weeks", map[string]string{
		"templateId": templates[0].ID,
		"date":       "2025-09-03",
		"notes":      "rentrée",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create week = %d: %s", rec.Code, rec.Body.String())
	}
	week := decodeBody[core.Week](t, rec)
	if week.StartDate.String() != "2025-09-01" {
		t.Errorf("start date = %s", week.StartDate)
	}
	if week.WeekNumber != 36 {
		t.Errorf("week number = %d", week.WeekNumber)
	}

	// Update an entry directly.
	week.Notes = "modifiée"
	rec = doJSON(t, s, http.MethodPut, "/api/weeks/"+week.ID, week)
	if rec.Code != http.StatusOK {
		t.Fatalf("update week = %d: %s", rec.Code, rec.Body.String())
	}

	weeks := decodeBody[[]core.Week](t, doJSON(t, s, http.MethodGet, "/api/weeks", nil))
	if len(weeks) != 1 || weeks[0].Notes != "modifiée" {
		t.Errorf("weeks = %+v", weeks)
	}

	// Unknown template is rejected without creating anything.
	rec = doJSON(t, s, http.MethodPost, "/api/weeks", map[string]string{
		"templateId": "ghost",
		"date":       "2025-09-03",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown template = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/weeks", map[string]string{
		"templateId": templates[0].ID,
		"date":       "03/09/2025",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPut, "/api/weeks/ghost", week)
	if rec.Code != http.StatusNotFound {
		t.Errorf("update missing week = %d", rec.Code)
	}
}

func TestTemplateAPI(t *testing.T) {
	s := testServer(t)

	active := decodeBody[core.User](t, doJSON(t, s, http.MethodGet, "/api/users/active", nil))

	rec := doJSON(t, s, http.MethodPost, "/api/templates", core.WeekTemplate{
		UserID:   active.ID,
		Name:     "Mi-temps",
		Category: core.Classique,
		Days: []core.DayTemplate{
			{Weekday: 2, Entries: []core.TimeEntry{{ID: "e1", Start: "08:00", End: "12:00"}}},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create template = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[core.WeekTemplate](t, rec)
	if created.ID == "" {
		t.Fatal("no id assigned")
	}

	// Invalid weekday is a validation error.
	rec = doJSON(t, s, http.MethodPost, "/api/templates", core.WeekTemplate{
		UserID:   active.ID,
		Name:     "Cassée",
		Category: core.Classique,
		Days:     []core.DayTemplate{{Weekday: 9}},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid template = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/templates/"+created.ID+"/duplicate", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("duplicate = %d", rec.Code)
	}
	dup := decodeBody[core.WeekTemplate](t, rec)
	if !strings.HasSuffix(dup.Name, " (Copie)") {
		t.Errorf("duplicate name = %q", dup.Name)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/templates/"+dup.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/templates/"+dup.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete missing = %d", rec.Code)
	}
}

func TestAdjustmentAPI(t *testing.T) {
	s := testServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/adjustments", map[string]any{
		"date":   "2025-06-10",
		"hours":  -2.5,
		"reason": "Récupération",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add adjustment = %d: %s", rec.Code, rec.Body.String())
	}
	adj := decodeBody[core.ManualAdjustment](t, rec)
	if adj.ID == "" || adj.UserID == "" {
		t.Fatalf("adjustment not filled in: %+v", adj)
	}

	list := decodeBody[[]core.ManualAdjustment](t, doJSON(t, s, http.MethodGet, "/api/adjustments", nil))
	if len(list) != 1 {
		t.Fatalf("adjustments = %+v", list)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/adjustments/"+adj.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete adjustment = %d", rec.Code)
	}
}

func TestSummaryAPI(t *testing.T) {
	s := testServer(t)

	templates := decodeBody[[]core.WeekTemplate](t, doJSON(t, s, http.MethodGet, "/api/templates", nil))
	rec := doJSON(t, s, http.MethodPost, "/api/weeks", map[string]string{
		"templateId": templates[0].ID,
		"date":       "2025-09-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create week = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary = %d", rec.Code)
	}
	summary := decodeBody[services.Summary](t, rec)
	if summary.Totals.TotalMinutes <= 0 {
		t.Errorf("total minutes = %d", summary.Totals.TotalMinutes)
	}
	if summary.Totals.WeeksRecorded != 1 {
		t.Errorf("weeks recorded = %d", summary.Totals.WeeksRecorded)
	}
	if len(summary.TrailingWeeks) != 1 {
		t.Errorf("trailing weeks = %+v", summary.TrailingWeeks)
	}

	// A mutation invalidates the cached summary.
	rec = doJSON(t, s, http.MethodPost, "/api/adjustments", map[string]any{
		"date":  "2025-09-02",
		"hours": 2.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add adjustment = %d", rec.Code)
	}
	refreshed := decodeBody[services.Summary](t, doJSON(t, s, http.MethodGet, "/api/summary", nil))
	if refreshed.Totals.TotalMinutes != summary.Totals.TotalMinutes+120 {
		t.Errorf("summary not refreshed after mutation: %d -> %d",
			summary.Totals.TotalMinutes, refreshed.Totals.TotalMinutes)
	}
}

func TestExportCSVAPI(t *testing.T) {
	s := testServer(t)

	templates := decodeBody[[]core.WeekTemplate](t, doJSON(t, s, http.MethodGet, "/api/templates", nil))
	rec := doJSON(t, s, http.MethodPost, "/api/weeks", map[string]string{
		"templateId": templates[0].ID,
		"date":       "2025-09-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create week = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/export.csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "rapport_heures_") {
		t.Errorf("content disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "Date,Type,Description/Raison,Total Heures") {
		t.Errorf("missing header row:\n%s", rec.Body.String())
	}
}

func TestMutationRateLimit(t *testing.T) {
	s := testServer(t)

	var limited bool
	for i := 0; i < 70; i++ {
		rec := doJSON(t, s, http.MethodPut, "/api/users/active", map[string]string{"userId": "julien"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Error("rate limiter never triggered on mutations")
	}

	// Reads stay unlimited.
	rec := doJSON(t, s, http.MethodGet, "/api/users", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("read after limit = %d", rec.Code)
	}
}
