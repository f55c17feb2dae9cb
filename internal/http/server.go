package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"pointage/internal/cache"
	"pointage/internal/log"
	"pointage/internal/services"
)

// Server wraps http.Server with the timesheet API routes, security
// middleware and a per-IP rate limiter on mutating requests.
type Server struct {
	http.Server
	service       *services.TimesheetService
	trailingWeeks int
	rateLimiter   *rateLimiter
	metrics       *securityMetrics
	logger        *log.Logger

	// Per-user summary cache, invalidated whenever that user's data mutates.
	summaryCache     *cache.LRUCache[services.Summary]
	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, service *services.TimesheetService, trailingWeeks int) *Server {
	router := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: router,
		},
		service:          service,
		trailingWeeks:    trailingWeeks,
		rateLimiter:      newRateLimiter(),
		metrics:          &securityMetrics{},
		logger:           log.New(log.Config{Level: slog.LevelInfo, Component: log.ComponentHTTP}),
		summaryCache:     cache.NewLRUCache[services.Summary](100, time.Minute),
		stopCacheCleanup: make(chan struct{}),
	}
	go s.startCacheCleanup()

	router.HandleFunc("/healthz", handleHealth)
	router.HandleFunc("/readyz", handleReady)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.withSecurityHeaders)

	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users/active", s.handleActiveUser).Methods(http.MethodGet)
	api.HandleFunc("/users/active", s.handleSetActiveUser).Methods(http.MethodPut)

	api.HandleFunc("/weeks", s.handleListWeeks).Methods(http.MethodGet)
	api.HandleFunc("/weeks", s.handleCreateWeek).Methods(http.MethodPost)
	api.HandleFunc("/weeks/{id}", s.handleUpdateWeek).Methods(http.MethodPut)

	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleSaveTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}", s.handleUpdateTemplate).Methods(http.MethodPut)
	api.HandleFunc("/templates/{id}", s.handleDeleteTemplate).Methods(http.MethodDelete)
	api.HandleFunc("/templates/{id}/duplicate", s.handleDuplicateTemplate).Methods(http.MethodPost)

	api.HandleFunc("/adjustments", s.handleListAdjustments).Methods(http.MethodGet)
	api.HandleFunc("/adjustments", s.handleAddAdjustment).Methods(http.MethodPost)
	api.HandleFunc("/adjustments/{id}", s.handleDeleteAdjustment).Methods(http.MethodDelete)

	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		structured := log.NewStructuredLogger(reqLogger)
		structured.LogHTTPStart(ctx, r, clientIP)

		// Rate limit mutating requests only, reads are cheap.
		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		structured.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// startCacheCleanup periodically drops expired summary entries.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if cleaned := s.summaryCache.CleanExpired(); cleaned > 0 {
				s.logger.Debug("Cache cleanup completed", "entries_removed", cleaned)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
