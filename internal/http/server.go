// Package http exposes the JSON API over the dataset store and the
// services built on it.
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

	"kakeibo/internal/services"
	"kakeibo/internal/storage"
)

// Server wires the HTTP routes to the repository and services.
type Server struct {
	http.Server

	repo      *storage.Repository
	dashboard *services.DashboardService
	merger    *services.MergeService
	rollover  *services.RolloverService
	importer  *services.ImportService
	exporter  *services.ExportService

	rateLimiter    *rateLimiter
	maxUploadBytes int64
	shutdownOnce   sync.Once
}

// NewServer configures all routes and returns a ready-to-run server.
func NewServer(addr string, repo *storage.Repository, maxUploadBytes int64) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		repo:           repo,
		dashboard:      services.NewDashboardService(repo),
		merger:         services.NewMergeService(repo),
		rollover:       services.NewRolloverService(repo),
		importer:       services.NewImportService(repo),
		exporter:       services.NewExportService(repo),
		rateLimiter:    newRateLimiter(),
		maxUploadBytes: maxUploadBytes,
	}

	mux.HandleFunc("GET /api/health", handleHealth)

	mux.HandleFunc("GET /api/datasets", s.wrap(s.handleListDatasets))
	mux.HandleFunc("POST /api/datasets", s.wrap(s.handleCreateDataset))
	mux.HandleFunc("PUT /api/datasets/{id}", s.wrap(s.handleUpdateDataset))
	mux.HandleFunc("DELETE /api/datasets/{id}", s.wrap(s.handleDeleteDataset))
	mux.HandleFunc("POST /api/datasets/rollover", s.wrap(s.handleRolloverDataset))
	mux.HandleFunc("GET /api/datasets/{id}/purchase-import-setting", s.wrap(s.handleGetPurchaseImportSetting))
	mux.HandleFunc("POST /api/datasets/{id}/purchase-import-setting", s.wrap(s.handleSavePurchaseImportSetting))

	mux.HandleFunc("GET /api/members", s.wrap(s.handleListMembers))
	mux.HandleFunc("POST /api/members", s.wrap(s.handleCreateMember))
	mux.HandleFunc("PUT /api/members/{id}", s.wrap(s.handleUpdateMember))
	mux.HandleFunc("DELETE /api/members/{id}", s.wrap(s.handleDeleteMember))

	mux.HandleFunc("GET /api/dashboard", s.wrap(s.handleDashboard))

	mux.HandleFunc("GET /api/budgets", s.wrap(s.handleListBudgets))
	mux.HandleFunc("POST /api/budgets", s.wrap(s.handleCreateBudget))
	mux.HandleFunc("PUT /api/budgets/{id}", s.wrap(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.wrap(s.handleDeleteBudget))
	mux.HandleFunc("POST /api/budgets/merge", s.wrap(s.handleMergeBudgets))
	mux.HandleFunc("GET /api/budgets/{id}/import-setting", s.wrap(s.handleGetImportSetting))
	mux.HandleFunc("POST /api/budgets/{id}/import-setting", s.wrap(s.handleSaveImportSetting))
	mux.HandleFunc("POST /api/budgets/{id}/import-csv", s.wrap(s.handleImportExpensesCSV))
	mux.HandleFunc("GET /api/budgets/{id}/actual-expenses", s.wrap(s.handleListActualExpenses))
	mux.HandleFunc("POST /api/budgets/{id}/actual-expenses", s.wrap(s.handleCreateActualExpense))
	mux.HandleFunc("PUT /api/actual-expenses/{id}", s.wrap(s.handleUpdateActualExpense))
	mux.HandleFunc("DELETE /api/actual-expenses/{id}", s.wrap(s.handleDeleteActualExpense))

	mux.HandleFunc("GET /api/purchases", s.wrap(s.handleListPurchases))
	mux.HandleFunc("POST /api/purchases", s.wrap(s.handleCreatePurchase))
	mux.HandleFunc("POST /api/purchases/import", s.wrap(s.handleBulkImportPurchases))
	mux.HandleFunc("PUT /api/purchases/{id}", s.wrap(s.handleUpdatePurchase))
	mux.HandleFunc("PATCH /api/purchases/{id}/status", s.wrap(s.handleUpdatePurchaseStatus))
	mux.HandleFunc("DELETE /api/purchases/{id}", s.wrap(s.handleDeletePurchase))
	mux.HandleFunc("GET /api/purchases/export-csv", s.wrap(s.handleExportPurchasesCSV))
	mux.HandleFunc("POST /api/purchases/import-csv", s.wrap(s.handleImportPurchasesCSV))

	return s
}

// wrap adds request tracing, rate limiting on mutations and the
// standard response headers around every API handler.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Shutdown stops the rate limiter's cleanup goroutine and drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
